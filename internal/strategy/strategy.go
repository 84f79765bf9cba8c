// Package strategy selects the processing strategy for a run based on
// input size and the requested geometry level. Selection happens once,
// before any I/O, and is never revisited mid-run.
package strategy

import "fmt"

// Strategy is the closed set of processing algorithms.
type Strategy int

const (
	// ThreePass builds a node coordinate store, then a way geometry
	// cache, then emits all elements with complete geometry including
	// resolved relations.
	ThreePass Strategy = iota
	// TwoPass builds a node coordinate store, then emits all elements;
	// ways get full geometry, relations are emitted unresolved.
	TwoPass
	// Streaming emits in a single pass with a bounded LRU coordinate
	// cache; way geometry is best-effort, relations carry no geometry.
	Streaming
)

func (s Strategy) String() string {
	switch s {
	case ThreePass:
		return "three-pass"
	case TwoPass:
		return "two-pass"
	case Streaming:
		return "streaming"
	}
	return "unknown"
}

// Passes returns the number of input scans the strategy performs.
func (s Strategy) Passes() int {
	switch s {
	case ThreePass:
		return 3
	case TwoPass:
		return 2
	default:
		return 1
	}
}

// Level is the user-requested geometry level.
type Level string

const (
	LevelAuto  Level = "auto"
	LevelBasic Level = "basic"
	LevelFull  Level = "full"
)

// ParseLevel validates a geometry level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelAuto, LevelBasic, LevelFull:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown geometry level %q (want auto, basic or full)", s)
}

const (
	threePassMaxBytes = 100 << 20 // 100 MB
	twoPassMaxBytes   = 1 << 30   // 1 GB
)

// Select picks the strategy for an input of the given byte size. It is a
// pure function: basic always streams, full never streams, auto scales
// with input size.
func Select(sizeBytes int64, level Level) Strategy {
	switch level {
	case LevelBasic:
		return Streaming
	case LevelFull:
		if sizeBytes <= threePassMaxBytes {
			return ThreePass
		}
		return TwoPass
	default:
		switch {
		case sizeBytes <= threePassMaxBytes:
			return ThreePass
		case sizeBytes <= twoPassMaxBytes:
			return TwoPass
		default:
			return Streaming
		}
	}
}

// DiskBacked reports whether the coordinate store should live on disk
// instead of in memory for the given input size. This is a deployment
// detail of ThreePass/TwoPass, not a separate strategy.
func DiskBacked(sizeBytes int64) bool {
	return sizeBytes > twoPassMaxBytes
}
