// Package pbf adapts OSM PBF files into the element stream the pass
// engine consumes. Each Scan opens the file fresh, so a source can be
// scanned as many times as the strategy needs passes.
package pbf

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/wegman-software/pbf2json-go/internal/model"
)

// ScanOptions selects which element kinds a pass decodes. Skipping
// kinds lets the decoder drop whole blocks cheaply.
type ScanOptions struct {
	Nodes     bool
	Ways      bool
	Relations bool
}

// ScanAll decodes every element kind.
var ScanAll = ScanOptions{Nodes: true, Ways: true, Relations: true}

// Source is a restartable element source backed by a PBF file.
type Source struct {
	path  string
	size  int64
	procs int
}

// Open stats the input file and prepares a source. The file itself is
// opened per scan.
func Open(path string, procs int) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input file unavailable: %w", err)
	}
	if procs < 1 {
		procs = 1
	}
	return &Source{path: path, size: info.Size(), procs: procs}, nil
}

// Size returns the input size in bytes, known before any scan.
func (s *Source) Size() int64 { return s.size }

// Scan decodes the file once, invoking fn for each element of a kind
// enabled in opts, in file order. A decode failure aborts the scan and
// is fatal for the pass. fn returning an error also aborts the scan.
func (s *Source) Scan(ctx context.Context, opts ScanOptions, fn func(model.Element) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, s.procs)
	defer scanner.Close()

	scanner.SkipNodes = !opts.Nodes
	scanner.SkipWays = !opts.Ways
	scanner.SkipRelations = !opts.Relations

	for scanner.Scan() {
		var el model.Element
		switch o := scanner.Object().(type) {
		case *osm.Node:
			el = &model.Node{
				ID:   int64(o.ID),
				Lat:  o.Lat,
				Lon:  o.Lon,
				Tags: o.Tags.Map(),
			}
		case *osm.Way:
			refs := make([]int64, len(o.Nodes))
			for i, n := range o.Nodes {
				refs[i] = int64(n.ID)
			}
			el = &model.Way{
				ID:      int64(o.ID),
				NodeIDs: refs,
				Tags:    o.Tags.Map(),
			}
		case *osm.Relation:
			members := make([]model.Member, len(o.Members))
			for i, m := range o.Members {
				members[i] = model.Member{
					Type: memberType(m.Type),
					Ref:  m.Ref,
					Role: m.Role,
				}
			}
			el = &model.Relation{
				ID:      int64(o.ID),
				Members: members,
				Tags:    o.Tags.Map(),
			}
		default:
			continue
		}

		if err := fn(el); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	return ctx.Err()
}

func memberType(t osm.Type) model.MemberType {
	switch t {
	case osm.TypeNode:
		return model.MemberNode
	case osm.TypeWay:
		return model.MemberWay
	default:
		return model.MemberRelation
	}
}
