package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wegman-software/pbf2json-go/internal/config"
	"github.com/wegman-software/pbf2json-go/internal/model"
	"github.com/wegman-software/pbf2json-go/internal/pbf"
	"github.com/wegman-software/pbf2json-go/internal/strategy"
)

// memSource replays a fixed element sequence, filtered by kind, on
// every scan. The reported size steers strategy selection.
type memSource struct {
	size     int64
	elements []model.Element
}

func (s *memSource) Size() int64 { return s.size }

func (s *memSource) Scan(ctx context.Context, opts pbf.ScanOptions, fn func(model.Element) error) error {
	for _, el := range s.elements {
		switch el.(type) {
		case *model.Node:
			if !opts.Nodes {
				continue
			}
		case *model.Way:
			if !opts.Ways {
				continue
			}
		case *model.Relation:
			if !opts.Relations {
				continue
			}
		}
		if err := fn(el); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.InputFile = "test.osm.pbf"
	cfg.Parallel = false
	cfg.MemoryLimitMB = 0
	return cfg
}

func runConversion(t *testing.T, cfg *config.Config, src *memSource) (*Stats, map[int64]map[string]interface{}) {
	t.Helper()

	coord, err := NewCoordinator(cfg, src)
	if err != nil {
		t.Fatalf("NewCoordinator() error: %v", err)
	}

	var buf bytes.Buffer
	stats, err := coord.Run(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	records := make(map[int64]map[string]interface{})
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		records[int64(rec["id"].(float64))] = rec
	}
	return stats, records
}

func fixtureElements() []model.Element {
	return []model.Element{
		&model.Node{ID: 1, Lat: 10, Lon: 20},
		&model.Node{ID: 2, Lat: 30, Lon: 40},
		&model.Node{ID: 3, Lat: 50, Lon: 60, Tags: map[string]string{"name": "corner"}},
		&model.Way{ID: 100, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "residential"}},
		&model.Relation{
			ID:   500,
			Tags: map[string]string{"type": "route"},
			Members: []model.Member{
				{Type: model.MemberNode, Ref: 1, Role: "stop"},
				{Type: model.MemberWay, Ref: 100, Role: ""},
			},
		},
	}
}

func TestThreePassResolvesFullGeometry(t *testing.T) {
	cfg := testConfig()
	src := &memSource{size: 10 << 20, elements: fixtureElements()}

	stats, records := runConversion(t, cfg, src)

	if stats.Strategy != strategy.ThreePass {
		t.Fatalf("strategy = %v, want ThreePass", stats.Strategy)
	}
	if stats.Records != 3 {
		t.Errorf("Records = %d, want 3 (untagged nodes are never emitted)", stats.Records)
	}
	if _, ok := records[1]; ok {
		t.Error("untagged node 1 was emitted")
	}

	way := records[100]
	if way == nil {
		t.Fatal("way 100 missing from output")
	}
	centroid := way["centroid"].(map[string]interface{})
	if centroid["lat"].(float64) != 20 || centroid["lon"].(float64) != 30 {
		t.Errorf("way centroid = %v, want lat=20 lon=30", centroid)
	}
	bounds := way["bounds"].(map[string]interface{})
	if bounds["n"].(float64) != 30 || bounds["s"].(float64) != 10 ||
		bounds["e"].(float64) != 40 || bounds["w"].(float64) != 20 {
		t.Errorf("way bounds = %v, want n=30 s=10 e=40 w=20", bounds)
	}

	rel := records[500]
	if rel == nil {
		t.Fatal("relation 500 missing from output")
	}
	// Equal-weight mean of node (10,20) and way centroid (20,30).
	relCentroid := rel["centroid"].(map[string]interface{})
	if relCentroid["lat"].(float64) != 15 || relCentroid["lon"].(float64) != 25 {
		t.Errorf("relation centroid = %v, want lat=15 lon=25", relCentroid)
	}
	members := rel["members"].([]interface{})
	if len(members) != 2 {
		t.Fatalf("relation members = %d, want 2", len(members))
	}
	first := members[0].(map[string]interface{})
	if first["type"] != "node" || first["id"].(float64) != 1 || first["role"] != "stop" {
		t.Errorf("first member = %v, want node 1 role=stop", first)
	}
}

func TestTwoPassSkipsRelationGeometry(t *testing.T) {
	cfg := testConfig()
	src := &memSource{size: 500 << 20, elements: fixtureElements()}

	stats, records := runConversion(t, cfg, src)

	if stats.Strategy != strategy.TwoPass {
		t.Fatalf("strategy = %v, want TwoPass", stats.Strategy)
	}

	// Way geometry is still resolved from the coordinate store.
	way := records[100]
	if way["centroid"] == nil {
		t.Error("two-pass way should have a centroid")
	}

	// Relations keep raw members and tags but no geometry.
	rel := records[500]
	if _, ok := rel["centroid"]; ok {
		t.Error("two-pass relation should not have a centroid")
	}
	if _, ok := rel["bounds"]; ok {
		t.Error("two-pass relation should not have bounds")
	}
	if len(rel["members"].([]interface{})) != 2 {
		t.Error("two-pass relation should keep its member list")
	}
}

func TestStreamingBestEffortGeometry(t *testing.T) {
	cfg := testConfig()
	cfg.GeometryLevel = "basic"
	src := &memSource{size: 10 << 20, elements: fixtureElements()}

	stats, records := runConversion(t, cfg, src)

	if stats.Strategy != strategy.Streaming {
		t.Fatalf("strategy = %v, want Streaming for basic level", stats.Strategy)
	}

	// Nodes precede the way in the stream, so its geometry resolves.
	way := records[100]
	centroid := way["centroid"].(map[string]interface{})
	if centroid["lat"].(float64) != 20 || centroid["lon"].(float64) != 30 {
		t.Errorf("streaming way centroid = %v, want lat=20 lon=30", centroid)
	}

	// Streaming never resolves relation geometry.
	if _, ok := records[500]["centroid"]; ok {
		t.Error("streaming relation should not have a centroid")
	}
}

func TestStreamingEvictionDegradesGeometry(t *testing.T) {
	cfg := testConfig()
	cfg.GeometryLevel = "basic"
	cfg.CacheSize = 1
	src := &memSource{size: 10 << 20, elements: []model.Element{
		&model.Node{ID: 1, Lat: 10, Lon: 20},
		&model.Node{ID: 2, Lat: 30, Lon: 40},
		&model.Way{ID: 100, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "path"}},
	}}

	_, records := runConversion(t, cfg, src)

	// Node 1 was evicted by node 2, so the centroid reflects node 2 only.
	centroid := records[100]["centroid"].(map[string]interface{})
	if centroid["lat"].(float64) != 30 || centroid["lon"].(float64) != 40 {
		t.Errorf("centroid = %v, want node 2 only (lat=30 lon=40)", centroid)
	}
}

func TestWayWithNoResolvedNodesOmitsGeometry(t *testing.T) {
	cfg := testConfig()
	src := &memSource{size: 10 << 20, elements: []model.Element{
		&model.Way{ID: 100, NodeIDs: []int64{7, 8}, Tags: map[string]string{"highway": "path"}},
		&model.Relation{
			ID:      500,
			Tags:    map[string]string{"type": "multipolygon"},
			Members: []model.Member{{Type: model.MemberWay, Ref: 100, Role: "outer"}},
		},
	}}

	_, records := runConversion(t, cfg, src)

	way := records[100]
	if _, ok := way["centroid"]; ok {
		t.Error("way with no resolved nodes should omit centroid")
	}
	if _, ok := way["bounds"]; ok {
		t.Error("way with no resolved nodes should omit bounds")
	}

	// The relation's only member carries zero resolved points.
	rel := records[500]
	if _, ok := rel["centroid"]; ok {
		t.Error("relation with no resolvable members should omit centroid")
	}
}

func TestTagFilterAppliesAcrossKinds(t *testing.T) {
	cfg := testConfig()
	cfg.Tags = "highway"
	src := &memSource{size: 10 << 20, elements: fixtureElements()}

	stats, records := runConversion(t, cfg, src)

	if stats.Records != 1 {
		t.Fatalf("Records = %d, want 1", stats.Records)
	}
	if _, ok := records[100]; !ok {
		t.Error("way 100 should pass the highway filter")
	}
}

func TestRepeatedRunsProduceIdenticalOutput(t *testing.T) {
	src := &memSource{size: 10 << 20, elements: fixtureElements()}

	var first string
	for i := 0; i < 3; i++ {
		cfg := testConfig()
		coord, err := NewCoordinator(cfg, src)
		if err != nil {
			t.Fatalf("NewCoordinator() error: %v", err)
		}
		var buf bytes.Buffer
		if _, err := coord.Run(context.Background(), &buf); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if i == 0 {
			first = buf.String()
		} else if buf.String() != first {
			t.Fatalf("run %d output differs from first run", i)
		}
	}
}

func TestInvalidFilterFailsBeforeAnyPass(t *testing.T) {
	cfg := testConfig()
	cfg.Tags = "ad*dr*"
	src := &memSource{size: 10 << 20}

	if _, err := NewCoordinator(cfg, src); err == nil {
		t.Fatal("expected error for pattern with multiple wildcards")
	}
}

func TestParallelEmissionCountsMatch(t *testing.T) {
	elements := make([]model.Element, 0, 1000)
	for i := int64(1); i <= 1000; i++ {
		elements = append(elements, &model.Node{
			ID: i, Lat: float64(i), Lon: float64(i),
			Tags: map[string]string{"name": "n"},
		})
	}

	cfg := testConfig()
	cfg.Parallel = true
	cfg.Workers = 4
	cfg.BatchSize = 16
	src := &memSource{size: 10 << 20, elements: elements}

	stats, records := runConversion(t, cfg, src)

	if stats.Records != 1000 {
		t.Errorf("Records = %d, want 1000", stats.Records)
	}
	if len(records) != 1000 {
		t.Errorf("distinct ids = %d, want 1000", len(records))
	}
}
