package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestWayRecordOmitsUnresolvedGeometry(t *testing.T) {
	rec := &WayRecord{
		ID:    42,
		Type:  "way",
		Nodes: []int64{1, 2, 3},
		Tags:  map[string]string{"highway": "residential"},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(data)
	if strings.Contains(s, "centroid") {
		t.Errorf("expected centroid to be omitted, got %s", s)
	}
	if strings.Contains(s, "bounds") {
		t.Errorf("expected bounds to be omitted, got %s", s)
	}
}

func TestWayRecordIncludesResolvedGeometry(t *testing.T) {
	rec := &WayRecord{
		ID:       2,
		Type:     "way",
		Nodes:    []int64{1, 1},
		Tags:     map[string]string{"building": "yes"},
		Centroid: &Centroid{Lat: 10.0, Lon: 20.0},
		Bounds:   &Bounds{North: 10.0, South: 10.0, East: 20.0, West: 20.0},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	centroid, ok := decoded["centroid"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected centroid object, got %v", decoded["centroid"])
	}
	if centroid["lat"] != 10.0 || centroid["lon"] != 20.0 {
		t.Errorf("unexpected centroid: %v", centroid)
	}

	bounds, ok := decoded["bounds"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected bounds object, got %v", decoded["bounds"])
	}
	for field, want := range map[string]float64{"n": 10.0, "s": 10.0, "e": 20.0, "w": 20.0} {
		if bounds[field] != want {
			t.Errorf("bounds.%s = %v, want %v", field, bounds[field], want)
		}
	}
}

func TestRelationRecordKeepsMemberList(t *testing.T) {
	rec := &RelationRecord{
		ID:   7,
		Type: "relation",
		Members: NewMemberRecords([]Member{
			{Type: MemberWay, Ref: 2, Role: "outer"},
			{Type: MemberNode, Ref: 1, Role: "admin_centre"},
		}),
		Tags: map[string]string{"type": "multipolygon"},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Members []MemberRecord `json:"members"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(decoded.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(decoded.Members))
	}
	if decoded.Members[0].Type != "way" || decoded.Members[0].Ref != 2 || decoded.Members[0].Role != "outer" {
		t.Errorf("unexpected first member: %+v", decoded.Members[0])
	}
}
