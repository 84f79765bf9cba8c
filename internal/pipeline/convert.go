package pipeline

import (
	"encoding/json"

	"github.com/wegman-software/pbf2json-go/internal/coord"
	"github.com/wegman-software/pbf2json-go/internal/filter"
	"github.com/wegman-software/pbf2json-go/internal/geom"
	"github.com/wegman-software/pbf2json-go/internal/model"
	"github.com/wegman-software/pbf2json-go/internal/style"
)

// converter turns raw elements into JSON record lines using read-only
// cache snapshots. Conversion is a pure function of (element, caches),
// so one converter is shared by all workers of an emission pass.
//
// Unresolved references degrade geometry for that one element and
// never abort a pass.
type converter struct {
	expr filter.Expression

	nodeStyle     *style.Filter
	wayStyle      *style.Filter
	relationStyle *style.Filter

	coords coord.Store
	ways   *geom.Cache

	// insertNodes makes the converter feed node coordinates into the
	// store as they are seen (streaming mode's lazily populated cache).
	insertNodes bool
	// resolveRelations enables relation geometry from the way cache
	// (three-pass only).
	resolveRelations bool
}

func newConverter(expr filter.Expression, styleCfg *style.Config) *converter {
	cv := &converter{expr: expr}
	if styleCfg != nil {
		cv.nodeStyle = style.NewFilter(styleCfg.Nodes)
		cv.wayStyle = style.NewFilter(styleCfg.Ways)
		cv.relationStyle = style.NewFilter(styleCfg.Relations)
	}
	return cv
}

// admit applies the tag filter and style rules. Elements without tags
// are never emitted; they only feed caches.
func (cv *converter) admit(el model.Element, kindStyle *style.Filter) bool {
	tags := el.TagMap()
	if len(tags) == 0 {
		return false
	}
	if !cv.expr.Match(tags) {
		return false
	}
	if kindStyle != nil && !kindStyle.Match(tags) {
		return false
	}
	return true
}

// convert produces the JSON line for an element, or ok=false when the
// element is dropped by filtering.
func (cv *converter) convert(el model.Element) ([]byte, bool) {
	switch e := el.(type) {
	case *model.Node:
		return cv.convertNode(e)
	case *model.Way:
		return cv.convertWay(e)
	case *model.Relation:
		return cv.convertRelation(e)
	}
	return nil, false
}

func (cv *converter) convertNode(n *model.Node) ([]byte, bool) {
	if cv.insertNodes && cv.coords != nil {
		cv.coords.Put(n.ID, n.Lat, n.Lon)
	}
	if !cv.admit(n, cv.nodeStyle) {
		return nil, false
	}
	return marshal(model.NewNodeRecord(n))
}

func (cv *converter) convertWay(w *model.Way) ([]byte, bool) {
	if !cv.admit(w, cv.wayStyle) {
		return nil, false
	}

	rec := &model.WayRecord{
		ID:    w.ID,
		Type:  "way",
		Nodes: w.NodeIDs,
		Tags:  w.Tags,
	}

	if entry, ok := cv.wayGeometry(w); ok && entry.Points > 0 {
		rec.Centroid = &model.Centroid{Lat: entry.Centroid.Lat(), Lon: entry.Centroid.Lon()}
		rec.Bounds = &model.Bounds{
			North: entry.Bound.Max.Lat(),
			South: entry.Bound.Min.Lat(),
			East:  entry.Bound.Max.Lon(),
			West:  entry.Bound.Min.Lon(),
		}
	}

	return marshal(rec)
}

// wayGeometry fetches the way's geometry from the cache when one is
// wired, otherwise computes it from whatever node coordinates the store
// resolves. Misses are skipped, never substituted.
func (cv *converter) wayGeometry(w *model.Way) (geom.Entry, bool) {
	if cv.ways != nil {
		if entry, ok := cv.ways.Get(w.ID); ok {
			return entry, true
		}
	}
	if cv.coords == nil {
		return geom.Entry{}, false
	}

	var acc geom.Accumulator
	for _, id := range w.NodeIDs {
		if lat, lon, ok := cv.coords.Get(id); ok {
			acc.Add(lat, lon)
		}
	}
	return geom.EntryFromAccumulator(&acc), true
}

func (cv *converter) convertRelation(r *model.Relation) ([]byte, bool) {
	if !cv.admit(r, cv.relationStyle) {
		return nil, false
	}

	rec := &model.RelationRecord{
		ID:      r.ID,
		Type:    "relation",
		Members: model.NewMemberRecords(r.Members),
		Tags:    r.Tags,
	}

	if cv.resolveRelations {
		var acc geom.Accumulator
		for _, m := range r.Members {
			switch m.Type {
			case model.MemberNode:
				if cv.coords != nil {
					if lat, lon, ok := cv.coords.Get(m.Ref); ok {
						acc.Add(lat, lon)
					}
				}
			case model.MemberWay:
				if cv.ways != nil {
					if entry, ok := cv.ways.Get(m.Ref); ok {
						acc.AddEntry(entry)
					}
				}
			case model.MemberRelation:
				// Nested relations stay unresolved; recursing would
				// require cycle handling and an extra pass.
			}
		}
		rec.Centroid = acc.Centroid()
		rec.Bounds = acc.Bounds()
	}

	return marshal(rec)
}

func marshal(v interface{}) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return data, true
}
