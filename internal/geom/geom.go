// Package geom computes centroids and bounding boxes over resolved
// coordinates and caches per-way geometry for relation resolution.
package geom

import (
	"sync"

	"github.com/paulmach/orb"

	"github.com/wegman-software/pbf2json-go/internal/model"
)

// Accumulator aggregates resolved coordinates into a centroid (unweighted
// arithmetic mean) and bounds (coordinate-wise min/max). Missing
// coordinates are simply not added; they never contribute zeros.
type Accumulator struct {
	sumLat float64
	sumLon float64
	count  int
	bound  orb.Bound
}

// Add records one resolved coordinate.
func (a *Accumulator) Add(lat, lon float64) {
	p := orb.Point{lon, lat}
	if a.count == 0 {
		a.bound = orb.Bound{Min: p, Max: p}
	} else {
		a.bound = a.bound.Extend(p)
	}
	a.sumLat += lat
	a.sumLon += lon
	a.count++
}

// AddEntry folds a resolved way geometry into a relation accumulator:
// the way's centroid joins the mean with equal weight and its bounds
// extend the union.
func (a *Accumulator) AddEntry(e Entry) {
	if e.Points == 0 {
		return
	}
	if a.count == 0 {
		a.bound = e.Bound
	} else {
		a.bound = a.bound.Union(e.Bound)
	}
	a.sumLat += e.Centroid.Lat()
	a.sumLon += e.Centroid.Lon()
	a.count++
}

// Count returns the number of resolved contributions.
func (a *Accumulator) Count() int { return a.count }

// Centroid returns the mean coordinate, or nil when nothing resolved.
func (a *Accumulator) Centroid() *model.Centroid {
	if a.count == 0 {
		return nil
	}
	n := float64(a.count)
	return &model.Centroid{Lat: a.sumLat / n, Lon: a.sumLon / n}
}

// Bounds returns the bounding box, or nil when nothing resolved.
func (a *Accumulator) Bounds() *model.Bounds {
	if a.count == 0 {
		return nil
	}
	return &model.Bounds{
		North: a.bound.Max.Lat(),
		South: a.bound.Min.Lat(),
		East:  a.bound.Max.Lon(),
		West:  a.bound.Min.Lon(),
	}
}

// Entry is the cached geometry of one way: centroid, bounds and the
// number of node coordinates that resolved. Points == 0 marks a way
// whose geometry is unavailable; such entries suppress centroid/bounds
// emission rather than producing degenerate zeros.
type Entry struct {
	Centroid orb.Point
	Bound    orb.Bound
	Points   int
}

// Cache maps way ids to resolved geometry. It accepts concurrent
// inserts during its build pass and is read-only afterwards; entries
// are never replaced.
type Cache struct {
	mu      sync.RWMutex
	entries map[int64]Entry
}

// NewCache creates an empty way geometry cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[int64]Entry)}
}

// Put stores the geometry entry for a way.
func (c *Cache) Put(id int64, e Entry) {
	c.mu.Lock()
	c.entries[id] = e
	c.mu.Unlock()
}

// Get returns the entry for a way id.
func (c *Cache) Get(id int64) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	return e, ok
}

// Len returns the number of cached ways.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EntryFromAccumulator freezes an accumulator into a cache entry.
func EntryFromAccumulator(a *Accumulator) Entry {
	if a.count == 0 {
		return Entry{}
	}
	n := float64(a.count)
	return Entry{
		Centroid: orb.Point{a.sumLon / n, a.sumLat / n},
		Bound:    a.bound,
		Points:   a.count,
	}
}
