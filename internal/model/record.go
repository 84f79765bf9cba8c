package model

// Centroid is the unweighted mean of an element's resolved coordinates.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is the axis-aligned bounding box of an element's resolved
// coordinates. North >= South and East >= West always hold because
// bounds are only computed over coordinates that actually resolved.
type Bounds struct {
	North float64 `json:"n"`
	South float64 `json:"s"`
	East  float64 `json:"e"`
	West  float64 `json:"w"`
}

// NodeRecord is the output line for a node.
type NodeRecord struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// WayRecord is the output line for a way. Centroid and Bounds are nil
// when no referenced node resolved, and are then omitted entirely.
type WayRecord struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Nodes    []int64           `json:"nodes"`
	Tags     map[string]string `json:"tags"`
	Centroid *Centroid         `json:"centroid,omitempty"`
	Bounds   *Bounds           `json:"bounds,omitempty"`
}

// MemberRecord mirrors a relation member in the output.
type MemberRecord struct {
	Type string `json:"type"`
	Ref  int64  `json:"id"`
	Role string `json:"role"`
}

// RelationRecord is the output line for a relation. The member list is
// always present; geometry fields follow the same omission rule as ways.
type RelationRecord struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Members  []MemberRecord    `json:"members"`
	Tags     map[string]string `json:"tags"`
	Centroid *Centroid         `json:"centroid,omitempty"`
	Bounds   *Bounds           `json:"bounds,omitempty"`
}

// NewNodeRecord builds the record for a node. Nodes carry their own
// coordinates, so conversion never depends on a cache.
func NewNodeRecord(n *Node) *NodeRecord {
	return &NodeRecord{
		ID:   n.ID,
		Type: "node",
		Lat:  n.Lat,
		Lon:  n.Lon,
		Tags: n.Tags,
	}
}

// NewMemberRecords converts a relation's member list.
func NewMemberRecords(members []Member) []MemberRecord {
	out := make([]MemberRecord, len(members))
	for i, m := range members {
		out[i] = MemberRecord{Type: string(m.Type), Ref: m.Ref, Role: m.Role}
	}
	return out
}
