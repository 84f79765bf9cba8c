package model

// MemberType identifies the kind of element a relation member points at.
type MemberType string

const (
	MemberNode     MemberType = "node"
	MemberWay      MemberType = "way"
	MemberRelation MemberType = "relation"
)

// Node is a single point with coordinates and tags.
type Node struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// Way is an ordered sequence of node references. A closed way repeats
// its first node id as the last entry.
type Way struct {
	ID      int64
	NodeIDs []int64
	Tags    map[string]string
}

// Member is one entry of a relation's member list.
type Member struct {
	Type MemberType
	Ref  int64
	Role string
}

// Relation is a composite element referencing nodes, ways and other
// relations. Nested relations are tolerated but never resolved.
type Relation struct {
	ID      int64
	Members []Member
	Tags    map[string]string
}

// Element is the closed set of raw input elements. Consumers dispatch
// with a type switch over *Node, *Way and *Relation.
type Element interface {
	ElementID() int64
	TagMap() map[string]string
}

func (n *Node) ElementID() int64 { return n.ID }
func (w *Way) ElementID() int64  { return w.ID }
func (r *Relation) ElementID() int64 {
	return r.ID
}

func (n *Node) TagMap() map[string]string     { return n.Tags }
func (w *Way) TagMap() map[string]string      { return w.Tags }
func (r *Relation) TagMap() map[string]string { return r.Tags }
