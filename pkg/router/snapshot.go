package router

import (
	"net/url"

	"github.com/strada-dev/strada/pkg/urltree"
)

// Snapshot is the resolved instance of a Route bound to concrete params for
// one navigation. Snapshots form a tree mirroring the match tree and live in
// a per-navigation arena addressed by small integer ids, so strategies can
// diff old and new trees without dangling references.
type Snapshot struct {
	// Route is the matched definition; nil only on the synthetic root.
	Route *Route

	// Outlet is the outlet the snapshot occupies.
	Outlet string

	// Segments are the URL segments the route consumed.
	Segments []urltree.Segment

	// Params are the path params plus matrix params of the consumed
	// segments.
	Params map[string]string

	// Query and Fragment are shared across the snapshot tree.
	Query    url.Values
	Fragment string

	// Data starts as a copy of the route's static data bag; resolved
	// values merge in before activation.
	Data map[string]any

	id       int
	parent   *Snapshot
	children []*Snapshot
}

// ID returns the snapshot's arena index, unique within its navigation.
func (s *Snapshot) ID() int { return s.id }

// Parent returns the parent snapshot, or nil on the root.
func (s *Snapshot) Parent() *Snapshot { return s.parent }

// Children returns the child snapshots in match order.
func (s *Snapshot) Children() []*Snapshot { return s.children }

// Param returns a path or matrix param by name.
func (s *Snapshot) Param(name string) string { return s.Params[name] }

// ConsumedPath returns the consumed segments joined as a path.
func (s *Snapshot) ConsumedPath() string {
	parts := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		parts[i] = seg.Path
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

// SnapshotTree is the per-navigation arena of snapshots.
type SnapshotTree struct {
	// URL is the tree the snapshots were resolved from.
	URL *urltree.Tree

	// Root is the synthetic root snapshot.
	Root *Snapshot

	nodes []*Snapshot
}

// NewSnapshotTree binds a match tree into a snapshot arena.
func NewSnapshotTree(mt *MatchTree) *SnapshotTree {
	st := &SnapshotTree{URL: mt.Source}
	st.Root = st.bind(mt.Root, nil)
	return st
}

func (st *SnapshotTree) bind(n *MatchNode, parent *Snapshot) *Snapshot {
	snap := &Snapshot{
		Route:    n.Route,
		Outlet:   n.Outlet,
		Segments: n.Consumed,
		Params:   copyParams(n.Params),
		Fragment: st.URL.Fragment,
		id:       len(st.nodes),
		parent:   parent,
	}
	if st.URL.Query != nil {
		snap.Query = st.URL.Query
	}
	if n.Route != nil && n.Route.Data != nil {
		snap.Data = make(map[string]any, len(n.Route.Data))
		for k, v := range n.Route.Data {
			snap.Data[k] = v
		}
	}
	st.nodes = append(st.nodes, snap)

	for _, c := range n.Children {
		snap.children = append(snap.children, st.bind(c, snap))
	}
	return snap
}

// Nodes returns every snapshot in depth-first arena order, excluding the
// synthetic root.
func (st *SnapshotTree) Nodes() []*Snapshot {
	out := make([]*Snapshot, 0, len(st.nodes)-1)
	for _, n := range st.nodes {
		if n.Route != nil {
			out = append(out, n)
		}
	}
	return out
}

// ByID returns the snapshot with the given arena id, or nil.
func (st *SnapshotTree) ByID(id int) *Snapshot {
	if id < 0 || id >= len(st.nodes) {
		return nil
	}
	return st.nodes[id]
}

// PrimaryLeaf follows the primary outlet to the deepest snapshot. Returns
// nil when the tree has no primary branch.
func (st *SnapshotTree) PrimaryLeaf() *Snapshot {
	var leaf *Snapshot
	cur := st.Root
	for cur != nil {
		var next *Snapshot
		for _, c := range cur.children {
			if c.Outlet == OutletPrimary {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		leaf = next
		cur = next
	}
	return leaf
}

func copyParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
