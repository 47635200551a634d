package urltree

import (
	"net/url"
	"sort"
	"strings"
)

// Segment is a single path segment with its matrix parameters.
// Matrix parameters (";k=v") belong to the segment they follow and never
// participate in structural matching.
type Segment struct {
	// Path is the decoded segment text.
	Path string

	// Matrix holds the segment's matrix parameters, if any.
	Matrix map[string]string
}

// NewSegment creates a segment without matrix parameters.
func NewSegment(path string) Segment {
	return Segment{Path: path}
}

// WithMatrix returns a copy of the segment with the given matrix parameter set.
func (s Segment) WithMatrix(key, value string) Segment {
	m := make(map[string]string, len(s.Matrix)+1)
	for k, v := range s.Matrix {
		m[k] = v
	}
	m[key] = value
	return Segment{Path: s.Path, Matrix: m}
}

// Tree is a parsed URL: ordered segments, query parameters, and an optional
// fragment. Trees are treated as values; mutate only via the With* helpers.
type Tree struct {
	// Segments are the path segments in order. An empty slice is the root URL.
	Segments []Segment

	// Query holds the query parameters. Insertion order is irrelevant.
	Query url.Values

	// Fragment is the URL fragment without the leading '#'.
	Fragment string
}

// New creates a tree from plain path segments.
func New(segments ...string) *Tree {
	t := &Tree{}
	for _, s := range segments {
		t.Segments = append(t.Segments, NewSegment(s))
	}
	return t
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{Fragment: t.Fragment}
	out.Segments = make([]Segment, len(t.Segments))
	for i, seg := range t.Segments {
		copySeg := Segment{Path: seg.Path}
		if seg.Matrix != nil {
			copySeg.Matrix = make(map[string]string, len(seg.Matrix))
			for k, v := range seg.Matrix {
				copySeg.Matrix[k] = v
			}
		}
		out.Segments[i] = copySeg
	}
	if t.Query != nil {
		out.Query = make(url.Values, len(t.Query))
		for k, vs := range t.Query {
			out.Query[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// WithQuery returns a copy of the tree with the query replaced.
func (t *Tree) WithQuery(q url.Values) *Tree {
	out := t.Clone()
	out.Query = q
	return out
}

// WithFragment returns a copy of the tree with the fragment replaced.
func (t *Tree) WithFragment(fragment string) *Tree {
	out := t.Clone()
	out.Fragment = fragment
	return out
}

// IsRoot reports whether the tree has no path segments.
func (t *Tree) IsRoot() bool {
	return len(t.Segments) == 0
}

// Path returns the serialized path portion: "/a;k=v/b".
func (t *Tree) Path() string {
	if len(t.Segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range t.Segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg.Path))
		if len(seg.Matrix) > 0 {
			keys := make([]string, 0, len(seg.Matrix))
			for k := range seg.Matrix {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteByte(';')
				b.WriteString(url.PathEscape(k))
				b.WriteByte('=')
				b.WriteString(url.PathEscape(seg.Matrix[k]))
			}
		}
	}
	return b.String()
}

// String serializes the full tree: path, query, and fragment.
func (t *Tree) String() string {
	var b strings.Builder
	b.WriteString(t.Path())
	if len(t.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(t.Query.Encode())
	}
	if t.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(url.QueryEscape(t.Fragment))
	}
	return b.String()
}

// Equal reports whether two trees are structurally identical.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.String() == other.String()
}
