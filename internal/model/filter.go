package model

import (
	"strings"
)

// NodePredicate decides whether a node is kept by FilterSnapshot.
type NodePredicate func(Node) bool

// FilterSnapshot keeps the nodes accepted by keep and the links whose
// source and target both survive. The input snapshot is never modified,
// and a nil snapshot yields an empty one.
func FilterSnapshot(s *Snapshot, keep NodePredicate) *Snapshot {
	out := &Snapshot{Nodes: []Node{}, Links: []Link{}}
	if s == nil {
		return out
	}

	ids := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if keep != nil && !keep(n) {
			continue
		}
		out.Nodes = append(out.Nodes, n)
		ids[n.ID] = struct{}{}
	}

	for _, l := range s.Links {
		if _, ok := ids[l.Source]; !ok {
			continue
		}
		if _, ok := ids[l.Target]; !ok {
			continue
		}
		out.Links = append(out.Links, l)
	}
	return out
}

// ValidLinkCount counts links whose endpoints both exist in the snapshot.
func ValidLinkCount(s *Snapshot) int {
	if s == nil {
		return 0
	}
	ids := s.NodeIDs()
	count := 0
	for _, l := range s.Links {
		_, src := ids[l.Source]
		_, dst := ids[l.Target]
		if src && dst {
			count++
		}
	}
	return count
}

// Filter describes a user search over a snapshot.
type Filter struct {
	// Search matches the node URL or label, case-insensitively.
	Search string `json:"search,omitempty"`

	// ContentTypes keeps nodes whose Content-Type contains one of these
	// values (e.g. "text/html", "image"). Empty or "all" keeps every node.
	ContentTypes []string `json:"contentTypes,omitempty"`
}

// IsZero reports whether the filter keeps every node.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.normalizedTypes()) == 0
}

// String describes the filter for reports.
func (f Filter) String() string {
	var parts []string
	if s := strings.TrimSpace(f.Search); s != "" {
		parts = append(parts, "search="+s)
	}
	if types := f.normalizedTypes(); len(types) > 0 {
		parts = append(parts, "type="+strings.Join(types, ","))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// Predicate returns the NodePredicate equivalent of the filter.
func (f Filter) Predicate() NodePredicate {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	types := f.normalizedTypes()

	return func(n Node) bool {
		if term != "" &&
			!strings.Contains(strings.ToLower(n.URL), term) &&
			!strings.Contains(strings.ToLower(n.Label), term) {
			return false
		}
		if len(types) == 0 {
			return true
		}
		ct := strings.ToLower(n.ContentType)
		if ct == "" {
			return false
		}
		for _, t := range types {
			if strings.Contains(ct, t) {
				return true
			}
		}
		return false
	}
}

// Apply filters the snapshot with this filter.
func (f Filter) Apply(s *Snapshot) *Snapshot {
	return FilterSnapshot(s, f.Predicate())
}

func (f Filter) normalizedTypes() []string {
	var types []string
	for _, t := range f.ContentTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "all" {
			return nil
		}
		if t == "" {
			continue
		}
		types = append(types, t)
	}
	return types
}
