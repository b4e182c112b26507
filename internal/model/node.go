package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// syntheticIDPrefix marks node ids that were not supplied by the crawl service.
const syntheticIDPrefix = "node-"

// Node is a single page discovered by the crawl service.
type Node struct {
	// ID uniquely identifies the node within a snapshot.
	// The crawl service normally uses the page URL.
	ID string `json:"id,omitempty"`

	// Label is a short display name, usually the URL path.
	Label string `json:"label"`

	// URL is the absolute URL of the page.
	URL string `json:"url"`

	// ContentType is the raw Content-Type header value, parameters included.
	ContentType string `json:"contentType,omitempty"`

	// LinksCount is the number of outgoing links found on the page.
	LinksCount int `json:"linksCount,omitempty"`

	// ImageCount is the number of images found on the page.
	ImageCount int `json:"imageCount,omitempty"`

	// WordCount is the number of words in the page body.
	WordCount int `json:"wordCount,omitempty"`

	// ResponseTime is the fetch time in milliseconds.
	ResponseTime int64 `json:"responseTime,omitempty"`
}

// MediaType returns the content type without parameters, lowercased.
// "text/html; charset=utf-8" becomes "text/html".
func (n Node) MediaType() string {
	mt, _, _ := strings.Cut(n.ContentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// HasSyntheticID reports whether the node id was assigned locally.
func (n Node) HasSyntheticID() bool {
	return strings.HasPrefix(n.ID, syntheticIDPrefix)
}

// Link is a directed edge between two nodes, referenced by id.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is the full accumulated graph returned by one results fetch.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// LinkCount returns the number of links in the snapshot.
func (s *Snapshot) LinkCount() int {
	if s == nil {
		return 0
	}
	return len(s.Links)
}

// IsEmpty reports whether the snapshot has no nodes.
func (s *Snapshot) IsEmpty() bool {
	return s.NodeCount() == 0
}

// NodeIDs returns the set of node ids in the snapshot.
func (s *Snapshot) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, s.NodeCount())
	if s == nil {
		return ids
	}
	for _, n := range s.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{Nodes: []Node{}, Links: []Link{}}
	}
	out := &Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Links: make([]Link, len(s.Links)),
	}
	copy(out.Nodes, s.Nodes)
	copy(out.Links, s.Links)
	return out
}

// Normalize returns a renderable copy of the snapshot: every node carries an
// id and every link references nodes that exist. The input is not modified.
//
// A node without an id falls back to its URL. A node without either gets a
// placeholder derived from its label and position, so the same payload
// always yields the same placeholder. The second return value is the
// number of placeholders assigned.
func Normalize(s *Snapshot) (*Snapshot, int) {
	out := s.Clone()
	synthetic := 0
	for i := range out.Nodes {
		n := &out.Nodes[i]
		if n.ID != "" {
			continue
		}
		if n.URL != "" {
			n.ID = n.URL
			continue
		}
		n.ID = PlaceholderID(n.Label, i)
		synthetic++
	}
	return FilterSnapshot(out, func(Node) bool { return true }), synthetic
}

// PlaceholderID builds a deterministic id for a node the service sent
// without an id or URL.
func PlaceholderID(label string, index int) string {
	name := label + "#" + strconv.Itoa(index)
	return syntheticIDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
