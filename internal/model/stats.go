package model

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DefaultTopNodes is the number of most connected nodes kept in GraphStats.
const DefaultTopNodes = 10

// LinkType tells whether a link stays on the same host.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
	LinkUnknown  LinkType = "unknown"
)

// NodeDegree is a node together with its number of connections.
type NodeDegree struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	URL         string `json:"url"`
	Connections int    `json:"connections"`
}

// GraphStats summarizes a snapshot.
type GraphStats struct {
	NodeCount int `json:"nodeCount"`

	// LinkCount counts links whose endpoints both exist.
	LinkCount int `json:"linkCount"`

	// DanglingLinks counts links dropped because an endpoint is missing.
	DanglingLinks int `json:"danglingLinks"`

	// Connections is the degree of every node over valid links.
	Connections map[string]int `json:"connections"`

	// ContentTypes lists the distinct media types, sorted.
	ContentTypes []string `json:"contentTypes"`

	// Categories counts nodes per colour category.
	Categories map[Category]int `json:"categories"`

	InternalLinks int `json:"internalLinks"`
	ExternalLinks int `json:"externalLinks"`
	UnknownLinks  int `json:"unknownLinks"`

	// Domains counts nodes per registrable domain (eTLD+1).
	Domains map[string]int `json:"domains"`

	// TopNodes are the most connected nodes, highest first.
	TopNodes []NodeDegree `json:"topNodes"`

	// SyntheticIDs counts nodes whose id was assigned locally.
	SyntheticIDs int `json:"syntheticIds"`

	// AvgResponseTime is the mean response time in milliseconds of the
	// nodes that reported one.
	AvgResponseTime float64 `json:"avgResponseTime"`

	// TotalWords sums the word counts reported by the service.
	TotalWords int `json:"totalWords"`
}

// ComputeStats derives GraphStats from a snapshot. Dangling links are
// counted but otherwise ignored. topN <= 0 uses DefaultTopNodes.
func ComputeStats(s *Snapshot, topN int) GraphStats {
	if topN <= 0 {
		topN = DefaultTopNodes
	}

	stats := GraphStats{
		Connections:  make(map[string]int),
		ContentTypes: []string{},
		Categories:   make(map[Category]int),
		Domains:      make(map[string]int),
		TopNodes:     []NodeDegree{},
	}
	if s == nil {
		return stats
	}

	byID := make(map[string]Node, len(s.Nodes))
	mediaTypes := make(map[string]struct{})
	var timed int
	var totalTime int64

	for _, n := range s.Nodes {
		byID[n.ID] = n
		stats.Categories[n.Category()]++
		if mt := n.MediaType(); mt != "" {
			mediaTypes[mt] = struct{}{}
		}
		if domain := RegistrableDomain(n.URL); domain != "" {
			stats.Domains[domain]++
		}
		if n.HasSyntheticID() {
			stats.SyntheticIDs++
		}
		if n.ResponseTime > 0 {
			timed++
			totalTime += n.ResponseTime
		}
		stats.TotalWords += n.WordCount
	}
	stats.NodeCount = len(s.Nodes)

	for _, l := range s.Links {
		src, okSrc := byID[l.Source]
		dst, okDst := byID[l.Target]
		if !okSrc || !okDst {
			stats.DanglingLinks++
			continue
		}
		stats.LinkCount++
		stats.Connections[l.Source]++
		stats.Connections[l.Target]++

		switch ClassifyLink(nodeAddress(src), nodeAddress(dst)) {
		case LinkInternal:
			stats.InternalLinks++
		case LinkExternal:
			stats.ExternalLinks++
		default:
			stats.UnknownLinks++
		}
	}

	for mt := range mediaTypes {
		stats.ContentTypes = append(stats.ContentTypes, mt)
	}
	sort.Strings(stats.ContentTypes)

	if timed > 0 {
		stats.AvgResponseTime = float64(totalTime) / float64(timed)
	}

	stats.TopNodes = topConnected(s.Nodes, stats.Connections, topN)
	return stats
}

// CategoryCount returns the node count of a category.
func (g GraphStats) CategoryCount(c Category) int {
	return g.Categories[c]
}

// LinkWeight is the display weight of a link: half the degree of its
// target, or 0.5 for an unconnected target.
func LinkWeight(connections map[string]int, l Link) float64 {
	degree := connections[l.Target]
	if degree == 0 {
		degree = 1
	}
	return float64(degree) / 2
}

// ClassifyLink compares the hostnames of two URLs.
// Anything that is not an absolute URL with a host is LinkUnknown.
func ClassifyLink(source, target string) LinkType {
	src := hostOf(source)
	dst := hostOf(target)
	if src == "" || dst == "" {
		return LinkUnknown
	}
	if src == dst {
		return LinkInternal
	}
	return LinkExternal
}

// RegistrableDomain returns the eTLD+1 of a URL's host, or the host itself
// when it has no public suffix (IP addresses, localhost).
func RegistrableDomain(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// nodeAddress prefers the URL of a node and falls back to its id.
func nodeAddress(n Node) string {
	if n.URL != "" {
		return n.URL
	}
	return n.ID
}

func topConnected(nodes []Node, connections map[string]int, n int) []NodeDegree {
	degrees := make([]NodeDegree, 0, len(nodes))
	for _, node := range nodes {
		degrees = append(degrees, NodeDegree{
			ID:          node.ID,
			Label:       node.Label,
			URL:         node.URL,
			Connections: connections[node.ID],
		})
	}
	sort.SliceStable(degrees, func(i, j int) bool {
		if degrees[i].Connections != degrees[j].Connections {
			return degrees[i].Connections > degrees[j].Connections
		}
		return degrees[i].ID < degrees[j].ID
	})
	if len(degrees) > n {
		degrees = degrees[:n]
	}
	return degrees
}
