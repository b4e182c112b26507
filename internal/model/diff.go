package model

import "sort"

// SnapshotDiff lists what changed between two snapshots of the same site.
type SnapshotDiff struct {
	AddedNodes   []Node `json:"addedNodes,omitempty"`
	RemovedNodes []Node `json:"removedNodes,omitempty"`
	AddedLinks   []Link `json:"addedLinks,omitempty"`
	RemovedLinks []Link `json:"removedLinks,omitempty"`

	// UnchangedNodes counts nodes present in both snapshots.
	UnchangedNodes int `json:"unchangedNodes"`

	// NodeDelta and LinkDelta are current minus previous valid counts.
	NodeDelta int `json:"nodeDelta"`
	LinkDelta int `json:"linkDelta"`
}

// HasChanges reports whether any node or link was added or removed.
func (d *SnapshotDiff) HasChanges() bool {
	return len(d.AddedNodes) > 0 || len(d.RemovedNodes) > 0 ||
		len(d.AddedLinks) > 0 || len(d.RemovedLinks) > 0
}

// DiffSnapshots compares two snapshots by node id and by (source, target).
// Dangling links are ignored on both sides. Results are sorted by id so
// the output is stable.
func DiffSnapshots(previous, current *Snapshot) *SnapshotDiff {
	prev := FilterSnapshot(previous, nil)
	cur := FilterSnapshot(current, nil)

	diff := &SnapshotDiff{
		NodeDelta: len(cur.Nodes) - len(prev.Nodes),
		LinkDelta: len(cur.Links) - len(prev.Links),
	}

	prevNodes := make(map[string]Node, len(prev.Nodes))
	for _, n := range prev.Nodes {
		prevNodes[n.ID] = n
	}
	curNodes := make(map[string]Node, len(cur.Nodes))
	for _, n := range cur.Nodes {
		curNodes[n.ID] = n
	}

	for id, n := range curNodes {
		if _, ok := prevNodes[id]; ok {
			diff.UnchangedNodes++
			continue
		}
		diff.AddedNodes = append(diff.AddedNodes, n)
	}
	for id, n := range prevNodes {
		if _, ok := curNodes[id]; !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, n)
		}
	}

	prevLinks := linkSet(prev.Links)
	curLinks := linkSet(cur.Links)
	for l := range curLinks {
		if _, ok := prevLinks[l]; !ok {
			diff.AddedLinks = append(diff.AddedLinks, l)
		}
	}
	for l := range prevLinks {
		if _, ok := curLinks[l]; !ok {
			diff.RemovedLinks = append(diff.RemovedLinks, l)
		}
	}

	sortNodes(diff.AddedNodes)
	sortNodes(diff.RemovedNodes)
	sortLinks(diff.AddedLinks)
	sortLinks(diff.RemovedLinks)
	return diff
}

func linkSet(links []Link) map[Link]struct{} {
	set := make(map[Link]struct{}, len(links))
	for _, l := range links {
		set[l] = struct{}{}
	}
	return set
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortLinks(links []Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
}
