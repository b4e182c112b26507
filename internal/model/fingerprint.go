package model

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns a SHA3-256 digest of the graph structure: the sorted
// node ids followed by the sorted valid links. Two crawls with the same
// fingerprint discovered the same pages and the same links, in any order.
func Fingerprint(s *Snapshot) string {
	valid := FilterSnapshot(s, nil)

	ids := make([]string, 0, len(valid.Nodes))
	for _, n := range valid.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	edges := make([]string, 0, len(valid.Links))
	for _, l := range valid.Links {
		edges = append(edges, l.Source+"\x00"+l.Target)
	}
	sort.Strings(edges)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	b.WriteString("--\n")
	for _, e := range edges {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	sum := sha3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
