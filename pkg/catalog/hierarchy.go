// Package catalog linearizes the self-referencing category tree into a
// stable display order and guards its parent relation against cycles.
//
// Categories are a parent-pointer forest stored flat; the parent relation
// must stay acyclic at all times. BuildHierarchy is defensive about data
// that violates that (cyclic or dangling parents survive a listing), while
// AssertNoCycle prevents such data from being written in the first place.
package catalog

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultIndentMarker is prepended once per depth level to a node label.
const DefaultIndentMarker = "- "

// Category is one flat record of the parent-pointer forest. An empty
// ParentID marks a root.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// Node is one entry of the linearized hierarchy.
type Node struct {
	Category Category `json:"category"`
	Depth    int      `json:"depth"`
	Label    string   `json:"label"`
}

// BuildHierarchy returns the categories in depth-first display order:
// siblings sorted by name, each node labelled with the indent marker
// repeated depth times. IDs in excluded are skipped entirely; exclusion
// is by explicit ID only, descendants of an excluded node are not
// excluded with it (they surface flat at the end, since their parent is
// never visited). Any category unreachable from a root, whether through
// a cyclic or dangling parent pointer, is appended unindented so no input
// record is ever dropped from a listing.
func BuildHierarchy(categories []Category, excluded map[string]bool) []Node {
	return BuildHierarchyIndent(categories, excluded, DefaultIndentMarker)
}

// BuildHierarchyIndent is BuildHierarchy with a caller-chosen marker.
func BuildHierarchyIndent(categories []Category, excluded map[string]bool, marker string) []Node {
	children := make(map[string][]Category)
	for _, c := range categories {
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	coll := collate.New(language.Und)
	for parent := range children {
		group := children[parent]
		sort.SliceStable(group, func(i, j int) bool {
			if c := coll.CompareString(group[i].Name, group[j].Name); c != 0 {
				return c < 0
			}
			return group[i].ID < group[j].ID
		})
	}

	type frame struct {
		cat   Category
		depth int
	}
	visited := make(map[string]bool, len(categories))
	out := make([]Node, 0, len(categories))

	var stack []frame
	push := func(parentID string, depth int) {
		group := children[parentID]
		for i := len(group) - 1; i >= 0; i-- {
			stack = append(stack, frame{cat: group[i], depth: depth})
		}
	}

	push("", 0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if excluded[f.cat.ID] || visited[f.cat.ID] {
			continue
		}
		visited[f.cat.ID] = true
		out = append(out, Node{
			Category: f.cat,
			Depth:    f.depth,
			Label:    indent(marker, f.depth) + f.cat.Name,
		})
		push(f.cat.ID, f.depth+1)
	}

	// Leftovers: cyclic or dangling parent chains, children of excluded
	// nodes. Flat, input order.
	for _, c := range categories {
		if visited[c.ID] || excluded[c.ID] {
			continue
		}
		out = append(out, Node{Category: c, Depth: 0, Label: c.Name})
	}
	return out
}

func indent(marker string, depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += marker
	}
	return s
}
