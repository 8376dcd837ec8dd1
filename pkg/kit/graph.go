// Package kit answers reachability and cycle queries over the kit ->
// component dependency relation of a bill of materials.
//
// The graph is rebuilt from a snapshot for each check; it holds no state
// between calls. Traversal is iterative with an explicit stack and a
// visited set, so arbitrarily deep or already-cyclic graphs terminate in
// O(nodes + edges).
package kit

import "fmt"

// Edge is one direct kit -> component dependency.
type Edge struct {
	KitID       string `json:"kit_id"`
	ComponentID string `json:"component_id"`
}

// Graph is an adjacency view of the dependency relation.
type Graph struct {
	adjacency map[string][]string
}

// BuildGraph constructs the adjacency map from a node list and its edges.
// Edge endpoints absent from nodeIDs are added implicitly.
func BuildGraph(nodeIDs []string, edges []Edge) *Graph {
	g := &Graph{adjacency: make(map[string][]string, len(nodeIDs))}
	for _, id := range nodeIDs {
		if _, ok := g.adjacency[id]; !ok {
			g.adjacency[id] = nil
		}
	}
	for _, e := range edges {
		g.adjacency[e.KitID] = append(g.adjacency[e.KitID], e.ComponentID)
		if _, ok := g.adjacency[e.ComponentID]; !ok {
			g.adjacency[e.ComponentID] = nil
		}
	}
	return g
}

// HasPath reports whether to is reachable from from by following
// dependency edges. A self-edge makes HasPath(x, x) true.
func (g *Graph) HasPath(from, to string) bool {
	stack := []string{from}
	visited := make(map[string]bool, len(g.adjacency))
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.adjacency[current] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// CycleError reports a rejected structural edit that would create a
// dependency or ancestry cycle.
type CycleError struct {
	ID              string
	AttemptedParent string
	// Corrupt marks a walk that exceeded its iteration bound, meaning the
	// stored data already contains a cycle this guard never admitted.
	Corrupt bool
}

func (e *CycleError) Error() string {
	if e.Corrupt {
		return fmt.Sprintf("cycle already present in stored data at %s", e.ID)
	}
	return fmt.Sprintf("linking %s under %s would create a cycle", e.ID, e.AttemptedParent)
}

// CheckComponent rejects adding componentID to kitID's bill of materials
// when the kit is already reachable from the component, which would make
// the kit transitively depend on itself. Call before persisting the edge.
func (g *Graph) CheckComponent(kitID, componentID string) error {
	if kitID == componentID || g.HasPath(componentID, kitID) {
		return &CycleError{ID: kitID, AttemptedParent: componentID}
	}
	return nil
}
