package catalog

import "fmt"

// CycleError reports a rejected parent edit, or corrupt stored ancestry
// discovered while walking.
type CycleError struct {
	ID              string
	AttemptedParent string
	// Corrupt marks a walk that exceeded the node count, meaning the
	// stored parent chain already loops.
	Corrupt bool
}

func (e *CycleError) Error() string {
	if e.Corrupt {
		return fmt.Sprintf("stored ancestry of %s loops", e.AttemptedParent)
	}
	return fmt.Sprintf("setting parent of %s to %s would create a cycle", e.ID, e.AttemptedParent)
}

// AssertNoCycle rejects re-parenting categoryID under proposedParentID
// when that would make the category its own ancestor. parents maps every
// category to its current parent (empty string for roots). An empty
// proposedParentID (moving to root) always passes.
//
// The walk is capped at len(parents) hops: stored data that already loops
// fails with a Corrupt CycleError instead of hanging.
func AssertNoCycle(categoryID, proposedParentID string, parents map[string]string) error {
	if proposedParentID == "" {
		return nil
	}
	if proposedParentID == categoryID {
		return &CycleError{ID: categoryID, AttemptedParent: proposedParentID}
	}

	current := parents[proposedParentID]
	for hops := 0; current != ""; hops++ {
		if hops >= len(parents) {
			return &CycleError{ID: categoryID, AttemptedParent: proposedParentID, Corrupt: true}
		}
		if current == categoryID {
			return &CycleError{ID: categoryID, AttemptedParent: proposedParentID}
		}
		current = parents[current]
	}
	return nil
}
