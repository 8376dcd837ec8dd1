package catalog

import (
	"errors"
	"testing"
)

func sampleCategories() []Category {
	return []Category{
		{ID: "c-elec", Name: "Electronics"},
		{ID: "c-audio", Name: "Audio", ParentID: "c-elec"},
		{ID: "c-video", Name: "Video", ParentID: "c-elec"},
		{ID: "c-head", Name: "Headphones", ParentID: "c-audio"},
		{ID: "c-food", Name: "Food"},
	}
}

func TestBuildHierarchy_Order(t *testing.T) {
	nodes := BuildHierarchy(sampleCategories(), nil)

	wantLabels := []string{
		"Electronics",
		"- Audio",
		"- - Headphones",
		"- Video",
		"Food",
	}
	if len(nodes) != len(wantLabels) {
		t.Fatalf("expected %d nodes, got %d: %v", len(wantLabels), len(nodes), nodes)
	}
	for i, want := range wantLabels {
		if nodes[i].Label != want {
			t.Errorf("node %d: got label %q, want %q", i, nodes[i].Label, want)
		}
	}
	if nodes[2].Depth != 2 {
		t.Errorf("Headphones depth: got %d, want 2", nodes[2].Depth)
	}
}

func TestBuildHierarchy_ExcludedIDSkipped(t *testing.T) {
	nodes := BuildHierarchy(sampleCategories(), map[string]bool{"c-audio": true})

	for _, n := range nodes {
		if n.Category.ID == "c-audio" {
			t.Fatal("excluded category must not be emitted")
		}
	}
	// The excluded node's child is NOT excluded with it; it surfaces
	// flat at the end. Ancestry is enforced at write time, not here.
	last := nodes[len(nodes)-1]
	if last.Category.ID != "c-head" || last.Depth != 0 || last.Label != "Headphones" {
		t.Errorf("expected flat Headphones leftover, got %+v", last)
	}
}

func TestBuildHierarchy_CyclicParentsStillListed(t *testing.T) {
	cats := []Category{
		{ID: "c-a", Name: "Alpha", ParentID: "c-b"},
		{ID: "c-b", Name: "Beta", ParentID: "c-a"},
		{ID: "c-root", Name: "Root"},
	}
	nodes := BuildHierarchy(cats, nil)

	seen := map[string]int{}
	for _, n := range nodes {
		seen[n.Category.ID]++
	}
	for _, c := range cats {
		if seen[c.ID] != 1 {
			t.Errorf("category %s emitted %d times, want exactly once", c.ID, seen[c.ID])
		}
	}
}

func TestBuildHierarchy_DanglingParentListedFlat(t *testing.T) {
	cats := []Category{
		{ID: "c-x", Name: "Orphan", ParentID: "c-gone"},
	}
	nodes := BuildHierarchy(cats, nil)
	if len(nodes) != 1 || nodes[0].Depth != 0 || nodes[0].Label != "Orphan" {
		t.Errorf("expected flat orphan, got %v", nodes)
	}
}

func TestBuildHierarchy_SiblingNameTieBrokenByID(t *testing.T) {
	cats := []Category{
		{ID: "c-2", Name: "Twin"},
		{ID: "c-1", Name: "Twin"},
	}
	nodes := BuildHierarchy(cats, nil)
	if nodes[0].Category.ID != "c-1" || nodes[1].Category.ID != "c-2" {
		t.Errorf("name ties must resolve by ID: got %v", nodes)
	}
}

func TestAssertNoCycle(t *testing.T) {
	parents := map[string]string{
		"c-elec":  "",
		"c-audio": "c-elec",
		"c-head":  "c-audio",
	}

	if err := AssertNoCycle("c-head", "c-elec", parents); err != nil {
		t.Errorf("valid re-parent rejected: %v", err)
	}
	if err := AssertNoCycle("c-audio", "", parents); err != nil {
		t.Errorf("move to root rejected: %v", err)
	}

	var cycleErr *CycleError
	if err := AssertNoCycle("c-elec", "c-elec", parents); !errors.As(err, &cycleErr) {
		t.Error("self-parent must be rejected")
	}
	if err := AssertNoCycle("c-elec", "c-head", parents); !errors.As(err, &cycleErr) {
		t.Error("re-parenting under own descendant must be rejected")
	} else if cycleErr.Corrupt {
		t.Error("clean rejection must not be marked corrupt")
	}
}

func TestAssertNoCycle_CorruptDataTerminates(t *testing.T) {
	// Pre-existing loop that bypassed the guard: b <-> c.
	parents := map[string]string{
		"c-b": "c-c",
		"c-c": "c-b",
	}
	err := AssertNoCycle("c-a", "c-b", parents)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) || !cycleErr.Corrupt {
		t.Fatalf("expected Corrupt CycleError, got %v", err)
	}
}
