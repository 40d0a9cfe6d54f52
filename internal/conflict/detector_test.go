package conflict

import (
	"context"
	"testing"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
)

func hunk(oldStart, oldLines, newStart, newLines int, lines ...diffmodel.DiffLine) diffmodel.Hunk {
	return diffmodel.Hunk{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines, Lines: lines}
}

func TestDetect_PairwiseOverlap(t *testing.T) {
	repo := gitrepo.NewFake()
	target := repo.Commit("base", "a", "a@x.com", nil, map[string][]byte{
		"file.txt": []byte("a\nb\nc\n"),
	})

	p1 := diffmodel.Patch{
		ID:         "p1",
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{hunk(1, 2, 1, 2,
			diffmodel.ContextLine("a"),
			diffmodel.DeletionLine("b"),
		)},
	}
	p2 := diffmodel.Patch{
		ID:         "p2",
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{hunk(2, 2, 2, 2,
			diffmodel.DeletionLine("b"),
			diffmodel.ContextLine("c"),
		)},
	}

	d := NewDetector(repo, logging.NewNoopLogger())
	conflicts, err := d.Detect(context.Background(), []diffmodel.Patch{p1, p2}, target)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	var found bool
	for _, c := range conflicts {
		if c.Kind == diffmodel.ContentConflict && c.FilePath == "file.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a ContentConflict, got %+v", conflicts)
	}
}

func TestDetect_NoOverlapNoConflict(t *testing.T) {
	repo := gitrepo.NewFake()
	target := repo.Commit("base", "a", "a@x.com", nil, map[string][]byte{
		"file.txt": []byte("a\nb\nc\nd\n"),
	})

	p1 := diffmodel.Patch{
		ID:         "p1",
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{hunk(1, 1, 1, 1, diffmodel.ContextLine("a"))},
	}
	p2 := diffmodel.Patch{
		ID:         "p2",
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{hunk(4, 1, 4, 1, diffmodel.ContextLine("d"))},
	}

	d := NewDetector(repo, logging.NewNoopLogger())
	conflicts, err := d.Detect(context.Background(), []diffmodel.Patch{p1, p2}, target)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", conflicts)
	}
}

func TestDetect_DeleteModifyConflict(t *testing.T) {
	repo := gitrepo.NewFake()
	target := repo.Commit("base", "a", "a@x.com", nil, map[string][]byte{})

	p := diffmodel.Patch{
		ID:         "p1",
		TargetFile: "file.txt",
		Hunks:      []diffmodel.Hunk{hunk(1, 1, 1, 1, diffmodel.ContextLine("a"))},
	}

	d := NewDetector(repo, logging.NewNoopLogger())
	conflicts, err := d.Detect(context.Background(), []diffmodel.Patch{p}, target)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	var found bool
	for _, c := range conflicts {
		if c.Kind == diffmodel.DeleteModifyConflict {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DeleteModifyConflict, got %+v", conflicts)
	}
}

func TestDetect_IsDeterministicAcrossOrder(t *testing.T) {
	repo := gitrepo.NewFake()
	target := repo.Commit("base", "a", "a@x.com", nil, map[string][]byte{
		"file.txt": []byte("a\nb\nc\n"),
	})

	p1 := diffmodel.Patch{ID: "p1", TargetFile: "file.txt", Hunks: []diffmodel.Hunk{hunk(1, 2, 1, 2, diffmodel.ContextLine("a"), diffmodel.DeletionLine("b"))}}
	p2 := diffmodel.Patch{ID: "p2", TargetFile: "file.txt", Hunks: []diffmodel.Hunk{hunk(2, 2, 2, 2, diffmodel.DeletionLine("b"), diffmodel.ContextLine("c"))}}

	d := NewDetector(repo, logging.NewNoopLogger())
	a, err := d.Detect(context.Background(), []diffmodel.Patch{p1, p2}, target)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	b, err := d.Detect(context.Background(), []diffmodel.Patch{p2, p1}, target)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("conflict count differs by submission order: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("conflict id order differs: %+v vs %+v", a, b)
		}
	}
}
