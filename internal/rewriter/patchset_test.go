package rewriter

import (
	"context"
	"testing"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
)

func TestBuildDeltas_MovePatch(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"a.txt": []byte("one\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"a.txt": []byte("ONE\n")})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"a.txt": []byte("ONE\n")})

	diffs := diffengine.NewEngine(repo, logging.NewNoopLogger())
	ctx := context.Background()
	patches, err := diffs.ExtractPatches(ctx, c1)
	if err != nil {
		t.Fatalf("ExtractPatches: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch on c1, got %d", len(patches))
	}
	patchID := patches[0].ID

	op := diffmodel.MovePatch{PatchID: patchID, FromCommit: c1, ToCommit: c2}
	deltas, err := buildDeltas(ctx, diffs, op)
	if err != nil {
		t.Fatalf("buildDeltas: %v", err)
	}

	fromDelta, ok := deltas[c1]
	if !ok || !fromDelta.Remove[patchID] {
		t.Errorf("expected %s delta to remove patch %s, got %+v", c1.Short(), patchID, fromDelta)
	}
	toDelta, ok := deltas[c2]
	if !ok || len(toDelta.Add) != 1 || toDelta.Add[0].ID != patchID {
		t.Errorf("expected %s delta to add patch %s, got %+v", c2.Short(), patchID, toDelta)
	}
}

func TestBuildDeltas_MovePatchUnknownPatchErrors(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"a.txt": []byte("one\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"a.txt": []byte("ONE\n")})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"a.txt": []byte("ONE\n")})

	diffs := diffengine.NewEngine(repo, logging.NewNoopLogger())
	op := diffmodel.MovePatch{PatchID: "bogus", FromCommit: c1, ToCommit: c2}
	_, err := buildDeltas(context.Background(), diffs, op)
	if err == nil {
		t.Fatal("expected an error for an unknown patch id")
	}
}

func TestBuildDeltas_MergeCommitsDoesNotDuplicateEarliestCommitPatches(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{
		"a.txt": []byte("one\n"),
		"b.txt": []byte("A\n"),
	})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("A\n"),
	})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("B\n"),
	})

	diffs := diffengine.NewEngine(repo, logging.NewNoopLogger())
	ctx := context.Background()
	op := diffmodel.MergeCommits{CommitIDs: []diffmodel.CommitId{c1, c2}, Message: "squashed"}
	deltas, err := buildDeltas(ctx, diffs, op)
	if err != nil {
		t.Fatalf("buildDeltas: %v", err)
	}

	mergedDelta, ok := deltas[c1]
	if !ok {
		t.Fatalf("expected a delta keyed on the earliest commit c1")
	}
	if len(mergedDelta.Add) != 1 || mergedDelta.Add[0].TargetFile != "b.txt" {
		t.Errorf("expected c1's delta to add only c2's b.txt patch, got %+v", mergedDelta.Add)
	}
	if mergedDelta.Message != "squashed" {
		t.Errorf("message = %q, want %q", mergedDelta.Message, "squashed")
	}

	elideDelta, ok := deltas[c2]
	if !ok || len(elideDelta.Remove) != 1 {
		t.Errorf("expected c2's delta to remove exactly its own patch, got %+v", elideDelta)
	}

	// Applying the merged delta to c1's own original patches must not
	// duplicate c1's own b.txt-absent, a.txt-present patch set.
	c1Patches, err := diffs.ExtractPatches(ctx, c1)
	if err != nil {
		t.Fatalf("ExtractPatches(c1): %v", err)
	}
	result := applyDelta(c1Patches, mergedDelta)
	if len(result) != 2 {
		t.Fatalf("expected merged patch set of 2 (a.txt once, b.txt once), got %d: %+v", len(result), result)
	}
}
