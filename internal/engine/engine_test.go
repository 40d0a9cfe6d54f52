package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/config"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/journal"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{DatabasePath: filepath.Join(tmpDir, "journal.db")},
		Engine: config.EngineConfig{
			ElideEmptyCommits:         true,
			BackupRetentionDays:       14,
			TransactionTimeoutSeconds: 300,
		},
	}
	db, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("opening journal db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	j := journal.New(db)

	committer := gitrepo.CommitSignature{Name: "patchdance", Email: "patchdance@example.com"}
	return New(cfg, j, logging.NewNoopLogger(), committer)
}

func patchIDFor(t *testing.T, repo gitrepo.Repository, commit diffmodel.CommitId, file string) diffmodel.PatchId {
	t.Helper()
	diffs := diffengine.NewEngine(repo, logging.NewNoopLogger())
	patches, err := diffs.ExtractPatches(context.Background(), commit)
	if err != nil {
		t.Fatalf("ExtractPatches(%s): %v", commit.Short(), err)
	}
	for _, p := range patches {
		if p.TargetFile == file {
			return p.ID
		}
	}
	t.Fatalf("no patch for file %q in commit %s", file, commit.Short())
	return ""
}

func TestValidateRepository(t *testing.T) {
	repo := gitrepo.NewFake()
	repo.Commit("base", "a", "a@x", nil, map[string][]byte{"a.txt": []byte("one\n")})

	e := newTestEngine(t)
	ok, err := e.ValidateRepository(context.Background(), repo)
	if err != nil {
		t.Fatalf("ValidateRepository: %v", err)
	}
	if !ok {
		t.Error("expected a clean repo with a resolvable head to validate")
	}
}

func TestExtractPatches(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"a.txt": []byte("one\n")})
	c1 := repo.Commit("touch a", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"a.txt": []byte("ONE\n")})

	e := newTestEngine(t)
	patches, err := e.ExtractPatches(context.Background(), repo, c1)
	if err != nil {
		t.Fatalf("ExtractPatches: %v", err)
	}
	if len(patches) != 1 || patches[0].TargetFile != "a.txt" {
		t.Fatalf("unexpected patches: %+v", patches)
	}
}

func TestDetectConflicts_NoOverlap(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{
		"a.txt": []byte("one\n"),
		"b.txt": []byte("A\n"),
	})
	c1 := repo.Commit("touch a", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("A\n"),
	})

	e := newTestEngine(t)
	patches, err := e.ExtractPatches(context.Background(), repo, c1)
	if err != nil {
		t.Fatalf("ExtractPatches: %v", err)
	}
	conflicts, err := e.DetectConflicts(context.Background(), repo, patches, base)
	if err != nil {
		t.Fatalf("DetectConflicts: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected no conflicts replaying a.txt's own patch against its own parent, got %+v", conflicts)
	}
}

func TestApplyOperation_MovePatch(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{
		"a.txt": []byte("one\n"),
		"b.txt": []byte("A\n"),
	})
	c1 := repo.Commit("touch a", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("A\n"),
	})
	c2 := repo.Commit("touch b", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("B\n"),
	})

	e := newTestEngine(t)
	patchID := patchIDFor(t, repo, c1, "a.txt")
	op := diffmodel.MovePatch{PatchID: patchID, FromCommit: c1, ToCommit: c2}

	result, err := e.ApplyOperation(context.Background(), repo, op)
	if err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	head, err := repo.Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	info, err := repo.CommitInfo(context.Background(), head)
	if err != nil {
		t.Fatalf("CommitInfo: %v", err)
	}
	if len(info.ParentIDs) != 1 || info.ParentIDs[0] != base {
		t.Errorf("expected rewritten head to parent on base, got %v", info.ParentIDs)
	}
}

func TestPreviewOperation_MovePatch_ReportsAffectedCommitsAndChanges(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{
		"a.txt": []byte("one\n"),
		"b.txt": []byte("A\n"),
	})
	c1 := repo.Commit("touch a", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("A\n"),
	})
	c2 := repo.Commit("touch b", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("B\n"),
	})

	e := newTestEngine(t)
	patchID := patchIDFor(t, repo, c1, "a.txt")
	op := diffmodel.MovePatch{PatchID: patchID, FromCommit: c1, ToCommit: c2}

	preview, err := e.PreviewOperation(context.Background(), repo, op)
	if err != nil {
		t.Fatalf("PreviewOperation: %v", err)
	}
	if len(preview.Changes) != 1 || preview.Changes[0].PatchID != patchID {
		t.Errorf("unexpected changes: %+v", preview.Changes)
	}
	if len(preview.AffectedCommits) != 2 {
		t.Errorf("expected both endpoints affected, got %v", preview.AffectedCommits)
	}
}

func TestPreviewOperation_MovePatch_FlagsRealConflict(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"a.txt": []byte("one\n")})
	c1 := repo.Commit("touch a to ONE", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"a.txt": []byte("ONE\n")})
	c2 := repo.Commit("touch a to one-b", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"a.txt": []byte("one-b\n")})

	e := newTestEngine(t)
	patchID := patchIDFor(t, repo, c1, "a.txt")
	op := diffmodel.MovePatch{PatchID: patchID, FromCommit: c1, ToCommit: c2}

	preview, err := e.PreviewOperation(context.Background(), repo, op)
	if err != nil {
		t.Fatalf("PreviewOperation: %v", err)
	}
	if len(preview.PotentialConflicts) == 0 {
		t.Error("expected the preview to flag a content conflict")
	}
}

func TestPreviewOperation_SplitCommit_SkipsConflictCheck(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{
		"a.txt": []byte("one\n"),
		"b.txt": []byte("A\n"),
	})
	c1 := repo.Commit("touch both", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{
		"a.txt": []byte("ONE\n"),
		"b.txt": []byte("B\n"),
	})

	e := newTestEngine(t)
	patchA := patchIDFor(t, repo, c1, "a.txt")
	patchB := patchIDFor(t, repo, c1, "b.txt")

	op := diffmodel.SplitCommit{
		SourceCommit: c1,
		NewCommits: []diffmodel.NewCommit{
			{Message: "touch a", Patches: []diffmodel.PatchId{patchA}},
			{Message: "touch b", Patches: []diffmodel.PatchId{patchB}},
		},
	}
	preview, err := e.PreviewOperation(context.Background(), repo, op)
	if err != nil {
		t.Fatalf("PreviewOperation: %v", err)
	}
	if len(preview.Changes) != 2 {
		t.Errorf("expected 2 changes, got %+v", preview.Changes)
	}
	if len(preview.PotentialConflicts) != 0 {
		t.Errorf("split commit should never run conflict detection, got %+v", preview.PotentialConflicts)
	}
}

func TestRecover_RestoresBackupRefAndMarksRolledBack(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"a.txt": []byte("one\n")})
	c1 := repo.Commit("touch a to ONE", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"a.txt": []byte("ONE\n")})
	c2 := repo.Commit("touch a to one-b", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"a.txt": []byte("one-b\n")})

	e := newTestEngine(t)
	patchID := patchIDFor(t, repo, c1, "a.txt")
	op := diffmodel.MovePatch{PatchID: patchID, FromCommit: c1, ToCommit: c2}

	_, err := e.ApplyOperation(context.Background(), repo, op)
	if err == nil {
		t.Fatal("expected the apply to abort on conflict")
	}
	aborted, ok := err.(*diffmodel.TransactionAbortedError)
	if !ok {
		t.Fatalf("expected *diffmodel.TransactionAbortedError, got %T: %v", err, err)
	}

	if err := e.Recover(context.Background(), repo, aborted.OperationID); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	head, err := repo.Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != c2 {
		t.Errorf("expected recover to leave head at the pre-transaction commit %s, got %s", c2.Short(), head.Short())
	}

	rec, err := e.journal.Get(context.Background(), aborted.OperationID)
	if err != nil {
		t.Fatalf("journal.Get: %v", err)
	}
	if rec.State != journal.StateRollingBack {
		t.Errorf("journal state = %s, want %s", rec.State, journal.StateRollingBack)
	}
}
