package rewriter

import (
	"context"
	"testing"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
)

func TestCommitsBetween(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"f": []byte("1\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"f": []byte("2\n")})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"f": []byte("3\n")})

	ctx := context.Background()
	got, err := commitsBetween(ctx, repo, c2, c1)
	if err != nil {
		t.Fatalf("commitsBetween: %v", err)
	}
	want := []diffmodel.CommitId{c1, c2}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commitsBetween(head=c2, target=c1) = %v, want %v", got, want)
	}

	single, err := commitsBetween(ctx, repo, c2, c2)
	if err != nil {
		t.Fatalf("commitsBetween (same): %v", err)
	}
	if len(single) != 1 || single[0] != c2 {
		t.Errorf("commitsBetween(head=c2, target=c2) = %v, want [c2]", single)
	}

	_, err = commitsBetween(ctx, repo, base, c2)
	if err == nil {
		t.Error("expected error when target is not an ancestor of head")
	}
}

func TestOlderOf(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"f": []byte("1\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"f": []byte("2\n")})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"f": []byte("3\n")})

	ctx := context.Background()
	older, err := olderOf(ctx, repo, c2, c1, c2)
	if err != nil {
		t.Fatalf("olderOf: %v", err)
	}
	if older != c1 {
		t.Errorf("olderOf(c1, c2) = %s, want c1", older.Short())
	}

	older2, err := olderOf(ctx, repo, c2, c2, c1)
	if err != nil {
		t.Fatalf("olderOf (reversed args): %v", err)
	}
	if older2 != c1 {
		t.Errorf("olderOf(c2, c1) = %s, want c1", older2.Short())
	}
}

func TestAffectedCommits_MovePatchIncludesBothEndpoints(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"f": []byte("1\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"f": []byte("2\n")})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"f": []byte("3\n")})
	c3 := repo.Commit("c3", "a", "a@x", []diffmodel.CommitId{c2}, map[string][]byte{"f": []byte("4\n")})

	ctx := context.Background()
	op := diffmodel.MovePatch{FromCommit: c1, ToCommit: c3}
	got, err := affectedCommits(ctx, repo, c3, op)
	if err != nil {
		t.Fatalf("affectedCommits: %v", err)
	}
	want := []diffmodel.CommitId{c1, c2, c3}
	if len(got) != len(want) {
		t.Fatalf("affectedCommits = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("affectedCommits[%d] = %s, want %s", i, got[i].Short(), want[i].Short())
		}
	}
}

func TestAffectedCommits_CreateCommitAtBranchHead(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"f": []byte("1\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"f": []byte("2\n")})

	ctx := context.Background()
	op := diffmodel.CreateCommit{Position: diffmodel.AtBranchHead{}}
	got, err := affectedCommits(ctx, repo, c1, op)
	if err != nil {
		t.Fatalf("affectedCommits: %v", err)
	}
	if len(got) != 1 || got[0] != c1 {
		t.Errorf("affectedCommits(AtBranchHead) = %v, want [c1]", got)
	}
}

func TestAffectedCommits_MergeCommitsSpansEarliestToHead(t *testing.T) {
	repo := gitrepo.NewFake()
	base := repo.Commit("base", "a", "a@x", nil, map[string][]byte{"f": []byte("1\n")})
	c1 := repo.Commit("c1", "a", "a@x", []diffmodel.CommitId{base}, map[string][]byte{"f": []byte("2\n")})
	c2 := repo.Commit("c2", "a", "a@x", []diffmodel.CommitId{c1}, map[string][]byte{"f": []byte("3\n")})

	ctx := context.Background()
	op := diffmodel.MergeCommits{CommitIDs: []diffmodel.CommitId{c2, c1}}
	got, err := affectedCommits(ctx, repo, c2, op)
	if err != nil {
		t.Fatalf("affectedCommits: %v", err)
	}
	want := []diffmodel.CommitId{c1, c2}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("affectedCommits(MergeCommits) = %v, want %v", got, want)
	}
}
