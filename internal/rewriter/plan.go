package rewriter

import (
	"context"
	"fmt"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
)

// AffectedCommits exposes affectedCommits for the Engine's preview
// path, which needs the same execution-plan derivation Execute uses
// without duplicating its per-operation-kind dispatch.
func AffectedCommits(ctx context.Context, repo gitrepo.Repository, head diffmodel.CommitId, op diffmodel.Operation) ([]diffmodel.CommitId, error) {
	return affectedCommits(ctx, repo, head, op)
}

// commitsBetween returns the commits from target (inclusive) through
// head (inclusive), oldest first: target plus its descendants up to
// the branch head. If target equals head, the result is the
// single-element slice {head}.
func commitsBetween(ctx context.Context, repo gitrepo.Repository, head, target diffmodel.CommitId) ([]diffmodel.CommitId, error) {
	history, err := repo.WalkHistory(ctx, head, 0)
	if err != nil {
		return nil, fmt.Errorf("walking history from %s: %w", head.Short(), err)
	}

	idx := -1
	for i, c := range history {
		if c.ID == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &diffmodel.InvalidCommitIDError{CommitID: target.Full(), Err: fmt.Errorf("not an ancestor of %s", head.Short())}
	}

	out := make([]diffmodel.CommitId, 0, idx+1)
	for i := idx; i >= 0; i-- {
		out = append(out, history[i].ID)
	}
	return out, nil
}

// olderOf returns whichever of a, b is the ancestor of the other, as
// walked back from head; it is an error if neither is an ancestor of
// the other.
func olderOf(ctx context.Context, repo gitrepo.Repository, head, a, b diffmodel.CommitId) (diffmodel.CommitId, error) {
	history, err := repo.WalkHistory(ctx, head, 0)
	if err != nil {
		return diffmodel.CommitId{}, err
	}
	aIdx, bIdx := -1, -1
	for i, c := range history {
		if c.ID == a {
			aIdx = i
		}
		if c.ID == b {
			bIdx = i
		}
	}
	if aIdx < 0 || bIdx < 0 {
		return diffmodel.CommitId{}, &diffmodel.InvalidCommitIDError{CommitID: a.Full(), Err: fmt.Errorf("one of %s, %s is not an ancestor of %s", a.Short(), b.Short(), head.Short())}
	}
	if aIdx > bIdx {
		return a, nil
	}
	return b, nil
}

// affectedCommits derives the execution plan's commit set per
// spec.md §4.4's per-operation-kind rules, in topological order,
// oldest first.
func affectedCommits(ctx context.Context, repo gitrepo.Repository, head diffmodel.CommitId, op diffmodel.Operation) ([]diffmodel.CommitId, error) {
	switch o := op.(type) {
	case diffmodel.MovePatch:
		older, err := olderOf(ctx, repo, head, o.FromCommit, o.ToCommit)
		if err != nil {
			return nil, err
		}
		commits, err := commitsBetween(ctx, repo, head, older)
		if err != nil {
			return nil, err
		}
		return ensureContains(commits, o.FromCommit, o.ToCommit), nil

	case diffmodel.SplitCommit:
		return commitsBetween(ctx, repo, head, o.SourceCommit)

	case diffmodel.CreateCommit:
		switch pos := o.Position.(type) {
		case diffmodel.AtBranchHead:
			return []diffmodel.CommitId{head}, nil
		case diffmodel.Before:
			return commitsBetween(ctx, repo, head, pos.Commit)
		case diffmodel.After:
			return commitsBetween(ctx, repo, head, pos.Commit)
		default:
			return nil, fmt.Errorf("rewriter: unknown insert position %T", pos)
		}

	case diffmodel.MergeCommits:
		if len(o.CommitIDs) == 0 {
			return nil, fmt.Errorf("rewriter: MergeCommits requires at least one commit")
		}
		earliest := o.CommitIDs[0]
		for _, c := range o.CommitIDs[1:] {
			earliest, _ = olderOf(ctx, repo, head, earliest, c)
		}
		return commitsBetween(ctx, repo, head, earliest)

	default:
		return nil, fmt.Errorf("rewriter: unknown operation type %T", op)
	}
}

func ensureContains(commits []diffmodel.CommitId, extras ...diffmodel.CommitId) []diffmodel.CommitId {
	present := map[diffmodel.CommitId]bool{}
	for _, c := range commits {
		present[c] = true
	}
	for _, e := range extras {
		if !present[e] {
			commits = append([]diffmodel.CommitId{e}, commits...)
			present[e] = true
		}
	}
	return commits
}
