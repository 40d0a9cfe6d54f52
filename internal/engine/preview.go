package engine

import (
	"context"
	"fmt"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/conflict"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/rewriter"
)

// PreviewOperation forecasts op's effect without mutating repo
// (spec.md §6.2 preview_operation): which commits it touches, which
// patches move, and what conflicts a real apply would likely hit.
//
// Conflict checking only runs for MovePatch and CreateCommit, the two
// kinds that graft a patch onto a commit it was not originally
// written against -- the case the Applicator's three-way merge exists
// to cover. SplitCommit and MergeCommits rearrange patches that
// already coexist peacefully in linear history (each was already
// committed in sequence against the one before it); running the same
// pairwise/per-line checks over them would flag ordinary sequential
// changes to the same file as conflicts, which they are not.
func (e *Engine) PreviewOperation(ctx context.Context, repo gitrepo.Repository, op diffmodel.Operation) (diffmodel.OperationPreview, error) {
	head, err := repo.Head(ctx)
	if err != nil {
		return diffmodel.OperationPreview{}, err
	}

	commits, err := rewriter.AffectedCommits(ctx, repo, head, op)
	if err != nil {
		return diffmodel.OperationPreview{}, err
	}

	diffs := diffengine.NewEngine(repo, e.logger)
	changes, candidate, target, checkConflicts, err := describeOperation(ctx, diffs, repo, head, op)
	if err != nil {
		return diffmodel.OperationPreview{}, err
	}

	var conflicts []diffmodel.Conflict
	if checkConflicts {
		detector := conflict.NewDetector(repo, e.logger)
		conflicts, err = detector.Detect(ctx, candidate, target)
		if err != nil {
			return diffmodel.OperationPreview{}, err
		}
	}

	return diffmodel.OperationPreview{
		Changes:            changes,
		PotentialConflicts: conflicts,
		AffectedCommits:    commits,
	}, nil
}

func describeOperation(ctx context.Context, diffs *diffengine.Engine, repo gitrepo.Repository, head diffmodel.CommitId, op diffmodel.Operation) ([]diffmodel.ChangeSummary, []diffmodel.Patch, diffmodel.CommitId, bool, error) {
	switch o := op.(type) {
	case diffmodel.MovePatch:
		fromPatches, err := diffs.ExtractPatches(ctx, o.FromCommit)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		moved, err := findPatch(fromPatches, o.PatchID)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		toPatches, err := diffs.ExtractPatches(ctx, o.ToCommit)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		changes := []diffmodel.ChangeSummary{{
			PatchID:     moved.ID,
			TargetFile:  moved.TargetFile,
			Description: fmt.Sprintf("move from %s to %s", o.FromCommit.Short(), o.ToCommit.Short()),
		}}
		return changes, append(toPatches, moved), o.ToCommit, true, nil

	case diffmodel.SplitCommit:
		var changes []diffmodel.ChangeSummary
		for _, nc := range o.NewCommits {
			for _, pid := range nc.Patches {
				changes = append(changes, diffmodel.ChangeSummary{
					PatchID:     pid,
					Description: fmt.Sprintf("split into new commit %q", nc.Message),
				})
			}
		}
		return changes, nil, diffmodel.CommitId{}, false, nil

	case diffmodel.CreateCommit:
		anchor, err := resolveAnchor(head, o.Position)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		plan, err := rewriter.AffectedCommits(ctx, repo, head, op)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		byID, err := indexPatches(ctx, diffs, plan)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		var candidate []diffmodel.Patch
		var changes []diffmodel.ChangeSummary
		for _, pid := range o.Patches {
			p, ok := byID[pid]
			if !ok {
				return nil, nil, diffmodel.CommitId{}, false, fmt.Errorf("engine: patch %s not found among affected commits", pid)
			}
			candidate = append(candidate, p)
			changes = append(changes, diffmodel.ChangeSummary{
				PatchID:     p.ID,
				TargetFile:  p.TargetFile,
				Description: fmt.Sprintf("pulled into new commit %q", o.Message),
			})
		}
		anchorPatches, err := diffs.ExtractPatches(ctx, anchor)
		if err != nil {
			return nil, nil, diffmodel.CommitId{}, false, err
		}
		return changes, append(anchorPatches, candidate...), anchor, true, nil

	case diffmodel.MergeCommits:
		var changes []diffmodel.ChangeSummary
		for _, c := range o.CommitIDs {
			changes = append(changes, diffmodel.ChangeSummary{
				Description: fmt.Sprintf("fold %s into %s", c.Short(), o.CommitIDs[0].Short()),
			})
		}
		return changes, nil, diffmodel.CommitId{}, false, nil

	default:
		return nil, nil, diffmodel.CommitId{}, false, fmt.Errorf("engine: unknown operation type %T", op)
	}
}

func resolveAnchor(head diffmodel.CommitId, pos diffmodel.InsertPosition) (diffmodel.CommitId, error) {
	switch p := pos.(type) {
	case diffmodel.AtBranchHead:
		return head, nil
	case diffmodel.Before:
		return p.Commit, nil
	case diffmodel.After:
		return p.Commit, nil
	default:
		return diffmodel.CommitId{}, fmt.Errorf("engine: unknown insert position %T", pos)
	}
}

func findPatch(patches []diffmodel.Patch, id diffmodel.PatchId) (diffmodel.Patch, error) {
	for _, p := range patches {
		if p.ID == id {
			return p, nil
		}
	}
	return diffmodel.Patch{}, fmt.Errorf("engine: patch %s not found", id)
}

func indexPatches(ctx context.Context, diffs *diffengine.Engine, plan []diffmodel.CommitId) (map[diffmodel.PatchId]diffmodel.Patch, error) {
	byID := map[diffmodel.PatchId]diffmodel.Patch{}
	for _, c := range plan {
		patches, err := diffs.ExtractPatches(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, p := range patches {
			byID[p.ID] = p
		}
	}
	return byID, nil
}
