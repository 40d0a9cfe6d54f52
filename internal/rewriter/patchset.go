package rewriter

import (
	"context"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// delta describes how one commit's patch set changes during a
// rewrite: patches to add (pulled in from elsewhere, or synthesized)
// and patch ids to drop from the commit's original set, per spec.md
// §4.4 step 3's "(original patches) ∪ (added) ∖ (removed)".
type delta struct {
	Add     []diffmodel.Patch
	Remove  map[diffmodel.PatchId]bool
	Message string // non-empty overrides the commit's original message
}

func newDelta() delta {
	return delta{Remove: map[diffmodel.PatchId]bool{}}
}

// applyDelta computes the new patch set for a commit given its
// original patches and the delta targeting it.
func applyDelta(original []diffmodel.Patch, d delta) []diffmodel.Patch {
	out := make([]diffmodel.Patch, 0, len(original)+len(d.Add))
	for _, p := range original {
		if d.Remove[p.ID] {
			continue
		}
		out = append(out, p)
	}
	out = append(out, d.Add...)
	return out
}

// patchLoader loads the original patch set for a commit, so the
// planner can pull a specific patch out of it for a MovePatch or
// SplitCommit operation.
type patchLoader interface {
	ExtractPatches(ctx context.Context, commit diffmodel.CommitId) ([]diffmodel.Patch, error)
}

// buildDeltas computes the per-commit delta map for op, keyed by the
// original commit id the delta applies to.
func buildDeltas(ctx context.Context, patches patchLoader, op diffmodel.Operation) (map[diffmodel.CommitId]delta, error) {
	deltas := map[diffmodel.CommitId]delta{}

	switch o := op.(type) {
	case diffmodel.MovePatch:
		fromPatches, err := patches.ExtractPatches(ctx, o.FromCommit)
		if err != nil {
			return nil, err
		}
		var moved diffmodel.Patch
		found := false
		for _, p := range fromPatches {
			if p.ID == o.PatchID {
				moved = p
				found = true
				break
			}
		}
		if !found {
			return nil, &diffmodel.InvalidCommitIDError{CommitID: o.FromCommit.Full(), Err: errPatchNotFound(o.PatchID)}
		}

		fromDelta := newDelta()
		fromDelta.Remove[o.PatchID] = true
		deltas[o.FromCommit] = fromDelta

		toDelta := newDelta()
		toDelta.Add = append(toDelta.Add, moved)
		deltas[o.ToCommit] = toDelta

	case diffmodel.SplitCommit:
		sourcePatches, err := patches.ExtractPatches(ctx, o.SourceCommit)
		if err != nil {
			return nil, err
		}
		byID := map[diffmodel.PatchId]diffmodel.Patch{}
		for _, p := range sourcePatches {
			byID[p.ID] = p
		}

		sourceDelta := newDelta()
		for _, nc := range o.NewCommits {
			for _, pid := range nc.Patches {
				sourceDelta.Remove[pid] = true
			}
		}
		deltas[o.SourceCommit] = sourceDelta
		// The new commits themselves are synthesized by the transaction
		// runner directly (they have no "original" commit to key a delta
		// by); buildDeltas only resolves deltas against pre-existing
		// commits in the plan.

	case diffmodel.CreateCommit:
		// Like SplitCommit's new commits, the synthesized commit has no
		// original counterpart; the transaction runner materializes it
		// directly from o.Patches.

	case diffmodel.MergeCommits:
		if len(o.CommitIDs) == 0 {
			return deltas, nil
		}
		merged := newDelta()
		merged.Message = o.Message
		// The earliest commit's own patches ride along via applyDelta's
		// "original" set already; merged.Add only needs the patches
		// pulled in from the commits folding into it.
		for _, c := range o.CommitIDs[1:] {
			ps, err := patches.ExtractPatches(ctx, c)
			if err != nil {
				return nil, err
			}
			merged.Add = append(merged.Add, ps...)
		}
		deltas[o.CommitIDs[0]] = merged
		// Every input commit after the first is elided: all of its
		// patches fold into the earliest commit in the range, leaving
		// the commit itself an empty pass-through.
		for _, c := range o.CommitIDs[1:] {
			ps, err := patches.ExtractPatches(ctx, c)
			if err != nil {
				return nil, err
			}
			elide := newDelta()
			for _, p := range ps {
				elide.Remove[p.ID] = true
			}
			deltas[c] = elide
		}
	}

	return deltas, nil
}

type patchNotFoundError struct {
	id diffmodel.PatchId
}

func (e patchNotFoundError) Error() string {
	return "patch " + string(e.id) + " not found in source commit"
}

func errPatchNotFound(id diffmodel.PatchId) error {
	return patchNotFoundError{id: id}
}
