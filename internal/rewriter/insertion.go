package rewriter

import (
	"context"
	"fmt"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// synthSpec is one new commit to synthesize: a message and the
// concrete patches it carries.
type synthSpec struct {
	Message string
	Patches []diffmodel.Patch
}

// insertionPlan describes where SplitCommit's or CreateCommit's
// synthesized commits splice into the rewritten chain, relative to
// Anchor (or unconditionally at the final head, for AtHead).
type insertionPlan struct {
	Anchor     diffmodel.CommitId
	Before     bool
	After      bool
	AtHead     bool
	NewCommits []synthSpec
}

// buildInsertion resolves SplitCommit.NewCommits or CreateCommit's
// single new commit into concrete Patch values, by looking them up
// among the patches already present on plan's commits. MovePatch and
// MergeCommits synthesize no new commits and return nil.
func buildInsertion(ctx context.Context, diffs patchLoader, plan []diffmodel.CommitId, op diffmodel.Operation) (*insertionPlan, error) {
	switch o := op.(type) {
	case diffmodel.SplitCommit:
		byID, err := indexPatches(ctx, diffs, plan)
		if err != nil {
			return nil, err
		}
		specs := make([]synthSpec, 0, len(o.NewCommits))
		for _, nc := range o.NewCommits {
			patches, err := resolvePatches(byID, nc.Patches)
			if err != nil {
				return nil, err
			}
			specs = append(specs, synthSpec{Message: nc.Message, Patches: patches})
		}
		return &insertionPlan{Anchor: o.SourceCommit, After: true, NewCommits: specs}, nil

	case diffmodel.CreateCommit:
		byID, err := indexPatches(ctx, diffs, plan)
		if err != nil {
			return nil, err
		}
		patches, err := resolvePatches(byID, o.Patches)
		if err != nil {
			return nil, err
		}
		spec := synthSpec{Message: o.Message, Patches: patches}

		switch pos := o.Position.(type) {
		case diffmodel.AtBranchHead:
			return &insertionPlan{AtHead: true, NewCommits: []synthSpec{spec}}, nil
		case diffmodel.Before:
			return &insertionPlan{Anchor: pos.Commit, Before: true, NewCommits: []synthSpec{spec}}, nil
		case diffmodel.After:
			return &insertionPlan{Anchor: pos.Commit, After: true, NewCommits: []synthSpec{spec}}, nil
		default:
			return nil, fmt.Errorf("rewriter: unknown insert position %T", pos)
		}

	default:
		return nil, nil
	}
}

func indexPatches(ctx context.Context, diffs patchLoader, plan []diffmodel.CommitId) (map[diffmodel.PatchId]diffmodel.Patch, error) {
	byID := map[diffmodel.PatchId]diffmodel.Patch{}
	for _, c := range plan {
		ps, err := diffs.ExtractPatches(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			byID[p.ID] = p
		}
	}
	return byID, nil
}

func resolvePatches(byID map[diffmodel.PatchId]diffmodel.Patch, ids []diffmodel.PatchId) ([]diffmodel.Patch, error) {
	out := make([]diffmodel.Patch, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("rewriter: patch %s not found among affected commits", id)
		}
		out = append(out, p)
	}
	return out, nil
}
