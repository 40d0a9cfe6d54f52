package engine

import (
	"context"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/conflict"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
)

// DetectConflicts runs the Conflict Detector's pairwise, per-line, and
// mode/existence checks over patches against target's current content
// (spec.md §6.2 detect_conflicts, §4.2).
func (e *Engine) DetectConflicts(ctx context.Context, repo gitrepo.Repository, patches []diffmodel.Patch, target diffmodel.CommitId) ([]diffmodel.Conflict, error) {
	detector := conflict.NewDetector(repo, e.logger)
	return detector.Detect(ctx, patches, target)
}
