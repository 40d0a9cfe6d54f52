package engine

import (
	"context"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
)

// ExtractPatches returns one Patch per file commit changed relative
// to its first parent (spec.md §6.2 extract_patches).
func (e *Engine) ExtractPatches(ctx context.Context, repo gitrepo.Repository, commit diffmodel.CommitId) ([]diffmodel.Patch, error) {
	diffs := diffengine.NewEngine(repo, e.logger)
	return diffs.ExtractPatches(ctx, commit)
}
