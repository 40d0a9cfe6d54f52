package engine

import (
	"context"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/applicator"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/rewriter"
)

// ApplyOperation executes op as a full rewrite transaction against
// repo (spec.md §6.2 apply_operation, §4.4's protocol).
func (e *Engine) ApplyOperation(ctx context.Context, repo gitrepo.Repository, op diffmodel.Operation) (diffmodel.OperationResult, error) {
	diffs := diffengine.NewEngine(repo, e.logger)
	apply := applicator.NewApplicator(repo, e.logger)
	r := rewriter.New(repo, diffs, apply, e.journal, e.logger, e.cfg, e.committer)
	return r.Execute(ctx, operationKind(op), op)
}
