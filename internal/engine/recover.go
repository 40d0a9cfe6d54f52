package engine

import (
	"context"
	"fmt"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/journal"
)

// Recover restores repo's branch ref to the commit recorded by
// operationID's backup ref (spec.md §6.2 recover, §6.3 persisted
// state), for post-crash cleanup when a transaction never reached
// StateDone. The journal record is moved to StateRollingBack to mark
// the recovery as a completed rollback rather than an in-flight
// transaction.
func (e *Engine) Recover(ctx context.Context, repo gitrepo.Repository, operationID string) error {
	rec, err := e.journal.Get(ctx, operationID)
	if err != nil {
		return fmt.Errorf("engine: recover %s: %w", operationID, err)
	}

	backupHead, err := repo.ResolveRef(ctx, rec.BackupRef)
	if err != nil {
		return fmt.Errorf("engine: recover %s: resolving backup ref %s: %w", operationID, rec.BackupRef, err)
	}

	current, err := repo.ResolveRef(ctx, rec.OriginalRef)
	if err != nil {
		current = diffmodel.CommitId{}
	}
	if err := repo.UpdateRef(ctx, rec.OriginalRef, current, backupHead); err != nil {
		return fmt.Errorf("engine: recover %s: restoring %s: %w", operationID, rec.OriginalRef, err)
	}

	return e.journal.Transition(ctx, operationID, journal.StateRollingBack)
}
