// Package rewriter implements the History Rewriter (spec.md §4.4-§4.5):
// a transactional, state-machine-driven executor for the four
// Operation kinds, with backup-and-rollback and a persisted journal.
package rewriter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/applicator"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/config"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/journal"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/workerpool"
)

// State is one position in the transaction state machine of
// spec.md §4.5.
type State string

// mergeConcurrency bounds the worker pool spec.md §5 permits for
// fanning out per-patch three-way merges within a single commit's
// tree materialization.
const mergeConcurrency = 4

const (
	StateIdle         State = "idle"
	StatePlanning     State = "planning"
	StatePreflighting State = "preflighting"
	StateBackupTaken  State = "backup_taken"
	StateRewriting    State = "rewriting"
	StateRebasing     State = "rebasing"
	StateCommitting   State = "committing"
	StateDone         State = "done"
	StateRollingBack  State = "rolling_back"
)

// Rewriter executes Operations as atomic transactions against a
// Repository Port. Conflict detection during the rewrite itself is
// delegated to the Applicator's per-patch three-way merge; a
// standalone conflict.Detector pass belongs to the Engine's preview
// path, ahead of the transaction.
type Rewriter struct {
	repo      gitrepo.Repository
	diffs     *diffengine.Engine
	apply     *applicator.Applicator
	journal   *journal.Journal
	logger    logging.Logger
	cfg       *config.Config
	committer gitrepo.CommitSignature
}

func New(repo gitrepo.Repository, diffs *diffengine.Engine, apply *applicator.Applicator, j *journal.Journal, logger logging.Logger, cfg *config.Config, committer gitrepo.CommitSignature) *Rewriter {
	return &Rewriter{
		repo:      repo,
		diffs:     diffs,
		apply:     apply,
		journal:   j,
		logger:    logger.With("component", "rewriter"),
		cfg:       cfg,
		committer: committer,
	}
}

// Execute runs op as a full transaction: plan, preflight, backup,
// rewrite, rebase, commit, per spec.md §4.4's protocol. kind is a
// short machine-readable tag persisted in the journal.
func (r *Rewriter) Execute(ctx context.Context, kind string, op diffmodel.Operation) (diffmodel.OperationResult, error) {
	id := uuid.NewString()
	state := StateIdle

	deadline := time.Duration(r.cfg.Engine.TransactionTimeoutSeconds) * time.Second
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	log := r.logger.With("operation_id", id, "kind", kind)

	state = StatePlanning
	head, err := r.repo.Head(ctx)
	if err != nil {
		return diffmodel.OperationResult{}, err
	}
	branch, err := r.repo.CurrentBranch(ctx)
	if err != nil {
		return diffmodel.OperationResult{}, err
	}
	refName := "refs/heads/" + branch

	plan, err := affectedCommits(ctx, r.repo, head, op)
	if err != nil {
		return diffmodel.OperationResult{}, err
	}
	insertion, err := buildInsertion(ctx, r.diffs, plan, op)
	if err != nil {
		return diffmodel.OperationResult{}, err
	}

	state = StatePreflighting
	if ctx.Err() != nil {
		return diffmodel.OperationResult{}, &diffmodel.OperationCancelledError{Reason: "cancelled during preflight"}
	}
	clean, err := r.repo.IsClean(ctx)
	if err != nil {
		return diffmodel.OperationResult{}, err
	}
	if !clean {
		return diffmodel.OperationResult{}, &diffmodel.RepositoryError{Reason: "dirty_working_tree"}
	}

	state = StateBackupTaken
	backupRef := "refs/patchdance/backup/" + id
	if err := r.repo.CreateRef(ctx, backupRef, head); err != nil {
		return diffmodel.OperationResult{}, err
	}
	retention := time.Duration(r.cfg.Engine.BackupRetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 14 * 24 * time.Hour
	}
	if _, err := r.journal.Create(ctx, id, kind, refName, head.Full(), backupRef, retention); err != nil {
		return diffmodel.OperationResult{}, err
	}

	result, err := r.rewrite(ctx, &state, log, plan, insertion, op)
	if err != nil {
		r.rollback(ctx, id, err)
		return diffmodel.OperationResult{}, &diffmodel.TransactionAbortedError{OperationID: id, Cause: err}
	}

	state = StateCommitting
	if err := r.repo.UpdateRef(ctx, refName, head, result.finalHead); err != nil {
		r.rollback(ctx, id, err)
		return diffmodel.OperationResult{}, &diffmodel.TransactionAbortedError{OperationID: id, Cause: err}
	}

	state = StateDone
	_ = r.journal.Transition(ctx, id, journal.StateDone)
	log.Info("transaction committed", "new_head", result.finalHead.Full(), "state", string(state))

	return diffmodel.OperationResult{
		Success:         true,
		NewCommitIDs:    result.newCommitIDs,
		ModifiedCommits: result.modifiedCommits,
	}, nil
}

type rewriteResult struct {
	finalHead       diffmodel.CommitId
	newCommitIDs    []diffmodel.CommitId
	modifiedCommits []diffmodel.CommitId
}

// rewrite performs steps 3-4 of the transaction protocol: materialize
// every affected commit in topological order, splicing in any
// synthesized commits, then resolve the final head.
func (r *Rewriter) rewrite(ctx context.Context, state *State, log logging.Logger, plan []diffmodel.CommitId, insertion *insertionPlan, op diffmodel.Operation) (rewriteResult, error) {
	*state = StateRewriting
	deltas, err := buildDeltas(ctx, r.diffs, op)
	if err != nil {
		return rewriteResult{}, err
	}

	oldToNew := map[diffmodel.CommitId]diffmodel.CommitId{}
	var newCommitIDs, modifiedCommits []diffmodel.CommitId

	for _, c := range plan {
		if ctx.Err() != nil {
			return rewriteResult{}, &diffmodel.OperationCancelledError{Reason: "cancelled during rewrite"}
		}

		info, err := r.repo.CommitInfo(ctx, c)
		if err != nil {
			return rewriteResult{}, err
		}
		newParents := resolveParents(info.ParentIDs, oldToNew)

		if insertion != nil && insertion.Before && insertion.Anchor == c && len(newParents) > 0 {
			tail, ids, err := r.synthesizeChain(ctx, newParents[0], insertion.NewCommits)
			if err != nil {
				return rewriteResult{}, err
			}
			newCommitIDs = append(newCommitIDs, ids...)
			newParents[0] = tail
		}

		d := deltas[c]
		originalPatches, err := r.diffs.ExtractPatches(ctx, c)
		if err != nil {
			return rewriteResult{}, err
		}
		newPatches := applyDelta(originalPatches, d)

		var newC diffmodel.CommitId
		if len(newPatches) == 0 && r.cfg.Engine.ElideEmptyCommits && len(newParents) == 1 {
			newC = newParents[0]
		} else {
			parent := diffmodel.CommitId{}
			if len(newParents) > 0 {
				parent = newParents[0]
			}
			treeID, conflicts, err := r.materializeTree(ctx, parent, newPatches)
			if err != nil {
				return rewriteResult{}, err
			}
			if len(conflicts) > 0 {
				return rewriteResult{}, &diffmodel.ConflictError{Description: fmt.Sprintf("rewriting commit %s", c.Short()), Conflicts: conflicts}
			}
			message := info.Message
			if d.Message != "" {
				message = d.Message
			}
			author := gitrepo.CommitSignature{Name: info.Author, Email: info.Email, When: info.Timestamp.Unix()}
			committer := r.committer
			committer.When = nowUnix()
			newC, err = r.repo.CreateCommit(ctx, newParents, treeID, author, committer, message)
			if err != nil {
				return rewriteResult{}, err
			}
		}
		oldToNew[c] = newC
		modifiedCommits = append(modifiedCommits, c)

		if insertion != nil && insertion.After && insertion.Anchor == c {
			tail, ids, err := r.synthesizeChain(ctx, newC, insertion.NewCommits)
			if err != nil {
				return rewriteResult{}, err
			}
			newCommitIDs = append(newCommitIDs, ids...)
			oldToNew[c] = tail
		}
	}

	*state = StateRebasing

	finalHead := diffmodel.CommitId{}
	if len(plan) > 0 {
		finalHead = oldToNew[plan[len(plan)-1]]
	}
	if insertion != nil && insertion.AtHead {
		base := finalHead
		if base.IsZero() {
			var err error
			base, err = r.repo.Head(ctx)
			if err != nil {
				return rewriteResult{}, err
			}
		}
		tail, ids, err := r.synthesizeChain(ctx, base, insertion.NewCommits)
		if err != nil {
			return rewriteResult{}, err
		}
		newCommitIDs = append(newCommitIDs, ids...)
		finalHead = tail
	}

	return rewriteResult{finalHead: finalHead, newCommitIDs: newCommitIDs, modifiedCommits: modifiedCommits}, nil
}

func resolveParents(original []diffmodel.CommitId, oldToNew map[diffmodel.CommitId]diffmodel.CommitId) []diffmodel.CommitId {
	out := make([]diffmodel.CommitId, len(original))
	for i, p := range original {
		if np, ok := oldToNew[p]; ok {
			out[i] = np
		} else {
			out[i] = p
		}
	}
	return out
}

// synthesizeChain creates one commit per synthSpec, each parented on
// the previous, starting from base. Used for SplitCommit's NewCommits
// and CreateCommit's single synthesized commit.
func (r *Rewriter) synthesizeChain(ctx context.Context, base diffmodel.CommitId, specs []synthSpec) (diffmodel.CommitId, []diffmodel.CommitId, error) {
	tail := base
	var created []diffmodel.CommitId
	for _, spec := range specs {
		treeID, conflicts, err := r.materializeTree(ctx, tail, spec.Patches)
		if err != nil {
			return diffmodel.CommitId{}, nil, err
		}
		if len(conflicts) > 0 {
			return diffmodel.CommitId{}, nil, &diffmodel.ConflictError{Description: "synthesizing new commit", Conflicts: conflicts}
		}
		sig := r.committer
		sig.When = nowUnix()
		newC, err := r.repo.CreateCommit(ctx, []diffmodel.CommitId{tail}, treeID, sig, sig, spec.Message)
		if err != nil {
			return diffmodel.CommitId{}, nil, err
		}
		created = append(created, newC)
		tail = newC
	}
	return tail, created, nil
}

// materializeTree applies every patch in patches against parent via
// the Applicator, fanning the pure per-patch merges out across a
// worker pool (spec.md §5), and writes the resulting tree.
func (r *Rewriter) materializeTree(ctx context.Context, parent diffmodel.CommitId, patches []diffmodel.Patch) (string, []diffmodel.Conflict, error) {
	type outcome struct {
		entry    gitrepo.TreeEntry
		conflict []diffmodel.Conflict
	}

	outcomes, err := workerpool.Run(ctx, mergeConcurrency, patches, func(ctx context.Context, p diffmodel.Patch) (outcome, error) {
		res, err := r.apply.Apply(ctx, p, parent)
		if err != nil {
			return outcome{}, err
		}
		if !res.Clean {
			return outcome{conflict: res.Conflicts}, nil
		}
		entry := gitrepo.TreeEntry{Path: p.TargetFile}
		switch mc := p.ModeChange.(type) {
		case diffmodel.DeletedFileMode:
			entry.Deleted = true
		case diffmodel.NewFileMode:
			entry.Content = []byte(res.Merged)
			entry.Mode = mc.Mode
		case diffmodel.ModeBitsChange:
			entry.Content = []byte(res.Merged)
			entry.Mode = mc.NewMode
		default:
			entry.Content = []byte(res.Merged)
		}
		return outcome{entry: entry}, nil
	})
	if err != nil {
		return "", nil, err
	}

	var entries []gitrepo.TreeEntry
	var conflicts []diffmodel.Conflict
	for _, o := range outcomes {
		if len(o.conflict) > 0 {
			conflicts = append(conflicts, o.conflict...)
			continue
		}
		if o.entry.Path != "" {
			entries = append(entries, o.entry)
		}
	}
	if len(conflicts) > 0 {
		return "", conflicts, nil
	}

	treeID, err := r.repo.WriteTree(ctx, parent, entries)
	if err != nil {
		return "", nil, err
	}
	return treeID, nil, nil
}

// rollback marks the transaction failed in the journal (spec.md §4.4
// step 6). The branch ref itself needs no explicit restore: every ref
// move in this package is a single compare-and-swap gated on the
// original head, so a failure anywhere before that CAS leaves the ref
// untouched. The backup ref is left in place rather than deleted --
// it is the journal's record of the attempt and stays subject to the
// normal retention window.
func (r *Rewriter) rollback(ctx context.Context, id string, cause error) {
	r.logger.Warn("rolling back transaction", "operation_id", id, "cause", cause.Error())
	if err := r.journal.Fail(ctx, id, cause); err != nil {
		r.logger.Error("failed to record rollback in journal", "operation_id", id, "error", err.Error())
	}
}

func nowUnix() int64 {
	return time.Now().Unix()
}
