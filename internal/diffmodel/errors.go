package diffmodel

import "fmt"

// ErrorKind is the stable, machine-readable discriminator every engine
// error carries, per spec.md §7.
type ErrorKind string

const (
	KindRepositoryError      ErrorKind = "repository_error"
	KindIoError              ErrorKind = "io_error"
	KindInvalidCommitID      ErrorKind = "invalid_commit_id"
	KindPatchParseError      ErrorKind = "patch_parse_error"
	KindPatchApplicationError ErrorKind = "patch_application_error"
	KindConflictError        ErrorKind = "conflict_error"
	KindTransactionAborted   ErrorKind = "transaction_aborted"
	KindOperationCancelled   ErrorKind = "operation_cancelled"
)

// EngineError is implemented by every error kind in the taxonomy so
// callers (a CLI front-end, in particular) can dispatch on Kind()
// without inspecting internals.
type EngineError interface {
	error
	Kind() ErrorKind
}

// RepositoryError wraps a repository-layer failure (missing, locked,
// corrupt). Reason is a short machine-friendly tag such as "not_found"
// or "dirty_working_tree".
type RepositoryError struct {
	Reason string
	Err    error
}

func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("repository error: %s", e.Reason)
}

func (e *RepositoryError) Unwrap() error  { return e.Err }
func (e *RepositoryError) Kind() ErrorKind { return KindRepositoryError }

// IoError wraps an underlying storage I/O failure.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string  { return fmt.Sprintf("io error during %s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error  { return e.Err }
func (e *IoError) Kind() ErrorKind { return KindIoError }

// InvalidCommitIDError reports an unknown or malformed commit id.
type InvalidCommitIDError struct {
	CommitID string
	Err      error
}

func (e *InvalidCommitIDError) Error() string {
	return fmt.Sprintf("invalid commit id %q: %v", e.CommitID, e.Err)
}
func (e *InvalidCommitIDError) Unwrap() error  { return e.Err }
func (e *InvalidCommitIDError) Kind() ErrorKind { return KindInvalidCommitID }

// PatchParseError reports a malformed unified diff.
type PatchParseError struct {
	Detail string
	Err    error
}

func (e *PatchParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("patch parse error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("patch parse error: %s", e.Detail)
}
func (e *PatchParseError) Unwrap() error  { return e.Err }
func (e *PatchParseError) Kind() ErrorKind { return KindPatchParseError }

// PatchApplicationError reports that a hunk could not be located with
// sufficient confidence during apply_patch.
type PatchApplicationError struct {
	HunkIndex int
	Reason    string
}

func (e *PatchApplicationError) Error() string {
	return fmt.Sprintf("hunk %d could not be applied: %s", e.HunkIndex, e.Reason)
}
func (e *PatchApplicationError) Kind() ErrorKind { return KindPatchApplicationError }

// ConflictError carries one or more Conflicts. Non-fatal for a preview,
// fatal for apply_operation unless a resolver callback resolves them.
type ConflictError struct {
	Description string
	Conflicts   []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (%d conflict(s))", e.Description, len(e.Conflicts))
}
func (e *ConflictError) Kind() ErrorKind { return KindConflictError }

// TransactionAbortedError reports that a rewrite transaction was rolled
// back after a downstream failure. Cause is the original error that
// triggered the rollback.
type TransactionAbortedError struct {
	OperationID string
	Cause       error
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("transaction %s aborted and rolled back: %v", e.OperationID, e.Cause)
}
func (e *TransactionAbortedError) Unwrap() error  { return e.Cause }
func (e *TransactionAbortedError) Kind() ErrorKind { return KindTransactionAborted }

// OperationCancelledError reports user- or timeout-initiated
// cancellation.
type OperationCancelledError struct {
	Reason string
}

func (e *OperationCancelledError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operation cancelled: %s", e.Reason)
	}
	return "operation cancelled"
}
func (e *OperationCancelledError) Kind() ErrorKind { return KindOperationCancelled }
