package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OperationState mirrors the rewrite transaction's state machine
// (spec.md §4.5).
type OperationState string

const (
	StateIdle          OperationState = "idle"
	StatePlanning      OperationState = "planning"
	StatePreflighting  OperationState = "preflighting"
	StateBackupTaken   OperationState = "backup_taken"
	StateRewriting     OperationState = "rewriting"
	StateRebasing      OperationState = "rebasing"
	StateCommitting    OperationState = "committing"
	StateDone          OperationState = "done"
	StateRollingBack   OperationState = "rolling_back"
)

// Record is one row of the operations table: the journal's view of a
// single rewrite transaction.
type Record struct {
	ID                  string
	Kind                string
	State               OperationState
	OriginalRef         string
	OriginalHead        string
	BackupRef           string
	CreatedAt           time.Time
	RetentionExpiresAt  time.Time
	ErrorMessage        string
}

// Journal is the sqlite-backed operation journal.
type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Create inserts a new operation record in StateIdle.
func (j *Journal) Create(ctx context.Context, id, kind, originalRef, originalHead, backupRef string, retentionWindow time.Duration) (Record, error) {
	now := time.Now().UTC()
	rec := Record{
		ID:                 id,
		Kind:               kind,
		State:              StateIdle,
		OriginalRef:        originalRef,
		OriginalHead:       originalHead,
		BackupRef:          backupRef,
		CreatedAt:          now,
		RetentionExpiresAt: now.Add(retentionWindow),
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO operations (id, kind, state, original_ref, original_head, backup_ref, created_at, retention_expires_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '')
	`, rec.ID, rec.Kind, string(rec.State), rec.OriginalRef, rec.OriginalHead, rec.BackupRef, rec.CreatedAt.Unix(), rec.RetentionExpiresAt.Unix())
	if err != nil {
		return Record{}, fmt.Errorf("journal: create operation: %w", err)
	}
	return rec, nil
}

// Transition updates an operation's state.
func (j *Journal) Transition(ctx context.Context, id string, state OperationState) error {
	_, err := j.db.ExecContext(ctx, `UPDATE operations SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return fmt.Errorf("journal: transition %s to %s: %w", id, state, err)
	}
	return nil
}

// Fail records a terminal error and moves the operation to
// StateRollingBack.
func (j *Journal) Fail(ctx context.Context, id string, cause error) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE operations SET state = ?, error_message = ? WHERE id = ?
	`, string(StateRollingBack), cause.Error(), id)
	if err != nil {
		return fmt.Errorf("journal: fail %s: %w", id, err)
	}
	return nil
}

// Get retrieves a single operation record by id.
func (j *Journal) Get(ctx context.Context, id string) (Record, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, kind, state, original_ref, original_head, backup_ref, created_at, retention_expires_at, error_message
		FROM operations WHERE id = ?
	`, id)
	return scanRecord(row)
}

// ExpiredBackups returns operations in StateDone whose retention
// window has elapsed, candidates for backup-ref pruning.
func (j *Journal) ExpiredBackups(ctx context.Context, asOf time.Time) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, state, original_ref, original_head, backup_ref, created_at, retention_expires_at, error_message
		FROM operations WHERE state = ? AND retention_expires_at < ?
	`, string(StateDone), asOf.Unix())
	if err != nil {
		return nil, fmt.Errorf("journal: expired backups: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (Record, error) {
	return scanInto(row)
}

func scanRecordRows(rows *sql.Rows) (Record, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (Record, error) {
	var rec Record
	var state string
	var createdAt, retentionExpiresAt int64
	err := s.Scan(&rec.ID, &rec.Kind, &state, &rec.OriginalRef, &rec.OriginalHead, &rec.BackupRef, &createdAt, &retentionExpiresAt, &rec.ErrorMessage)
	if err != nil {
		return Record{}, fmt.Errorf("journal: scan operation: %w", err)
	}
	rec.State = OperationState(state)
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.RetentionExpiresAt = time.Unix(retentionExpiresAt, 0).UTC()
	return rec, nil
}
