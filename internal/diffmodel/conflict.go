package diffmodel

import "fmt"

// ConflictKind enumerates the classes of conflict the detector and
// applicator can raise.
type ConflictKind string

const (
	ContentConflict        ConflictKind = "content_conflict"
	ModeConflict            ConflictKind = "mode_conflict"
	DeleteModifyConflict    ConflictKind = "delete_modify_conflict"
	RenameConflict          ConflictKind = "rename_conflict"
)

// Conflict describes one conflicting region or attribute between two or
// more patches, or between a patch and its target commit. Id is
// deterministic so the same input always produces the same id.
type Conflict struct {
	ID          string
	Kind        ConflictKind
	FilePath    string
	Description string
	OurContent  string
	TheirContent string
}

// ContentConflictID formats the deterministic id for a content
// conflict: "<file>:<line>".
func ContentConflictID(file string, line int) string {
	return fmt.Sprintf("%s:%d", file, line)
}

// ModeConflictID formats the deterministic id for a mode conflict.
func ModeConflictID(file string) string {
	return fmt.Sprintf("%s:mode", file)
}

// DeleteModifyConflictID formats the deterministic id for a
// delete/modify conflict.
func DeleteModifyConflictID(file string) string {
	return fmt.Sprintf("%s:delete-modify", file)
}

// RenameConflictID formats the deterministic id for a rename conflict.
func RenameConflictID(file string) string {
	return fmt.Sprintf("%s:rename", file)
}
