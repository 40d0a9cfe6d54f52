package diffmodel

// FileModeChange is the sum type of possible file-mode transitions on a
// patch: a new file, a deleted file, or a mode bit change on an
// existing file. Dispatch is a type switch, never a per-variant method.
type FileModeChange interface {
	isFileModeChange()
}

// NewFileMode records that the patch introduces a new file with the
// given POSIX mode.
type NewFileMode struct {
	Mode uint32
}

func (NewFileMode) isFileModeChange() {}

// DeletedFileMode records that the patch removes a file that had the
// given POSIX mode.
type DeletedFileMode struct {
	Mode uint32
}

func (DeletedFileMode) isFileModeChange() {}

// ModeBitsChange records a mode change on a file that is neither added
// nor deleted by the patch.
type ModeBitsChange struct {
	OldMode uint32
	NewMode uint32
}

func (ModeBitsChange) isFileModeChange() {}

// ModeChangesEqual reports whether two FileModeChange values (which may
// be nil) represent the same transition.
func ModeChangesEqual(a, b FileModeChange) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case NewFileMode:
		bv, ok := b.(NewFileMode)
		return ok && av.Mode == bv.Mode
	case DeletedFileMode:
		bv, ok := b.(DeletedFileMode)
		return ok && av.Mode == bv.Mode
	case ModeBitsChange:
		bv, ok := b.(ModeBitsChange)
		return ok && av.OldMode == bv.OldMode && av.NewMode == bv.NewMode
	default:
		return false
	}
}
