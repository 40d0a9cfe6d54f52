package diffmodel

import "fmt"

// Hunk is a contiguous block of diff lines with old/new line ranges.
// Line numbers are 1-based.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []DiffLine
	Context  string // the "@@ ... @@ context" header line
}

// Validate checks the invariants spec.md §3 places on a Hunk: the
// old/new line counts must match the Context+Deletion / Context+Addition
// counts in Lines, and when context lines exist the first and last
// lines of the hunk must be context (so fuzzy matching has an anchor).
func (h Hunk) Validate() error {
	oldCount, newCount := 0, 0
	hasContext := false
	for _, l := range h.Lines {
		if l.InOld() {
			oldCount++
		}
		if l.InNew() {
			newCount++
		}
		if l.Kind == Context {
			hasContext = true
		}
	}
	if oldCount != h.OldLines {
		return fmt.Errorf("hunk old_lines mismatch: header says %d, body has %d", h.OldLines, oldCount)
	}
	if newCount != h.NewLines {
		return fmt.Errorf("hunk new_lines mismatch: header says %d, body has %d", h.NewLines, newCount)
	}
	if hasContext && len(h.Lines) > 0 {
		if h.Lines[0].Kind != Context {
			return fmt.Errorf("hunk must begin with a context line when context exists")
		}
		if h.Lines[len(h.Lines)-1].Kind != Context {
			return fmt.Errorf("hunk must end with a context line when context exists")
		}
	}
	return nil
}

// OldEnd returns the exclusive end of the hunk's old-coordinate range
// (OldStart + OldLines), used for overlap detection.
func (h Hunk) OldEnd() int {
	return h.OldStart + h.OldLines
}

// OverlapsOld reports whether h and other's old-coordinate ranges
// overlap: !(end1 <= start2 || end2 <= start1).
func (h Hunk) OverlapsOld(other Hunk) bool {
	return !(h.OldEnd() <= other.OldStart || other.OldEnd() <= h.OldStart)
}

// HeaderLine renders the "@@ -a,b +c,d @@ context" header for this hunk.
func (h Hunk) HeaderLine() string {
	ctx := h.Context
	if ctx != "" {
		return fmt.Sprintf("@@ -%d,%d +%d,%d @@ %s", h.OldStart, h.OldLines, h.NewStart, h.NewLines, ctx)
	}
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}
