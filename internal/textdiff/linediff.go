// Package textdiff wraps github.com/sergi/go-diff's Myers' diff
// implementation to produce line-level edit scripts, the granularity
// the three-way merge in internal/applicator operates on.
package textdiff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// OpKind discriminates one step of a line-level edit script.
type OpKind int

const (
	OpEqual OpKind = iota
	OpInsert
	OpDelete
)

// Op is one step of an edit script: Lines are the line-diff's lines
// sharing this Kind, run together so callers don't see one Op per
// line when many lines in a row match.
type Op struct {
	Kind  OpKind
	Lines []string
}

// LineDiff computes a Myers' edit script turning oldLines into
// newLines, operating at line granularity via go-diff's
// DiffLinesToChars/DiffCharsToLines preprocessing so that the
// underlying character-level Myers' algorithm treats each line as one
// token.
func LineDiff(oldLines, newLines []string) []Op {
	dmp := diffmatchpatch.New()

	oldText := strings.Join(oldLines, "\n")
	newText := strings.Join(newLines, "\n")
	if len(oldLines) > 0 {
		oldText += "\n"
	}
	if len(newLines) > 0 {
		newText += "\n"
	}

	charsOld, charsNew, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(charsOld, charsNew, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := make([]Op, 0, len(diffs))
	for _, d := range diffs {
		lines := splitNonEmptyLines(d.Text)
		if len(lines) == 0 {
			continue
		}
		var kind OpKind
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			kind = OpEqual
		case diffmatchpatch.DiffInsert:
			kind = OpInsert
		case diffmatchpatch.DiffDelete:
			kind = OpDelete
		}
		ops = append(ops, Op{Kind: kind, Lines: lines})
	}
	return ops
}

// splitNonEmptyLines splits text on "\n" the way DiffLinesToChars
// joined it, dropping the single trailing empty element left behind
// by a trailing newline.
func splitNonEmptyLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// EqualLines reports whether a and b contain the same lines in the
// same order, used by the applicator to short-circuit identical
// regions before attempting a merge.
func EqualLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
