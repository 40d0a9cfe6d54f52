package diffengine

import (
	"errors"
	"strings"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
)

const (
	minMatchConfidence = 50
	maxContextMismatch = 3
)

// ApplyPatch applies every hunk of p to original, in order, returning
// the resulting text. Each hunk is located by exact match first, then
// by fuzzy match (spec.md §4.1). A hunk that cannot be located with
// confidence >= minMatchConfidence fails the whole application.
func ApplyPatch(original string, p diffmodel.Patch) (string, error) {
	noNewlineAtEOF := strings.HasSuffix(original, "\n") == false && original != ""
	lines := splitTextLines(original)

	for i, h := range p.Hunks {
		window, ok := locateHunk(lines, h)
		if !ok {
			return "", &diffmodel.PatchApplicationError{HunkIndex: i, Reason: "no location reached minimum confidence"}
		}
		replacement := replacementLines(h)
		lines = append(lines[:window.start], append(replacement, lines[window.end:]...)...)
	}

	result := strings.Join(lines, "\n")
	if len(p.Hunks) > 0 {
		lastHunk := p.Hunks[len(p.Hunks)-1]
		if lastLineNoNewline(lastHunk) {
			return result, nil
		}
	}
	if !noNewlineAtEOF {
		result += "\n"
	}
	return result, nil
}

func lastLineNoNewline(h diffmodel.Hunk) bool {
	if len(h.Lines) == 0 {
		return false
	}
	return h.Lines[len(h.Lines)-1].NoNewlineAtEOF
}

func splitTextLines(text string) []string {
	if text == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(text, "\n")
	return strings.Split(trimmed, "\n")
}

// replacementLines returns the lines a hunk writes in its place: every
// Context and Addition line, in listed order.
func replacementLines(h diffmodel.Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.InNew() {
			out = append(out, l.Text)
		}
	}
	return out
}

// oldLines returns the lines a hunk expects to find: every Context and
// Deletion line, in listed order.
func oldLines(h diffmodel.Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.InOld() {
			out = append(out, l.Text)
		}
	}
	return out
}

type window struct {
	start, end int
}

// locateHunk finds the best position in lines to apply h: first by
// exact match at old_start-1, then by fuzzy search across the whole
// file.
func locateHunk(lines []string, h diffmodel.Hunk) (window, bool) {
	expected := oldLines(h)

	// A hunk with no old lines (a pure addition, e.g. the whole content
	// of a newly added file) has nothing to match against: it always
	// belongs at its recorded position, never a fuzzy-matched one.
	if len(expected) == 0 {
		start := h.OldStart - 1
		if start < 0 {
			start = 0
		}
		return window{start: start, end: start}, true
	}

	exactStart := h.OldStart - 1

	if exactStart >= 0 && exactStart+len(expected) <= len(lines) && linesEqual(lines[exactStart:exactStart+len(expected)], expected) {
		return window{start: exactStart, end: exactStart + len(expected)}, true
	}

	bestScore := -1
	bestStart := -1
	for start := 0; start+len(expected) <= len(lines); start++ {
		candidate := lines[start : start+len(expected)]
		mismatches := countMismatches(candidate, expected)
		if mismatches > maxContextMismatch {
			continue
		}
		score := confidence(mismatches, len(expected))
		if score > bestScore || (score == bestScore && bestStart >= 0 && abs(start-exactStart) < abs(bestStart-exactStart)) {
			bestScore = score
			bestStart = start
		}
	}

	if bestStart < 0 || bestScore < minMatchConfidence {
		return window{}, false
	}
	return window{start: bestStart, end: bestStart + len(expected)}, true
}

func countMismatches(candidate, expected []string) int {
	if len(candidate) != len(expected) {
		return len(expected)
	}
	n := 0
	for i := range expected {
		if candidate[i] != expected[i] {
			n++
		}
	}
	return n
}

// confidence scores a window with the given mismatch count out of
// total lines: +10 per exact match, -5 per mismatch, saturating at
// [0, 100].
func confidence(mismatches, total int) int {
	matches := total - mismatches
	score := matches*10 - mismatches*5
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func linesEqual(a, b []string) bool {
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

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func isFileAbsent(err error) bool {
	return errors.Is(err, gitrepo.ErrFileAbsent)
}
