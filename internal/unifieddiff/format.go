package unifieddiff

import (
	"strings"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// FormatHunk renders a single hunk back into unified diff text,
// including its header line and the "\ No newline at end of file"
// sentinel where recorded.
func FormatHunk(h diffmodel.Hunk) string {
	var b strings.Builder
	b.WriteString(h.HeaderLine())
	b.WriteString("\n")
	for _, l := range h.Lines {
		switch l.Kind {
		case diffmodel.Addition:
			b.WriteString("+")
		case diffmodel.Deletion:
			b.WriteString("-")
		default:
			b.WriteString(" ")
		}
		b.WriteString(l.Text)
		b.WriteString("\n")
		if l.NoNewlineAtEOF {
			b.WriteString(`\ No newline at end of file`)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatPatch renders every hunk of a patch, in order, as unified diff
// text (without the "diff --git" file header — callers that need a
// complete git-style diff should prepend one).
func FormatPatch(p diffmodel.Patch) string {
	var b strings.Builder
	for _, h := range p.Hunks {
		b.WriteString(FormatHunk(h))
	}
	return b.String()
}
