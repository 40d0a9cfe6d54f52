// Package unifieddiff parses and formats the unified diff text format
// spec.md §6.4 names: "diff --git" file headers, "@@ -a,b +c,d @@"
// hunk headers, +/-/space prefixed body lines, and the
// "\ No newline at end of file" sentinel.
package unifieddiff

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// FileDiff is one file's worth of a parsed unified diff: the target
// path, its file status, any mode change, and its hunks (empty for
// binary files).
type FileDiff struct {
	OldPath    string
	NewPath    string
	Status     diffmodel.FileStatus
	Similarity int // percentage, for Renamed/Copied
	ModeChange diffmodel.FileModeChange
	Hunks      []diffmodel.Hunk
	Binary     bool

	pendingOldMode uint32
}

// TargetPath returns NewPath if present, else OldPath, matching
// spec.md §4.1 step 2.
func (f FileDiff) TargetPath() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// ParseMultiFile splits a full "diff --git" formatted text (as
// produced by tree_to_tree_diff) into one FileDiff per file.
func ParseMultiFile(text string) ([]FileDiff, error) {
	var files []FileDiff
	var cur *FileDiff

	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) {
		line := lines[i]

		switch {
		case strings.HasPrefix(line, "diff --git "):
			if cur != nil {
				files = append(files, *cur)
			}
			oldPath, newPath, err := parseDiffGitLine(line)
			if err != nil {
				return nil, &diffmodel.PatchParseError{Detail: "malformed diff --git line", Err: err}
			}
			cur = &FileDiff{OldPath: oldPath, NewPath: newPath, Status: diffmodel.StatusModified}
			i++

		case cur == nil:
			// Preamble / noise before the first file header; skip.
			i++

		case strings.HasPrefix(line, "old mode "):
			mode, err := parseOctalMode(strings.TrimPrefix(line, "old mode "))
			if err != nil {
				return nil, &diffmodel.PatchParseError{Detail: "malformed old mode line", Err: err}
			}
			cur.pendingOldMode = mode
			i++

		case strings.HasPrefix(line, "new mode "):
			mode, err := parseOctalMode(strings.TrimPrefix(line, "new mode "))
			if err != nil {
				return nil, &diffmodel.PatchParseError{Detail: "malformed new mode line", Err: err}
			}
			if cur.pendingOldMode != 0 {
				cur.ModeChange = diffmodel.ModeBitsChange{OldMode: cur.pendingOldMode, NewMode: mode}
			}
			i++

		case strings.HasPrefix(line, "new file mode "):
			mode, err := parseOctalMode(strings.TrimPrefix(line, "new file mode "))
			if err != nil {
				return nil, &diffmodel.PatchParseError{Detail: "malformed new file mode line", Err: err}
			}
			cur.Status = diffmodel.StatusAdded
			cur.ModeChange = diffmodel.NewFileMode{Mode: mode}
			i++

		case strings.HasPrefix(line, "deleted file mode "):
			mode, err := parseOctalMode(strings.TrimPrefix(line, "deleted file mode "))
			if err != nil {
				return nil, &diffmodel.PatchParseError{Detail: "malformed deleted file mode line", Err: err}
			}
			cur.Status = diffmodel.StatusDeleted
			cur.ModeChange = diffmodel.DeletedFileMode{Mode: mode}
			i++

		case strings.HasPrefix(line, "rename from "):
			cur.Status = diffmodel.StatusRenamed
			i++
		case strings.HasPrefix(line, "rename to "):
			i++
		case strings.HasPrefix(line, "copy from "):
			cur.Status = diffmodel.StatusCopied
			i++
		case strings.HasPrefix(line, "copy to "):
			i++
		case strings.HasPrefix(line, "similarity index "):
			pct := strings.TrimSuffix(strings.TrimPrefix(line, "similarity index "), "%")
			if n, err := strconv.Atoi(pct); err == nil {
				cur.Similarity = n
			}
			i++

		case strings.HasPrefix(line, "Binary files ") || strings.HasPrefix(line, "GIT binary patch"):
			cur.Binary = true
			i++

		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "index "):
			i++

		case strings.HasPrefix(line, "@@"):
			hunk, consumed, err := parseOneHunk(lines[i:])
			if err != nil {
				return nil, err
			}
			cur.Hunks = append(cur.Hunks, hunk)
			i += consumed

		default:
			i++
		}
	}
	if cur != nil {
		files = append(files, *cur)
	}
	return files, nil
}

// parseDiffGitLine extracts old/new paths from:
//
//	diff --git a/path/to/old b/path/to/new
func parseDiffGitLine(line string) (oldPath, newPath string, err error) {
	rest := strings.TrimPrefix(line, "diff --git ")
	idx := strings.Index(rest, " b/")
	if !strings.HasPrefix(rest, "a/") || idx < 0 {
		return "", "", fmt.Errorf("expected \"a/... b/...\" form, got %q", line)
	}
	oldPath = rest[2:idx]
	newPath = rest[idx+3:]
	return oldPath, newPath, nil
}

func parseOctalMode(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// hunkHeaderPattern-free manual parse of "@@ -a,b +c,d @@ context".
func parseHunkHeader(line string) (oldStart, oldLines, newStart, newLines int, context string, err error) {
	if !strings.HasPrefix(line, "@@") {
		return 0, 0, 0, 0, "", fmt.Errorf("not a hunk header: %q", line)
	}
	rest := strings.TrimPrefix(line, "@@")
	end := strings.Index(rest, "@@")
	if end < 0 {
		return 0, 0, 0, 0, "", fmt.Errorf("unterminated hunk header: %q", line)
	}
	ranges := strings.TrimSpace(rest[:end])
	context = strings.TrimSpace(rest[end+2:])

	parts := strings.Fields(ranges)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "-") || !strings.HasPrefix(parts[1], "+") {
		return 0, 0, 0, 0, "", fmt.Errorf("malformed hunk range: %q", ranges)
	}
	oldStart, oldLines, err = parseRange(parts[0][1:])
	if err != nil {
		return 0, 0, 0, 0, "", fmt.Errorf("malformed old range %q: %w", parts[0], err)
	}
	newStart, newLines, err = parseRange(parts[1][1:])
	if err != nil {
		return 0, 0, 0, 0, "", fmt.Errorf("malformed new range %q: %w", parts[1], err)
	}
	return oldStart, oldLines, newStart, newLines, context, nil
}

func parseRange(s string) (start, count int, err error) {
	if comma := strings.IndexByte(s, ','); comma >= 0 {
		start, err = strconv.Atoi(s[:comma])
		if err != nil {
			return 0, 0, err
		}
		count, err = strconv.Atoi(s[comma+1:])
		return start, count, err
	}
	start, err = strconv.Atoi(s)
	return start, 1, err
}

// parseOneHunk parses a single hunk starting at lines[0] (a header
// line) and returns how many lines it consumed.
func parseOneHunk(lines []string) (diffmodel.Hunk, int, error) {
	oldStart, oldLines, newStart, newLines, context, err := parseHunkHeader(lines[0])
	if err != nil {
		return diffmodel.Hunk{}, 0, &diffmodel.PatchParseError{Detail: "malformed hunk header", Err: err}
	}

	h := diffmodel.Hunk{
		OldStart: oldStart, OldLines: oldLines,
		NewStart: newStart, NewLines: newLines,
		Context: context,
	}

	consumed := 1
	var pendingLine *diffmodel.DiffLine
	oldSeen, newSeen := 0, 0
	for consumed < len(lines) {
		line := lines[consumed]
		if line == "" && consumed == len(lines)-1 {
			// Trailing blank line from strings.Split on a trailing "\n".
			break
		}
		if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "diff --git ") {
			break
		}
		if line == `\ No newline at end of file` {
			if pendingLine != nil {
				pendingLine.NoNewlineAtEOF = true
			}
			consumed++
			continue
		}
		if line == "" {
			// Blank context line with the leading space stripped by some
			// producers; treat as an empty context line.
			dl := diffmodel.ContextLine("")
			h.Lines = append(h.Lines, dl)
			pendingLine = &h.Lines[len(h.Lines)-1]
			oldSeen++
			newSeen++
			consumed++
			continue
		}
		var dl diffmodel.DiffLine
		switch line[0] {
		case '+':
			dl = diffmodel.AdditionLine(line[1:])
			newSeen++
		case '-':
			dl = diffmodel.DeletionLine(line[1:])
			oldSeen++
		case ' ':
			dl = diffmodel.ContextLine(line[1:])
			oldSeen++
			newSeen++
		default:
			// Unrecognized prefix ends the hunk body.
			goto done
		}
		h.Lines = append(h.Lines, dl)
		pendingLine = &h.Lines[len(h.Lines)-1]
		consumed++
		if oldSeen >= oldLines && newSeen >= newLines {
			consumed2 := consumed
			if consumed2 < len(lines) && lines[consumed2] == `\ No newline at end of file` {
				pendingLine.NoNewlineAtEOF = true
				consumed++
			}
			return h, consumed, nil
		}
	}
done:
	return h, consumed, nil
}

// ParseHunks parses only the hunk bodies out of a single file's diff
// text (no "diff --git" header expected), used when reconstructing a
// Patch directly from stored hunk text.
func ParseHunks(body string) ([]diffmodel.Hunk, error) {
	var hunks []diffmodel.Hunk
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, &diffmodel.IoError{Op: "scan hunk body", Err: err}
	}

	i := 0
	for i < len(lines) {
		if strings.HasPrefix(lines[i], "@@") {
			h, consumed, err := parseOneHunk(lines[i:])
			if err != nil {
				return nil, err
			}
			hunks = append(hunks, h)
			i += consumed
		} else {
			i++
		}
	}
	return hunks, nil
}
