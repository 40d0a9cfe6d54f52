// Package conflict implements the Conflict Detector (spec.md §4.2): a
// pure function of a candidate patch set and a target commit's
// content, producing Conflicts without mutating any state.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
)

// Detector runs the conflict checks over a patch set against a target
// commit's tree, reading file content through the Repository Port.
type Detector struct {
	repo   gitrepo.Repository
	logger logging.Logger
}

func NewDetector(repo gitrepo.Repository, logger logging.Logger) *Detector {
	return &Detector{repo: repo, logger: logger.With("component", "conflict_detector")}
}

// Detect runs every check in spec.md §4.2 and returns the union of
// conflicts found, sorted by id so output is deterministic regardless
// of patch submission order (spec §8 invariant 4).
func (d *Detector) Detect(ctx context.Context, patches []diffmodel.Patch, target diffmodel.CommitId) ([]diffmodel.Conflict, error) {
	sorted := make([]diffmodel.Patch, len(patches))
	copy(sorted, patches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var conflicts []diffmodel.Conflict

	byFile := groupByFile(sorted)
	for file, filePatches := range byFile {
		conflicts = append(conflicts, pairwiseOverlaps(file, filePatches)...)
		conflicts = append(conflicts, perLineOverlaps(file, filePatches)...)
		conflicts = append(conflicts, modeAndExistenceConflicts(file, filePatches)...)
	}

	targetConflicts, err := d.targetStateConflicts(ctx, sorted, target)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, targetConflicts...)

	conflicts = dedupeByID(conflicts)
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].ID < conflicts[j].ID })
	return conflicts, nil
}

func groupByFile(patches []diffmodel.Patch) map[string][]diffmodel.Patch {
	m := map[string][]diffmodel.Patch{}
	for _, p := range patches {
		m[p.TargetFile] = append(m[p.TargetFile], p)
	}
	return m
}

// pairwiseOverlaps emits a ContentConflict for every pair of patches
// targeting file whose hunks overlap in the old coordinate space.
func pairwiseOverlaps(file string, patches []diffmodel.Patch) []diffmodel.Conflict {
	if len(patches) < 2 {
		return nil
	}
	var out []diffmodel.Conflict
	for i := 0; i < len(patches); i++ {
		for j := i + 1; j < len(patches); j++ {
			for _, h1 := range patches[i].Hunks {
				for _, h2 := range patches[j].Hunks {
					if h1.OverlapsOld(h2) {
						out = append(out, diffmodel.Conflict{
							ID:          diffmodel.ContentConflictID(file, h1.OldStart),
							Kind:        diffmodel.ContentConflict,
							FilePath:    file,
							Description: fmt.Sprintf("hunk %s overlaps hunk %s (patches %s, %s)", h1.HeaderLine(), h2.HeaderLine(), patches[i].ID, patches[j].ID),
						})
					}
				}
			}
		}
	}
	return out
}

// perLineOverlaps builds a (line -> patch ids touching it) map and
// emits a ContentConflict for any line claimed by more than one patch.
// This is the precise variant spec §4.2 names for the UI preview.
func perLineOverlaps(file string, patches []diffmodel.Patch) []diffmodel.Conflict {
	lineOwners := map[int]map[diffmodel.PatchId]bool{}
	for _, p := range patches {
		for _, h := range p.Hunks {
			for line := h.OldStart; line < h.OldStart+h.OldLines; line++ {
				if lineOwners[line] == nil {
					lineOwners[line] = map[diffmodel.PatchId]bool{}
				}
				lineOwners[line][p.ID] = true
			}
		}
	}

	var lines []int
	for line, owners := range lineOwners {
		if len(owners) > 1 {
			lines = append(lines, line)
		}
	}
	sort.Ints(lines)

	var out []diffmodel.Conflict
	for _, line := range lines {
		out = append(out, diffmodel.Conflict{
			ID:          diffmodel.ContentConflictID(file, line),
			Kind:        diffmodel.ContentConflict,
			FilePath:    file,
			Description: fmt.Sprintf("line %d of %s is covered by more than one patch", line, file),
		})
	}
	return out
}

// modeAndExistenceConflicts covers mode disagreements and delete/modify
// pairs among patches for file. Rename destinations are not compared:
// a Patch records only its target path, not a rename source, so no
// RenameConflict is produced here.
func modeAndExistenceConflicts(file string, patches []diffmodel.Patch) []diffmodel.Conflict {
	var out []diffmodel.Conflict

	for i := 0; i < len(patches); i++ {
		for j := i + 1; j < len(patches); j++ {
			a, b := patches[i], patches[j]

			if a.ModeChange != nil && b.ModeChange != nil && !diffmodel.ModeChangesEqual(a.ModeChange, b.ModeChange) {
				out = append(out, diffmodel.Conflict{
					ID:          diffmodel.ModeConflictID(file),
					Kind:        diffmodel.ModeConflict,
					FilePath:    file,
					Description: fmt.Sprintf("patches %s and %s disagree on mode change for %s", a.ID, b.ID, file),
				})
			}

			aDeletes := isDeletion(a.ModeChange)
			bDeletes := isDeletion(b.ModeChange)
			if aDeletes != bDeletes {
				out = append(out, diffmodel.Conflict{
					ID:          diffmodel.DeleteModifyConflictID(file),
					Kind:        diffmodel.DeleteModifyConflict,
					FilePath:    file,
					Description: fmt.Sprintf("patch %s deletes %s while patch %s modifies it", pick(aDeletes, a.ID, b.ID), file, pick(aDeletes, b.ID, a.ID)),
				})
			}
		}
	}

	return out
}

func isDeletion(m diffmodel.FileModeChange) bool {
	_, ok := m.(diffmodel.DeletedFileMode)
	return ok
}

func pick(cond bool, a, b diffmodel.PatchId) diffmodel.PatchId {
	if cond {
		return a
	}
	return b
}

// targetStateConflicts reconstructs each patch's source content for
// its target file and compares the lines it touches against the
// target commit's current content at that file. A mismatch flags a
// potential conflict; the Applicator's three-way merge determines the
// actual outcome.
func (d *Detector) targetStateConflicts(ctx context.Context, patches []diffmodel.Patch, target diffmodel.CommitId) ([]diffmodel.Conflict, error) {
	var out []diffmodel.Conflict

	for _, p := range patches {
		targetContent, err := d.repo.ReadBlob(ctx, target, p.TargetFile)
		if err != nil {
			if isFileAbsent(err) {
				if !hunkSetIsPureAddition(p) {
					out = append(out, diffmodel.Conflict{
						ID:          diffmodel.DeleteModifyConflictID(p.TargetFile),
						Kind:        diffmodel.DeleteModifyConflict,
						FilePath:    p.TargetFile,
						Description: fmt.Sprintf("patch %s expects %s to exist at the target commit, but it does not", p.ID, p.TargetFile),
					})
				}
				continue
			}
			return nil, err
		}

		targetLines := splitLines(string(targetContent))
		for _, h := range p.Hunks {
			if h.OldStart+h.OldLines-1 > len(targetLines) {
				out = append(out, diffmodel.Conflict{
					ID:          diffmodel.DeleteModifyConflictID(p.TargetFile),
					Kind:        diffmodel.DeleteModifyConflict,
					FilePath:    p.TargetFile,
					Description: fmt.Sprintf("hunk %s of patch %s references lines beyond the target commit's content", h.HeaderLine(), p.ID),
				})
				continue
			}
			if !hunkContextMatches(h, targetLines) {
				out = append(out, diffmodel.Conflict{
					ID:          diffmodel.ContentConflictID(p.TargetFile, h.OldStart),
					Kind:        diffmodel.ContentConflict,
					FilePath:    p.TargetFile,
					Description: fmt.Sprintf("hunk %s of patch %s no longer matches the target commit's content", h.HeaderLine(), p.ID),
				})
			}
		}
	}

	return out, nil
}

func hunkSetIsPureAddition(p diffmodel.Patch) bool {
	for _, h := range p.Hunks {
		if h.OldLines != 0 {
			return false
		}
	}
	return true
}

func hunkContextMatches(h diffmodel.Hunk, targetLines []string) bool {
	idx := h.OldStart - 1
	for _, l := range h.Lines {
		if !l.InOld() {
			continue
		}
		if idx >= len(targetLines) || targetLines[idx] != l.Text {
			return false
		}
		idx++
	}
	return true
}

func isFileAbsent(err error) bool {
	return errors.Is(err, gitrepo.ErrFileAbsent)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func dedupeByID(conflicts []diffmodel.Conflict) []diffmodel.Conflict {
	seen := map[string]bool{}
	var out []diffmodel.Conflict
	for _, c := range conflicts {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
