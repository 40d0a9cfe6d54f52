// Package applicator implements the Patch Applicator (spec.md §4.3): a
// three-way merge that applies a single patch to a target commit,
// producing either merged content or a structured set of conflicts.
package applicator

import (
	"context"
	"errors"
	"strings"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffengine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/textdiff"
)

// Result is the outcome of a three-way merge: either Clean content or a
// set of structured conflicts, never both.
type Result struct {
	Clean     bool
	Merged    string
	Conflicts []diffmodel.Conflict
}

// Applicator applies patches to target commits via three-way merge.
type Applicator struct {
	repo   gitrepo.Repository
	logger logging.Logger
}

func NewApplicator(repo gitrepo.Repository, logger logging.Logger) *Applicator {
	return &Applicator{repo: repo, logger: logger}
}

// Apply runs the three-way merge described in spec.md §4.3 steps 1-6:
// base is the patch's pre-image, ours is the patch applied to base,
// theirs is the target commit's current content, and the two edit
// scripts base->ours and base->theirs are walked in lockstep.
func (a *Applicator) Apply(ctx context.Context, p diffmodel.Patch, target diffmodel.CommitId) (Result, error) {
	info, err := a.repo.CommitInfo(ctx, p.SourceCommit)
	if err != nil {
		return Result{}, err
	}

	base, baseErr := a.readBase(ctx, info, p.TargetFile)
	if baseErr != nil {
		return Result{}, baseErr
	}

	theirs, theirsErr := a.repo.ReadBlob(ctx, target, p.TargetFile)
	theirsAbsent := isFileAbsent(theirsErr)
	if theirsErr != nil && !theirsAbsent {
		return Result{}, theirsErr
	}

	if theirsAbsent && !isAddedFile(p) {
		return deleteModifyConflict(p.TargetFile, string(base), ""), nil
	}

	ours, err := diffengine.ApplyPatch(string(base), p)
	if err != nil {
		var appErr *diffmodel.PatchApplicationError
		if errors.As(err, &appErr) {
			return deleteModifyConflict(p.TargetFile, string(base), string(theirs)), nil
		}
		return Result{}, err
	}

	return Merge(p.TargetFile, string(base), ours, string(theirs)), nil
}

// readBase returns the content of targetFile at the patch's source
// commit's first parent: the pre-image the patch was derived from. An
// Added file has no pre-image, so base is empty.
func (a *Applicator) readBase(ctx context.Context, info diffmodel.CommitInfo, targetFile string) ([]byte, error) {
	if len(info.ParentIDs) == 0 {
		return nil, nil
	}
	base, err := a.repo.ReadBlob(ctx, info.ParentIDs[0], targetFile)
	if isFileAbsent(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return base, nil
}

func isAddedFile(p diffmodel.Patch) bool {
	_, ok := p.ModeChange.(diffmodel.NewFileMode)
	return ok
}

// Merge performs steps 4-6 of the three-way merge given base, ours, and
// theirs content already materialized for file.
func Merge(file, base, ours, theirs string) Result {
	baseLines := splitLines(base)
	oursOps := textdiff.LineDiff(baseLines, splitLines(ours))
	theirsOps := textdiff.LineDiff(baseLines, splitLines(theirs))

	merged, conflicts := walkInLockstep(file, baseLines, oursOps, theirsOps)
	if len(conflicts) == 0 {
		return Result{Clean: true, Merged: strings.Join(merged, "\n") + trailingNewline(ours, theirs)}
	}
	return Result{Clean: false, Conflicts: conflicts}
}

func trailingNewline(ours, theirs string) string {
	if ours != "" && !strings.HasSuffix(ours, "\n") {
		return ""
	}
	if theirs != "" && !strings.HasSuffix(theirs, "\n") {
		return ""
	}
	return "\n"
}

// region is one contiguous span of base lines covered by a single op
// from one side's edit script (an OpEqual region is skipped: only
// changed regions participate in the lockstep walk).
type region struct {
	baseStart, baseEnd int // half-open range into baseLines
	lines              []string
	changed            bool
}

// regionsFromOps turns an edit script into a sequence of regions over
// base-line coordinates, tracking how many base lines each op
// consumed (OpEqual and OpDelete consume base lines; OpInsert does
// not).
func regionsFromOps(ops []textdiff.Op) []region {
	var out []region
	basePos := 0
	for _, op := range ops {
		switch op.Kind {
		case textdiff.OpEqual:
			out = append(out, region{baseStart: basePos, baseEnd: basePos + len(op.Lines), lines: op.Lines, changed: false})
			basePos += len(op.Lines)
		case textdiff.OpDelete:
			out = append(out, region{baseStart: basePos, baseEnd: basePos + len(op.Lines), lines: nil, changed: true})
			basePos += len(op.Lines)
		case textdiff.OpInsert:
			out = append(out, region{baseStart: basePos, baseEnd: basePos, lines: op.Lines, changed: true})
		}
	}
	return out
}

// walkInLockstep implements spec.md §4.3 step 5: walk both edit
// scripts over base lines and resolve each region. Regions are merged
// by the base-coordinate span they claim; insertions (zero-width
// spans) are interleaved at their base position. An overlap where one
// side purely removed its span and the other still holds content
// there reports DeleteModifyConflict (§4.3's old-range-inside-an-
// emptied-region case); any other overlap reports ContentConflict.
func walkInLockstep(file string, baseLines []string, oursOps, theirsOps []textdiff.Op) ([]string, []diffmodel.Conflict) {
	oursRegions := regionsFromOps(oursOps)
	theirsRegions := regionsFromOps(theirsOps)

	var merged []string
	var conflicts []diffmodel.Conflict

	oi, ti := 0, 0
	basePos := 0
	for basePos < len(baseLines) || oi < len(oursRegions) || ti < len(theirsRegions) {
		oi = advancePast(oursRegions, oi, basePos)
		ti = advancePast(theirsRegions, ti, basePos)
		oChanged := oi < len(oursRegions) && oursRegions[oi].baseStart == basePos && oursRegions[oi].changed
		tChanged := ti < len(theirsRegions) && theirsRegions[ti].baseStart == basePos && theirsRegions[ti].changed

		switch {
		case oChanged && tChanged:
			or := oursRegions[oi]
			tr := theirsRegions[ti]
			if or.baseEnd == tr.baseEnd && textdiff.EqualLines(or.lines, tr.lines) {
				merged = append(merged, or.lines...)
				basePos = or.baseEnd
				oi++
				ti++
			} else if (len(tr.lines) == 0) != (len(or.lines) == 0) {
				// one side is a pure removal (no replacement lines) while
				// the other side still has content anchored to this span:
				// the hunk's old-range is fully inside a region the other
				// side emptied, so the lines it expects no longer exist.
				conflicts = append(conflicts, deleteModifyRegionConflict(file, or, tr))
				basePos = maxInt(or.baseEnd, tr.baseEnd)
				oi++
				ti++
			} else {
				conflicts = append(conflicts, diffmodel.Conflict{
					ID:           diffmodel.ContentConflictID(file, basePos+1),
					Kind:         diffmodel.ContentConflict,
					FilePath:     file,
					Description:  "overlapping changes to the same region",
					OurContent:   strings.Join(or.lines, "\n"),
					TheirContent: strings.Join(tr.lines, "\n"),
				})
				basePos = maxInt(or.baseEnd, tr.baseEnd)
				oi++
				ti++
			}
		case oChanged:
			or := oursRegions[oi]
			merged = append(merged, or.lines...)
			basePos = or.baseEnd
			oi++
		case tChanged:
			tr := theirsRegions[ti]
			merged = append(merged, tr.lines...)
			basePos = tr.baseEnd
			ti++
		default:
			if basePos >= len(baseLines) {
				oi, ti = len(oursRegions), len(theirsRegions)
				continue
			}
			merged = append(merged, baseLines[basePos])
			basePos++
		}
	}

	return merged, conflicts
}

func advancePast(regions []region, i, basePos int) int {
	for i < len(regions) && regions[i].baseEnd <= basePos && regions[i].baseStart < basePos {
		i++
	}
	return i
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// deleteModifyRegionConflict reports the case spec.md §4.3 calls out
// separately from a generic overlap: one side's old-range is entirely
// deleted (replaced by nothing, or by content unrelated to it) while
// the other side still expects to modify lines that stood there.
func deleteModifyRegionConflict(file string, or, tr region) diffmodel.Conflict {
	return diffmodel.Conflict{
		ID:           diffmodel.DeleteModifyConflictID(file),
		Kind:         diffmodel.DeleteModifyConflict,
		FilePath:     file,
		Description:  "patch modifies a region deleted at the target commit",
		OurContent:   strings.Join(or.lines, "\n"),
		TheirContent: strings.Join(tr.lines, "\n"),
	}
}

func deleteModifyConflict(file, base, theirs string) Result {
	return Result{
		Clean: false,
		Conflicts: []diffmodel.Conflict{{
			ID:           diffmodel.DeleteModifyConflictID(file),
			Kind:         diffmodel.DeleteModifyConflict,
			FilePath:     file,
			Description:  "patch references a file absent or diverged at the target commit",
			OurContent:   base,
			TheirContent: theirs,
		}},
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func isFileAbsent(err error) bool {
	return errors.Is(err, gitrepo.ErrFileAbsent)
}
