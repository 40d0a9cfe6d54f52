package diffengine

import (
	"sort"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// MergePatches merges patches targeting the same file into a single
// Patch whose hunks are all input hunks sorted by OldStart. Hunks keep
// the coordinates they carried in their own patch; NewStart is not
// re-numbered for the merged patch. Overlapping hunks (in the old coordinate space)
// are rejected -- the caller should run the Conflict Detector on the
// input set instead.
func MergePatches(patches []diffmodel.Patch) (diffmodel.Patch, error) {
	if len(patches) == 0 {
		return diffmodel.Patch{}, &diffmodel.PatchApplicationError{Reason: "no patches to merge"}
	}

	targetFile := patches[0].TargetFile
	for _, p := range patches {
		if p.TargetFile != targetFile {
			return diffmodel.Patch{}, &diffmodel.PatchApplicationError{Reason: "patches target different files"}
		}
	}

	var allHunks []diffmodel.Hunk
	for _, p := range patches {
		allHunks = append(allHunks, p.Hunks...)
	}
	sort.Slice(allHunks, func(i, j int) bool { return allHunks[i].OldStart < allHunks[j].OldStart })

	for i := 1; i < len(allHunks); i++ {
		if allHunks[i-1].OverlapsOld(allHunks[i]) {
			return diffmodel.Patch{}, &diffmodel.ConflictError{
				Description: "overlapping hunks cannot be merged",
			}
		}
	}

	merged := diffmodel.Patch{
		ID:         diffmodel.MakePatchId("merged", targetFile),
		TargetFile: targetFile,
		Hunks:      allHunks,
	}
	for _, p := range patches {
		if p.ModeChange != nil {
			merged.ModeChange = p.ModeChange
			break
		}
	}
	return merged, nil
}
