package diffengine

import (
	"testing"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

func TestApplyPatch_ExactMatch(t *testing.T) {
	original := "a\nb\nc\n"
	p := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{
			{
				OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3,
				Lines: []diffmodel.DiffLine{
					diffmodel.ContextLine("a"),
					diffmodel.DeletionLine("b"),
					diffmodel.AdditionLine("B"),
					diffmodel.ContextLine("c"),
				},
			},
		},
	}

	result, err := ApplyPatch(original, p)
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if result != "a\nB\nc\n" {
		t.Fatalf("result = %q", result)
	}
}

func TestApplyPatch_FuzzyMatchWithShiftedOffset(t *testing.T) {
	original := "x\ny\na\nb\nc\nd\ne\n"
	p := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{
			{
				// Recorded at old_start=1, but the real content has shifted
				// down by two lines relative to when the patch was captured.
				// Five matching old lines score 50, the minimum confidence.
				OldStart: 1, OldLines: 5, NewStart: 1, NewLines: 5,
				Lines: []diffmodel.DiffLine{
					diffmodel.ContextLine("a"),
					diffmodel.DeletionLine("b"),
					diffmodel.AdditionLine("B"),
					diffmodel.ContextLine("c"),
					diffmodel.ContextLine("d"),
					diffmodel.ContextLine("e"),
				},
			},
		},
	}

	result, err := ApplyPatch(original, p)
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if result != "x\ny\na\nB\nc\nd\ne\n" {
		t.Fatalf("result = %q", result)
	}
}

func TestApplyPatch_FailsBelowConfidenceThreshold(t *testing.T) {
	original := "1\n2\n3\n4\n5\n"
	p := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks: []diffmodel.Hunk{
			{
				OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3,
				Lines: []diffmodel.DiffLine{
					diffmodel.ContextLine("zzz"),
					diffmodel.DeletionLine("qqq"),
					diffmodel.AdditionLine("QQQ"),
					diffmodel.ContextLine("www"),
				},
			},
		},
	}

	_, err := ApplyPatch(original, p)
	if err == nil {
		t.Fatal("expected an error for unlocatable hunk")
	}
	var appErr *diffmodel.PatchApplicationError
	if !asPatchApplicationError(err, &appErr) {
		t.Fatalf("expected PatchApplicationError, got %T: %v", err, err)
	}
}

func asPatchApplicationError(err error, target **diffmodel.PatchApplicationError) bool {
	if e, ok := err.(*diffmodel.PatchApplicationError); ok {
		*target = e
		return true
	}
	return false
}

func TestApplyPatch_NewFileAddition(t *testing.T) {
	p := diffmodel.Patch{
		TargetFile: "new.txt",
		ModeChange: diffmodel.NewFileMode{Mode: 0o100644},
		Hunks: []diffmodel.Hunk{
			{
				OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 2,
				Lines: []diffmodel.DiffLine{
					diffmodel.AdditionLine("line one"),
					diffmodel.AdditionLine("line two"),
				},
			},
		},
	}

	result, err := ApplyPatch("", p)
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if result != "line one\nline two\n" {
		t.Fatalf("result = %q", result)
	}
}

func TestMergePatches_NonOverlapping(t *testing.T) {
	p1 := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks:      []diffmodel.Hunk{{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1}},
	}
	p2 := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks:      []diffmodel.Hunk{{OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1}},
	}

	merged, err := MergePatches([]diffmodel.Patch{p1, p2})
	if err != nil {
		t.Fatalf("MergePatches: %v", err)
	}
	if len(merged.Hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d", len(merged.Hunks))
	}
	if merged.Hunks[0].OldStart > merged.Hunks[1].OldStart {
		t.Fatalf("hunks not sorted by old_start: %+v", merged.Hunks)
	}
}

func TestMergePatches_OverlappingRejected(t *testing.T) {
	p1 := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks:      []diffmodel.Hunk{{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3}},
	}
	p2 := diffmodel.Patch{
		TargetFile: "file.txt",
		Hunks:      []diffmodel.Hunk{{OldStart: 2, OldLines: 3, NewStart: 2, NewLines: 3}},
	}

	_, err := MergePatches([]diffmodel.Patch{p1, p2})
	if err == nil {
		t.Fatal("expected an overlap error")
	}
}
