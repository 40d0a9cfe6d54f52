package diffmodel

import "testing"

func TestHunk_ValidateCounts(t *testing.T) {
	h := Hunk{
		OldStart: 1, OldLines: 3,
		NewStart: 1, NewLines: 3,
		Lines: []DiffLine{
			ContextLine("a"),
			DeletionLine("b"),
			AdditionLine("B"),
			ContextLine("c"),
		},
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestHunk_ValidateMismatchedCounts(t *testing.T) {
	h := Hunk{
		OldStart: 1, OldLines: 5,
		NewStart: 1, NewLines: 1,
		Lines: []DiffLine{ContextLine("a")},
	}
	if err := h.Validate(); err == nil {
		t.Fatal("expected validation error for mismatched old_lines count")
	}
}

func TestHunk_ValidateRequiresContextAtBoundaries(t *testing.T) {
	h := Hunk{
		OldStart: 1, OldLines: 1,
		NewStart: 1, NewLines: 2,
		Lines: []DiffLine{
			AdditionLine("new"),
			ContextLine("shared"),
		},
	}
	if err := h.Validate(); err == nil {
		t.Fatal("expected validation error: hunk must begin with context when context exists")
	}
}

func TestHunk_OverlapsOld(t *testing.T) {
	a := Hunk{OldStart: 10, OldLines: 5} // covers [10,15)
	b := Hunk{OldStart: 14, OldLines: 3} // covers [14,17) -- overlaps
	c := Hunk{OldStart: 15, OldLines: 3} // covers [15,18) -- touches but no overlap

	if !a.OverlapsOld(b) {
		t.Fatal("expected a and b to overlap")
	}
	if a.OverlapsOld(c) {
		t.Fatal("expected a and c not to overlap (adjacent ranges)")
	}
}

func TestHunk_HeaderLine(t *testing.T) {
	h := Hunk{OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 3, Context: "func main() {"}
	want := "@@ -1,2 +1,3 @@ func main() {"
	if got := h.HeaderLine(); got != want {
		t.Fatalf("HeaderLine() = %q, want %q", got, want)
	}
}
