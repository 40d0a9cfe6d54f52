// Package diffengine implements the Diff Engine (spec.md §4.1):
// extracting structured patches from commits, applying them back to
// arbitrary text with exact and fuzzy hunk matching, and merging
// same-file patches into one.
package diffengine

import (
	"context"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/unifieddiff"
)

// Engine extracts and applies patches against a Repository Port.
type Engine struct {
	repo   gitrepo.Repository
	logger logging.Logger
}

func NewEngine(repo gitrepo.Repository, logger logging.Logger) *Engine {
	return &Engine{repo: repo, logger: logger.With("component", "diff_engine")}
}

// ExtractPatches resolves commit's first parent (or the empty tree
// for a root commit), diffs it against commit, and returns one Patch
// per changed file.
func (e *Engine) ExtractPatches(ctx context.Context, commit diffmodel.CommitId) ([]diffmodel.Patch, error) {
	info, err := e.repo.CommitInfo(ctx, commit)
	if err != nil {
		return nil, err
	}

	parent := diffmodel.CommitId{}
	if len(info.ParentIDs) > 0 {
		parent = info.ParentIDs[0]
	}

	diffText, err := e.repo.TreeToTreeDiff(ctx, parent, commit)
	if err != nil {
		return nil, err
	}

	files, err := unifieddiff.ParseMultiFile(diffText)
	if err != nil {
		return nil, err
	}

	patches := make([]diffmodel.Patch, 0, len(files))
	for _, f := range files {
		id := diffmodel.MakePatchId(commit.Short(), f.TargetPath())
		patches = append(patches, diffmodel.Patch{
			ID:           id,
			SourceCommit: commit,
			TargetFile:   f.TargetPath(),
			Hunks:        f.Hunks,
			ModeChange:   f.ModeChange,
			Binary:       f.Binary,
		})
	}
	return patches, nil
}

// ParseUnifiedDiff parses raw unified diff text into Patches without
// reference to any commit, for callers that already have diff text in
// hand (e.g. a patch imported from outside the repository).
func ParseUnifiedDiff(text string) ([]diffmodel.Patch, error) {
	files, err := unifieddiff.ParseMultiFile(text)
	if err != nil {
		return nil, err
	}
	patches := make([]diffmodel.Patch, 0, len(files))
	for _, f := range files {
		patches = append(patches, diffmodel.Patch{
			ID:         diffmodel.MakePatchId("raw", f.TargetPath()),
			TargetFile: f.TargetPath(),
			Hunks:      f.Hunks,
			ModeChange: f.ModeChange,
			Binary:     f.Binary,
		})
	}
	return patches, nil
}

// SourceContent reconstructs a patch's target file content as it
// existed at its source commit's first parent -- the pre-image the
// patch's hunks were computed against.
func (e *Engine) SourceContent(ctx context.Context, p diffmodel.Patch) ([]byte, error) {
	info, err := e.repo.CommitInfo(ctx, p.SourceCommit)
	if err != nil {
		return nil, err
	}
	if len(info.ParentIDs) == 0 {
		return nil, nil
	}
	content, err := e.repo.ReadBlob(ctx, info.ParentIDs[0], p.TargetFile)
	if err != nil {
		if isFileAbsent(err) {
			return nil, nil
		}
		return nil, err
	}
	return content, nil
}
