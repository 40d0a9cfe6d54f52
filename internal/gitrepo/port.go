// Package gitrepo defines the Repository Port the Patch Engine
// consumes (spec.md §6.1) and provides two implementations: a
// github.com/go-git/go-git/v5-backed adapter against a real repository,
// and an in-memory fake for isolated unit tests of diffengine,
// conflict, and applicator (spec.md §9 "No mocks").
package gitrepo

import (
	"context"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// TreeEntry is one file's content at a specific path, used to
// materialize a new tree via WriteTree.
type TreeEntry struct {
	Path    string
	Content []byte
	Mode    uint32 // POSIX file mode; 0 means "use default (100644)"
	Deleted bool   // true removes Path from the base tree entirely
}

// Repository is the narrow abstraction the Patch Engine depends on.
// Any backend (a real git binding, or a test fake) may provide it.
// All operations are fallible with the error taxonomy in diffmodel.
type Repository interface {
	// Head returns the commit id the current branch points to.
	Head(ctx context.Context) (diffmodel.CommitId, error)

	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)

	// IsClean reports whether the working tree has no uncommitted
	// changes and no merge/rebase is in progress.
	IsClean(ctx context.Context) (bool, error)

	// CommitInfo returns metadata for a single commit.
	CommitInfo(ctx context.Context, id diffmodel.CommitId) (diffmodel.CommitInfo, error)

	// WalkHistory returns up to limit commits reachable from start, in
	// reverse-chronological order. limit <= 0 means unlimited.
	WalkHistory(ctx context.Context, start diffmodel.CommitId, limit int) ([]diffmodel.CommitInfo, error)

	// ReadBlob returns the content of path as it exists at commit. It
	// returns ErrFileAbsent (wrapped) if the path does not exist at
	// that commit.
	ReadBlob(ctx context.Context, commit diffmodel.CommitId, path string) ([]byte, error)

	// TreeToTreeDiff returns the raw unified diff between two commits'
	// trees. Either commit may be the zero CommitId to diff against the
	// empty tree.
	TreeToTreeDiff(ctx context.Context, from, to diffmodel.CommitId) (string, error)

	// WriteTree materializes a new tree starting from baseTree's
	// contents with entries applied on top, and returns the new tree's
	// id (as an opaque string usable by CreateCommit).
	WriteTree(ctx context.Context, baseTree diffmodel.CommitId, entries []TreeEntry) (string, error)

	// CreateCommit creates a new commit with the given parents and
	// tree, returning its id.
	CreateCommit(ctx context.Context, parents []diffmodel.CommitId, treeID string, author, committer CommitSignature, message string) (diffmodel.CommitId, error)

	// UpdateRef performs a compare-and-swap ref update: it succeeds only
	// if name currently points at expectedOld.
	UpdateRef(ctx context.Context, name string, expectedOld, newID diffmodel.CommitId) error

	// CreateRef creates a new ref pointing at commit. Used for backup
	// refs under refs/patchdance/backup/.
	CreateRef(ctx context.Context, name string, commit diffmodel.CommitId) error

	// DeleteRef removes a ref. The rewriter's rollback does not call it;
	// backup refs are left in place.
	DeleteRef(ctx context.Context, name string) error

	// ResolveRef returns the commit id a ref currently points at.
	ResolveRef(ctx context.Context, name string) (diffmodel.CommitId, error)
}

// CommitSignature is the author/committer identity and timestamp
// CreateCommit attaches to a new commit.
type CommitSignature struct {
	Name  string
	Email string
	When  int64 // unix seconds, UTC
}

// ErrFileAbsent is wrapped by ReadBlob when path does not exist at the
// requested commit.
var ErrFileAbsent = &fileAbsentError{}

type fileAbsentError struct{}

func (*fileAbsentError) Error() string { return "file absent at commit" }
