package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
)

const (
	maxRetries        = 3
	initialRetryDelay = 50 * time.Millisecond
)

// Adapter is a Repository implementation backed by a real git
// repository via github.com/go-git/go-git/v5, grounded on the same
// retry-wrapped CommitObject access and component-scoped logging the
// teacher's internal/git.commitExtractor uses.
type Adapter struct {
	repo   *gogit.Repository
	logger logging.Logger
}

// Open opens the git repository at path, following the same
// RepositoryError-on-missing contract spec.md §6.1 names for open().
func Open(path string, logger logging.Logger) (*Adapter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, &diffmodel.RepositoryError{Reason: "not_found", Err: err}
		}
		return nil, &diffmodel.RepositoryError{Reason: "open_failed", Err: err}
	}
	return &Adapter{repo: repo, logger: logger.With("component", "gitrepo_adapter")}, nil
}

func (a *Adapter) isTransientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"locked", "busy", "temporary", "timeout", "connection", "network"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// withRetry retries fn on transient errors using exponential backoff,
// mirroring the teacher's CommitObject retry loop.
func (a *Adapter) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := initialRetryDelay * time.Duration(1<<uint(attempt-1))
			a.logger.Debug("retrying git operation", "op", op, "attempt", attempt, "delay_ms", delay.Milliseconds())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !a.isTransientError(err) || attempt == maxRetries {
			return fmt.Errorf("%s: %w", op, lastErr)
		}
		a.logger.Warn("transient error, will retry", "op", op, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, maxRetries+1, lastErr)
}

func (a *Adapter) commitObject(ctx context.Context, id diffmodel.CommitId) (*object.Commit, error) {
	var commit *object.Commit
	err := a.withRetry(ctx, "commit_object", func() error {
		c, err := a.repo.CommitObject(plumbing.NewHash(id.Full()))
		if err != nil {
			return err
		}
		commit = c
		return nil
	})
	if err != nil {
		return nil, &diffmodel.InvalidCommitIDError{CommitID: id.Full(), Err: err}
	}
	return commit, nil
}

func (a *Adapter) Head(ctx context.Context) (diffmodel.CommitId, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return diffmodel.CommitId{}, &diffmodel.RepositoryError{Reason: "head_unavailable", Err: err}
	}
	return diffmodel.NewCommitId(ref.Hash().String()), nil
}

func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return "", &diffmodel.RepositoryError{Reason: "head_unavailable", Err: err}
	}
	if ref.Name().IsBranch() {
		return ref.Name().Short(), nil
	}
	return "HEAD", nil
}

func (a *Adapter) IsClean(ctx context.Context) (bool, error) {
	wt, err := a.repo.Worktree()
	if err != nil {
		// A bare repository has no worktree; treat as clean since there
		// is nothing to dirty.
		if errors.Is(err, gogit.ErrIsBareRepository) {
			return true, nil
		}
		return false, &diffmodel.RepositoryError{Reason: "worktree_unavailable", Err: err}
	}
	status, err := wt.Status()
	if err != nil {
		return false, &diffmodel.RepositoryError{Reason: "status_failed", Err: err}
	}
	return status.IsClean(), nil
}

func (a *Adapter) CommitInfo(ctx context.Context, id diffmodel.CommitId) (diffmodel.CommitInfo, error) {
	commit, err := a.commitObject(ctx, id)
	if err != nil {
		return diffmodel.CommitInfo{}, err
	}
	return a.convertCommit(commit)
}

func (a *Adapter) convertCommit(commit *object.Commit) (diffmodel.CommitInfo, error) {
	parentIDs := make([]diffmodel.CommitId, 0, commit.NumParents())
	for _, h := range commit.ParentHashes {
		parentIDs = append(parentIDs, diffmodel.NewCommitId(h.String()))
	}

	filesChanged, err := a.changedFiles(commit)
	if err != nil {
		a.logger.Debug("failed to compute changed files, leaving empty", "commit", commit.Hash.String(), "error", err)
		filesChanged = nil
	}

	return diffmodel.CommitInfo{
		ID:           diffmodel.NewCommitId(commit.Hash.String()),
		Message:      commit.Message,
		Author:       commit.Author.Name,
		Email:        commit.Author.Email,
		Timestamp:    commit.Author.When.UTC(),
		ParentIDs:    parentIDs,
		FilesChanged: filesChanged,
	}, nil
}

func (a *Adapter) changedFiles(commit *object.Commit) ([]string, error) {
	commitTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	var changes object.Changes
	if commit.NumParents() == 0 {
		changes, err = object.DiffTree(nil, commitTree)
	} else {
		parent, perr := commit.Parent(0)
		if perr != nil {
			return nil, perr
		}
		parentTree, terr := parent.Tree()
		if terr != nil {
			return nil, terr
		}
		changes, err = object.DiffTree(parentTree, commitTree)
	}
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.To.Name != "" {
			files = append(files, c.To.Name)
		} else {
			files = append(files, c.From.Name)
		}
	}
	return files, nil
}

func (a *Adapter) WalkHistory(ctx context.Context, start diffmodel.CommitId, limit int) ([]diffmodel.CommitInfo, error) {
	startCommit, err := a.commitObject(ctx, start)
	if err != nil {
		return nil, err
	}

	var out []diffmodel.CommitInfo
	cur := startCommit
	for {
		info, err := a.convertCommit(cur)
		if err != nil {
			return nil, &diffmodel.RepositoryError{Reason: "walk_failed", Err: err}
		}
		out = append(out, info)
		if limit > 0 && len(out) >= limit {
			break
		}
		if cur.NumParents() == 0 {
			break
		}
		next, err := cur.Parent(0)
		if err != nil {
			if errors.Is(err, object.ErrParentNotFound) || errors.Is(err, io.EOF) {
				break
			}
			return nil, &diffmodel.RepositoryError{Reason: "walk_failed", Err: err}
		}
		cur = next
	}
	return out, nil
}

func (a *Adapter) ReadBlob(ctx context.Context, commit diffmodel.CommitId, path string) ([]byte, error) {
	c, err := a.commitObject(ctx, commit)
	if err != nil {
		return nil, err
	}
	f, err := c.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrFileAbsent, path, commit.Short())
		}
		return nil, &diffmodel.IoError{Op: "read_blob", Err: err}
	}
	content, err := f.Contents()
	if err != nil {
		return nil, &diffmodel.IoError{Op: "read_blob_contents", Err: err}
	}
	return []byte(content), nil
}

// TreeToTreeDiff returns the raw unified diff text between two commits'
// trees, using go-git's own differ (object.DiffTree + Changes.Patch),
// exactly as the teacher's ExtractDiff does.
func (a *Adapter) TreeToTreeDiff(ctx context.Context, from, to diffmodel.CommitId) (string, error) {
	var fromTree, toTree *object.Tree

	if !from.IsZero() {
		c, err := a.commitObject(ctx, from)
		if err != nil {
			return "", err
		}
		fromTree, err = c.Tree()
		if err != nil {
			return "", &diffmodel.RepositoryError{Reason: "tree_unavailable", Err: err}
		}
	}
	if !to.IsZero() {
		c, err := a.commitObject(ctx, to)
		if err != nil {
			return "", err
		}
		toTree, err = c.Tree()
		if err != nil {
			return "", &diffmodel.RepositoryError{Reason: "tree_unavailable", Err: err}
		}
	}

	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return "", &diffmodel.RepositoryError{Reason: "diff_tree_failed", Err: err}
	}
	patch, err := changes.Patch()
	if err != nil {
		return "", &diffmodel.RepositoryError{Reason: "patch_generation_failed", Err: err}
	}
	return patch.String(), nil
}

// flatEntry is one blob's mode and hash at a full repository-relative
// path, used while rebuilding a tree from a base plus overrides.
type flatEntry struct {
	mode filemode.FileMode
	hash plumbing.Hash
}

func (a *Adapter) WriteTree(ctx context.Context, baseTree diffmodel.CommitId, entries []TreeEntry) (string, error) {
	flat := map[string]flatEntry{}

	if !baseTree.IsZero() {
		c, err := a.commitObject(ctx, baseTree)
		if err != nil {
			return "", err
		}
		tree, err := c.Tree()
		if err != nil {
			return "", &diffmodel.RepositoryError{Reason: "tree_unavailable", Err: err}
		}
		walker := object.NewTreeWalker(tree, true, nil)
		defer walker.Close()
		for {
			name, entry, err := walker.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", &diffmodel.RepositoryError{Reason: "tree_walk_failed", Err: err}
			}
			if entry.Mode == filemode.Dir {
				continue
			}
			flat[name] = flatEntry{mode: entry.Mode, hash: entry.Hash}
		}
	}

	for _, e := range entries {
		if e.Deleted {
			delete(flat, e.Path)
			continue
		}
		hash, err := a.writeBlob(e.Content)
		if err != nil {
			return "", err
		}
		mode := filemode.Regular
		if e.Mode != 0 {
			mode = posixToFileMode(e.Mode)
		}
		flat[e.Path] = flatEntry{mode: mode, hash: hash}
	}

	rootHash, err := a.buildTreeFromFlat(flat)
	if err != nil {
		return "", err
	}
	return rootHash.String(), nil
}

func posixToFileMode(mode uint32) filemode.FileMode {
	switch {
	case mode&0o170000 == 0o120000:
		return filemode.Symlink
	case mode&0o111 != 0:
		return filemode.Executable
	default:
		return filemode.Regular
	}
}

func (a *Adapter) writeBlob(content []byte) (plumbing.Hash, error) {
	obj := a.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, &diffmodel.IoError{Op: "write_blob", Err: err}
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, &diffmodel.IoError{Op: "write_blob", Err: err}
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, &diffmodel.IoError{Op: "write_blob", Err: err}
	}
	hash, err := a.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, &diffmodel.IoError{Op: "write_blob", Err: err}
	}
	return hash, nil
}

// buildTreeFromFlat groups a flat path->entry map into nested tree
// objects bottom-up and stores each one, returning the root tree hash.
func (a *Adapter) buildTreeFromFlat(flat map[string]flatEntry) (plumbing.Hash, error) {
	type node struct {
		files map[string]flatEntry // basename -> entry, this directory's direct file children
		dirs  map[string]*node     // basename -> subtree, this directory's direct dir children
	}
	newNode := func() *node { return &node{files: map[string]flatEntry{}, dirs: map[string]*node{}} }
	root := newNode()

	for p, e := range flat {
		segs := strings.Split(p, "/")
		cur := root
		for i, seg := range segs {
			if i == len(segs)-1 {
				cur.files[seg] = e
				break
			}
			next, ok := cur.dirs[seg]
			if !ok {
				next = newNode()
				cur.dirs[seg] = next
			}
			cur = next
		}
	}

	var build func(n *node) (plumbing.Hash, error)
	build = func(n *node) (plumbing.Hash, error) {
		var tree object.Tree
		for name, e := range n.files {
			tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: e.mode, Hash: e.hash})
		}
		for name, sub := range n.dirs {
			hash, err := build(sub)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
		}
		sort.Slice(tree.Entries, func(i, j int) bool {
			return treeEntrySortKey(tree.Entries[i]) < treeEntrySortKey(tree.Entries[j])
		})

		obj := a.repo.Storer.NewEncodedObject()
		obj.SetType(plumbing.TreeObject)
		if err := tree.Encode(obj); err != nil {
			return plumbing.ZeroHash, &diffmodel.IoError{Op: "encode_tree", Err: err}
		}
		hash, err := a.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return plumbing.ZeroHash, &diffmodel.IoError{Op: "store_tree", Err: err}
		}
		return hash, nil
	}

	return build(root)
}

// treeEntrySortKey implements git's tree-entry ordering: directories
// sort as if their name had a trailing "/".
func treeEntrySortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

func (a *Adapter) CreateCommit(ctx context.Context, parents []diffmodel.CommitId, treeID string, author, committer CommitSignature, message string) (diffmodel.CommitId, error) {
	parentHashes := make([]plumbing.Hash, len(parents))
	for i, p := range parents {
		parentHashes[i] = plumbing.NewHash(p.Full())
	}

	commit := &object.Commit{
		Author: object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Unix(author.When, 0).UTC(),
		},
		Committer: object.Signature{
			Name:  committer.Name,
			Email: committer.Email,
			When:  time.Unix(committer.When, 0).UTC(),
		},
		Message:      message,
		TreeHash:     plumbing.NewHash(treeID),
		ParentHashes: parentHashes,
	}

	obj := a.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return diffmodel.CommitId{}, &diffmodel.IoError{Op: "encode_commit", Err: err}
	}
	hash, err := a.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return diffmodel.CommitId{}, &diffmodel.IoError{Op: "store_commit", Err: err}
	}
	return diffmodel.NewCommitId(hash.String()), nil
}

func (a *Adapter) UpdateRef(ctx context.Context, name string, expectedOld, newID diffmodel.CommitId) error {
	refName := plumbing.ReferenceName(name)
	newRef := plumbing.NewHashReference(refName, plumbing.NewHash(newID.Full()))

	var oldRef *plumbing.Reference
	if !expectedOld.IsZero() {
		oldRef = plumbing.NewHashReference(refName, plumbing.NewHash(expectedOld.Full()))
	}

	if err := a.repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		return &diffmodel.RepositoryError{Reason: "ref_moved", Err: err}
	}
	return nil
}

func (a *Adapter) CreateRef(ctx context.Context, name string, commit diffmodel.CommitId) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(commit.Full()))
	if err := a.repo.Storer.SetReference(ref); err != nil {
		return &diffmodel.IoError{Op: "create_ref", Err: err}
	}
	return nil
}

func (a *Adapter) DeleteRef(ctx context.Context, name string) error {
	if err := a.repo.Storer.RemoveReference(plumbing.ReferenceName(name)); err != nil {
		return &diffmodel.IoError{Op: "delete_ref", Err: err}
	}
	return nil
}

func (a *Adapter) ResolveRef(ctx context.Context, name string) (diffmodel.CommitId, error) {
	ref, err := a.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return diffmodel.CommitId{}, &diffmodel.RepositoryError{Reason: "ref_not_found", Err: err}
		}
		return diffmodel.CommitId{}, &diffmodel.RepositoryError{Reason: "resolve_ref_failed", Err: err}
	}
	return diffmodel.NewCommitId(ref.Hash().String()), nil
}

// joinPath is a small helper kept distinct from path.Join so tree paths
// always use "/" regardless of host OS, matching git's own convention.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
