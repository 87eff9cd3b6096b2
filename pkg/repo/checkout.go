package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orbitlab/orbit/pkg/object"
)

// ErrDirtyWorktree is returned by Checkout when uncommitted changes would
// be overwritten.
var ErrDirtyWorktree = errors.New("working tree has uncommitted changes")

// Checkout replaces the working tree with the snapshot of the given target,
// a branch name or a commit hash. It refuses to run over uncommitted
// changes. On success the index is rebuilt to the new baseline and HEAD
// points at the target: symbolically for a branch, detached for a hash.
func (r *Repo) Checkout(target string) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	if err := r.ensureCleanLocked(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	commitHash, branchRef, err := r.resolveCheckoutTarget(target)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	commit, err := r.Store.ReadCommit(commitHash)
	if err != nil {
		return fmt.Errorf("checkout %s: %w", target, err)
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("checkout %s: %w", target, err)
	}

	// Clear currently tracked files first, then materialize the snapshot.
	idx, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.removeTrackedFiles(idx); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	next := NewIndex()
	for _, f := range files {
		if err := r.materializeFile(f, next); err != nil {
			return fmt.Errorf("checkout %s: %w", target, err)
		}
	}
	if err := r.WriteIndex(next); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if branchRef != "" {
		return r.writeHead("ref: " + branchRef)
	}
	return r.writeHeadDetached(commitHash)
}

// Revert restores the given repo-relative paths to their content at HEAD,
// discarding working-tree edits. An empty path list restores every file in
// the head snapshot. Paths not present in the snapshot are rejected.
func (r *Repo) Revert(paths []string) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("revert: no commits yet")
		}
		return fmt.Errorf("revert: %w", err)
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return fmt.Errorf("revert: %w", err)
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("revert: %w", err)
	}

	byPath := make(map[string]TreeFileEntry, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("revert: %w", err)
	}

	if len(paths) == 0 {
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	for _, raw := range paths {
		path := filepath.ToSlash(raw)
		f, ok := byPath[path]
		if !ok {
			return fmt.Errorf("revert: %q is not in the current snapshot", path)
		}
		if err := r.materializeFile(f, idx); err != nil {
			return fmt.Errorf("revert %q: %w", path, err)
		}
	}

	if err := r.WriteIndex(idx); err != nil {
		return fmt.Errorf("revert: %w", err)
	}
	return nil
}

// ensureCleanLocked fails with ErrDirtyWorktree when any path is not
// Unchanged. Callers hold indexMu.
func (r *Repo) ensureCleanLocked() error {
	entries, err := r.statusLocked()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Err != nil {
			return fmt.Errorf("%s: %w", e.Path, e.Err)
		}
		if e.Status != StatusUnchanged {
			return fmt.Errorf("%w: %s is %s", ErrDirtyWorktree, e.Path, e.Status)
		}
	}
	return nil
}

// resolveCheckoutTarget interprets target as a branch name first, then as a
// commit hash. It returns the commit to materialize and, for branches, the
// ref path HEAD should attach to.
func (r *Repo) resolveCheckoutTarget(target string) (object.Hash, string, error) {
	branchRef := "refs/heads/" + target
	if !strings.Contains(target, "/") {
		if h, err := r.ResolveRef(branchRef); err == nil {
			return h, branchRef, nil
		}
	}

	h := object.Hash(target)
	if !r.Store.Has(h) {
		return "", "", fmt.Errorf("no branch or commit named %q", target)
	}
	objType, _, err := r.Store.Read(h)
	if err != nil {
		return "", "", err
	}
	if objType != object.TypeCommit {
		return "", "", fmt.Errorf("%q is a %s, not a commit", target, objType)
	}
	return h, "", nil
}

// removeTrackedFiles deletes every file the index tracks, then prunes
// directories left empty. Untracked files are never touched.
func (r *Repo) removeTrackedFiles(idx *Index) error {
	var dirs []string
	for path := range idx.Entries {
		abs := r.absPath(path)
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return err
		}
		if d := filepath.Dir(abs); d != r.RootDir {
			dirs = append(dirs, d)
		}
	}

	// Deepest first, so nested empty directories fall before their parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		r.removeEmptyParents(d)
	}
	return nil
}

// removeEmptyParents removes dir and each now-empty ancestor up to the
// repository root. Non-empty directories stop the climb.
func (r *Repo) removeEmptyParents(dir string) {
	for dir != r.RootDir && strings.HasPrefix(dir, r.RootDir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// materializeFile writes one snapshot file to the working tree and records
// the fresh stat in idx.
func (r *Repo) materializeFile(f TreeFileEntry, idx *Index) error {
	content, err := r.readBlobContent(f.BlobHash)
	if err != nil {
		return err
	}

	abs := r.absPath(f.Path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(abs, content, filePermFromMode(f.Mode)); err != nil {
		return err
	}
	// WriteFile does not change the mode of a pre-existing file.
	if err := os.Chmod(abs, filePermFromMode(f.Mode)); err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	idx.record(f.Path, f.BlobHash, info, f.Mode)
	return nil
}
