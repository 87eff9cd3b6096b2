package repo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/orbitlab/orbit/pkg/object"
)

// DanglingParentError reports an attempt to append a commit whose parent is
// not present in the object store. The commit graph never contains edges to
// missing commits.
type DanglingParentError struct {
	Parent object.Hash
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("dangling parent commit %s", e.Parent)
}

// IsDanglingParent reports whether err is a DanglingParentError.
func IsDanglingParent(err error) bool {
	var dp *DanglingParentError
	return errors.As(err, &dp)
}

// AppendCommit validates and stores a commit object, returning its hash.
// The referenced tree must exist in the store, and every listed parent must
// be a stored commit. It does not move any ref; callers advance branches
// with UpdateRefCAS after the append succeeds.
func (r *Repo) AppendCommit(c *object.CommitObj) (object.Hash, error) {
	if !r.Store.Has(c.TreeHash) {
		return "", fmt.Errorf("append commit: tree %s not in store", c.TreeHash)
	}

	for _, parent := range c.Parents {
		if !r.Store.Has(parent) {
			return "", &DanglingParentError{Parent: parent}
		}
	}

	return r.Store.WriteCommit(c)
}

// HistoryEntry pairs a commit with its hash during traversal.
type HistoryEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// HistoryIter walks commit ancestry from a starting commit. Each commit is
// yielded exactly once even when merge lineages reconverge. The first
// parent's lineage is explored before other parents'.
type HistoryIter struct {
	repo    *Repo
	stack   []object.Hash
	visited map[object.Hash]bool
}

// History returns an iterator over the ancestry of the given commit,
// starting at the commit itself.
func (r *Repo) History(from object.Hash) *HistoryIter {
	return &HistoryIter{
		repo:    r,
		stack:   []object.Hash{from},
		visited: make(map[object.Hash]bool),
	}
}

// Next returns the next commit in the walk. When the walk is exhausted, ok
// is false and err is nil.
func (it *HistoryIter) Next() (HistoryEntry, bool, error) {
	for len(it.stack) > 0 {
		h := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if it.visited[h] {
			continue
		}
		it.visited[h] = true

		commit, err := it.repo.Store.ReadCommit(h)
		if err != nil {
			return HistoryEntry{}, false, fmt.Errorf("history at %s: %w", h, err)
		}

		// Push parents in reverse so the first parent is popped first.
		for i := len(commit.Parents) - 1; i >= 0; i-- {
			if !it.visited[commit.Parents[i]] {
				it.stack = append(it.stack, commit.Parents[i])
			}
		}

		return HistoryEntry{Hash: h, Commit: commit}, true, nil
	}
	return HistoryEntry{}, false, nil
}

// Log collects up to limit commits of ancestry starting from the named ref
// or hash. limit <= 0 means no limit. An empty repository (HEAD's own
// branch not written yet) yields an empty log; an unknown name or absent
// digest is an error, never silently empty.
func (r *Repo) Log(start string, limit int) ([]HistoryEntry, error) {
	h, err := r.ResolveRef(start)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// Not a ref. Fall back to reading start as a commit digest.
		if candidate := object.Hash(start); r.Store.Has(candidate) {
			h = candidate
		} else if r.startsAtOwnHead(start) {
			// The repo's own branch before the first save: no commits yet.
			return nil, nil
		} else {
			return nil, fmt.Errorf("history: no ref or commit named %q", start)
		}
	}
	if h == "" {
		return nil, nil
	}

	return collectEntries(r.History(h), limit)
}

// startsAtOwnHead reports whether start names the branch HEAD is attached
// to, either literally or by short name.
func (r *Repo) startsAtOwnHead(start string) bool {
	if start == "HEAD" {
		return true
	}
	head, err := r.Head()
	if err != nil || !strings.HasPrefix(head, "refs/") {
		return false
	}
	return start == head || "refs/heads/"+start == head
}

func collectEntries(it *HistoryIter, limit int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
	}
}
