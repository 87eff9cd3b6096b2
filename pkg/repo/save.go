package repo

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/orbitlab/orbit/pkg/chunker"
	"github.com/orbitlab/orbit/pkg/object"
)

// ErrNothingToSave is returned by Save when the working tree matches the
// current head commit exactly.
var ErrNothingToSave = errors.New("nothing to save")

// SaveResult reports what a successful Save produced.
type SaveResult struct {
	CommitHash object.Hash
	TreeHash   object.Hash
	Ref        string // branch ref that moved, or "HEAD" when detached
}

// Save snapshots the working tree into a new commit and advances the
// current branch. Unchanged files reuse their cached blob digests from the
// index; only changed or new files are chunked and written. The index is
// rewritten to the new baseline only after the commit and ref update both
// succeed, so a failed save never poisons the cache.
func (r *Repo) Save(message string) (*SaveResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("save: empty commit message")
	}

	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	workFiles, err := r.scanWorktree()
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	cfg, err := r.chunkerConfig()
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	author, err := r.authorName()
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	// Split the worktree into files whose cached digest is still valid and
	// files that must be chunked and stored.
	snapshot := make(map[string]snapshotEntry, len(workFiles))
	var pending []rehashTask
	for path, info := range workFiles {
		mode := modeFromFileInfo(info)
		if entry, tracked := idx.Entries[path]; tracked && indexStatMatches(entry, info, mode) {
			snapshot[path] = snapshotEntry{BlobHash: entry.BlobHash, Mode: entry.Mode}
			continue
		}
		pending = append(pending, rehashTask{
			path: path,
			abs:  r.absPath(path),
			info: info,
			mode: mode,
		})
	}

	results := r.storeBlobsAll(pending, cfg)
	for _, t := range pending {
		res := results[t.path]
		if res.err != nil {
			return nil, fmt.Errorf("save: %s: %w", t.path, res.err)
		}
		snapshot[t.path] = snapshotEntry{BlobHash: res.hash, Mode: normalizeFileMode(t.mode)}
	}

	treeHash, err := r.buildTree(snapshot)
	if err != nil {
		return nil, fmt.Errorf("save: build tree: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	var parents []object.Hash
	var oldHead object.Hash
	if strings.HasPrefix(head, "refs/") {
		oldHead, err = r.ResolveRef(head)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("save: %w", err)
		}
	} else {
		oldHead = object.Hash(head)
	}
	if oldHead != "" {
		parents = append(parents, oldHead)

		// An identical tree means no content change at all; a pure touch
		// must not grow the history.
		headCommit, err := r.Store.ReadCommit(oldHead)
		if err != nil {
			return nil, fmt.Errorf("save: read head commit: %w", err)
		}
		if headCommit.TreeHash == treeHash {
			return nil, ErrNothingToSave
		}
	}

	commit := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
	commitHash, err := r.AppendCommit(commit)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	result := &SaveResult{CommitHash: commitHash, TreeHash: treeHash, Ref: "HEAD"}
	if strings.HasPrefix(head, "refs/") {
		if err := r.UpdateRefCAS(head, commitHash, oldHead); err != nil {
			return nil, fmt.Errorf("save: %w", err)
		}
		result.Ref = head
	} else {
		if err := r.writeHeadDetached(commitHash); err != nil {
			return nil, fmt.Errorf("save: %w", err)
		}
	}

	// Commit is durable; now rebuild the index as the new baseline.
	next := NewIndex()
	for path, entry := range snapshot {
		info, err := os.Stat(r.absPath(path))
		if err != nil {
			// File vanished between hashing and recording. Leave it out of
			// the index; the next status reports it deleted.
			continue
		}
		next.record(path, entry.BlobHash, info, modeFromFileInfo(info))
	}
	if err := r.WriteIndex(next); err != nil {
		return nil, fmt.Errorf("save: write index: %w", err)
	}

	return result, nil
}

// storeBlobsAll chunks and stores blobs for the given files on a worker
// pool, returning per-path results.
func (r *Repo) storeBlobsAll(tasks []rehashTask, cfg chunker.Config) map[string]rehashResult {
	return hashPool(tasks, func(t rehashTask) (object.Hash, error) {
		return r.writeFileBlob(t.abs, cfg)
	})
}

// writeHeadDetached points HEAD directly at a commit hash.
func (r *Repo) writeHeadDetached(h object.Hash) error {
	return r.writeHead(string(h))
}
