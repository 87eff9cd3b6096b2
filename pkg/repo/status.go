package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/orbitlab/orbit/pkg/chunker"
	"github.com/orbitlab/orbit/pkg/object"
)

// ChangeStatus classifies a working-tree path against the index.
type ChangeStatus int

const (
	StatusUnchanged ChangeStatus = iota // content matches the last recorded snapshot
	StatusModified                      // content differs from the last recorded snapshot
	StatusNew                           // on disk, not in the index
	StatusDeleted                       // in the index, not on disk
)

func (s ChangeStatus) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusModified:
		return "modified"
	case StatusNew:
		return "new"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("ChangeStatus(%d)", int(s))
	}
}

// StatusEntry records the status of a single path. A non-nil Err means the
// path could not be examined (filesystem failure); the scan continues for
// other paths regardless.
type StatusEntry struct {
	Path   string
	Status ChangeStatus
	Err    error
}

// statusRacyCleanWindow guards against edits landing in the same mtime
// instant as the index update: entries this recent are always re-hashed.
const statusRacyCleanWindow = 2 * time.Second

// Status computes the change status of every tracked and observed path.
//
// Algorithm (selective re-hash):
//  1. Walk the working tree, skipping ignored paths.
//  2. Compare each file's size/mtime/mode against the cached index entry.
//     A clean metadata match is Unchanged without touching the chunker.
//  3. Suspect paths (metadata differs, or the mtime is too coarse or too
//     recent to trust) are re-hashed on a worker pool. A digest match
//     collapses to Unchanged and refreshes the cached metadata; a touch
//     never allocates a new blob.
//  4. Untracked files are New; tracked files missing from disk are Deleted.
func (r *Repo) Status() ([]StatusEntry, error) {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	return r.statusLocked()
}

func (r *Repo) statusLocked() ([]StatusEntry, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	workFiles, err := r.scanWorktree()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	cfg, err := r.chunkerConfig()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	var entries []StatusEntry
	var suspects []rehashTask

	for path, info := range workFiles {
		entry, tracked := idx.Entries[path]
		if !tracked {
			entries = append(entries, StatusEntry{Path: path, Status: StatusNew})
			continue
		}
		mode := modeFromFileInfo(info)
		if indexStatMatches(entry, info, mode) {
			entries = append(entries, StatusEntry{Path: path, Status: StatusUnchanged})
			continue
		}
		suspects = append(suspects, rehashTask{
			path: path,
			abs:  r.absPath(path),
			info: info,
			mode: mode,
		})
	}

	for path := range idx.Entries {
		if _, onDisk := workFiles[path]; !onDisk {
			entries = append(entries, StatusEntry{Path: path, Status: StatusDeleted})
		}
	}

	// Re-hash only the suspects, in parallel, then join the results before
	// any index write.
	results := r.rehashAll(suspects, cfg)
	refreshIndex := false
	for _, t := range suspects {
		res := results[t.path]
		if res.err != nil {
			entries = append(entries, StatusEntry{Path: t.path, Status: StatusModified, Err: res.err})
			continue
		}
		entry := idx.Entries[t.path]
		if res.hash == entry.BlobHash && normalizeFileMode(t.mode) == entry.Mode {
			// Metadata changed but content did not (e.g. a touch).
			if entry.refreshStat(t.info, t.mode) {
				refreshIndex = true
			}
			entries = append(entries, StatusEntry{Path: t.path, Status: StatusUnchanged})
			continue
		}
		entries = append(entries, StatusEntry{Path: t.path, Status: StatusModified})
	}

	if refreshIndex {
		if err := r.WriteIndex(idx); err != nil {
			return nil, fmt.Errorf("status: refresh index: %w", err)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// QueryPath answers the change status of a single repo-relative path using
// the same metadata-first, re-hash-on-suspicion rule as Status.
func (r *Repo) QueryPath(path string) (ChangeStatus, error) {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	idx, err := r.ReadIndex()
	if err != nil {
		return StatusUnchanged, fmt.Errorf("query %q: %w", path, err)
	}

	path = filepath.ToSlash(path)
	entry, tracked := idx.Entries[path]

	abs := r.absPath(path)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if tracked {
				return StatusDeleted, nil
			}
			return StatusUnchanged, fmt.Errorf("query %q: path does not exist and is not tracked", path)
		}
		return StatusUnchanged, fmt.Errorf("query %q: %w", path, err)
	}
	if !tracked {
		return StatusNew, nil
	}

	mode := modeFromFileInfo(info)
	if indexStatMatches(entry, info, mode) {
		return StatusUnchanged, nil
	}

	cfg, err := r.chunkerConfig()
	if err != nil {
		return StatusUnchanged, fmt.Errorf("query %q: %w", path, err)
	}
	hash, err := r.blobDigestForFile(abs, cfg)
	if err != nil {
		return StatusUnchanged, fmt.Errorf("query %q: %w", path, err)
	}
	if hash == entry.BlobHash && normalizeFileMode(mode) == entry.Mode {
		if entry.refreshStat(info, mode) {
			if err := r.WriteIndex(idx); err != nil {
				return StatusUnchanged, fmt.Errorf("query %q: refresh index: %w", path, err)
			}
		}
		return StatusUnchanged, nil
	}
	return StatusModified, nil
}

// scanWorktree walks the working directory and returns repo-relative
// forward-slash paths of all regular files, with their stat info. Ignored
// directories are skipped entirely.
func (r *Repo) scanWorktree() (map[string]os.FileInfo, error) {
	ic := NewIgnoreChecker(r.RootDir)
	files := make(map[string]os.FileInfo)

	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if ic.IsIgnored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks and special files are not tracked.
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files[rel] = info
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return files, nil
}

// indexStatMatches reports whether the cached metadata proves the file
// unchanged. Entries with mtimes inside the racy window, or with
// second-granularity mtimes (zero nanoseconds, as coarse filesystems
// expose), are never trusted: same-size edits inside one second would
// evade a stat-only check.
func indexStatMatches(e *IndexEntry, info os.FileInfo, mode string) bool {
	if e == nil {
		return false
	}
	if e.Mode != normalizeFileMode(mode) {
		return false
	}
	if e.Size != info.Size() {
		return false
	}
	if isRacyCleanModTime(info.ModTime()) {
		return false
	}
	if info.ModTime().Nanosecond() == 0 {
		return false
	}
	return e.ModTime == info.ModTime().UnixNano()
}

func isRacyCleanModTime(modTime time.Time) bool {
	now := time.Now()
	if modTime.After(now) {
		return true
	}
	return now.Sub(modTime) < statusRacyCleanWindow
}

// ---------------------------------------------------------------------------
// Parallel re-hash
// ---------------------------------------------------------------------------

type rehashTask struct {
	path string
	abs  string
	info os.FileInfo
	mode string
}

type rehashResult struct {
	hash object.Hash
	err  error
}

// rehashAll computes blob digests for the given files on a worker pool.
// Per-file errors are carried in the result, never aborting the batch.
func (r *Repo) rehashAll(tasks []rehashTask, cfg chunker.Config) map[string]rehashResult {
	return hashPool(tasks, func(t rehashTask) (object.Hash, error) {
		return r.blobDigestForFile(t.abs, cfg)
	})
}

// hashPool fans tasks out over GOMAXPROCS workers and joins the per-path
// results before returning.
func hashPool(tasks []rehashTask, fn func(rehashTask) (object.Hash, error)) map[string]rehashResult {
	out := make(map[string]rehashResult, len(tasks))
	if len(tasks) == 0 {
		return out
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(tasks) {
		workers = len(tasks)
	}

	jobs := make(chan rehashTask)
	type keyed struct {
		path string
		res  rehashResult
	}
	results := make(chan keyed, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				h, err := fn(t)
				results <- keyed{path: t.path, res: rehashResult{hash: h, err: err}}
			}
		}()
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(results)

	for k := range results {
		out[k.path] = k.res
	}
	return out
}
