package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orbitlab/orbit/pkg/object"
)

const indexVersion = 1

// IndexEntry caches the last-known state of one tracked file: the
// filesystem metadata observed when it was recorded, and the blob digest
// actually committed for it. A stale digest here would produce false
// "unchanged" verdicts, so digests change only through record.
type IndexEntry struct {
	Path     string      `json:"path"`
	Size     int64       `json:"size"`
	ModTime  int64       `json:"mod_time"` // UnixNano
	Mode     string      `json:"mode"`
	BlobHash object.Hash `json:"blob_hash"`
}

// Index is the persisted working-tree index: path → last-known metadata and
// content digest. It is what lets status answer "what changed" without
// rehashing unchanged files.
type Index struct {
	Version int                    `json:"version"`
	Entries map[string]*IndexEntry `json:"entries"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{Version: indexVersion, Entries: make(map[string]*IndexEntry)}
}

// record sets the new baseline for path after a successful save or
// checkout. It is the only way a cached digest changes.
func (idx *Index) record(path string, blobHash object.Hash, info os.FileInfo, mode string) {
	idx.Entries[path] = &IndexEntry{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime().UnixNano(),
		Mode:     normalizeFileMode(mode),
		BlobHash: blobHash,
	}
}

// forget drops the entry for an untracked or deleted path.
func (idx *Index) forget(path string) {
	delete(idx.Entries, path)
}

// refreshStat updates an entry's cached metadata without touching the
// digest. Used when a re-hash proved the content unchanged despite
// differing metadata (e.g. a touch). Reports whether anything changed.
func (e *IndexEntry) refreshStat(info os.FileInfo, mode string) bool {
	nextMode := normalizeFileMode(mode)
	nextModTime := info.ModTime().UnixNano()
	nextSize := info.Size()
	if e.ModTime == nextModTime && e.Size == nextSize && e.Mode == nextMode {
		return false
	}
	e.Mode = nextMode
	e.ModTime = nextModTime
	e.Size = nextSize
	return true
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.OrbDir, "index")
}

// ReadIndex loads the working-tree index from .orb/index. If the file does
// not exist, an empty index is returned (no error).
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewIndex(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("read index: unmarshal: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*IndexEntry)
	}
	return &idx, nil
}

// WriteIndex atomically writes the index to .orb/index via temp + rename,
// so a crash mid-write never leaves a truncated index behind.
func (r *Repo) WriteIndex(idx *Index) error {
	idx.Version = indexVersion
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("write index: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.OrbDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}
