package repo

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/orbitlab/orbit/pkg/object"
)

// Repo represents an opened Orbit repository. All operations go through an
// explicit handle; there is no process-wide repository state.
type Repo struct {
	RootDir string        // working directory root
	OrbDir  string        // .orb/ directory
	Store   *object.Store // content-addressed object store

	// indexMu serializes whole read-compare-write cycles on the
	// working-tree index. Status and save both hold it for their full
	// duration so concurrent callers never interleave stale updates.
	indexMu sync.Mutex
}

// absPath converts a repo-relative forward-slash path into an absolute
// filesystem path under the working directory.
func (r *Repo) absPath(rel string) string {
	return filepath.Join(r.RootDir, filepath.FromSlash(rel))
}

// writeHead rewrites .orb/HEAD with the given content, either a symbolic
// "ref: refs/heads/<name>" line or a bare commit hash when detached.
func (r *Repo) writeHead(content string) error {
	return os.WriteFile(filepath.Join(r.OrbDir, "HEAD"), []byte(content+"\n"), 0o644)
}
