package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orbitlab/orbit/pkg/object"
)

// snapshotEntry is one file's contribution to a tree build: the blob that
// holds its content and the mode it carries.
type snapshotEntry struct {
	BlobHash object.Hash
	Mode     string
}

// buildTree converts a flat path map into nested tree objects, writing each
// tree to the store, and returns the root tree hash. Entries within a tree
// are sorted by name, so the digest depends only on contents, never on
// enumeration order. An empty map yields the empty tree.
func (r *Repo) buildTree(files map[string]snapshotEntry) (object.Hash, error) {
	return r.buildSubtree(files, "")
}

// buildSubtree builds the tree for one directory prefix. prefix is either
// empty (the root) or a slash-terminated directory path.
func (r *Repo) buildSubtree(files map[string]snapshotEntry, prefix string) (object.Hash, error) {
	type childDir struct{}
	directFiles := make(map[string]snapshotEntry)
	childDirs := make(map[string]childDir)

	for path, entry := range files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			childDirs[rest[:i]] = childDir{}
		} else {
			directFiles[rest] = entry
		}
	}

	tree := &object.TreeObj{}
	for name, entry := range directFiles {
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: name,
			Mode: entry.Mode,
			Hash: entry.BlobHash,
		})
	}
	for name := range childDirs {
		subHash, err := r.buildSubtree(files, prefix+name+"/")
		if err != nil {
			return "", err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name:  name,
			IsDir: true,
			Mode:  object.TreeModeDir,
			Hash:  subHash,
		})
	}

	sort.Slice(tree.Entries, func(i, j int) bool {
		return tree.Entries[i].Name < tree.Entries[j].Name
	})

	return r.Store.WriteTree(tree)
}

// TreeFileEntry is one file in a flattened tree listing.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// FlattenTree walks the tree rooted at treeHash and returns every file it
// reaches as a repo-relative path, sorted. Identical subtrees appearing
// under several directories are each expanded; only a subtree that names
// one of its own ancestors aborts the walk.
func (r *Repo) FlattenTree(treeHash object.Hash) ([]TreeFileEntry, error) {
	var out []TreeFileEntry
	if err := r.flattenInto(treeHash, "", &out, make(map[object.Hash]bool)); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func (r *Repo) flattenInto(treeHash object.Hash, prefix string, out *[]TreeFileEntry, ancestors map[object.Hash]bool) error {
	if ancestors[treeHash] {
		return fmt.Errorf("tree %s: cycle in tree graph at %q", treeHash, prefix)
	}
	ancestors[treeHash] = true
	defer delete(ancestors, treeHash)

	tree, err := r.Store.ReadTree(treeHash)
	if err != nil {
		return fmt.Errorf("tree %s: %w", treeHash, err)
	}
	for _, e := range tree.Entries {
		path := prefix + e.Name
		if e.IsDir {
			if err := r.flattenInto(e.Hash, path+"/", out, ancestors); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, TreeFileEntry{Path: path, BlobHash: e.Hash, Mode: e.Mode})
	}
	return nil
}
