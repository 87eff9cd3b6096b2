package repo

import (
	"testing"

	"github.com/orbitlab/orbit/pkg/object"
)

func fakeBlobHash(s string) object.Hash {
	return object.HashBytes([]byte(s))
}

func TestBuildTreeAndFlattenRoundtrip(t *testing.T) {
	r := initTestRepo(t)

	files := map[string]snapshotEntry{
		"readme.md":        {BlobHash: fakeBlobHash("readme"), Mode: object.TreeModeFile},
		"src/main.go":      {BlobHash: fakeBlobHash("main"), Mode: object.TreeModeFile},
		"src/util/util.go": {BlobHash: fakeBlobHash("util"), Mode: object.TreeModeFile},
		"bin/run.sh":       {BlobHash: fakeBlobHash("run"), Mode: object.TreeModeExecutable},
	}

	rootHash, err := r.buildTree(files)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}

	flat, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != len(files) {
		t.Fatalf("expected %d files, got %d", len(files), len(flat))
	}
	for _, f := range flat {
		want, ok := files[f.Path]
		if !ok {
			t.Errorf("unexpected path %q", f.Path)
			continue
		}
		if f.BlobHash != want.BlobHash {
			t.Errorf("%s: blob hash mismatch", f.Path)
		}
		if f.Mode != want.Mode {
			t.Errorf("%s: mode got %q, want %q", f.Path, f.Mode, want.Mode)
		}
	}

	// Flattened output is sorted by path.
	for i := 1; i < len(flat); i++ {
		if flat[i-1].Path >= flat[i].Path {
			t.Errorf("flatten not sorted: %q before %q", flat[i-1].Path, flat[i].Path)
		}
	}
}

func TestBuildTreeDigestIndependentOfMapIteration(t *testing.T) {
	r := initTestRepo(t)

	files := map[string]snapshotEntry{
		"z.txt":     {BlobHash: fakeBlobHash("z"), Mode: object.TreeModeFile},
		"a.txt":     {BlobHash: fakeBlobHash("a"), Mode: object.TreeModeFile},
		"dir/m.txt": {BlobHash: fakeBlobHash("m"), Mode: object.TreeModeFile},
	}

	// Map iteration order varies between runs; the digest must not.
	h1, err := r.buildTree(files)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	for i := 0; i < 10; i++ {
		h2, err := r.buildTree(files)
		if err != nil {
			t.Fatalf("buildTree: %v", err)
		}
		if h2 != h1 {
			t.Fatalf("tree digest unstable: %s vs %s", h1, h2)
		}
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	r := initTestRepo(t)

	h, err := r.buildTree(map[string]snapshotEntry{})
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	tree, err := r.Store.ReadTree(h)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(tree.Entries) != 0 {
		t.Errorf("expected empty tree, got %d entries", len(tree.Entries))
	}
}

func TestFlattenTreeExpandsSharedSubtrees(t *testing.T) {
	r := initTestRepo(t)

	// Two directories with identical contents share one subtree object;
	// flattening must list both copies.
	files := map[string]snapshotEntry{
		"left/same.txt":  {BlobHash: fakeBlobHash("same"), Mode: object.TreeModeFile},
		"right/same.txt": {BlobHash: fakeBlobHash("same"), Mode: object.TreeModeFile},
	}
	rootHash, err := r.buildTree(files)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}

	flat, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != 2 {
		t.Fatalf("expected 2 files, got %v", flat)
	}
	if flat[0].Path != "left/same.txt" || flat[1].Path != "right/same.txt" {
		t.Errorf("paths: %v", flat)
	}
}

func TestFlattenTreeCycleAborts(t *testing.T) {
	r := initTestRepo(t)

	files := map[string]snapshotEntry{
		"dir/file.txt": {BlobHash: fakeBlobHash("f"), Mode: object.TreeModeFile},
	}
	rootHash, err := r.buildTree(files)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}

	// Digest verification makes a self-referencing tree unconstructible
	// through the store, so drive the guard directly: a walk that arrives
	// at a tree already on its ancestor path must abort.
	var out []TreeFileEntry
	ancestors := map[object.Hash]bool{rootHash: true}
	if err := r.flattenInto(rootHash, "", &out, ancestors); err == nil {
		t.Error("walk revisiting an ancestor tree should fail")
	}
}

func TestBuildTreeContentChangePropagatesToRoot(t *testing.T) {
	r := initTestRepo(t)

	base := map[string]snapshotEntry{
		"dir/file.txt": {BlobHash: fakeBlobHash("v1"), Mode: object.TreeModeFile},
		"other.txt":    {BlobHash: fakeBlobHash("other"), Mode: object.TreeModeFile},
	}
	h1, err := r.buildTree(base)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}

	base["dir/file.txt"] = snapshotEntry{BlobHash: fakeBlobHash("v2"), Mode: object.TreeModeFile}
	h2, err := r.buildTree(base)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}

	if h1 == h2 {
		t.Error("changing nested content must change the root digest")
	}
}
