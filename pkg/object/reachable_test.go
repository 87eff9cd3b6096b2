package object

import (
	"os"
	"path/filepath"
	"testing"
)

// buildGraph stores a minimal commit graph and returns the commit hash:
// commit -> tree -> blob -> two chunks.
func buildGraph(t *testing.T, s *Store) (commit, tree, blob, c1, c2 Hash) {
	t.Helper()

	c1, err := s.WriteChunk([]byte("chunk one"))
	if err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	c2, err = s.WriteChunk([]byte("chunk two"))
	if err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}

	blob, err = s.WriteBlob(&BlobObj{
		Size:   18,
		Chunks: []ChunkRef{{Hash: c1, Length: 9}, {Hash: c2, Length: 9}},
	})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	tree, err = s.WriteTree(&TreeObj{Entries: []TreeEntry{
		{Name: "file.txt", Mode: TreeModeFile, Hash: blob},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	commit, err = s.WriteCommit(&CommitObj{
		TreeHash:  tree,
		Author:    "a",
		Timestamp: 1,
		Message:   "m",
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	return commit, tree, blob, c1, c2
}

func TestReachableSetFullGraph(t *testing.T) {
	s := tempStore(t)
	commit, tree, blob, c1, c2 := buildGraph(t, s)

	set, err := s.ReachableSet([]Hash{commit})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	for _, h := range []Hash{commit, tree, blob, c1, c2} {
		if _, ok := set[h]; !ok {
			t.Errorf("hash %s not reachable", h)
		}
	}
	if len(set) != 5 {
		t.Errorf("expected 5 reachable objects, got %d", len(set))
	}
}

func TestMissingSet(t *testing.T) {
	s := tempStore(t)
	commit, _, blob, c1, _ := buildGraph(t, s)

	// Remove one chunk; the walk should report exactly that digest.
	if err := os.Remove(filepath.Join(s.root, "objects", string(c1[:2]), string(c1[2:]))); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	missing, err := s.MissingSet([]Hash{commit})
	if err != nil {
		t.Fatalf("MissingSet: %v", err)
	}
	if len(missing) != 1 || missing[0] != c1 {
		t.Errorf("missing set: got %v, want [%s]", missing, c1)
	}

	_ = blob
}

func TestMissingSetComplete(t *testing.T) {
	s := tempStore(t)
	commit, _, _, _, _ := buildGraph(t, s)

	missing, err := s.MissingSet([]Hash{commit})
	if err != nil {
		t.Fatalf("MissingSet: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing objects, got %v", missing)
	}
}

func TestVerifyCleanStore(t *testing.T) {
	s := tempStore(t)
	commit, _, _, _, _ := buildGraph(t, s)

	report := s.Verify([]Hash{commit})
	if !report.OK() {
		t.Errorf("expected clean report, got missing=%v corrupt=%v", report.Missing, report.Corrupt)
	}
	if report.Checked != 5 {
		t.Errorf("expected 5 checked objects, got %d", report.Checked)
	}
}

func TestVerifyReportsCorruptAndMissing(t *testing.T) {
	s := tempStore(t)
	commit, _, blob, c1, c2 := buildGraph(t, s)

	if err := os.Remove(filepath.Join(s.root, "objects", string(c1[:2]), string(c1[2:]))); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	c2Path := filepath.Join(s.root, "objects", string(c2[:2]), string(c2[2:]))
	if err := os.WriteFile(c2Path, []byte("scribble"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	report := s.Verify([]Hash{commit})
	if report.OK() {
		t.Fatal("expected a failing report")
	}
	if len(report.Missing) != 1 || report.Missing[0] != c1 {
		t.Errorf("missing: got %v, want [%s]", report.Missing, c1)
	}
	if len(report.Corrupt) != 1 || report.Corrupt[0].Hash != c2 {
		t.Errorf("corrupt: got %v, want hash %s", report.Corrupt, c2)
	}

	_ = blob
}
