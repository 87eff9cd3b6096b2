package repo

import (
	"testing"

	"github.com/orbitlab/orbit/pkg/object"
)

// makeCommit stores a commit with an empty tree and the given parents.
func makeCommit(t *testing.T, r *Repo, msg string, parents ...object.Hash) object.Hash {
	t.Helper()
	treeHash, err := r.Store.WriteTree(&object.TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	h, err := r.AppendCommit(&object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    "tester",
		Timestamp: 1,
		Message:   msg,
	})
	if err != nil {
		t.Fatalf("AppendCommit %q: %v", msg, err)
	}
	return h
}

func collectHistory(t *testing.T, r *Repo, from object.Hash) []string {
	t.Helper()
	var msgs []string
	it := r.History(from)
	for {
		entry, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return msgs
		}
		msgs = append(msgs, entry.Commit.Message)
	}
}

func TestAppendCommitRejectsDanglingParent(t *testing.T) {
	r := initTestRepo(t)
	treeHash, err := r.Store.WriteTree(&object.TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	missing := object.Hash("3333333333333333333333333333333333333333333333333333333333333333")
	_, err = r.AppendCommit(&object.CommitObj{
		TreeHash:  treeHash,
		Parents:   []object.Hash{missing},
		Author:    "tester",
		Timestamp: 1,
		Message:   "bad",
	})
	if !IsDanglingParent(err) {
		t.Errorf("expected DanglingParentError, got %v", err)
	}
}

func TestAppendCommitRejectsMissingTree(t *testing.T) {
	r := initTestRepo(t)
	missing := object.Hash("4444444444444444444444444444444444444444444444444444444444444444")
	_, err := r.AppendCommit(&object.CommitObj{
		TreeHash:  missing,
		Author:    "tester",
		Timestamp: 1,
		Message:   "bad",
	})
	if err == nil {
		t.Error("commit with absent tree should be rejected")
	}
}

func TestHistoryLinearChain(t *testing.T) {
	r := initTestRepo(t)
	a := makeCommit(t, r, "a")
	b := makeCommit(t, r, "b", a)
	c := makeCommit(t, r, "c", b)

	got := collectHistory(t, r, c)
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("history: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHistoryMergeVisitsEachCommitOnce(t *testing.T) {
	r := initTestRepo(t)

	//   root
	//   /  \
	// left right
	//   \  /
	//  merge
	root := makeCommit(t, r, "root")
	left := makeCommit(t, r, "left", root)
	right := makeCommit(t, r, "right", root)
	merge := makeCommit(t, r, "merge", left, right)

	got := collectHistory(t, r, merge)
	if len(got) != 4 {
		t.Fatalf("expected 4 commits, got %v", got)
	}

	// First-parent lineage is explored first, so "left" and its ancestry
	// come before "right". "root" appears exactly once.
	want := []string{"merge", "left", "root", "right"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d]: got %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestHistoryIteratorRestartable(t *testing.T) {
	r := initTestRepo(t)
	a := makeCommit(t, r, "a")
	b := makeCommit(t, r, "b", a)

	first := collectHistory(t, r, b)
	second := collectHistory(t, r, b)
	if len(first) != len(second) {
		t.Fatalf("restarted walk differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("walks diverge at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestLogByCommitDigest(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", []byte("v1"))
	first, err := r.Save("first")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	writeWorkFile(t, r, "a.txt", []byte("v2"))
	if _, err := r.Save("second"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Starting from the first commit's digest sees only its own ancestry.
	entries, err := r.Log(string(first.CommitHash), 0)
	if err != nil {
		t.Fatalf("Log by digest: %v", err)
	}
	if len(entries) != 1 || entries[0].Commit.Message != "first" {
		t.Errorf("log from digest: got %v", entries)
	}
}

func TestLogUnknownNameIsAnError(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", []byte("v1"))
	if _, err := r.Save("first"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := r.Log("no-such-branch", 0); err == nil {
		t.Error("log of an unknown name should fail, not come back empty")
	}
	absent := "5555555555555555555555555555555555555555555555555555555555555555"
	if _, err := r.Log(absent, 0); err == nil {
		t.Error("log of an absent digest should fail, not come back empty")
	}
}

func TestLogLimitAndEmptyRepo(t *testing.T) {
	r := initTestRepo(t)

	// No commits yet: empty log, no error.
	entries, err := r.Log("HEAD", 0)
	if err != nil {
		t.Fatalf("Log on empty repo: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty log, got %d entries", len(entries))
	}

	writeWorkFile(t, r, "a.txt", []byte("v1"))
	if _, err := r.Save("first"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	writeWorkFile(t, r, "a.txt", []byte("v2"))
	if _, err := r.Save("second"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err = r.Log("HEAD", 1)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 1 || entries[0].Commit.Message != "second" {
		t.Errorf("limited log: got %v", entries)
	}

	entries, err = r.Log("main", 0)
	if err != nil {
		t.Fatalf("Log by branch name: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}
