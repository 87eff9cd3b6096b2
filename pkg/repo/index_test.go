package repo

import (
	"os"
	"testing"
)

func TestReadIndexMissingReturnsEmpty(t *testing.T) {
	r := initTestRepo(t)
	idx, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(idx.Entries) != 0 {
		t.Errorf("expected empty index, got %d entries", len(idx.Entries))
	}
}

func TestIndexRoundtrip(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", []byte("hello"))
	info, err := os.Stat(r.absPath("a.txt"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	idx := NewIndex()
	idx.record("a.txt", fakeBlobHash("blob"), info, modeFromFileInfo(info))
	if err := r.WriteIndex(idx); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	got, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	e := got.Entries["a.txt"]
	if e == nil {
		t.Fatal("entry missing after roundtrip")
	}
	if e.BlobHash != fakeBlobHash("blob") {
		t.Errorf("blob hash: got %s", e.BlobHash)
	}
	if e.Size != info.Size() {
		t.Errorf("size: got %d, want %d", e.Size, info.Size())
	}
	if e.ModTime != info.ModTime().UnixNano() {
		t.Errorf("mod time: got %d, want %d", e.ModTime, info.ModTime().UnixNano())
	}
}

func TestIndexForget(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", []byte("hello"))
	info, err := os.Stat(r.absPath("a.txt"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	idx := NewIndex()
	idx.record("a.txt", fakeBlobHash("blob"), info, modeFromFileInfo(info))
	idx.forget("a.txt")
	if len(idx.Entries) != 0 {
		t.Error("forget did not remove the entry")
	}
}

func TestRefreshStatKeepsDigest(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", []byte("hello"))
	info, err := os.Stat(r.absPath("a.txt"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	idx := NewIndex()
	idx.record("a.txt", fakeBlobHash("blob"), info, modeFromFileInfo(info))
	e := idx.Entries["a.txt"]

	// Same stat: no change reported.
	if e.refreshStat(info, modeFromFileInfo(info)) {
		t.Error("refreshStat reported a change for identical stat")
	}

	// New mtime: metadata updates, digest does not.
	writeWorkFile(t, r, "a.txt", []byte("hello"))
	info2, err := os.Stat(r.absPath("a.txt"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info2.ModTime().UnixNano() != info.ModTime().UnixNano() {
		if !e.refreshStat(info2, modeFromFileInfo(info2)) {
			t.Error("refreshStat missed a metadata change")
		}
	}
	if e.BlobHash != fakeBlobHash("blob") {
		t.Error("refreshStat must never touch the digest")
	}
}

func TestWriteIndexSurvivesCorruptTempCleanup(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", []byte("hello"))
	info, err := os.Stat(r.absPath("a.txt"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	idx := NewIndex()
	idx.record("a.txt", fakeBlobHash("blob"), info, modeFromFileInfo(info))
	if err := r.WriteIndex(idx); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	// Overwrite with a second state; the rename must fully replace.
	idx.record("b.txt", fakeBlobHash("blob2"), info, modeFromFileInfo(info))
	if err := r.WriteIndex(idx); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	got, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got.Entries))
	}
}
