package object

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// On disk each object is the envelope "type len\0content" compressed with
// zstd. Objects are immutable: a digest is written at most once, and a
// second write of the same digest is a no-op.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
// It is a pure existence check; the dedup path relies on it being cheap.
func (s *Store) Has(h Hash) bool {
	if len(h) < 3 {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. Writes are atomic:
// data goes to a temp file in the destination directory and is then renamed
// under the digest-derived name, so concurrent writers of the same digest
// converge on one object and readers never observe a partial write.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	h := HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	envelope := fmt.Sprintf("%s %d\x00", objType, len(data))
	raw := append([]byte(envelope), data...)
	compressed, err := compressObject(raw)
	if err != nil {
		return "", fmt.Errorf("object write %s: compress: %w", h, err)
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
// Absence is a NotFoundError. The content is re-hashed before returning;
// any mismatch with the requested digest is a CorruptObjectError, never
// silently ignored.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if len(h) < 3 {
		return "", nil, &NotFoundError{Hash: h}
	}
	compressed, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, &NotFoundError{Hash: h}
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	raw, err := decompressObject(compressed)
	if err != nil {
		return "", nil, &CorruptObjectError{Hash: h, Reason: fmt.Sprintf("decompress: %v", err)}
	}

	// Parse envelope: "type len\0content"
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, &CorruptObjectError{Hash: h, Reason: "invalid envelope (no NUL)"}
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, &CorruptObjectError{Hash: h, Reason: fmt.Sprintf("invalid header %q", header)}
	}
	objType := ObjectType(parts[0])
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, &CorruptObjectError{Hash: h, Reason: fmt.Sprintf("invalid length %q", parts[1])}
	}
	if len(content) != length {
		return "", nil, &CorruptObjectError{
			Hash:   h,
			Reason: fmt.Sprintf("length mismatch (header=%d, actual=%d)", length, len(content)),
		}
	}

	if got := HashObject(objType, content); got != h {
		return "", nil, &CorruptObjectError{
			Hash:   h,
			Reason: fmt.Sprintf("digest mismatch (content hashes to %s)", got),
		}
	}

	return objType, content, nil
}

func compressObject(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decompressObject(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

func (s *Store) typedRead(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, &CorruptObjectError{
			Hash:   h,
			Reason: fmt.Sprintf("type mismatch: got %q, want %q", objType, want),
		}
	}
	return data, nil
}

// WriteChunk stores raw chunk bytes.
func (s *Store) WriteChunk(data []byte) (Hash, error) {
	return s.Write(TypeChunk, data)
}

// ReadChunk reads raw chunk bytes.
func (s *Store) ReadChunk(h Hash) ([]byte, error) {
	return s.typedRead(h, TypeChunk)
}

// WriteBlob serializes and stores a BlobObj.
func (s *Store) WriteBlob(b *BlobObj) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a BlobObj.
func (s *Store) ReadBlob(h Hash) (*BlobObj, error) {
	data, err := s.typedRead(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	b, err := UnmarshalBlob(data)
	if err != nil {
		return nil, &CorruptObjectError{Hash: h, Reason: err.Error()}
	}
	return b, nil
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.typedRead(h, TypeTree)
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(data)
	if err != nil {
		return nil, &CorruptObjectError{Hash: h, Reason: err.Error()}
	}
	return tr, nil
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.typedRead(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, &CorruptObjectError{Hash: h, Reason: err.Error()}
	}
	return c, nil
}
