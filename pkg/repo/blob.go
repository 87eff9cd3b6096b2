package repo

import (
	"fmt"
	"io"
	"os"

	"github.com/orbitlab/orbit/pkg/chunker"
	"github.com/orbitlab/orbit/pkg/object"
)

// writeFileBlob splits the file at absPath into content-defined chunks,
// stores each chunk and the resulting blob, and returns the blob digest.
// Chunk and blob writes dedup automatically: content already in the store
// is never written twice.
func (r *Repo) writeFileBlob(absPath string, cfg chunker.Config) (object.Hash, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ch, err := chunker.New(f, cfg)
	if err != nil {
		return "", err
	}

	blob := &object.BlobObj{}
	for {
		c, err := ch.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		chunkHash, err := r.Store.WriteChunk(c.Data)
		if err != nil {
			return "", err
		}
		blob.Chunks = append(blob.Chunks, object.ChunkRef{
			Hash:   chunkHash,
			Length: int64(c.Length),
		})
		blob.Size += int64(c.Length)
	}

	return r.Store.WriteBlob(blob)
}

// blobDigestForFile computes the digest writeFileBlob would produce for
// absPath without writing anything to the store. Status uses it for the
// selective re-hash step, which must not allocate new objects.
func (r *Repo) blobDigestForFile(absPath string, cfg chunker.Config) (object.Hash, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ch, err := chunker.New(f, cfg)
	if err != nil {
		return "", err
	}

	blob := &object.BlobObj{}
	for {
		c, err := ch.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		blob.Chunks = append(blob.Chunks, object.ChunkRef{
			Hash:   object.HashObject(object.TypeChunk, c.Data),
			Length: int64(c.Length),
		})
		blob.Size += int64(c.Length)
	}

	return object.HashObject(object.TypeBlob, object.MarshalBlob(blob)), nil
}

// readBlobContent reconstructs a file's full bytes from its blob by
// fetching each chunk in order and concatenating.
func (r *Repo) readBlobContent(h object.Hash) ([]byte, error) {
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, blob.Size)
	for _, c := range blob.Chunks {
		data, err := r.Store.ReadChunk(c.Hash)
		if err != nil {
			return nil, fmt.Errorf("blob %s: %w", h, err)
		}
		if int64(len(data)) != c.Length {
			return nil, &object.CorruptObjectError{
				Hash:   h,
				Reason: fmt.Sprintf("chunk %s length %d, blob says %d", c.Hash, len(data), c.Length),
			}
		}
		out = append(out, data...)
	}
	if int64(len(out)) != blob.Size {
		return nil, &object.CorruptObjectError{
			Hash:   h,
			Reason: fmt.Sprintf("reassembled %d bytes, blob says %d", len(out), blob.Size),
		}
	}
	return out, nil
}
