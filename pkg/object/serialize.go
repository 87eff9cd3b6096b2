package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// BlobObj
// ---------------------------------------------------------------------------

// MarshalBlob serializes a BlobObj to a deterministic text format:
//
//	size N
//
//	<chunkhash> <length>
//	...
//
// The chunk lines appear in file order. An empty file serializes to a
// header with size 0 and no chunk lines.
func MarshalBlob(b *BlobObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "size %d\n", b.Size)
	buf.WriteByte('\n')
	for _, c := range b.Chunks {
		fmt.Fprintf(&buf, "%s %d\n", string(c.Hash), c.Length)
	}
	return buf.Bytes()
}

// UnmarshalBlob parses a BlobObj from its serialized form. The chunk
// lengths must sum to the declared size.
func UnmarshalBlob(data []byte) (*BlobObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal blob: missing header/body separator")
	}
	header := string(data[:idx])
	body := strings.TrimRight(string(data[idx+2:]), "\n")

	b := &BlobObj{}
	key, val, ok := strings.Cut(header, " ")
	if !ok || key != "size" {
		return nil, fmt.Errorf("unmarshal blob: malformed header %q", header)
	}
	size, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unmarshal blob: bad size %q: %w", val, err)
	}
	b.Size = size

	var total int64
	if body != "" {
		for _, line := range strings.Split(body, "\n") {
			h, l, ok := strings.Cut(line, " ")
			if !ok {
				return nil, fmt.Errorf("unmarshal blob: malformed chunk line %q", line)
			}
			length, err := strconv.ParseInt(l, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal blob: bad chunk length %q: %w", l, err)
			}
			b.Chunks = append(b.Chunks, ChunkRef{Hash: Hash(h), Length: length})
			total += length
		}
	}
	if total != b.Size {
		return nil, fmt.Errorf("unmarshal blob: chunk lengths sum to %d, header says %d", total, b.Size)
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries are sorted by Name before
// writing, so the digest is independent of filesystem enumeration order.
// Each entry is one line:
//
//	mode hash name
//
// where mode is a Git-compatible mode string (40000, 100644, 100755).
// The name comes last because it is the only field that may itself
// contain spaces.
func MarshalTree(tr *TreeObj) []byte {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s %s %s\n", treeModeOrDefault(e), string(e.Hash), e.Name)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form. Duplicate entry
// names are rejected.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return tr, nil
	}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		// mode hash name; the name is the remainder and may contain spaces.
		name := parts[2]
		if name == "" {
			return nil, fmt.Errorf("unmarshal tree: empty entry name in %q", line)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("unmarshal tree: duplicate entry name %q", name)
		}
		seen[name] = struct{}{}

		isDir, mode, err := parseTreeMode(parts[0])
		if err != nil {
			return nil, fmt.Errorf("unmarshal tree: %w", err)
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Name:  name,
			IsDir: isDir,
			Mode:  mode,
			Hash:  Hash(parts[1]),
		})
	}
	return tr, nil
}

func treeModeOrDefault(e TreeEntry) string {
	if e.IsDir {
		return TreeModeDir
	}
	if strings.TrimSpace(e.Mode) == "" {
		return TreeModeFile
	}
	return e.Mode
}

func parseTreeMode(mode string) (bool, string, error) {
	switch mode {
	case TreeModeDir:
		return true, TreeModeDir, nil
	case TreeModeFile:
		return false, TreeModeFile, nil
	case TreeModeExecutable:
		return false, TreeModeExecutable, nil
	default:
		return false, "", fmt.Errorf("unknown mode %q", mode)
	}
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author A
//	timestamp T
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "timestamp %d\n", c.Timestamp)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			c.Author = val
		case "timestamp":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: bad timestamp %q: %w", val, err)
			}
			c.Timestamp = ts
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("unmarshal commit: missing tree header")
	}
	return c, nil
}
