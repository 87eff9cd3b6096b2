package object

// Hash is a 64-character hex-encoded Keccak-256 digest.
type Hash string

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeChunk  ObjectType = "chunk"
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// ChunkRef points at one stored chunk of a file, in file order.
type ChunkRef struct {
	Hash   Hash
	Length int64
}

// BlobObj represents one file's content as an ordered chunk list.
// Concatenating the chunk bytes in order reproduces the file exactly.
// An empty file has Size 0 and no chunks.
type BlobObj struct {
	Size   int64
	Chunks []ChunkRef
}

// TreeEntry is one entry in a tree object. Hash points at a BlobObj for
// files and at a subtree for directories.
type TreeEntry struct {
	Name  string
	IsDir bool
	Mode  string
	Hash  Hash
}

// TreeObj holds a list of tree entries, sorted by Name when serialized.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata.
// Zero parents marks a root commit; more than one is reserved for merges.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Message   string
}
