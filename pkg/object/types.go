package object

// Hash is the hex-encoded digest of an object's envelope. Its length
// depends on the repository's digest algorithm: 40 characters for SHA-1,
// 64 for SHA-256 and BLAKE2b-256.
type Hash string

// Kind identifies the kind of object stored.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	ModeDir        = "40000"
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
)

// Object is the closed union of storable object kinds. Exactly three
// types implement it: *Blob, *Tree and *Commit.
type Object interface {
	Kind() Kind
}

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

func (*Blob) Kind() Kind { return KindBlob }

// TreeEntry is one entry in a tree object. Target points at a Blob for
// file modes and at a Tree for ModeDir.
type TreeEntry struct {
	Name   string
	Mode   string
	Target Hash
}

// IsDir reports whether the entry points at a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == ModeDir }

// Tree is one directory snapshot. Entries are unique by Name; canonical
// encoding sorts them byte-wise ascending regardless of insertion order.
type Tree struct {
	Entries []TreeEntry
}

func (*Tree) Kind() Kind { return KindTree }

// Commit points at a tree snapshot with metadata. Parent order is
// semantically meaningful: the first parent is the mainline of a merge,
// and the canonical encoding preserves the supplied order.
type Commit struct {
	Tree      Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Message   string
}

func (*Commit) Kind() Kind { return KindCommit }
