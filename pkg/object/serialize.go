package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Marshal serializes any object to its canonical bytes. The encoding is
// a pure function of the object's logical content: trees are sorted by
// entry name first, commit parents keep their supplied order. Objects
// whose fields would corrupt the line-oriented encoding (newlines in
// names or headers, duplicate entry names) are rejected, so two distinct
// objects can never share one encoding.
func Marshal(o Object) ([]byte, error) {
	switch v := o.(type) {
	case *Blob:
		return MarshalBlob(v), nil
	case *Tree:
		return MarshalTree(v)
	case *Commit:
		return MarshalCommit(v)
	default:
		return nil, fmt.Errorf("marshal: unknown object kind %T", o)
	}
}

// Unmarshal parses canonical bytes back into an object of the given kind.
func Unmarshal(kind Kind, data []byte) (Object, error) {
	switch kind {
	case KindBlob:
		return UnmarshalBlob(data)
	case KindTree:
		return UnmarshalTree(data)
	case KindCommit:
		return UnmarshalCommit(data)
	default:
		return nil, fmt.Errorf("unmarshal: unknown object kind %q", kind)
	}
}

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// MarshalTree serializes a Tree. Entries are sorted byte-wise ascending
// by Name so that the same set of entries always encodes identically.
// Each entry is one line:
//
//	mode target name
//
// Name comes last so entry names may contain spaces. Names containing a
// newline, duplicate names, unknown modes and malformed targets are
// rejected: they would encode ambiguously, letting two logically
// distinct trees hash identically.
func MarshalTree(tr *Tree) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for i, e := range sorted {
		if err := validateTreeEntry(e); err != nil {
			return nil, fmt.Errorf("marshal tree: %w", err)
		}
		if i > 0 && e.Name == sorted[i-1].Name {
			return nil, fmt.Errorf("marshal tree: duplicate entry name %q", e.Name)
		}
		fmt.Fprintf(&buf, "%s %s %s\n", e.Mode, string(e.Target), e.Name)
	}
	return buf.Bytes(), nil
}

// validateTreeEntry rejects entries the line format cannot encode
// unambiguously.
func validateTreeEntry(e TreeEntry) error {
	if e.Name == "" {
		return fmt.Errorf("empty entry name")
	}
	if strings.Contains(e.Name, "\n") {
		return fmt.Errorf("entry name %q contains a newline", e.Name)
	}
	if !validTreeMode(e.Mode) {
		return fmt.Errorf("unknown mode %q for entry %q", e.Mode, e.Name)
	}
	if err := validateHashField(e.Target); err != nil {
		return fmt.Errorf("entry %q: %w", e.Name, err)
	}
	return nil
}

// validateHashField rejects hash strings that would split or extend a
// space-delimited encoding line.
func validateHashField(h Hash) error {
	if h == "" {
		return fmt.Errorf("empty hash")
	}
	if strings.ContainsAny(string(h), " \t\n") {
		return fmt.Errorf("hash %q contains whitespace", h)
	}
	return nil
}

// UnmarshalTree parses a Tree from its serialized form. Only canonical
// encodings decode: entry names must be strictly ascending, so duplicate
// or reordered entries are rejected.
func UnmarshalTree(data []byte) (*Tree, error) {
	tr := &Tree{}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return tr, nil
	}
	prevName := ""
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		mode := parts[0]
		if !validTreeMode(mode) {
			return nil, fmt.Errorf("unmarshal tree: unknown mode %q", mode)
		}
		name := parts[2]
		if name == "" {
			return nil, fmt.Errorf("unmarshal tree: empty entry name in %q", line)
		}
		if name <= prevName {
			return nil, fmt.Errorf("unmarshal tree: entry %q out of canonical order", name)
		}
		prevName = name
		tr.Entries = append(tr.Entries, TreeEntry{
			Name:   name,
			Mode:   mode,
			Target: Hash(parts[1]),
		})
	}
	return tr, nil
}

func validTreeMode(mode string) bool {
	switch mode {
	case ModeDir, ModeFile, ModeExecutable, ModeSymlink:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

// MarshalCommit serializes a Commit:
//
//	tree H
//	parent H     (zero or more, in supplied order)
//	author A
//	timestamp T
//
//	message
//
// A newline in the author, or whitespace in a hash, would let one field
// forge extra header lines (an author ending in "\nparent H" would gain
// an ancestor), so such values are rejected. The message is free-form:
// it sits after the header separator and cannot reach back into it.
func MarshalCommit(c *Commit) ([]byte, error) {
	if err := validateHashField(c.Tree); err != nil {
		return nil, fmt.Errorf("marshal commit: tree: %w", err)
	}
	for _, p := range c.Parents {
		if err := validateHashField(p); err != nil {
			return nil, fmt.Errorf("marshal commit: parent: %w", err)
		}
	}
	if strings.Contains(c.Author, "\n") {
		return nil, fmt.Errorf("marshal commit: author %q contains a newline", c.Author)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.Tree))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "timestamp %d\n", c.Timestamp)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes(), nil
}

// UnmarshalCommit parses a Commit from its serialized form.
func UnmarshalCommit(data []byte) (*Commit, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &Commit{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.Tree = Hash(val)
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
	if c.Tree == "" {
		return nil, fmt.Errorf("unmarshal commit: missing tree header")
	}
	return c, nil
}
