package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how object envelopes are stored on the backend.
// The content hash is always computed over the uncompressed envelope, so
// compression is invisible to content addressing.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name from configuration.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case CompressionNone, CompressionZstd:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// Store is a content-addressed, append-only object store. Objects are
// keyed by the digest of their envelope "kind len\0body"; identical
// content deduplicates automatically. Put is the only mutator and is
// idempotent, so concurrent writers need no coordination beyond the
// backend's per-key atomicity.
type Store struct {
	backend     Backend
	alg         Algorithm
	compression Compression
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, alg Algorithm, compression Compression) *Store {
	return &Store{backend: backend, alg: alg, compression: compression}
}

// Algorithm returns the digest algorithm this store addresses content with.
func (s *Store) Algorithm() Algorithm { return s.alg }

// Put stores an object and returns its content hash. Writing content
// that is already present is a no-op.
func (s *Store) Put(kind Kind, body []byte) (Hash, error) {
	h := s.alg.HashObject(kind, body)
	if s.backend.Has(string(h)) {
		return h, nil
	}

	envelope := make([]byte, 0, len(body)+len(kind)+16)
	envelope = append(envelope, fmt.Sprintf("%s %d\x00", kind, len(body))...)
	envelope = append(envelope, body...)

	stored, err := s.seal(envelope)
	if err != nil {
		return "", fmt.Errorf("store put %s: %w", h, err)
	}
	if err := s.backend.Put(string(h), stored); err != nil {
		return "", fmt.Errorf("store put %s: %w", h, err)
	}
	return h, nil
}

// Get retrieves an object by hash, returning its kind and canonical body.
// Unknown hashes fail with ErrNotFound.
func (s *Store) Get(h Hash) (Kind, []byte, error) {
	stored, err := s.backend.Get(string(h))
	if err != nil {
		return "", nil, err
	}
	envelope, err := s.open(stored)
	if err != nil {
		return "", nil, fmt.Errorf("object %s: %w", h, err)
	}
	kind, body, err := splitEnvelope(envelope)
	if err != nil {
		return "", nil, fmt.Errorf("object %s: %w", h, err)
	}
	return kind, body, nil
}

// Contains reports whether the store holds an object with the given hash.
func (s *Store) Contains(h Hash) bool {
	return s.backend.Has(string(h))
}

// ForEach calls fn for every object hash in the store, in no particular
// order. Each call starts a fresh enumeration.
func (s *Store) ForEach(fn func(Hash) error) error {
	return s.backend.ForEach(func(key string) error {
		return fn(Hash(key))
	})
}

func (s *Store) seal(envelope []byte) ([]byte, error) {
	if s.compression != CompressionZstd {
		return envelope, nil
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(envelope, nil), nil
}

func (s *Store) open(stored []byte) ([]byte, error) {
	if s.compression != CompressionZstd {
		return stored, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	envelope, err := dec.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return envelope, nil
}

// splitEnvelope parses "kind len\0body" and validates the length field.
func splitEnvelope(envelope []byte) (Kind, []byte, error) {
	nulIdx := bytes.IndexByte(envelope, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("invalid envelope (no NUL)")
	}
	header := string(envelope[:nulIdx])
	body := envelope[nulIdx+1:]

	kindStr, lenStr, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, fmt.Errorf("invalid envelope header %q", header)
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid envelope length %q: %w", lenStr, err)
	}
	if len(body) != length {
		return "", nil, fmt.Errorf("envelope length mismatch (header=%d, actual=%d)", length, len(body))
	}
	switch Kind(kindStr) {
	case KindBlob, KindTree, KindCommit:
	default:
		return "", nil, fmt.Errorf("invalid envelope kind %q", kindStr)
	}
	return Kind(kindStr), body, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// PutObject serializes and stores any object.
func (s *Store) PutObject(o Object) (Hash, error) {
	body, err := Marshal(o)
	if err != nil {
		return "", err
	}
	return s.Put(o.Kind(), body)
}

// GetObject reads any object and deserializes it by its stored kind.
func (s *Store) GetObject(h Hash) (Object, error) {
	kind, body, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	return Unmarshal(kind, body)
}

// PutBlob serializes and stores a Blob.
func (s *Store) PutBlob(b *Blob) (Hash, error) {
	return s.Put(KindBlob, MarshalBlob(b))
}

// GetBlob reads and deserializes a Blob.
func (s *Store) GetBlob(h Hash) (*Blob, error) {
	body, err := s.getKind(h, KindBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(body)
}

// PutTree serializes and stores a Tree.
func (s *Store) PutTree(tr *Tree) (Hash, error) {
	body, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Put(KindTree, body)
}

// GetTree reads and deserializes a Tree.
func (s *Store) GetTree(h Hash) (*Tree, error) {
	body, err := s.getKind(h, KindTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(body)
}

// PutCommit serializes and stores a Commit.
func (s *Store) PutCommit(c *Commit) (Hash, error) {
	body, err := MarshalCommit(c)
	if err != nil {
		return "", err
	}
	return s.Put(KindCommit, body)
}

// GetCommit reads and deserializes a Commit.
func (s *Store) GetCommit(h Hash) (*Commit, error) {
	body, err := s.getKind(h, KindCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(body)
}

func (s *Store) getKind(h Hash, want Kind) ([]byte, error) {
	kind, body, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, fmt.Errorf("object %s: kind mismatch: got %q, want %q", h, kind, want)
	}
	return body, nil
}
