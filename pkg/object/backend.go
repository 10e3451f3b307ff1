package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound reports a hash or key with no stored object behind it.
var ErrNotFound = errors.New("object not found")

// Backend is the durable key-value byte store underneath the object
// store. Keys are hex object hashes. Put must be atomic per key: after a
// failed Put the key is absent, never half-written. Keys are written at
// most once by the store, so overwrite behavior is unspecified.
type Backend interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Has(key string) bool
	// ForEach calls fn for every stored key in no particular order.
	// Each call starts a fresh enumeration.
	ForEach(fn func(key string) error) error
}

// ---------------------------------------------------------------------------
// Filesystem backend
// ---------------------------------------------------------------------------

// DirBackend stores each object as a file under root with a 2-character
// fan-out layout: root/ab/cdef0123...
type DirBackend struct {
	root string
}

// NewDirBackend creates a DirBackend rooted at the given directory.
// Shard directories are created lazily on first write.
func NewDirBackend(root string) *DirBackend {
	return &DirBackend{root: root}
}

func (b *DirBackend) keyPath(key string) string {
	return filepath.Join(b.root, key[:2], key[2:])
}

// Put writes data atomically via a temp file and rename.
func (b *DirBackend) Put(key string, data []byte) error {
	if len(key) < 3 {
		return fmt.Errorf("backend put: key %q too short", key)
	}
	dir := filepath.Join(b.root, key[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backend put mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("backend put tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("backend put write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("backend put close: %w", err)
	}
	if err := os.Rename(tmpName, b.keyPath(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("backend put rename: %w", err)
	}
	return nil
}

func (b *DirBackend) Get(key string) ([]byte, error) {
	if len(key) < 3 {
		return nil, fmt.Errorf("backend get: key %q too short: %w", key, ErrNotFound)
	}
	data, err := os.ReadFile(b.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backend get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("backend get %s: %w", key, err)
	}
	return data, nil
}

func (b *DirBackend) Has(key string) bool {
	if len(key) < 3 {
		return false
	}
	_, err := os.Stat(b.keyPath(key))
	return err == nil
}

func (b *DirBackend) ForEach(fn func(key string) error) error {
	shards, err := os.ReadDir(b.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("backend enumerate: %w", err)
	}
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(b.root, shard.Name()))
		if err != nil {
			return fmt.Errorf("backend enumerate %s: %w", shard.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || f.Name()[0] == '.' {
				continue
			}
			if err := fn(shard.Name() + f.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory backend
// ---------------------------------------------------------------------------

// MemoryBackend keeps objects in a map. It is safe for concurrent use
// and intended for tests and ephemeral repositories.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (b *MemoryBackend) Put(key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	b.mu.Lock()
	b.objects[key] = cp
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Get(key string) ([]byte, error) {
	b.mu.RLock()
	data, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend get %s: %w", key, ErrNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (b *MemoryBackend) Has(key string) bool {
	b.mu.RLock()
	_, ok := b.objects[key]
	b.mu.RUnlock()
	return ok
}

func (b *MemoryBackend) ForEach(fn func(key string) error) error {
	b.mu.RLock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}
