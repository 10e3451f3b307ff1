package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gritvcs/grit/pkg/object"
)

// Reference table errors. The table is the only mutable state in the
// core; everything else is append-only content-addressed storage.
var (
	ErrRefNotFound    = errors.New("ref not found")
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")
	ErrCyclicRef      = errors.New("symbolic ref cycle")
	// ErrReflogAppend indicates the ref update itself committed but the
	// reflog entry could not be written.
	ErrReflogAppend = errors.New("ref updated but reflog append failed")
)

const symrefPrefix = "ref: "

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// normalizeRefName maps shorthand branch names to their full ref path.
// "HEAD" and anything under "refs/" pass through unchanged.
func normalizeRefName(name string) string {
	if name == "HEAD" || strings.HasPrefix(name, "refs/") {
		return name
	}
	return "refs/heads/" + name
}

func (r *Repo) refPath(name string) string {
	return filepath.Join(r.GritDir, filepath.FromSlash(normalizeRefName(name)))
}

// readRef reads one ref file without following indirection. Exactly one
// of hash and symTarget is non-empty for an existing ref.
func (r *Repo) readRef(name string) (hash object.Hash, symTarget string, err error) {
	data, err := os.ReadFile(r.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("ref %q: %w", name, ErrRefNotFound)
		}
		return "", "", fmt.Errorf("ref %q: %w", name, err)
	}
	content := strings.TrimSpace(string(data))
	if target, ok := strings.CutPrefix(content, symrefPrefix); ok {
		return "", strings.TrimSpace(target), nil
	}
	return object.Hash(content), "", nil
}

// ResolveRef follows symbolic indirection from name to a final hash.
// A cycle among symbolic refs fails with ErrCyclicRef; this is checked
// here defensively even though SetSymbolicRef rejects cycles at set time,
// because ref files are plain files anyone can edit.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	seen := make(map[string]struct{})
	cur := name
	for {
		key := normalizeRefName(cur)
		if _, ok := seen[key]; ok {
			return "", fmt.Errorf("resolve ref %q: %w", name, ErrCyclicRef)
		}
		seen[key] = struct{}{}

		hash, target, err := r.readRef(cur)
		if err != nil {
			return "", err
		}
		if target == "" {
			return hash, nil
		}
		cur = target
	}
}

// UpdateRef points name at a hash, creating the ref if needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS atomically points name at a hash using lockfile + rename
// semantics. The target must be a commit already present in the object
// store. When expectedOld is given, the update only succeeds if the
// ref currently holds that hash (empty meaning "does not exist"),
// failing with ErrRefCASMismatch otherwise so the caller can re-read and
// retry.
//
// The reflog entry is appended after the ref rename; if the append
// fails, the ref update stays committed and the error wraps
// ErrReflogAppend.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}

	// A direct ref must point at a stored commit, never a dangling hash
	// or some other object kind.
	kind, _, err := r.Store.Get(h)
	if err != nil {
		return fmt.Errorf("update ref %q: target %s: %w", name, h, err)
	}
	if kind != object.KindCommit {
		return fmt.Errorf("update ref %q: target %s is a %s, not a commit", name, h, kind)
	}

	refPath := r.refPath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	committed := false
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if !committed {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := currentRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if len(expectedOld) == 1 && oldHash != expectedOld[0] {
		return fmt.Errorf("update ref %q: %w (expected %q, found %q)",
			name, ErrRefCASMismatch, expectedOld[0], oldHash)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	committed = true

	if err := r.appendReflog(name, oldHash, h, "update"); err != nil {
		return fmt.Errorf("update ref %q: %w: %v", name, ErrReflogAppend, err)
	}
	return nil
}

// SetSymbolicRef points name at another ref rather than a hash. It
// rejects indirections that would make the name reachable from its own
// target, failing with ErrCyclicRef.
func (r *Repo) SetSymbolicRef(name, target string) error {
	self := normalizeRefName(name)
	seen := make(map[string]struct{})
	cur := target
	for {
		key := normalizeRefName(cur)
		if key == self {
			return fmt.Errorf("set symbolic ref %q -> %q: %w", name, target, ErrCyclicRef)
		}
		if _, ok := seen[key]; ok {
			// Existing cycle not involving name; refuse to extend it.
			return fmt.Errorf("set symbolic ref %q -> %q: %w", name, target, ErrCyclicRef)
		}
		seen[key] = struct{}{}

		_, next, err := r.readRef(cur)
		if err != nil {
			if errors.Is(err, ErrRefNotFound) {
				break // dangling target is allowed, like an unborn branch
			}
			return fmt.Errorf("set symbolic ref %q: %w", name, err)
		}
		if next == "" {
			break
		}
		cur = next
	}

	refPath := r.refPath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("set symbolic ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("set symbolic ref %q: lock: %w", name, err)
	}
	committed := false
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if !committed {
			_ = os.Remove(lockPath)
		}
	}()

	if _, err := lockFile.WriteString(symrefPrefix + normalizeRefName(target) + "\n"); err != nil {
		return fmt.Errorf("set symbolic ref %q: write: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("set symbolic ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("set symbolic ref %q: rename: %w", name, err)
	}
	committed = true
	return nil
}

// DeleteRef removes a ref. Deleting a missing ref fails with
// ErrRefNotFound.
func (r *Repo) DeleteRef(name string) error {
	err := os.Remove(r.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete ref %q: %w", name, ErrRefNotFound)
		}
		return fmt.Errorf("delete ref %q: %w", name, err)
	}
	return nil
}

// ListRefs lists reference names under .grit/refs, sorted ascending.
// Names are full ref paths, e.g. "refs/heads/main". A non-empty prefix
// restricts the listing, e.g. "refs/tags".
func (r *Repo) ListRefs(prefix string) ([]string, error) {
	root := filepath.Join(r.GritDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(prefix, "refs/")))
	}

	var names []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}
		rel, err := filepath.Rel(r.GritDir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// currentRefHash reads the hash a ref file currently holds. A missing
// file reads as the empty hash; a symbolic ref is an error because CAS
// updates only apply to direct refs.
func currentRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, symrefPrefix) {
		return "", fmt.Errorf("ref is symbolic; update its target instead")
	}
	return object.Hash(content), nil
}

// ---------------------------------------------------------------------------
// Reflog
// ---------------------------------------------------------------------------

// ReflogEntry is one recorded ref movement.
type ReflogEntry struct {
	Old    object.Hash
	New    object.Hash
	Reason string
	Time   int64
}

func (r *Repo) reflogPath(name string) string {
	return filepath.Join(r.GritDir, "logs", filepath.FromSlash(normalizeRefName(name)))
}

// appendReflog records a ref movement as one line:
//
//	old new reason unix-timestamp
//
// with "-" standing in for the empty hash of a newly created ref.
func (r *Repo) appendReflog(name string, oldHash, newHash object.Hash, reason string) error {
	path := r.reflogPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s %s %s %d\n", hashOrDash(oldHash), hashOrDash(newHash), reason, time.Now().Unix())
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Reflog returns the recorded movements of a ref, oldest first. A ref
// with no log yet returns an empty slice.
func (r *Repo) Reflog(name string) ([]ReflogEntry, error) {
	data, err := os.ReadFile(r.reflogPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reflog %q: %w", name, err)
	}

	var entries []ReflogEntry
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("reflog %q: malformed entry %q", name, line)
		}
		ts, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reflog %q: bad timestamp %q: %w", name, fields[3], err)
		}
		entries = append(entries, ReflogEntry{
			Old:    dashOrHash(fields[0]),
			New:    dashOrHash(fields[1]),
			Reason: fields[2],
			Time:   ts,
		})
	}
	return entries, nil
}

func hashOrDash(h object.Hash) string {
	if h == "" {
		return "-"
	}
	return string(h)
}

func dashOrHash(s string) object.Hash {
	if s == "-" {
		return ""
	}
	return object.Hash(s)
}
