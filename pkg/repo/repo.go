// Package repo implements repository-level operations over the
// content-addressed object store: the mutable reference table, commit
// graph traversal, merge-base resolution and three-way tree merging.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gritvcs/grit/pkg/diff3"
	"github.com/gritvcs/grit/pkg/object"
)

// TextMerger merges divergent blob content against a common base,
// returning merged bytes (with conflict markers when conflict is true).
// The merge engine treats text merging as a pluggable collaborator;
// pkg/diff3 provides the default.
type TextMerger func(base, ours, theirs []byte) (merged []byte, conflict bool)

// Repo is an opened grit repository.
type Repo struct {
	RootDir string        // working directory root
	GritDir string        // .grit/ directory
	Store   *object.Store // content-addressed object store
	Config  Config

	// TextMerge merges conflicting blob contents. Defaults to the
	// line-level diff3 engine.
	TextMerge TextMerger
}

const defaultBranchRef = "refs/heads/main"

// Init creates a new grit repository at path with the given
// configuration. It lays out the .grit/ directory (config, HEAD,
// objects/, refs/, logs/) and fails if one already exists.
func Init(path string, cfg Config) (*Repo, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	gritDir := filepath.Join(path, ".grit")
	if _, err := os.Stat(gritDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", gritDir)
	}

	dirs := []string{
		filepath.Join(gritDir, "objects"),
		filepath.Join(gritDir, "refs", "heads"),
		filepath.Join(gritDir, "refs", "tags"),
		filepath.Join(gritDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	if err := writeConfig(filepath.Join(gritDir, "config"), cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	headPath := filepath.Join(gritDir, "HEAD")
	if err := os.WriteFile(headPath, []byte(symrefPrefix+defaultBranchRef+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return open(path, gritDir, cfg)
}

// Open searches upward from path for a .grit/ directory and opens the
// repository found there.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		gritDir := filepath.Join(cur, ".grit")
		info, err := os.Stat(gritDir)
		if err == nil && info.IsDir() {
			cfg, err := readConfig(filepath.Join(gritDir, "config"))
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return open(cur, gritDir, cfg)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a grit repository (or any parent up to /)")
		}
		cur = parent
	}
}

func open(rootDir, gritDir string, cfg Config) (*Repo, error) {
	alg, err := cfg.digest()
	if err != nil {
		return nil, err
	}
	compression, err := cfg.compression()
	if err != nil {
		return nil, err
	}

	backend := object.NewDirBackend(filepath.Join(gritDir, "objects"))
	return &Repo{
		RootDir:   rootDir,
		GritDir:   gritDir,
		Store:     object.NewStore(backend, alg, compression),
		Config:    cfg,
		TextMerge: diff3Merge,
	}, nil
}

func diff3Merge(base, ours, theirs []byte) ([]byte, bool) {
	res := diff3.Merge(base, ours, theirs)
	return res.Merged, res.HasConflicts
}

// CommitObject writes a commit for the given tree, parents and metadata
// and returns its hash. The timestamp is caller-supplied so commit
// hashing stays deterministic.
func (r *Repo) CommitObject(tree object.Hash, parents []object.Hash, author string, timestamp int64, message string) (object.Hash, error) {
	if !r.Store.Contains(tree) {
		return "", fmt.Errorf("commit: tree %s: %w", tree, object.ErrNotFound)
	}
	for _, p := range parents {
		if !r.Store.Contains(p) {
			return "", fmt.Errorf("commit: parent %s: %w", p, object.ErrNotFound)
		}
	}
	return r.Store.PutCommit(&object.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    author,
		Timestamp: timestamp,
		Message:   message,
	})
}

// Unreachable lists objects not reachable from any reference, sorted
// ascending. Deleting them is left to external tooling.
func (r *Repo) Unreachable() ([]object.Hash, error) {
	roots, err := r.refRoots()
	if err != nil {
		return nil, err
	}
	return r.Store.Unreachable(roots)
}

// refRoots resolves every listed ref (plus HEAD) to its hash, skipping
// refs that do not resolve to a stored object yet.
func (r *Repo) refRoots() ([]object.Hash, error) {
	names, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	names = append(names, "HEAD")

	seen := make(map[object.Hash]struct{})
	var roots []object.Hash
	for _, name := range names {
		h, err := r.ResolveRef(name)
		if err != nil {
			continue
		}
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		roots = append(roots, h)
	}
	return roots, nil
}

// Verify scans the object graph from all reference roots.
func (r *Repo) Verify() (*object.Report, error) {
	roots, err := r.refRoots()
	if err != nil {
		return nil, err
	}
	return r.Store.Verify(roots), nil
}
