package repo

import (
	"fmt"
	"path"
	"sort"

	"github.com/gritvcs/grit/pkg/object"
)

// ConflictKind classifies a merge conflict.
type ConflictKind string

const (
	// ConflictContent: both sides changed the same blob differently and
	// the text merge could not reconcile them.
	ConflictContent ConflictKind = "content"
	// ConflictDeleteModify: one side deleted an entry the other modified.
	ConflictDeleteModify ConflictKind = "delete-modify"
	// ConflictAddAdd: both sides independently added the same name with
	// different content.
	ConflictAddAdd ConflictKind = "add-add"
	// ConflictTypeMismatch: the entry is a subtree on one side and a
	// blob on the other.
	ConflictTypeMismatch ConflictKind = "type-mismatch"
	// ConflictMode: both sides changed the entry mode differently.
	ConflictMode ConflictKind = "mode"
)

// Conflict records one unresolved path in a tree merge. The hashes are
// the entry targets in the base, ours and theirs trees; an empty hash
// means the entry was absent on that side.
type Conflict struct {
	Path   string
	Kind   ConflictKind
	Base   object.Hash
	Ours   object.Hash
	Theirs object.Hash
}

// MergeResult is the outcome of a three-way tree merge. The merged tree
// is always written to the store and always decodes back into a valid
// Tree: conflicting blob entries carry diff3 conflict markers, so the
// result is a best-effort combination even when Conflicts is non-empty.
type MergeResult struct {
	Tree      object.Hash
	Conflicts []Conflict
}

// MergeTrees performs a recursive three-way merge of tree snapshots.
// Entries are compared by name against the common base: a change on one
// side wins, identical changes collapse, diverging subtrees recurse, and
// diverging blobs go through the text merger. In the absence of
// conflicts the merge is commutative: swapping ours and theirs yields
// the same tree hash.
func (r *Repo) MergeTrees(base, ours, theirs object.Hash) (*MergeResult, error) {
	entries, conflicts, err := r.mergeLevel("", base, ours, theirs)
	if err != nil {
		return nil, err
	}
	treeHash, err := r.Store.PutTree(&object.Tree{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("merge: write tree: %w", err)
	}
	return &MergeResult{Tree: treeHash, Conflicts: conflicts}, nil
}

// mergeLevel merges one directory level. prefix is the slash-joined path
// of this level for conflict reporting.
func (r *Repo) mergeLevel(prefix string, baseH, oursH, theirsH object.Hash) ([]object.TreeEntry, []Conflict, error) {
	baseTree, err := r.loadTreeOrEmpty(baseH)
	if err != nil {
		return nil, nil, err
	}
	oursTree, err := r.loadTreeOrEmpty(oursH)
	if err != nil {
		return nil, nil, err
	}
	theirsTree, err := r.loadTreeOrEmpty(theirsH)
	if err != nil {
		return nil, nil, err
	}

	baseIdx := indexEntries(baseTree)
	oursIdx := indexEntries(oursTree)
	theirsIdx := indexEntries(theirsTree)

	var entries []object.TreeEntry
	var conflicts []Conflict
	for _, name := range collectNames(baseIdx, oursIdx, theirsIdx) {
		b := baseIdx[name]
		o := oursIdx[name]
		t := theirsIdx[name]
		entryPath := path.Join(prefix, name)

		switch {
		case entriesEqual(o, t):
			// Unchanged, changed identically, added identically on both
			// sides, or deleted on both sides.
			if o != nil {
				entries = append(entries, *o)
			}

		case entriesEqual(o, b):
			// Only theirs changed; absent means a clean delete.
			if t != nil {
				entries = append(entries, *t)
			}

		case entriesEqual(t, b):
			// Only ours changed.
			if o != nil {
				entries = append(entries, *o)
			}

		case o == nil || t == nil:
			// Deleted on one side, modified on the other. Keep the
			// modified side so no data is lost silently.
			conflicts = append(conflicts, Conflict{
				Path: entryPath,
				Kind: ConflictDeleteModify,
				Base: targetOf(b), Ours: targetOf(o), Theirs: targetOf(t),
			})
			if o != nil {
				entries = append(entries, *o)
			} else {
				entries = append(entries, *t)
			}

		case o.IsDir() && t.IsDir():
			// Both sides changed a subtree: recurse.
			baseSub := object.Hash("")
			if b != nil && b.IsDir() {
				baseSub = b.Target
			}
			subEntries, subConflicts, err := r.mergeLevel(entryPath, baseSub, o.Target, t.Target)
			if err != nil {
				return nil, nil, err
			}
			conflicts = append(conflicts, subConflicts...)
			if len(subEntries) > 0 {
				subHash, err := r.Store.PutTree(&object.Tree{Entries: subEntries})
				if err != nil {
					return nil, nil, fmt.Errorf("merge: write subtree %q: %w", entryPath, err)
				}
				entries = append(entries, object.TreeEntry{Name: name, Mode: object.ModeDir, Target: subHash})
			}

		case o.IsDir() != t.IsDir():
			// Subtree on one side, blob on the other. Keep ours.
			conflicts = append(conflicts, Conflict{
				Path: entryPath,
				Kind: ConflictTypeMismatch,
				Base: targetOf(b), Ours: o.Target, Theirs: t.Target,
			})
			entries = append(entries, *o)

		default:
			// Both sides changed the same blob differently.
			entry, cs, err := r.mergeBlobEntry(entryPath, name, b, o, t)
			if err != nil {
				return nil, nil, err
			}
			conflicts = append(conflicts, cs...)
			entries = append(entries, entry)
		}
	}

	return entries, conflicts, nil
}

// mergeBlobEntry merges a blob changed on both sides through the text
// merger and stores the result (with conflict markers when the merge
// could not reconcile).
func (r *Repo) mergeBlobEntry(entryPath, name string, b, o, t *object.TreeEntry) (object.TreeEntry, []Conflict, error) {
	var baseData []byte
	if b != nil && !b.IsDir() {
		blob, err := r.Store.GetBlob(b.Target)
		if err != nil {
			return object.TreeEntry{}, nil, fmt.Errorf("merge: read base %q: %w", entryPath, err)
		}
		baseData = blob.Data
	}
	oursBlob, err := r.Store.GetBlob(o.Target)
	if err != nil {
		return object.TreeEntry{}, nil, fmt.Errorf("merge: read ours %q: %w", entryPath, err)
	}
	theirsBlob, err := r.Store.GetBlob(t.Target)
	if err != nil {
		return object.TreeEntry{}, nil, fmt.Errorf("merge: read theirs %q: %w", entryPath, err)
	}

	merged, hadConflict := r.TextMerge(baseData, oursBlob.Data, theirsBlob.Data)
	target, err := r.Store.PutBlob(&object.Blob{Data: merged})
	if err != nil {
		return object.TreeEntry{}, nil, fmt.Errorf("merge: write merged %q: %w", entryPath, err)
	}

	var conflicts []Conflict
	if hadConflict {
		kind := ConflictContent
		if b == nil {
			kind = ConflictAddAdd
		}
		conflicts = append(conflicts, Conflict{
			Path: entryPath,
			Kind: kind,
			Base: targetOf(b), Ours: o.Target, Theirs: t.Target,
		})
	}

	mode, modeConflict := mergeMode(b, o, t)
	if modeConflict {
		conflicts = append(conflicts, Conflict{
			Path: entryPath,
			Kind: ConflictMode,
			Base: targetOf(b), Ours: o.Target, Theirs: t.Target,
		})
	}

	return object.TreeEntry{Name: name, Mode: mode, Target: target}, conflicts, nil
}

// mergeMode picks the merged entry mode. A mode changed on one side
// wins; modes changed differently on both sides conflict, and the
// lexically smaller mode is kept so the pick does not depend on merge
// direction.
func mergeMode(b, o, t *object.TreeEntry) (string, bool) {
	if o.Mode == t.Mode {
		return o.Mode, false
	}
	if b != nil {
		if o.Mode == b.Mode {
			return t.Mode, false
		}
		if t.Mode == b.Mode {
			return o.Mode, false
		}
	}
	if o.Mode < t.Mode {
		return o.Mode, true
	}
	return t.Mode, true
}

func (r *Repo) loadTreeOrEmpty(h object.Hash) (*object.Tree, error) {
	if h == "" {
		return &object.Tree{}, nil
	}
	tree, err := r.Store.GetTree(h)
	if err != nil {
		return nil, fmt.Errorf("merge: read tree %s: %w", h, err)
	}
	return tree, nil
}

func indexEntries(tr *object.Tree) map[string]*object.TreeEntry {
	idx := make(map[string]*object.TreeEntry, len(tr.Entries))
	for i := range tr.Entries {
		idx[tr.Entries[i].Name] = &tr.Entries[i]
	}
	return idx
}

func collectNames(maps ...map[string]*object.TreeEntry) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for name := range m {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func entriesEqual(x, y *object.TreeEntry) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	return x.Mode == y.Mode && x.Target == y.Target
}

func targetOf(e *object.TreeEntry) object.Hash {
	if e == nil {
		return ""
	}
	return e.Target
}
