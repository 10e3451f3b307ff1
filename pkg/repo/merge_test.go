package repo

import (
	"strings"
	"testing"

	"github.com/gritvcs/grit/pkg/object"
)

func mustBlob(t *testing.T, r *Repo, content string) object.Hash {
	t.Helper()
	h, err := r.Store.PutBlob(&object.Blob{Data: []byte(content)})
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	return h
}

func mustTree(t *testing.T, r *Repo, entries ...object.TreeEntry) object.Hash {
	t.Helper()
	h, err := r.Store.PutTree(&object.Tree{Entries: entries})
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}
	return h
}

func file(name string, target object.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: object.ModeFile, Target: target}
}

func dir(name string, target object.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: object.ModeDir, Target: target}
}

func TestMergeTreesOneSideChanged(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, file("a.txt", mustBlob(t, r, "1\n")))
	ours := mustTree(t, r, file("a.txt", mustBlob(t, r, "2\n")))

	result, err := r.MergeTrees(base, ours, base)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("unexpected conflicts: %v", result.Conflicts)
	}
	if result.Tree != ours {
		t.Errorf("merged tree = %s, want ours %s", result.Tree, ours)
	}

	// Symmetric: the change may come from either side.
	result, err = r.MergeTrees(base, base, ours)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if result.Tree != ours || len(result.Conflicts) != 0 {
		t.Errorf("merged tree = %s (%d conflicts), want theirs %s", result.Tree, len(result.Conflicts), ours)
	}
}

func TestMergeTreesIdenticalChanges(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, file("a.txt", mustBlob(t, r, "old\n")))
	changed := mustTree(t, r, file("a.txt", mustBlob(t, r, "new\n")))

	result, err := r.MergeTrees(base, changed, changed)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("identical changes conflicted: %v", result.Conflicts)
	}
	if result.Tree != changed {
		t.Errorf("merged tree = %s, want %s", result.Tree, changed)
	}
}

func TestMergeTreesContentConflict(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, file("a.txt", mustBlob(t, r, "line\n")))
	ours := mustTree(t, r, file("a.txt", mustBlob(t, r, "ours\n")))
	theirs := mustTree(t, r, file("a.txt", mustBlob(t, r, "theirs\n")))

	result, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want exactly one", result.Conflicts)
	}
	c := result.Conflicts[0]
	if c.Kind != ConflictContent || c.Path != "a.txt" {
		t.Errorf("conflict = %+v, want content conflict at a.txt", c)
	}

	// Even a conflicted merge writes a decodable tree; the blob carries
	// markers with both sides.
	tree, err := r.Store.GetTree(result.Tree)
	if err != nil {
		t.Fatalf("merged tree does not decode: %v", err)
	}
	if len(tree.Entries) != 1 {
		t.Fatalf("merged tree entries = %+v", tree.Entries)
	}
	blob, err := r.Store.GetBlob(tree.Entries[0].Target)
	if err != nil {
		t.Fatalf("merged blob does not decode: %v", err)
	}
	merged := string(blob.Data)
	for _, want := range []string{"<<<<<<< ours", "=======", ">>>>>>> theirs", "ours\n", "theirs\n"} {
		if !strings.Contains(merged, want) {
			t.Errorf("merged blob missing %q:\n%s", want, merged)
		}
	}
}

func TestMergeTreesAddAdd(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r)
	ours := mustTree(t, r, file("new.txt", mustBlob(t, r, "from ours\n")))
	theirs := mustTree(t, r, file("new.txt", mustBlob(t, r, "from theirs\n")))

	result, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Kind != ConflictAddAdd {
		t.Errorf("conflicts = %v, want one add-add", result.Conflicts)
	}
	if result.Conflicts[0].Base != "" {
		t.Errorf("add-add conflict has base %s, want empty", result.Conflicts[0].Base)
	}
}

func TestMergeTreesAddAddIdentical(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r)
	added := mustTree(t, r, file("new.txt", mustBlob(t, r, "same\n")))

	result, err := r.MergeTrees(base, added, added)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("identical additions conflicted: %v", result.Conflicts)
	}
	if result.Tree != added {
		t.Errorf("merged tree = %s, want %s", result.Tree, added)
	}
}

func TestMergeTreesDeleteModify(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, file("f", mustBlob(t, r, "1\n")))
	deleted := mustTree(t, r)
	modifiedBlob := mustBlob(t, r, "2\n")
	modified := mustTree(t, r, file("f", modifiedBlob))

	result, err := r.MergeTrees(base, deleted, modified)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Kind != ConflictDeleteModify {
		t.Fatalf("conflicts = %v, want one delete-modify", result.Conflicts)
	}

	// The modified side survives; nothing is dropped silently.
	tree, err := r.Store.GetTree(result.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Entries) != 1 || tree.Entries[0].Target != modifiedBlob {
		t.Errorf("merged tree = %+v, want the modified blob kept", tree.Entries)
	}
}

func TestMergeTreesBothDelete(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, file("f", mustBlob(t, r, "1\n")))
	deleted := mustTree(t, r)

	result, err := r.MergeTrees(base, deleted, deleted)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("agreed deletion conflicted: %v", result.Conflicts)
	}
	tree, err := r.Store.GetTree(result.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Entries) != 0 {
		t.Errorf("deleted entry resurfaced: %+v", tree.Entries)
	}
}

func TestMergeTreesSubtreeRecursion(t *testing.T) {
	r := newTestRepo(t)
	fOld := mustBlob(t, r, "f v1\n")
	fNew := mustBlob(t, r, "f v2\n")
	g := mustBlob(t, r, "g\n")

	base := mustTree(t, r, dir("sub", mustTree(t, r, file("f", fOld))))
	ours := mustTree(t, r, dir("sub", mustTree(t, r, file("f", fNew))))
	theirs := mustTree(t, r, dir("sub", mustTree(t, r, file("f", fOld), file("g", g))))

	result, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("disjoint subtree edits conflicted: %v", result.Conflicts)
	}

	root, err := r.Store.GetTree(result.Tree)
	if err != nil {
		t.Fatalf("GetTree root: %v", err)
	}
	if len(root.Entries) != 1 || !root.Entries[0].IsDir() {
		t.Fatalf("merged root = %+v", root.Entries)
	}
	sub, err := r.Store.GetTree(root.Entries[0].Target)
	if err != nil {
		t.Fatalf("GetTree sub: %v", err)
	}
	got := map[string]object.Hash{}
	for _, e := range sub.Entries {
		got[e.Name] = e.Target
	}
	if got["f"] != fNew || got["g"] != g {
		t.Errorf("merged subtree = %v, want f=%s g=%s", got, fNew, g)
	}
}

func TestMergeTreesSubtreeConflictPath(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, dir("sub", mustTree(t, r, file("f", mustBlob(t, r, "1\n")))))
	ours := mustTree(t, r, dir("sub", mustTree(t, r, file("f", mustBlob(t, r, "2\n")))))
	theirs := mustTree(t, r, dir("sub", mustTree(t, r, file("f", mustBlob(t, r, "3\n")))))

	result, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Path != "sub/f" {
		t.Errorf("conflicts = %v, want one at sub/f", result.Conflicts)
	}
}

func TestMergeTreesTypeMismatch(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r, file("x", mustBlob(t, r, "1\n")))
	oursSub := mustTree(t, r, file("inner", mustBlob(t, r, "i\n")))
	ours := mustTree(t, r, dir("x", oursSub))
	theirs := mustTree(t, r, file("x", mustBlob(t, r, "2\n")))

	result, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Kind != ConflictTypeMismatch {
		t.Fatalf("conflicts = %v, want one type-mismatch", result.Conflicts)
	}
	if result.Tree != ours {
		t.Errorf("merged tree = %s, want ours %s kept", result.Tree, ours)
	}
}

func TestMergeTreesModeConflict(t *testing.T) {
	r := newTestRepo(t)
	blobH := mustBlob(t, r, "same content\n")
	base := mustTree(t, r, object.TreeEntry{Name: "f", Mode: object.ModeFile, Target: blobH})
	ours := mustTree(t, r, object.TreeEntry{Name: "f", Mode: object.ModeExecutable, Target: blobH})
	theirs := mustTree(t, r, object.TreeEntry{Name: "f", Mode: object.ModeSymlink, Target: blobH})

	result, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Kind != ConflictMode {
		t.Fatalf("conflicts = %v, want one mode conflict", result.Conflicts)
	}

	tree, err := r.Store.GetTree(result.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if tree.Entries[0].Mode != object.ModeExecutable {
		t.Errorf("merged mode = %s, want the lexically smaller %s", tree.Entries[0].Mode, object.ModeExecutable)
	}

	// The pick must not depend on argument order.
	swapped, err := r.MergeTrees(base, theirs, ours)
	if err != nil {
		t.Fatalf("MergeTrees swapped: %v", err)
	}
	if swapped.Tree != result.Tree {
		t.Errorf("mode resolution depends on direction: %s vs %s", result.Tree, swapped.Tree)
	}
}

func TestMergeTreesModeChangeOneSide(t *testing.T) {
	r := newTestRepo(t)
	blobH := mustBlob(t, r, "script\n")
	base := mustTree(t, r, object.TreeEntry{Name: "run", Mode: object.ModeFile, Target: blobH})
	ours := mustTree(t, r, object.TreeEntry{Name: "run", Mode: object.ModeExecutable, Target: blobH})

	result, err := r.MergeTrees(base, ours, base)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("one-sided mode change conflicted: %v", result.Conflicts)
	}
	if result.Tree != ours {
		t.Errorf("merged tree = %s, want %s", result.Tree, ours)
	}
}

func TestMergeTreesCommutativeWhenClean(t *testing.T) {
	r := newTestRepo(t)
	base := mustTree(t, r,
		file("a", mustBlob(t, r, "a v1\n")),
		file("b", mustBlob(t, r, "b v1\n")),
	)
	ours := mustTree(t, r,
		file("a", mustBlob(t, r, "a v2\n")),
		file("b", mustBlob(t, r, "b v1\n")),
	)
	theirs := mustTree(t, r,
		file("a", mustBlob(t, r, "a v1\n")),
		file("b", mustBlob(t, r, "b v2\n")),
		file("c", mustBlob(t, r, "c new\n")),
	)

	forward, err := r.MergeTrees(base, ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	backward, err := r.MergeTrees(base, theirs, ours)
	if err != nil {
		t.Fatalf("MergeTrees swapped: %v", err)
	}
	if len(forward.Conflicts) != 0 || len(backward.Conflicts) != 0 {
		t.Fatalf("clean merge conflicted: %v / %v", forward.Conflicts, backward.Conflicts)
	}
	if forward.Tree != backward.Tree {
		t.Errorf("clean merge not commutative: %s vs %s", forward.Tree, backward.Tree)
	}
}

func TestMergeTreesEmptyBase(t *testing.T) {
	r := newTestRepo(t)
	ours := mustTree(t, r, file("a", mustBlob(t, r, "a\n")))
	theirs := mustTree(t, r, file("b", mustBlob(t, r, "b\n")))

	// No base at all: two unrelated snapshots union cleanly when their
	// names are disjoint.
	result, err := r.MergeTrees("", ours, theirs)
	if err != nil {
		t.Fatalf("MergeTrees: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("disjoint union conflicted: %v", result.Conflicts)
	}
	tree, err := r.Store.GetTree(result.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Entries) != 2 {
		t.Errorf("merged tree = %+v, want both entries", tree.Entries)
	}
}
