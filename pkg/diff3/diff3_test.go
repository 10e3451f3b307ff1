package diff3

import (
	"strings"
	"testing"
)

func TestMergeNoChanges(t *testing.T) {
	base := []byte("a\nb\nc\n")
	res := Merge(base, base, base)
	if res.HasConflicts {
		t.Fatalf("identical inputs conflicted: %q", res.Merged)
	}
	if string(res.Merged) != string(base) {
		t.Errorf("Merged = %q, want %q", res.Merged, base)
	}
}

func TestMergeOneSideChanged(t *testing.T) {
	base := []byte("a\nb\nc\n")
	ours := []byte("a\nB\nc\n")

	res := Merge(base, ours, base)
	if res.HasConflicts {
		t.Fatalf("one-sided change conflicted: %q", res.Merged)
	}
	if string(res.Merged) != string(ours) {
		t.Errorf("Merged = %q, want %q", res.Merged, ours)
	}

	res = Merge(base, base, ours)
	if res.HasConflicts || string(res.Merged) != string(ours) {
		t.Errorf("theirs-side change: Merged = %q (conflicts=%v), want %q", res.Merged, res.HasConflicts, ours)
	}
}

func TestMergeDisjointRegions(t *testing.T) {
	base := []byte("one\ntwo\nthree\nfour\nfive\n")
	ours := []byte("ONE\ntwo\nthree\nfour\nfive\n")
	theirs := []byte("one\ntwo\nthree\nfour\nFIVE\n")

	res := Merge(base, ours, theirs)
	if res.HasConflicts {
		t.Fatalf("disjoint edits conflicted: %q", res.Merged)
	}
	want := "ONE\ntwo\nthree\nfour\nFIVE\n"
	if string(res.Merged) != want {
		t.Errorf("Merged = %q, want %q", res.Merged, want)
	}
}

func TestMergeIdenticalChanges(t *testing.T) {
	base := []byte("old\nkeep\n")
	both := []byte("new\nkeep\n")

	res := Merge(base, both, both)
	if res.HasConflicts {
		t.Fatalf("identical changes conflicted: %q", res.Merged)
	}
	if string(res.Merged) != string(both) {
		t.Errorf("Merged = %q, want %q", res.Merged, both)
	}
}

func TestMergeConflict(t *testing.T) {
	base := []byte("shared\ntarget\nshared2\n")
	ours := []byte("shared\nours version\nshared2\n")
	theirs := []byte("shared\ntheirs version\nshared2\n")

	res := Merge(base, ours, theirs)
	if !res.HasConflicts || res.Conflicts != 1 {
		t.Fatalf("HasConflicts=%v Conflicts=%d, want one conflict", res.HasConflicts, res.Conflicts)
	}

	merged := string(res.Merged)
	for _, want := range []string{
		"shared\n<<<<<<< ours\nours version\n=======\ntheirs version\n>>>>>>> theirs\nshared2\n",
	} {
		if merged != want {
			t.Errorf("Merged = %q, want %q", merged, want)
		}
	}
}

func TestMergeAppendAtEnd(t *testing.T) {
	base := []byte("a\n")
	ours := []byte("a\nappended\n")

	res := Merge(base, ours, base)
	if res.HasConflicts || string(res.Merged) != string(ours) {
		t.Errorf("append: Merged = %q (conflicts=%v), want %q", res.Merged, res.HasConflicts, ours)
	}
}

func TestMergeEmptyBase(t *testing.T) {
	same := []byte("added\n")
	res := Merge(nil, same, same)
	if res.HasConflicts || string(res.Merged) != "added\n" {
		t.Errorf("identical additions: Merged = %q (conflicts=%v)", res.Merged, res.HasConflicts)
	}

	res = Merge(nil, []byte("mine\n"), []byte("yours\n"))
	if !res.HasConflicts {
		t.Fatalf("diverging additions did not conflict: %q", res.Merged)
	}
	merged := string(res.Merged)
	if !strings.Contains(merged, "mine\n") || !strings.Contains(merged, "yours\n") {
		t.Errorf("conflict output lost a side: %q", merged)
	}
}

func TestMergeDeleteVersusKeep(t *testing.T) {
	base := []byte("first\nsecond\nthird\n")
	ours := []byte("first\nthird\n") // deleted "second"

	res := Merge(base, ours, base)
	if res.HasConflicts || string(res.Merged) != string(ours) {
		t.Errorf("clean delete: Merged = %q (conflicts=%v), want %q", res.Merged, res.HasConflicts, ours)
	}
}

func TestMergeMultipleConflicts(t *testing.T) {
	base := []byte("a\nx\nb\ny\nc\n")
	ours := []byte("a\nx1\nb\ny1\nc\n")
	theirs := []byte("a\nx2\nb\ny2\nc\n")

	res := Merge(base, ours, theirs)
	if res.Conflicts != 2 {
		t.Errorf("Conflicts = %d, want 2:\n%s", res.Conflicts, res.Merged)
	}
}

func TestMergeBothEmpty(t *testing.T) {
	res := Merge([]byte("gone\n"), nil, nil)
	if res.HasConflicts || len(res.Merged) != 0 {
		t.Errorf("agreed deletion of everything: Merged = %q (conflicts=%v)", res.Merged, res.HasConflicts)
	}
}
