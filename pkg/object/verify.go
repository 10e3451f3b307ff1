package object

import (
	"errors"
	"fmt"
)

// FindingKind classifies an integrity finding.
type FindingKind string

const (
	// FindingCorrupt means stored bytes no longer hash back to their
	// key, or could not be read or decoded at all.
	FindingCorrupt FindingKind = "corrupt"
	// FindingMissing means a referenced object is absent from the store.
	FindingMissing FindingKind = "missing"
	// FindingWrongKind means a reference resolved to an object of a
	// different kind than the referencing object requires.
	FindingWrongKind FindingKind = "wrong-kind"
	// FindingCycle means an object is reachable from itself. Content
	// addressing makes this structurally impossible, so it only appears
	// when the store has been tampered with.
	FindingCycle FindingKind = "cycle"
)

// Finding is one integrity defect discovered by Verify.
type Finding struct {
	Kind   FindingKind
	Hash   Hash
	Detail string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s", f.Kind, f.Hash, f.Detail)
}

// Report is the outcome of an integrity scan.
type Report struct {
	Objects  int // objects visited
	Findings []Finding
}

// OK reports whether the scanned graph is fully intact.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

// Verify walks every object transitively reachable from roots,
// recomputes each object's digest from its stored envelope, and checks
// structural invariants (referenced kinds, acyclicity). Findings are
// collected rather than aborted on, so one bad object does not hide the
// rest of the damage.
func (s *Store) Verify(roots []Hash) *Report {
	v := &verifier{
		store:   s,
		report:  &Report{},
		visited: make(map[Hash]Kind),
		onStack: make(map[Hash]struct{}),
	}
	for _, root := range dedupeHashes(roots) {
		v.walk(root, "", "root")
	}
	return v.report
}

type verifier struct {
	store   *Store
	report  *Report
	visited map[Hash]Kind
	onStack map[Hash]struct{}
}

func (v *verifier) finding(kind FindingKind, h Hash, detail string) {
	v.report.Findings = append(v.report.Findings, Finding{Kind: kind, Hash: h, Detail: detail})
}

// walkFrame is one step of the scan: an object to examine, or a marker
// (leave=true) that its subtree is done and it leaves the DFS path.
type walkFrame struct {
	hash     Hash
	want     Kind
	referrer string
	leave    bool
}

// walk verifies h and everything below it. The traversal keeps an
// explicit stack, like the other store walkers, so history depth cannot
// exhaust the call stack. want is the kind required by the referencing
// object ("" for roots). referrer describes where the reference came
// from, for finding details.
func (v *verifier) walk(h Hash, want Kind, referrer string) {
	stack := []walkFrame{{hash: h, want: want, referrer: referrer}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.leave {
			delete(v.onStack, f.hash)
			continue
		}

		if _, ok := v.onStack[f.hash]; ok {
			v.finding(FindingCycle, f.hash, fmt.Sprintf("revisited while still on the walk stack (via %s)", f.referrer))
			continue
		}
		if kind, ok := v.visited[f.hash]; ok {
			if f.want != "" && kind != f.want {
				v.finding(FindingWrongKind, f.hash, fmt.Sprintf("%s expects %s, object is %s", f.referrer, f.want, kind))
			}
			continue
		}

		kind, body, err := v.store.Get(f.hash)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				v.finding(FindingMissing, f.hash, fmt.Sprintf("referenced by %s", f.referrer))
			} else {
				v.finding(FindingCorrupt, f.hash, err.Error())
			}
			// Record the miss so other paths to it do not re-report it.
			v.visited[f.hash] = ""
			continue
		}

		v.report.Objects++
		v.visited[f.hash] = kind

		if got := v.store.alg.HashObject(kind, body); got != f.hash {
			v.finding(FindingCorrupt, f.hash, fmt.Sprintf("stored envelope hashes to %s", got))
		}
		if f.want != "" && kind != f.want {
			v.finding(FindingWrongKind, f.hash, fmt.Sprintf("%s expects %s, object is %s", f.referrer, f.want, kind))
		}

		obj, err := Unmarshal(kind, body)
		if err != nil {
			v.finding(FindingCorrupt, f.hash, fmt.Sprintf("undecodable %s: %v", kind, err))
			continue
		}

		var children []walkFrame
		switch o := obj.(type) {
		case *Commit:
			children = append(children, walkFrame{hash: o.Tree, want: KindTree, referrer: fmt.Sprintf("commit %s tree", f.hash)})
			for _, p := range o.Parents {
				children = append(children, walkFrame{hash: p, want: KindCommit, referrer: fmt.Sprintf("commit %s parent", f.hash)})
			}
		case *Tree:
			for _, e := range o.Entries {
				want := KindBlob
				if e.IsDir() {
					want = KindTree
				}
				children = append(children, walkFrame{hash: e.Target, want: want, referrer: fmt.Sprintf("tree %s entry %q", f.hash, e.Name)})
			}
		}
		if len(children) == 0 {
			continue
		}

		v.onStack[f.hash] = struct{}{}
		stack = append(stack, walkFrame{hash: f.hash, leave: true})
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}
