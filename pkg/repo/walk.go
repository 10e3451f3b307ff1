package repo

import (
	"container/heap"
	"fmt"

	"github.com/gritvcs/grit/pkg/object"
)

// CorruptGraphError reports a commit-graph reference that does not
// resolve to a decodable commit. It aborts the traversal that hit it:
// the store cannot be trusted for that object.
type CorruptGraphError struct {
	Hash object.Hash
	Err  error
}

func (e *CorruptGraphError) Error() string {
	return fmt.Sprintf("corrupt commit graph at %s: %v", e.Hash, e.Err)
}

func (e *CorruptGraphError) Unwrap() error { return e.Err }

// readCommit loads a commit, classifying any failure as a corrupt graph.
func (r *Repo) readCommit(h object.Hash) (*object.Commit, error) {
	c, err := r.Store.GetCommit(h)
	if err != nil {
		return nil, &CorruptGraphError{Hash: h, Err: err}
	}
	return c, nil
}

// AncestorIter lazily walks every commit reachable from its start,
// including the start itself, emitting each commit exactly once.
// Traversal order is unspecified. Drive it like bufio.Scanner:
//
//	it := r.Ancestors(head)
//	for it.Next() {
//		_ = it.Hash()
//	}
//	if err := it.Err(); err != nil { ... }
type AncestorIter struct {
	repo   *Repo
	stack  []object.Hash
	seen   map[object.Hash]struct{}
	hash   object.Hash
	commit *object.Commit
	err    error
}

// Ancestors starts a lazy ancestry walk at the given commit.
func (r *Repo) Ancestors(start object.Hash) *AncestorIter {
	return &AncestorIter{
		repo:  r,
		stack: []object.Hash{start},
		seen:  make(map[object.Hash]struct{}),
	}
}

// Next advances to the next unvisited commit. It returns false when the
// walk is exhausted or failed; check Err afterwards.
func (it *AncestorIter) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.stack) > 0 {
		h := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if h == "" {
			continue
		}
		if _, ok := it.seen[h]; ok {
			continue
		}
		it.seen[h] = struct{}{}

		c, err := it.repo.readCommit(h)
		if err != nil {
			it.err = err
			return false
		}
		it.stack = append(it.stack, c.Parents...)
		it.hash, it.commit = h, c
		return true
	}
	return false
}

// Hash returns the hash of the commit produced by the last Next.
func (it *AncestorIter) Hash() object.Hash { return it.hash }

// Commit returns the commit produced by the last Next.
func (it *AncestorIter) Commit() *object.Commit { return it.commit }

// Err returns the first traversal error, if any.
func (it *AncestorIter) Err() error { return it.err }

// IsAncestor reports whether candidate is reachable from of by following
// parents, or equal to it. The walk stops as soon as candidate is found.
func (r *Repo) IsAncestor(candidate, of object.Hash) (bool, error) {
	it := r.Ancestors(of)
	for it.Next() {
		if it.Hash() == candidate {
			return true, nil
		}
	}
	return false, it.Err()
}

// TopologicalOrder linearizes the commits reachable from roots so that
// every commit appears before any of its parents. Among commits whose
// descendants have all been emitted, the newest timestamp goes first,
// with ascending hash as the final tie-break, so the ordering is total
// and deterministic.
func (r *Repo) TopologicalOrder(roots []object.Hash) ([]object.Hash, error) {
	// Collect the reachable subgraph.
	commits := make(map[object.Hash]*object.Commit)
	childCount := make(map[object.Hash]int)
	for _, root := range roots {
		it := r.Ancestors(root)
		for it.Next() {
			if _, ok := commits[it.Hash()]; ok {
				continue
			}
			commits[it.Hash()] = it.Commit()
		}
		if err := it.Err(); err != nil {
			return nil, err
		}
	}

	for _, c := range commits {
		for _, p := range distinctParents(c) {
			childCount[p]++
		}
	}

	// Kahn's algorithm: emit commits whose children are all emitted,
	// picking the newest first among the ready set.
	ready := &commitMaxHeap{}
	heap.Init(ready)
	for h, c := range commits {
		if childCount[h] == 0 {
			heap.Push(ready, commitQueueItem{hash: h, timestamp: c.Timestamp})
		}
	}

	order := make([]object.Hash, 0, len(commits))
	for ready.Len() > 0 {
		item := heap.Pop(ready).(commitQueueItem)
		order = append(order, item.hash)

		for _, p := range distinctParents(commits[item.hash]) {
			childCount[p]--
			if childCount[p] == 0 {
				heap.Push(ready, commitQueueItem{hash: p, timestamp: commits[p].Timestamp})
			}
		}
	}

	if len(order) != len(commits) {
		// Content addressing makes parent cycles structurally
		// impossible; hitting this means the store was tampered with.
		return nil, &CorruptGraphError{Err: fmt.Errorf("commit graph contains a cycle")}
	}
	return order, nil
}

// Log returns the commits reachable from root in display order (newest
// first, parents always after their descendants).
func (r *Repo) Log(root object.Hash) ([]object.Hash, error) {
	return r.TopologicalOrder([]object.Hash{root})
}

func distinctParents(c *object.Commit) []object.Hash {
	out := make([]object.Hash, 0, len(c.Parents))
	seen := make(map[object.Hash]struct{}, len(c.Parents))
	for _, p := range c.Parents {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
