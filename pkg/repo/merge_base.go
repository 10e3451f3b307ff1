package repo

import (
	"sort"

	"github.com/gritvcs/grit/pkg/object"
)

// MergeBases returns every lowest common ancestor of a and b: the common
// ancestors that are not themselves ancestors of another common
// ancestor. Criss-cross histories legitimately yield more than one;
// commits with no shared history yield none (an empty result is a valid
// answer here, callers decide whether it is an error). The result is
// sorted ascending by hash.
//
// Two ancestry walks build the common set, then one parent walk seeded
// from the common commits' parents discards every common ancestor that
// is dominated by another, leaving only the maximal elements. O(V+E).
func (r *Repo) MergeBases(a, b object.Hash) ([]object.Hash, error) {
	if a == "" || b == "" {
		return nil, nil
	}

	reachA, err := r.ancestorCommits(a)
	if err != nil {
		return nil, err
	}
	reachB, err := r.ancestorCommits(b)
	if err != nil {
		return nil, err
	}

	common := make(map[object.Hash]*object.Commit)
	for h, c := range reachA {
		if _, ok := reachB[h]; ok {
			common[h] = c
		}
	}
	if len(common) == 0 {
		return nil, nil
	}

	// The ancestor relation is closed under parents, so everything this
	// walk visits stays inside the common set: any common ancestor it
	// reaches is an ancestor of another common ancestor, hence not lowest.
	dominated := make(map[object.Hash]struct{})
	var stack []object.Hash
	for _, c := range common {
		stack = append(stack, distinctParents(c)...)
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := dominated[h]; ok {
			continue
		}
		dominated[h] = struct{}{}
		if c, ok := common[h]; ok {
			stack = append(stack, distinctParents(c)...)
		}
	}

	var bases []object.Hash
	for h := range common {
		if _, ok := dominated[h]; !ok {
			bases = append(bases, h)
		}
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases, nil
}

// ancestorCommits materializes the ancestor set of start (inclusive),
// keeping the decoded commits for the dominance walk.
func (r *Repo) ancestorCommits(start object.Hash) (map[object.Hash]*object.Commit, error) {
	out := make(map[object.Hash]*object.Commit)
	it := r.Ancestors(start)
	for it.Next() {
		out[it.Hash()] = it.Commit()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
