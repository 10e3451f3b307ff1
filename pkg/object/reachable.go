package object

import (
	"fmt"
	"sort"
	"strings"
)

// References returns the hashes an object of the given kind directly
// points at: a commit references its tree and parents, a tree its entry
// targets, a blob nothing.
func References(kind Kind, body []byte) ([]Hash, error) {
	switch kind {
	case KindBlob:
		return nil, nil
	case KindCommit:
		commit, err := UnmarshalCommit(body)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(commit.Parents))
		refs = append(refs, commit.Tree)
		refs = append(refs, commit.Parents...)
		return refs, nil
	case KindTree:
		tree, err := UnmarshalTree(body)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			refs = append(refs, e.Target)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported object kind %q", kind)
	}
}

// ReachableSet returns all object hashes transitively reachable from
// roots. Roots absent from the store are skipped; objects that fail to
// decode abort the walk.
func (s *Store) ReachableSet(roots []Hash) (map[Hash]struct{}, error) {
	roots = dedupeHashes(roots)
	out := make(map[Hash]struct{}, len(roots))

	stack := append(make([]Hash, 0, len(roots)), roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" {
			continue
		}
		if _, ok := out[h]; ok {
			continue
		}
		if !s.Contains(h) {
			continue
		}
		out[h] = struct{}{}

		kind, body, err := s.Get(h)
		if err != nil {
			return nil, fmt.Errorf("reachable set read %s: %w", h, err)
		}
		refs, err := References(kind, body)
		if err != nil {
			return nil, fmt.Errorf("reachable set parse %s (%s): %w", h, kind, err)
		}
		stack = append(stack, refs...)
	}

	return out, nil
}

// Unreachable returns the hashes of stored objects not reachable from
// roots, sorted ascending. Collection of these objects is a caller
// concern; the store only enumerates them.
func (s *Store) Unreachable(roots []Hash) ([]Hash, error) {
	reachable, err := s.ReachableSet(roots)
	if err != nil {
		return nil, err
	}

	var out []Hash
	err = s.ForEach(func(h Hash) error {
		if _, ok := reachable[h]; !ok {
			out = append(out, h)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unreachable enumerate: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func dedupeHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
