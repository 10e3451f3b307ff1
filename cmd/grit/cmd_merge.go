package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
)

func newMergeBaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge-base <commit-a> <commit-b>",
		Short: "Print all lowest common ancestors of two commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			bases, err := r.MergeBases(object.Hash(args[0]), object.Hash(args[1]))
			if err != nil {
				return err
			}
			if len(bases) == 0 {
				return fmt.Errorf("merge-base: %s and %s share no history", args[0], args[1])
			}
			for _, b := range bases {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
}

func newMergeTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge-tree <base-tree> <ours-tree> <theirs-tree>",
		Short: "Three-way merge of tree snapshots, printing the merged tree hash",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			result, err := r.MergeTrees(object.Hash(args[0]), object.Hash(args[1]), object.Hash(args[2]))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Tree)
			for _, c := range result.Conflicts {
				fmt.Fprintf(cmd.OutOrStdout(), "conflict %s %s (base=%s ours=%s theirs=%s)\n",
					c.Kind, c.Path, orDash(c.Base), orDash(c.Ours), orDash(c.Theirs))
			}
			if len(result.Conflicts) > 0 {
				return fmt.Errorf("merge-tree: %d conflict(s)", len(result.Conflicts))
			}
			return nil
		},
	}
}

func orDash(h object.Hash) string {
	if h == "" {
		return "-"
	}
	return string(h)
}
