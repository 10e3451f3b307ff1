package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
)

func newMktreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mktree",
		Short: "Build a tree object from 'mode hash name' lines on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			tree := &object.Tree{}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				parts := strings.SplitN(line, " ", 3)
				if len(parts) != 3 {
					return fmt.Errorf("mktree: malformed line %q (want 'mode hash name')", line)
				}
				tree.Entries = append(tree.Entries, object.TreeEntry{
					Mode:   parts[0],
					Target: object.Hash(parts[1]),
					Name:   parts[2],
				})
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("mktree: %w", err)
			}

			h, err := r.Store.PutTree(tree)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
