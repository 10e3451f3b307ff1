package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
)

func newCommitTreeCmd() *cobra.Command {
	var parents []string
	var message string
	var author string
	var timestamp int64
	var updateRef string

	cmd := &cobra.Command{
		Use:   "commit-tree <tree>",
		Short: "Create a commit object for an existing tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			parentHashes := make([]object.Hash, 0, len(parents))
			for _, p := range parents {
				parentHashes = append(parentHashes, object.Hash(p))
			}
			if timestamp == 0 {
				timestamp = time.Now().Unix()
			}

			h, err := r.CommitObject(object.Hash(args[0]), parentHashes, author, timestamp, message)
			if err != nil {
				return err
			}

			if updateRef != "" {
				// CAS against the first parent so a concurrently moved
				// ref surfaces instead of being clobbered.
				expected := object.Hash("")
				if len(parentHashes) > 0 {
					expected = parentHashes[0]
				}
				if err := r.UpdateRefCAS(updateRef, h, expected); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent commit hash (repeatable, order preserved)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "commit author")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "commit timestamp (unix seconds, defaults to now)")
	cmd.Flags().StringVar(&updateRef, "update-ref", "", "advance the named ref to the new commit")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
