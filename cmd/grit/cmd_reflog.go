package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
)

func newReflogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reflog <ref>",
		Short: "List recorded movements of a ref, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.Reflog(args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s (%s)\n",
					time.Unix(e.Time, 0).UTC().Format(time.RFC3339), shortHash(e.Old), shortHash(e.New), e.Reason)
			}
			return nil
		},
	}
}

func shortHash(h object.Hash) string {
	if h == "" {
		return "-"
	}
	if len(h) > 12 {
		return string(h[:12])
	}
	return string(h)
}
