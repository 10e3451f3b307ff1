package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/repo"
)

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log [ref]",
		Short: "List reachable commits, newest first in topological order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			name := "HEAD"
			if len(args) == 1 {
				name = args[0]
			}
			head, err := r.ResolveRef(name)
			if err != nil {
				return err
			}

			order, err := r.Log(head)
			if err != nil {
				return err
			}
			for _, h := range order {
				c, err := r.Store.GetCommit(h)
				if err != nil {
					return err
				}
				subject, _, _ := strings.Cut(c.Message, "\n")
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n",
					h, time.Unix(c.Timestamp, 0).UTC().Format(time.RFC3339), c.Author, subject)
			}
			return nil
		},
	}
}
