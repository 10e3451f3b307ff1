package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
)

func newCatObjectCmd() *cobra.Command {
	var kindOnly bool

	cmd := &cobra.Command{
		Use:   "cat-object <hash>",
		Short: "Print a stored object's canonical content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			kind, body, err := r.Store.Get(object.Hash(args[0]))
			if err != nil {
				return err
			}
			if kindOnly {
				fmt.Fprintln(cmd.OutOrStdout(), kind)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}

	cmd.Flags().BoolVarP(&kindOnly, "kind", "t", false, "print the object kind instead of its content")
	return cmd
}
