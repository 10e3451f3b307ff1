package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
)

func newRefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Inspect and update references",
	}
	cmd.AddCommand(newRefSetCmd())
	cmd.AddCommand(newRefSymbolicCmd())
	cmd.AddCommand(newRefResolveCmd())
	cmd.AddCommand(newRefDeleteCmd())
	cmd.AddCommand(newRefListCmd())
	return cmd
}

func newRefSetCmd() *cobra.Command {
	var expectedOld string
	var useCAS bool

	cmd := &cobra.Command{
		Use:   "set <name> <hash>",
		Short: "Point a ref at a commit hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if useCAS {
				return r.UpdateRefCAS(args[0], object.Hash(args[1]), object.Hash(expectedOld))
			}
			return r.UpdateRef(args[0], object.Hash(args[1]))
		},
	}

	cmd.Flags().StringVar(&expectedOld, "expect", "", "expected current hash (empty means the ref must not exist)")
	cmd.Flags().BoolVar(&useCAS, "cas", false, "fail if the ref does not currently hold --expect")
	return cmd
}

func newRefSymbolicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbolic <name> <target>",
		Short: "Point a ref at another ref",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.SetSymbolicRef(args[0], args[1])
		},
	}
}

func newRefResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a ref through symbolic indirection to a hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			h, err := r.ResolveRef(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func newRefDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.DeleteRef(args[0])
		},
	}
}

func newRefListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List reference names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			names, err := r.ListRefs(prefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
