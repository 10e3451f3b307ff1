package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "grit",
		Short: "Content-addressable Merkle DAG object store",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newHashObjectCmd())
	root.AddCommand(newCatObjectCmd())
	root.AddCommand(newMktreeCmd())
	root.AddCommand(newCommitTreeCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newRefCmd())
	root.AddCommand(newReflogCmd())
	root.AddCommand(newMergeBaseCmd())
	root.AddCommand(newMergeTreeCmd())
	root.AddCommand(newVerifyCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "grit 0.1.0-dev")
		},
	}
}
