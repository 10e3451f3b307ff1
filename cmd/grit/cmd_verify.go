package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/repo"
)

func newVerifyCmd() *cobra.Command {
	var listUnreachable bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify object graph integrity from all reference roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			report, err := r.Verify()
			if err != nil {
				return err
			}
			for _, f := range report.Findings {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}

			if listUnreachable {
				loose, err := r.Unreachable()
				if err != nil {
					return err
				}
				for _, h := range loose {
					fmt.Fprintf(cmd.OutOrStdout(), "unreachable %s\n", h)
				}
			}

			if !report.OK() {
				return fmt.Errorf("verify: %d finding(s) in %d object(s)", len(report.Findings), report.Objects)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: verified %d object(s)\n", report.Objects)
			return nil
		},
	}

	cmd.Flags().BoolVar(&listUnreachable, "unreachable", false, "also list objects unreachable from any ref")
	return cmd
}
