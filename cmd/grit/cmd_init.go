package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gritvcs/grit/pkg/repo"
)

func newInitCmd() *cobra.Command {
	var digest string
	var compression string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty grit repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			cfg := repo.DefaultConfig()
			if digest != "" {
				cfg.Core.Digest = digest
			}
			if compression != "" {
				cfg.Core.Compression = compression
			}

			r, err := repo.Init(path, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty grit repository at %s (digest=%s, compression=%s)\n",
				r.GritDir, r.Config.Core.Digest, r.Config.Core.Compression)
			return nil
		},
	}

	cmd.Flags().StringVar(&digest, "digest", "", "content digest algorithm (sha1, sha256, blake2b)")
	cmd.Flags().StringVar(&compression, "compression", "", "object compression (zstd, none)")
	return cmd
}
