package main

import (
	"fmt"

	"github.com/orbitlab/orbit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert [path]...",
		Short: "Restore files to their last saved content",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if err := r.Revert(args); err != nil {
				return err
			}

			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "reverted all saved files")
				return nil
			}
			for _, p := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", p)
			}
			return nil
		},
	}
}
