package main

import (
	"errors"
	"fmt"

	"github.com/orbitlab/orbit/pkg/repo"
	"github.com/spf13/cobra"
)

func newSaveCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Record a snapshot of the working tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("a message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			res, err := r.Save(message)
			if err != nil {
				if errors.Is(err, repo.ErrNothingToSave) {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to save, working tree clean")
					return nil
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", shortHash(res.CommitHash), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}
