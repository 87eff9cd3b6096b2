package main

import (
	"fmt"

	"github.com/orbitlab/orbit/pkg/repo"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check integrity of all reachable objects",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked %d objects\n", report.Checked)
			for _, h := range report.Missing {
				fmt.Fprintf(out, "missing %s\n", h)
			}
			for _, issue := range report.Corrupt {
				fmt.Fprintf(out, "corrupt %s: %v\n", issue.Hash, issue.Err)
			}

			if !report.OK() {
				return fmt.Errorf("verification failed: %d missing, %d corrupt",
					len(report.Missing), len(report.Corrupt))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
