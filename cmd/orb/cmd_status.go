package main

import (
	"fmt"
	"strings"

	"github.com/orbitlab/orbit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			branch := "main"
			noCommits := true
			head, err := r.Head()
			if err == nil {
				if strings.HasPrefix(head, "refs/heads/") {
					branch = strings.TrimPrefix(head, "refs/heads/")
				}
				if _, resolveErr := r.ResolveRef("HEAD"); resolveErr == nil {
					noCommits = false
				}
			}

			if noCommits {
				fmt.Fprintf(out, "on %s (no commits yet)\n", branch)
			} else {
				fmt.Fprintf(out, "on %s\n", branch)
			}

			var changed, untracked, broken []string
			for _, e := range entries {
				if e.Err != nil {
					broken = append(broken, fmt.Sprintf("  ! %s: %v", e.Path, e.Err))
					continue
				}
				switch e.Status {
				case repo.StatusModified:
					changed = append(changed, fmt.Sprintf("  ~ %s", e.Path))
				case repo.StatusDeleted:
					changed = append(changed, fmt.Sprintf("  - %s", e.Path))
				case repo.StatusNew:
					untracked = append(untracked, fmt.Sprintf("  + %s", e.Path))
				}
			}

			if len(changed) == 0 && len(untracked) == 0 && len(broken) == 0 {
				fmt.Fprintln(out, "nothing to save, working tree clean")
				return nil
			}

			if len(changed) > 0 {
				fmt.Fprintln(out, "changed:")
				for _, line := range changed {
					fmt.Fprintln(out, line)
				}
			}
			if len(untracked) > 0 {
				fmt.Fprintln(out, "untracked:")
				for _, line := range untracked {
					fmt.Fprintln(out, line)
				}
			}
			if len(broken) > 0 {
				fmt.Fprintln(out, "unreadable:")
				for _, line := range broken {
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}
