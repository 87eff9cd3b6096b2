package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/orbitlab/orbit/pkg/object"
	"github.com/orbitlab/orbit/pkg/repo"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history [ref]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			start := "HEAD"
			if len(args) > 0 {
				start = args[0]
			}

			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, e := range entries {
				if oneline {
					subject := e.Commit.Message
					if j := strings.IndexByte(subject, '\n'); j >= 0 {
						subject = subject[:j]
					}
					fmt.Fprintf(out, "%s %s\n", shortHash(e.Hash), subject)
					continue
				}

				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				fmt.Fprintf(out, "author %s\n", e.Commit.Author)
				fmt.Fprintf(out, "date   %s\n", time.Unix(e.Commit.Timestamp, 0).Format(time.RFC1123))
				fmt.Fprintln(out)
				for _, line := range strings.Split(strings.TrimRight(e.Commit.Message, "\n"), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits")
	return cmd
}

func shortHash(h object.Hash) string {
	s := string(h)
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
