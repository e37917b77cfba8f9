package main

import (
	"encoding/json"
	"fmt"

	"github.com/QTest-hq/cast/internal/crosscheck"
	"github.com/spf13/cobra"
)

func crosscheckCmd(opts *rootOptions) *cobra.Command {
	var (
		repo    string
		rev     string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "crosscheck <input>",
		Short: "Compare the line heuristics with the tree-sitter C grammar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, patterns, err := opts.loadProject()
			if err != nil {
				return err
			}

			src, err := openInput(cmd, args[0], repo, rev)
			if err != nil {
				return err
			}

			tree, err := parseSource(cmd.Context(), src, patterns)
			if err != nil {
				return err
			}

			report, err := crosscheck.New().Check(cmd.Context(), src.Name, src.Content, tree)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "%s\n", report.Name)
			for _, typ := range crosscheck.Categories {
				d := report.Diffs[typ]
				fmt.Fprintf(out, "  %-9s matched=%d missed=%v extra=%v\n", typ, len(d.Matched), d.Missed, d.Extra)
			}
			fmt.Fprintf(out, "  agreement %.1f%%\n", report.Agreement()*100)
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "Git repository used with --rev")
	cmd.Flags().StringVar(&rev, "rev", "", "Read the input at this git revision")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")

	return cmd
}
