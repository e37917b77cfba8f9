package main

import (
	"github.com/QTest-hq/cast/internal/annotate"
	"github.com/spf13/cobra"
)

func annotateCmd(opts *rootOptions) *cobra.Command {
	var (
		repo    string
		rev     string
		rng     string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "annotate <input>",
		Short: "Print a source with the node owning each line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := annotate.ParseRange(rng)
			if err != nil {
				return err
			}

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

			a := annotate.New(cmd.OutOrStdout())
			if err := a.Render(tree, r); err != nil {
				return err
			}
			if summary {
				return a.Summary(tree)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "Git repository used with --rev")
	cmd.Flags().StringVar(&rev, "rev", "", "Read the input at this git revision")
	cmd.Flags().StringVarP(&rng, "range", "r", "", "Line range from:to, zero based and inclusive")
	cmd.Flags().BoolVarP(&summary, "summary", "s", true, "Print node counts after the listing")

	return cmd
}
