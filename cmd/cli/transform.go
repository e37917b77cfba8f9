package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func transformCmd(opts *rootOptions) *cobra.Command {
	var (
		repo      string
		rev       string
		skipIndex bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "transform <input>",
		Short: "Parse a source file and export its tree as JSON",
		Long: `Parses a source file and writes the node containers, and unless
--skip-index is given the per-line index, as JSON. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, patterns, err := opts.loadProject()
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

			opts := ast.SnapshotOptions{SkipIndex: skipIndex || !project.Output.Index}
			data, err := json.MarshalIndent(tree.Snapshot(opts), "", project.Output.Indent)
			if err != nil {
				return fmt.Errorf("failed to encode tree: %w", err)
			}
			data = append(data, '\n')

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			log.Info().
				Str("source", src.Name).
				Str("output", output).
				Int("lines", tree.Len()).
				Msg("tree written")

			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "Git repository used with --rev")
	cmd.Flags().StringVar(&rev, "rev", "", "Read the input at this git revision")
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Omit the per-line index")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}
