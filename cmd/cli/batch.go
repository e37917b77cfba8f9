package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/QTest-hq/cast/internal/cache"
	"github.com/QTest-hq/cast/internal/config"
	"github.com/QTest-hq/cast/internal/source"
	"github.com/QTest-hq/cast/internal/worker"
	"github.com/spf13/cobra"
)

func batchCmd(opts *rootOptions) *cobra.Command {
	var (
		workers int
		noCache bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "batch <paths...>",
		Short: "Parse many files concurrently and report node counts",
		Long: `Parses every file given, and every file under each directory given
that matches the include and exclude globs of .cast.yaml. Results are
cached by content digest unless --no-cache is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			project, patterns, err := opts.loadProject()
			if err != nil {
				return err
			}

			paths, err := resolvePaths(args, project)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no source files found")
			}

			poolCfg := worker.PoolConfig{
				Workers:     cfg.Workers,
				Patterns:    patterns,
				Fingerprint: project.Fingerprint(),
				Snapshot:    ast.SnapshotOptions{SkipIndex: !project.Output.Index},
			}
			if cmd.Flags().Changed("workers") {
				poolCfg.Workers = workers
			}

			if !noCache {
				c, err := cache.Open(cfg.CachePath)
				if err != nil {
					return fmt.Errorf("failed to open cache: %w", err)
				}
				defer c.Close()
				poolCfg.Cache = c
			}

			results := worker.NewPool(poolCfg).Run(cmd.Context(), paths)

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				printResults(out, results)
			}

			var failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel parses (default from WORKERS)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the result cache")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")

	return cmd
}

// resolvePaths expands directories through the project globs; files are kept as given
func resolvePaths(args []string, project *config.ProjectConfig) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		files, err := source.Files(arg, project.Matches)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, filepath.Join(arg, f))
		}
	}
	return paths, nil
}

func printResults(w io.Writer, results []worker.Result) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s  error: %v\n", r.Path, r.Err)
			continue
		}

		parts := make([]string, 0, len(ast.Containers))
		for _, c := range ast.Containers {
			parts = append(parts, fmt.Sprintf("%s=%d", c, r.Counts[c]))
		}
		line := fmt.Sprintf("%s  %d lines  %s", r.Path, r.Lines, strings.Join(parts, " "))
		if r.Cached {
			line += "  (cached)"
		}
		fmt.Fprintln(w, line)
	}
}
