package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/QTest-hq/cast/internal/config"
	"github.com/QTest-hq/cast/internal/source"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags that override .cast.yaml
type rootOptions struct {
	verbose     bool
	function    string
	definitions []string
	indent      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cast",
		Short: "cast - line-level structure of C sources",
		Long: `cast classifies every line of a C-like source file, builds comment,
code and definition nodes from them and links each node to the comment
that documents it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if cfg, err := config.Load(); err == nil && cfg.LogLevel != "" {
				level = cfg.Level()
			}
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.function, "function-pattern", "", "Override the function declaration regexp")
	flags.StringArrayVar(&opts.definitions, "definition-pattern", nil, "Override the definition regexps (repeatable)")
	flags.StringVar(&opts.indent, "indent", "", "Override the JSON indent")

	// Add subcommands
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(transformCmd(opts))
	rootCmd.AddCommand(annotateCmd(opts))
	rootCmd.AddCommand(crosscheckCmd(opts))
	rootCmd.AddCommand(batchCmd(opts))

	return rootCmd
}

// loadProject reads .cast.yaml from the working directory and applies the
// flag overrides
func (o *rootOptions) loadProject() (*config.ProjectConfig, *ast.Patterns, error) {
	project, err := config.LoadProjectConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project config: %w", err)
	}
	project.Merge(&config.ProjectConfig{
		Patterns: config.PatternConfig{Function: o.function, Definitions: o.definitions},
		Output:   config.OutputConfig{Indent: o.indent},
	})
	patterns, err := project.Patterns()
	if err != nil {
		return nil, nil, err
	}
	return project, patterns, nil
}

// openInput resolves the input argument. "-" reads stdin; with a revision the
// file is read from the git object store instead of the working tree.
func openInput(cmd *cobra.Command, input, repo, rev string) (*source.Source, error) {
	if rev != "" {
		return source.FromGit(repo, rev, filepath.ToSlash(input))
	}
	if input == "-" {
		return source.FromReader("stdin", cmd.InOrStdin())
	}
	path, err := validateFilePath(input)
	if err != nil {
		return nil, err
	}
	return source.FromFile(path)
}

func parseSource(ctx context.Context, src *source.Source, patterns *ast.Patterns) (*ast.Tree, error) {
	tree, err := ast.Parse(ctx, src.Lines(),
		ast.WithPatterns(patterns),
		ast.WithLogger(log.Logger.With().Str("source", src.Name).Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.Name, err)
	}

	log.Debug().
		Str("source", src.Name).
		Int("lines", tree.Len()).
		Msg("parsed")

	return tree, nil
}

func validateFilePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return abs, nil
}

func validateDirPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("directory path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}
	return abs, nil
}
