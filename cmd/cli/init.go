package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/QTest-hq/cast/internal/config"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .cast.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := validateDirPath(dir)
			if err != nil {
				return err
			}

			target := filepath.Join(path, ".cast.yaml")
			if _, err := os.Stat(target); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", target)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.SaveProjectConfig(path, config.DefaultProjectConfig()); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the config into")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")

	return cmd
}
