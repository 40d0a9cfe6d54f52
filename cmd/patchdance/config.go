package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/config"
)

func newConfigCmd() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or set patchdance configuration",
		Long:  "With no flags, prints the effective configuration as YAML, creating ~/.patchdance/config.yaml with defaults if it does not exist yet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.EnsureConfigFile(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			if basePath == "" {
				return showConfig(cmd)
			}
			return setStorageBasePath(cmd, basePath)
		},
	}
	cmd.Flags().StringVar(&basePath, "set-storage-base-path", "", "set the storage base directory and save the config")
	return cmd
}

func showConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func setStorageBasePath(cmd *cobra.Command, path string) error {
	if err := config.ValidatePath(path); err != nil {
		return fmt.Errorf("config: invalid --set-storage-base-path: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Storage.BasePath = path
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("config: saving: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "storage base path set to %s\n", path)
	return nil
}
