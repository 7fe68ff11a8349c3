// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authkeep/internal/config"
	"github.com/holomush/authkeep/internal/xdg"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a config file against the schema",
		Long: `Validate a config file against the schema, then load it with the
environment and flags applied and check the result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigValidate,
	})

	var write bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.YAML(config.Default())
			if err != nil {
				return err
			}
			if !write {
				cmd.Print(string(data))
				return nil
			}
			return writeDefaultConfig(cmd, data)
		},
	}
	initCmd.Flags().BoolVar(&write, "write", false, "write to the XDG config file instead of stdout")
	cmd.AddCommand(initCmd)

	return cmd
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		p, err := xdg.ConfigFile()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return oops.Code("CONFIG_FILE_NOT_FOUND").With("path", path).Wrap(err)
	}
	if err := config.ValidateYAML(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}

	if _, err := config.Load(config.Options{File: path, Flags: cmd.Flags()}); err != nil {
		return oops.With("path", path).Wrap(err)
	}

	cmd.Printf("%s is valid\n", path)
	return nil
}

func writeDefaultConfig(cmd *cobra.Command, data []byte) error {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return err
	}
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("config file already exists")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}
