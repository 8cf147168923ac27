// Package command contains the CLI command constructors.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/observability"
)

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	configFilePath := filepath.Join(xdg.ConfigHome, "todotoday.yaml")
	cmd := &cobra.Command{
		Use:          "todotoday [command] [flags]",
		Short:        "A to-do list for every user, and only theirs",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadOrInitConfig(cmd, configFilePath)
			if err != nil {
				return fmt.Errorf("failed to load configuration file: %w", err)
			}
			logger := observability.InitSlog(cfg)
			logger.DebugContext(cmd.Context(), "configuration loaded", slog.Any("config", cfg))
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		configFilePath,
		"path to the configuration file",
	)

	cmd.AddCommand(
		serveCommand(),
		userCommand(),
		taskCommand(),
	)

	return cmd
}

func loadOrInitConfig(cmd *cobra.Command, configFilePath string) (config.Config, error) {
	cfg, err := config.Load(configFilePath)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	resp, initErr := prompt(cmd, fmt.Sprintf("Config not found at %s. Create one? [y|N] ", configFilePath), false)
	if initErr != nil || !bytes.Equal(resp, []byte("y")) {
		return config.Config{}, errors.Join(err, initErr)
	}

	cfg = config.Default()
	resp, err = prompt(cmd, fmt.Sprintf("Enter the address to serve the web app on [%s]: ", cfg.WebAddress), false)
	if err != nil {
		return config.Config{}, err
	}
	if addr := string(bytes.TrimSpace(resp)); addr != "" {
		cfg.WebAddress = addr
	}
	if err = config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	if err = os.MkdirAll(filepath.Dir(configFilePath), 0o700); err != nil { //nolint:mnd // owner rwx access
		return config.Config{}, err
	}
	if err = config.Write(configFilePath, cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
