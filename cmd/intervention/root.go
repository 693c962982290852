package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacksonchui/Social-Media-Intervention/internal/app"
	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
)

const defaultConfigFile = "intervention_config.txt"

// configPath is the --config flag value.
var configPath string

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "intervention",
	Short:         "Attitude-gated social media intervention sessions.",
	Long:          `Intervention fades a social media overlay in as the device is held at a random target attitude, and records how each session went.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		// A missing default file falls back to defaults and the environment.
		if !cmd.Flags().Changed("config") {
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				path = ""
			}
		}
		if err := config.InitGlobal(path); err != nil {
			return err
		}
		cfg = config.Get()
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigFile, "KEY=VALUE configuration file")
	rootCmd.AddCommand(runCmd, checkCmd, sessionsCmd, exportCmd)
}

// openPersistence opens the configured stores without an MQTT publisher.
func openPersistence(ctx context.Context) (*app.Persistence, error) {
	return app.OpenPersistence(ctx, cfg, nil, nil)
}
