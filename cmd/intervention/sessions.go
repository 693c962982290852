package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jacksonchui/Social-Media-Intervention/internal/app"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := openPersistence(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		lister, err := p.Lister()
		if err != nil {
			return err
		}
		models, err := lister.List(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		return app.WriteSessionsTable(os.Stdout, models, cfg.PeriodCompletedRatio)
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum number of sessions (0 for all)")
}
