package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacksonchui/Social-Media-Intervention/internal/app"
	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

var (
	exportFormat string
	exportOutput string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id...]",
	Short: "Write saved sessions as JSON or YAML",
	Long: `Write saved sessions as JSON or YAML, either the listed ids or the most
recent ones.

Examples:
  intervention export --format yaml --output sessions.yaml
  intervention export 3f0c1d2e-... --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := openPersistence(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		lister, err := p.Lister()
		if err != nil {
			return err
		}

		var models []session.Model
		if len(args) == 0 {
			models, err = lister.List(ctx, exportLimit)
			if err != nil {
				return err
			}
		}
		for _, id := range args {
			m, err := lister.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("session %s: %w", id, err)
			}
			models = append(models, m)
		}

		var w io.Writer = os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return app.ExportSessions(w, models, exportFormat)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or yaml")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum number of sessions when no ids are given (0 for all)")
}
