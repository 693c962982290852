package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacksonchui/Social-Media-Intervention/internal/app"
)

var resumeID string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a session until interrupted",
	Long: `Start sampling the configured attitude source and stream the overlay alpha
to websocket clients on /ws/alpha (and to TOPIC_ALPHA when MQTT_PUBLISH is on).
Visited social media are recorded with POST /api/visit. On Ctrl+C the session
is stopped and saved to every configured store.

Examples:
  # Start a new session with the mock source
  intervention run

  # Continue a saved session
  intervention run --resume 3f0c1d2e-...`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunSession(ctx, cfg, app.RunOptions{ResumeID: resumeID})
	},
}

func init() {
	runCmd.Flags().StringVar(&resumeID, "resume", "", "id of a saved session to continue")
}
