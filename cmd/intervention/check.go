package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jacksonchui/Social-Media-Intervention/internal/app"
	"github.com/jacksonchui/Social-Media-Intervention/internal/condition"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the configured attitude source can be sampled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		src, closeSrc, err := app.OpenAttitudeSource(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = closeSrc() }()

		if err := condition.New(src, cfg.Policy()).Check(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stdout, "%s %s source: %v\n", color.New(color.FgRed).Sprint("unavailable"), cfg.AttitudeSource, err)
			return err
		}
		p := cfg.Policy()
		fmt.Fprintf(os.Stdout, "%s %s source, %d samples every %s\n",
			color.New(color.FgGreen).Sprint("ready"), cfg.AttitudeSource, p.UpdatesPerInterval(), p.IntervalDuration)
		return nil
	},
}
