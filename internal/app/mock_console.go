// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jacksonchui/Social-Media-Intervention/internal/condition"
	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
	"github.com/jacksonchui/Social-Media-Intervention/internal/policy"
	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

// RunMockConsole runs a session against the mock attitude source and
// prints every overlay update to w until ctx is done. Nothing is saved.
func RunMockConsole(ctx context.Context, p policy.Policy, w io.Writer) error {
	src := motion.NewPollingSource(orientation.NewMockSource(), nil)
	manager := session.NewManager(condition.New(src, p), p)

	runner := &Runner{
		Manager: manager,
		Alpha: func(msg AlphaMessage) {
			if msg.Error != "" {
				fmt.Fprintf(w, "ERROR=%s\n", msg.Error)
				return
			}
			fmt.Fprintf(w, "ALPHA=%4.2f  PROGRESS=%4.2f  INTERVALS=%d\n",
				msg.Alpha, msg.Progress, manager.PeriodIntervals())
		},
	}

	l, err := runner.Run(ctx, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "SESSION=%s  PERIODS=%d\n", l.ID, len(l.PeriodLogs))
	return nil
}
