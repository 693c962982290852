// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacksonchui/Social-Media-Intervention/internal/app"
	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
)

func main() {
	configPath := flag.String("config", "", "configuration file (defaults and environment when empty)")
	flag.Parse()

	log.Println("starting intervention (mock console)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, config.Get().Policy(), os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
