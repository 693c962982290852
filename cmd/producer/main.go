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
	configPath := flag.String("config", "intervention_config.txt", "configuration file")
	flag.Parse()

	log.Println("starting intervention MQTT attitude producer (mock)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := app.NewLogger(os.Stdout, config.Get())
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	if err := app.RunProducer(ctx, config.Get(), logger); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
