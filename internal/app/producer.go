package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// RunProducer publishes mock attitudes to TOPIC_ATTITUDE every update
// interval, for sessions running with ATTITUDE_SOURCE=mqtt. A nil logger
// discards output.
func RunProducer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger = orDiscard(logger)
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-producer", logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	logger.Info("starting attitude publish loop", "topic", cfg.TopicAttitude)
	return produce(ctx, orientation.NewMockSource(), client, cfg.TopicAttitude, cfg.Policy().UpdateInterval, logger)
}

func produce(ctx context.Context, src orientation.Source, client publisher, topic string, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		a, err := src.Next()
		if err != nil {
			logger.Warn("attitude source error", "err", err)
			continue
		}

		payload, err := json.Marshal(a)
		if err != nil {
			logger.Warn("attitude marshal error", "err", err)
			continue
		}

		// Retained so a session started later gets an attitude at once.
		token := client.Publish(topic, 0, true, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Warn("attitude publish error", "topic", topic, "err", err)
		}
	}
}
