package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

// RunConsoleMQTT prints alpha updates and finished sessions published by
// a running session until ctx is done. A nil logger discards output.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, w io.Writer, logger *slog.Logger) error {
	logger = orDiscard(logger)
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-console", logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	subscriptions := []struct {
		topic  string
		format func([]byte) (string, error)
	}{
		{cfg.TopicAlpha, formatAlphaLine},
		{cfg.TopicSession, formatSessionLine},
	}

	for _, sub := range subscriptions {
		format := sub.format
		token := client.Subscribe(sub.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := format(msg.Payload())
			if err != nil {
				logger.Warn("unreadable message", "topic", msg.Topic(), "err", err)
				return
			}
			fmt.Fprintln(w, line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		logger.Info("subscribed", "topic", sub.topic)
	}

	<-ctx.Done()
	logger.Info("console shutting down")
	return nil
}

func formatAlphaLine(payload []byte) (string, error) {
	var msg AlphaMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", fmt.Errorf("alpha unmarshal error: %w", err)
	}
	if msg.Error != "" {
		return fmt.Sprintf("[ALPHA]  error=%s", msg.Error), nil
	}
	return fmt.Sprintf("[ALPHA]  alpha=%4.2f progress=%4.2f", msg.Alpha, msg.Progress), nil
}

func formatSessionLine(payload []byte) (string, error) {
	var m session.Model
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", fmt.Errorf("session unmarshal error: %w", err)
	}
	return fmt.Sprintf("[SESS ]  id=%s duration=%.1fs periods=%d mean=%.2f social=%s",
		m.ID, m.DurationSeconds, len(m.Periods), meanProgress(m), strings.Join(m.SocialMediaVisited, ",")), nil
}

// meanProgress averages the interval ratios of every period.
func meanProgress(m session.Model) float64 {
	var sum float64
	var n int
	for _, p := range m.Periods {
		for _, r := range p.ProgressPerInterval {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
