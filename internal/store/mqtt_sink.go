package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

// publisher is the subset of mqtt.Client used by MQTTSink.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes finished sessions as JSON.
type MQTTSink struct {
	client  publisher
	topic   string
	timeout time.Duration
}

var _ session.Sink = (*MQTTSink)(nil)

func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, timeout: 5 * time.Second}
}

func (s *MQTTSink) Save(ctx context.Context, m session.Model) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", m.ID, err)
	}

	token := s.client.Publish(s.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish session %s: %w", m.ID, ctx.Err())
	case <-time.After(s.timeout):
		return fmt.Errorf("publish session %s: timed out after %s", m.ID, s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish session %s: %w", m.ID, err)
	}
	return nil
}
