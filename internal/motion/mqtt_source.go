package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// MQTTSource keeps the latest attitude published on a topic by a remote
// producer. Wrap it in a PollingSource to get a timed stream.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
	latest latest
}

var (
	_ orientation.Source = (*MQTTSource)(nil)
	_ Prober             = (*MQTTSource)(nil)
)

// NewMQTTSource connects to broker and subscribes to topic, where JSON
// attitudes ({"roll":..,"pitch":..,"yaw":..}) are expected. A nil logger
// discards output.
func NewMQTTSource(broker, clientID, topic string, logger *slog.Logger) (*MQTTSource, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	logger.Info("connected to MQTT broker", "broker", broker)

	s := &MQTTSource{client: client, topic: topic, logger: logger}
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handlePayload(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	logger.Info("subscribed to attitude topic", "topic", topic)

	return s, nil
}

// handlePayload stores a published attitude. A malformed payload fails
// the samples taken until the next good one.
func (s *MQTTSource) handlePayload(payload []byte) {
	var a orientation.Attitude
	if err := json.Unmarshal(payload, &a); err != nil {
		s.logger.Warn("attitude unmarshal error", "topic", s.topic, "err", err)
		s.latest.fail(fmt.Errorf("mqtt %s: %w", s.topic, err))
		return
	}
	s.latest.set(a)
}

func (s *MQTTSource) Next() (orientation.Attitude, error) {
	return s.latest.Next()
}

// Probe fails with ErrDeviceMotionUnavailable while the broker connection
// is down and ErrReferenceFrameUnavailable until the producer has
// published its first attitude.
func (s *MQTTSource) Probe(_ context.Context) error {
	if s.client != nil && !s.client.IsConnectionOpen() {
		return ErrDeviceMotionUnavailable
	}
	if !s.latest.received() {
		return ErrReferenceFrameUnavailable
	}
	return nil
}

func (s *MQTTSource) Close() {
	s.client.Unsubscribe(s.topic).Wait()
	s.client.Disconnect(250)
}
