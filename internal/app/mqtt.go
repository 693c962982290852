package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func connectMQTT(broker, clientID string, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	logger.Info("connected to MQTT broker", "broker", broker, "client_id", clientID)
	return client, nil
}

// publisher is the subset of mqtt.Client used to publish updates.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// alphaPublisher forwards overlay updates to an MQTT topic. Publishing
// does not wait for the broker; a lost update is replaced by the next one.
type alphaPublisher struct {
	client publisher
	topic  string
	logger *slog.Logger
}

func (p *alphaPublisher) publish(msg AlphaMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("alpha marshal error", "err", err)
		return
	}
	p.client.Publish(p.topic, 0, false, payload)
}
