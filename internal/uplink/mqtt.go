package uplink

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/martazahmad1/bus-track/internal/report"
)

// MQTTSink publishes reports to a broker topic. Reports are retained so a
// subscriber that comes up late still sees the last position.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(broker, clientID, topic string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("uplink: mqtt connect %s: %w", broker, token.Error())
	}
	return &MQTTSink{client: client, topic: topic}, nil
}

func (s *MQTTSink) Publish(ctx context.Context, rpt report.Report) error {
	payload, err := json.Marshal(rpt)
	if err != nil {
		return fmt.Errorf("uplink: marshal: %w", err)
	}

	token := s.client.Publish(s.topic, 0, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("uplink: mqtt publish: %w", err)
	}
	return nil
}

func (s *MQTTSink) Connected() bool {
	return s.client.IsConnected()
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
