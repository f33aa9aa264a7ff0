package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const mqttQoS = 1

// MQTTConfig configures the MQTT broker connection.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

// MQTTBroker publishes events to an MQTT broker and delivers every event
// seen under the topic prefix, including its own, to local subscribers.
type MQTTBroker struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	local   *Memory
}

// ConnectMQTT connects to the broker and subscribes to "<prefix>/#".
func ConnectMQTT(cfg MQTTConfig) (*MQTTBroker, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker url is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "rentals"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	b := &MQTTBroker{
		prefix:  strings.TrimRight(cfg.TopicPrefix, "/"),
		timeout: cfg.Timeout,
		local:   NewMemory(),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetConnectTimeout(cfg.Timeout)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(b.prefix+"/#", mqttQoS, b.onMessage)
		if token.WaitTimeout(b.timeout) && token.Error() != nil {
			log.WithError(token.Error()).Error("Failed to subscribe to event topics")
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	})

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect: timed out after %s", cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

// Topic returns the topic an event is published on, e.g.
// "rentals/auth/SIGNED_IN" or "rentals/bookings/BOOKING_CREATED".
func Topic(prefix string, t Type) string {
	group := "bookings"
	if t.IsAuth() {
		group = "auth"
	}
	return strings.TrimRight(prefix, "/") + "/" + group + "/" + string(t)
}

// Publish sends e with QoS 1 and waits for the broker to acknowledge it.
func (b *MQTTBroker) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := b.client.Publish(Topic(b.prefix, e.Type), mqttQoS, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.timeout):
		return fmt.Errorf("mqtt publish %s: timed out", e.Type)
	}
}

// Subscribe registers a local handler for events arriving from the broker.
func (b *MQTTBroker) Subscribe(h Handler) (Subscription, error) {
	return b.local.Subscribe(h)
}

// Close disconnects from the broker.
func (b *MQTTBroker) Close() error {
	b.client.Disconnect(250)
	return b.local.Close()
}

func (b *MQTTBroker) onMessage(_ mqtt.Client, msg mqtt.Message) {
	e, err := decodeEvent(msg.Payload())
	if err != nil {
		log.WithError(err).WithField("topic", msg.Topic()).Warn("Dropping malformed event")
		return
	}
	b.local.dispatch(e)
}

func decodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return e, fmt.Errorf("invalid event payload: %w", err)
	}
	if e.Type == "" {
		return e, fmt.Errorf("event without type")
	}
	return e, nil
}
