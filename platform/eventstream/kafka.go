// Package eventstream relays domain events from the in-process bus to Kafka.
package eventstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inspection_portal_backend/platform/config"
	"inspection_portal_backend/platform/events"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the wire format of a relayed event.
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// KafkaRelay is an events.Handler that writes every event to one topic.
type KafkaRelay struct {
	writer MessageWriter
}

// NewKafkaWriter builds a writer for the configured brokers and topic.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.GetKafkaBrokers()...),
		Topic:        cfg.GetKafkaTopic(),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaRelay wraps a writer.
func NewKafkaRelay(writer MessageWriter) *KafkaRelay {
	return &KafkaRelay{writer: writer}
}

// Handle implements events.Handler.
func (r *KafkaRelay) Handle(ctx context.Context, event events.Event) error {
	msg, err := BuildMessage(ctx, event)
	if err != nil {
		return err
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to relay %s: %w", event.EventName(), err)
	}
	return nil
}

// Close flushes and closes the writer.
func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}

// BuildMessage encodes event as an Envelope keyed by its aggregate id,
// with W3C trace context in the headers.
func BuildMessage(ctx context.Context, event events.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s: %w", event.EventName(), err)
	}

	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return kafka.Message{}, err
	}

	key := envelope.EventID
	if keyed, ok := event.(events.Keyed); ok && keyed.EventKey() != "" {
		key = keyed.EventKey()
	}

	carrier := &headerCarrier{headers: []kafka.Header{
		{Key: "event_id", Value: []byte(envelope.EventID)},
		{Key: "event_type", Value: []byte(envelope.EventType)},
	}}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: carrier.headers,
		Time:    envelope.OccurredAt,
	}, nil
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var (
	_ propagation.TextMapCarrier = (*headerCarrier)(nil)
	_ events.Handler             = (*KafkaRelay)(nil)
)
