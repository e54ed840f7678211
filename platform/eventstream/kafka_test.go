package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"inspection_portal_backend/platform/events"

	"github.com/segmentio/kafka-go"
)

type visitRejected struct {
	events.BaseEvent
	VisitID string `json:"visitId"`
}

func (visitRejected) EventName() string  { return "visit.rejected" }
func (e visitRejected) EventKey() string { return e.VisitID }

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestRelayWritesKeyedEnvelope(t *testing.T) {
	writer := &recordingWriter{}
	relay := NewKafkaRelay(writer)

	err := relay.Handle(context.Background(), visitRejected{BaseEvent: events.NewBaseEvent(), VisitID: "visit-1"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(writer.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.msgs))
	}

	msg := writer.msgs[0]
	if string(msg.Key) != "visit-1" {
		t.Fatalf("expected key visit-1, got %q", msg.Key)
	}
	if headerValue(msg.Headers, "event_type") != "visit.rejected" {
		t.Fatalf("expected event_type header, got %v", msg.Headers)
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.EventType != "visit.rejected" || envelope.EventID == "" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if headerValue(msg.Headers, "event_id") != envelope.EventID {
		t.Fatalf("expected event_id header to match envelope")
	}
}

func TestRelayReturnsWriterError(t *testing.T) {
	relay := NewKafkaRelay(&recordingWriter{err: errors.New("broker down")})
	if err := relay.Handle(context.Background(), visitRejected{BaseEvent: events.NewBaseEvent()}); err == nil {
		t.Fatalf("expected writer error")
	}
}
