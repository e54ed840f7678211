package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type fakeInserter struct {
	calls []InsertParams
}

func (f *fakeInserter) Insert(_ context.Context, p InsertParams) (uuid.UUID, error) {
	f.calls = append(f.calls, p)
	return uuid.New(), nil
}

func TestEmailSenderQueuesRecord(t *testing.T) {
	repo := &fakeInserter{}
	sender := NewEmailSender(repo)

	err := sender.SendTemplatedEmail(context.Background(), "mgr@example.com", "visit_rejected", map[string]any{"reason": "not available"})
	if err != nil {
		t.Fatalf("SendTemplatedEmail returned error: %v", err)
	}
	if len(repo.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.calls))
	}
	call := repo.calls[0]
	if call.ToAddress != "mgr@example.com" || call.Template != "visit_rejected" || call.RunAt.IsZero() {
		t.Fatalf("unexpected insert %+v", call)
	}
}

func TestRecordData(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"visitTitle": "Roof"})
	data, err := Record{Payload: raw}.Data()
	if err != nil || data["visitTitle"] != "Roof" {
		t.Fatalf("unexpected payload decode %v %v", data, err)
	}
	empty, err := Record{}.Data()
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty data for empty payload")
	}
}
