package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderKnownTemplates(t *testing.T) {
	data := map[string]any{
		"customerName":    "Ada <script>",
		"title":           "Roof inspection",
		"scheduledDate":   "2025-03-10",
		"scheduledTime":   "09:00",
		"durationMinutes": 60,
		"portalUrl":       "https://portal.example.com/visits/abc",
		"reason":          "not available",
	}
	for name := range subjects {
		subject, body, err := Render(name, data)
		if err != nil {
			t.Fatalf("Render(%s) returned error: %v", name, err)
		}
		if subject == "" || !strings.Contains(body, "Roof inspection") {
			t.Fatalf("Render(%s) produced unexpected output", name)
		}
		if strings.Contains(body, "<script>") {
			t.Fatalf("Render(%s) did not escape customer input", name)
		}
	}
}

func TestRenderRejectedIncludesReason(t *testing.T) {
	_, body, err := Render(TemplateVisitRejected, map[string]any{"title": "Roof", "reason": "not available"})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(body, "not available") {
		t.Fatalf("expected reason in body")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
	if err := NewNoopSender(nil).SendTemplatedEmail(context.Background(), "a@b.c", "nope", nil); err == nil {
		t.Fatalf("expected noop sender to reject unknown template")
	}
}
