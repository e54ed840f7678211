package phone

import "testing"

func TestE164(t *testing.T) {
	n := NewNormalizer("dk")

	if got := n.E164(" 20 12 34 56 "); got != "+4520123456" {
		t.Fatalf("expected +4520123456, got %q", got)
	}
	if got := n.E164("not a number"); got != "not a number" {
		t.Fatalf("expected unparsable input returned as-is, got %q", got)
	}
	if got := n.E164(""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
