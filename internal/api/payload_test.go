package api

import (
	"testing"
	"time"

	"github.com/mvidal/shop-funnel/internal/domain"
)

func TestParseNotification_TokenPreferredOverID(t *testing.T) {
	body := []byte(`{"token":"tok-abc","id":987654,"created_at":"2025-03-15T10:00:00Z"}`)

	n, err := parseNotification(domain.AddToCart, body, time.UTC)
	if err != nil {
		t.Fatalf("parseNotification failed: %v", err)
	}
	if n.Kind != domain.AddToCart {
		t.Errorf("Kind = %s, want add_to_cart", n.Kind)
	}
	if n.DedupKey != "tok-abc" {
		t.Errorf("DedupKey = %q, want tok-abc", n.DedupKey)
	}
}

func TestParseNotification_FallsBackToID(t *testing.T) {
	body := []byte(`{"id":987654,"created_at":"2025-03-15T10:00:00Z"}`)

	n, err := parseNotification(domain.BeginCheckout, body, time.UTC)
	if err != nil {
		t.Fatalf("parseNotification failed: %v", err)
	}
	if n.DedupKey != "987654" {
		t.Errorf("DedupKey = %q, want 987654", n.DedupKey)
	}
}

func TestParseNotification_NoKey(t *testing.T) {
	n, err := parseNotification(domain.AddToCart, []byte(`{"created_at":"2025-03-15T10:00:00Z"}`), time.UTC)
	if err != nil {
		t.Fatalf("parseNotification failed: %v", err)
	}
	if n.DedupKey != "" {
		t.Errorf("DedupKey = %q, want empty", n.DedupKey)
	}
}

func TestParseNotification_MalformedJSON(t *testing.T) {
	if _, err := parseNotification(domain.AddToCart, []byte(`{`), time.UTC); err == nil {
		t.Fatal("malformed JSON should fail")
	}
}

func TestEventTime_CreatedAtWins(t *testing.T) {
	p := shopifyPayload{
		CreatedAt: "2025-03-15T10:00:00-03:00",
		UpdatedAt: "2025-03-16T10:00:00-03:00",
	}

	got := eventTime(p, time.UTC)
	want, _ := time.Parse(time.RFC3339, "2025-03-15T10:00:00-03:00")
	if !got.Equal(want) {
		t.Errorf("eventTime = %s, want %s", got, want)
	}
}

func TestEventTime_UpdatedAtWhenNoCreatedAt(t *testing.T) {
	p := shopifyPayload{UpdatedAt: "2025-03-16T10:00:00Z"}

	got := eventTime(p, time.UTC)
	want, _ := time.Parse(time.RFC3339, "2025-03-16T10:00:00Z")
	if !got.Equal(want) {
		t.Errorf("eventTime = %s, want %s", got, want)
	}
}

func TestEventTime_FallsBackToNow(t *testing.T) {
	before := time.Now()
	got := eventTime(shopifyPayload{CreatedAt: "garbage"}, time.UTC)
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("eventTime without timestamps should be now, got %s", got)
	}
}
