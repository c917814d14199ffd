package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvidal/shop-funnel/internal/domain"
)

const (
	shopifyHMACHeader = "X-Shopify-Hmac-Sha256"

	// Shopify cart payloads are small; anything near this size is garbage.
	maxBodyBytes = 1 << 20
)

// EventRecorder is the slice of the event store the webhook handlers need.
type EventRecorder interface {
	RecordEvent(ctx context.Context, kind domain.EventKind, dedupKey string, occurredAt time.Time) (domain.Outcome, error)
}

// WebhookHandler terminates inbound Shopify notifications. It holds no
// state across requests; every side effect goes through the store.
type WebhookHandler struct {
	store  EventRecorder
	secret string
	loc    *time.Location
	logger *slog.Logger
}

func NewWebhookHandler(store EventRecorder, secret string, loc *time.Location, logger *slog.Logger) *WebhookHandler {
	if secret == "" {
		logger.Warn("webhook secret not configured, signature verification is disabled")
	}
	return &WebhookHandler{
		store:  store,
		secret: secret,
		loc:    loc,
		logger: logger,
	}
}

// Carts handles carts/create and carts/update. Both topics collapse into
// one logical add-to-cart per cart token, so a cart updated five times
// still counts once.
func (h *WebhookHandler) Carts(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.AddToCart, "carts")
}

// Checkouts handles checkouts/create, keyed by the checkout token.
func (h *WebhookHandler) Checkouts(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.BeginCheckout, "checkouts")
}

type webhookResponse struct {
	Status  string         `json:"status"`
	Outcome domain.Outcome `json:"outcome,omitempty"`
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, kind domain.EventKind, topic string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		notificationsTotal.WithLabelValues(topic, "malformed").Inc()
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !h.verifySignature(body, r.Header.Get(shopifyHMACHeader)) {
		notificationsTotal.WithLabelValues(topic, "unauthorized").Inc()
		h.logger.Warn("rejected webhook with bad signature", "topic", topic)
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	n, err := parseNotification(kind, body, h.loc)
	if err != nil {
		notificationsTotal.WithLabelValues(topic, "malformed").Inc()
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if n.DedupKey == "" {
		// No stable token to dedupe on. Acknowledge so the sender does
		// not retry, but credit nothing.
		notificationsTotal.WithLabelValues(topic, "ignored").Inc()
		h.logger.Info("webhook without token ignored", "topic", topic)
		respondJSON(w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	}

	outcome, err := h.store.RecordEvent(r.Context(), n.Kind, n.DedupKey, n.OccurredAt)
	if err != nil {
		// 5xx keeps the notification alive upstream: the sender retries
		// instead of silently losing the event.
		notificationsTotal.WithLabelValues(topic, "storage_error").Inc()
		h.logger.Error("failed to record event", "topic", topic, "error", err)
		respondError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	notificationsTotal.WithLabelValues(topic, string(outcome)).Inc()
	h.logger.Info("webhook processed",
		"topic", topic,
		"kind", n.Kind,
		"outcome", outcome,
		"dedup_key", truncateKey(n.DedupKey),
	)
	respondJSON(w, http.StatusOK, webhookResponse{Status: "ok", Outcome: outcome})
}

// verifySignature checks the Shopify HMAC-SHA256 (base64) over the raw
// body. With no secret configured every request is accepted; the handler
// logs that at startup so the weak mode is never silent.
func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	if h.secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// truncateKey keeps cart tokens out of the logs except for a prefix.
func truncateKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "..."
	}
	return key
}
