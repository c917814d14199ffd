package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvidal/shop-funnel/internal/domain"
)

// shopifyPayload is the subset of a cart or checkout webhook body the
// receiver cares about. Carts carry a session token that stays stable
// across create and update deliveries; checkouts carry their own token.
type shopifyPayload struct {
	Token     string      `json:"token"`
	ID        json.Number `json:"id"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// parseNotification classifies a raw webhook body into a normalized
// Notification of the given kind. This is the physical-to-logical mapping
// step: the store only ever sees (kind, dedup key, timestamp).
//
// A payload without a token or id yields an empty DedupKey; the caller
// acknowledges those without recording anything.
func parseNotification(kind domain.EventKind, body []byte, loc *time.Location) (domain.Notification, error) {
	var p shopifyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Notification{}, fmt.Errorf("unmarshaling webhook payload: %w", err)
	}

	key := p.Token
	if key == "" {
		key = p.ID.String()
	}

	return domain.Notification{
		Kind:       kind,
		DedupKey:   key,
		OccurredAt: eventTime(p, loc),
		Payload:    json.RawMessage(body),
	}, nil
}

// eventTime picks the payload's own timestamp so late redeliveries still
// land on the day the event happened. Payloads without a parseable
// timestamp fall back to now.
func eventTime(p shopifyPayload, loc *time.Location) time.Time {
	for _, raw := range []string{p.CreatedAt, p.UpdatedAt} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Now().In(loc)
}
