package domain

import (
	"encoding/json"
	"time"
)

// EventKind is the logical funnel stage a notification counts toward.
// Several physical webhook topics can collapse into one kind: carts/create
// and carts/update both count as AddToCart for the same cart token.
type EventKind string

const (
	AddToCart     EventKind = "add_to_cart"
	BeginCheckout EventKind = "begin_checkout"
)

// Outcome reports what RecordEvent did with a notification.
type Outcome string

const (
	// Credited means the dedup key was new and the day's counter grew by one.
	Credited Outcome = "credited"
	// AlreadyCounted means the key was seen before for that day. Not an
	// error; the duplicate delivery is acknowledged without a second credit.
	AlreadyCounted Outcome = "already_counted"
)

// Notification is a normalized inbound webhook, produced by the receiver's
// classification step before anything touches the store.
type Notification struct {
	Kind       EventKind       `json:"kind"`
	DedupKey   string          `json:"dedup_key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
