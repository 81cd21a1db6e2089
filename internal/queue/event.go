// Package queue carries intervention lifecycle events over RabbitMQ.
package queue

import "time"

// Event types published on the events queue.
const (
	EventCreated = "intervention.created"
	EventLocked  = "intervention.locked"
)

// DefaultQueue is the durable queue both sides declare.
const DefaultQueue = "intervention.events"

// InterventionEvent is published after a record is created or locked.  It
// holds enough for the audit consumer to write a line without querying the
// database.  Signature bytes are never included, only the reference.
type InterventionEvent struct {
	Type           string     `json:"type"`
	InterventionID string     `json:"intervention_id"`
	OwnerID        uint64     `json:"owner_id"`
	ClientName     string     `json:"client_name"`
	Status         string     `json:"status"`
	AmountInclTax  float64    `json:"amount_incl_tax"`
	SignatureRef   string     `json:"signature_ref,omitempty"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
