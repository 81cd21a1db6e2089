package model

import "time"

// Status is the lifecycle state of an intervention.  The only transition is
// DRAFT -> LOCKED; LOCKED is terminal.  READY exists in the filter
// vocabulary and the column enum but nothing moves a record into it.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusReady  Status = "READY"
	StatusLocked Status = "LOCKED"
)

// Valid reports whether s is one of the stored status values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusLocked:
		return true
	}
	return false
}

// LineItem is one billable line of an intervention.  Quantities may be
// fractional (hours of labour).
type LineItem struct {
	Label     string  `json:"label" validate:"required,max=200"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// Totals holds the three derived amounts.  Once persisted they are the
// authoritative values and are never recomputed from the line items.
type Totals struct {
	AmountExclTax float64 `json:"amount_excl_tax"`
	TaxAmount     float64 `json:"tax_amount"`
	AmountInclTax float64 `json:"amount_incl_tax"`
}

// Intervention mirrors a row of the `interventions` table.
//
// Fields:
//  ID             – opaque identifier (UUID) assigned at creation.
//  OwnerID        – technician who created the record; immutable.
//  ClientName     – free text captured at creation.
//  ClientEmail    – optional client email (nil when absent).
//  LineItems      – ordered billable lines, immutable after creation.
//  TaxRatePercent – rate applied uniformly to every line.
//  Totals         – HT / TVA / TTC computed at creation.
//  Status         – DRAFT or LOCKED.
//  SignatureRef   – blob reference of the signature image, set with LOCKED.
//  SignedAt       – set exactly when the record became LOCKED.
//  CreatedAt      – creation timestamp, immutable.
type Intervention struct {
	ID             string     `json:"id"`
	OwnerID        uint64     `json:"owner_id"`
	ClientName     string     `json:"client_name"`
	ClientEmail    *string    `json:"client_email,omitempty"`
	LineItems      []LineItem `json:"line_items"`
	TaxRatePercent float64    `json:"tax_rate_percent"`
	Totals
	Status       Status     `json:"status"`
	SignatureRef *string    `json:"signature_ref,omitempty"`
	SignedAt     *time.Time `json:"signed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Locked reports whether the record has reached its terminal state.
func (i Intervention) Locked() bool { return i.Status == StatusLocked }

// Summary is the list projection of an intervention.
type Summary struct {
	ID          string  `json:"id"`
	OwnerID     uint64  `json:"owner_id"`
	ClientName  string  `json:"client_name"`
	ClientEmail *string `json:"client_email,omitempty"`
	Totals
	Status    Status     `json:"status"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Summarize projects a full record into its list form.
func (i Intervention) Summarize() Summary {
	return Summary{
		ID:          i.ID,
		OwnerID:     i.OwnerID,
		ClientName:  i.ClientName,
		ClientEmail: i.ClientEmail,
		Totals:      i.Totals,
		Status:      i.Status,
		SignedAt:    i.SignedAt,
		CreatedAt:   i.CreatedAt,
	}
}
