package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is one issued seat. Amount is fixed at issuance.
type Ticket struct {
	ID            string
	Identifier    string
	UserID        string
	EventID       string
	TierID        string
	PricingScheme string
	Amount        decimal.Decimal
	Currency      string
	CouponCode    string
	ValidUntil    time.Time
	CancelUntil   *time.Time
	Details       map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CancelDeadline is the last instant a ticket for event may be cancelled, or nil when that
// instant is already past at now.
func CancelDeadline(event *Event, window time.Duration, now time.Time) *time.Time {
	deadline := event.StartDate.Add(-window)
	if !now.Before(deadline) {
		return nil
	}
	return &deadline
}

// TicketPatch lists the only mutable ticket fields.
type TicketPatch struct {
	Details     *map[string]any
	CancelUntil *time.Time
}

func (t *Ticket) ApplyPatch(p TicketPatch, event *Event) error {
	if p.CancelUntil != nil {
		if p.CancelUntil.After(event.StartDate) {
			return NewValidation("invalid_cancel_until", "cancel_until must not be after the event start")
		}
		cu := *p.CancelUntil
		t.CancelUntil = &cu
	}
	if p.Details != nil {
		t.Details = *p.Details
	}
	return nil
}
