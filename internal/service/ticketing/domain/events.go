package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketsIssued is published once per committed purchase.
type TicketsIssued struct {
	PurchaseID        string          `json:"purchase_id"`
	EventID           string          `json:"event_id"`
	TierID            string          `json:"tier_id"`
	UserID            string          `json:"user_id"`
	TicketIdentifiers []string        `json:"ticket_identifiers"`
	UnitAmount        decimal.Decimal `json:"unit_amount"`
	Currency          string          `json:"currency"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	TierRemaining     int             `json:"tier_remaining"`
	OccurredAt        time.Time       `json:"occurred_at"`
}
