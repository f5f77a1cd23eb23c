package application

import (
	"time"

	"github.com/shopspring/decimal"

	"ticketing/internal/service/ticketing/domain"
)

type CreateEventInput struct {
	Name           string
	Type           string
	Location       string
	Description    string
	Organizer      domain.Organizer
	Tags           []string
	Regulations    []string
	MediaLinks     []string
	AvailableSeats int
	MaxPurchase    int
	StartDate      time.Time
	EndDate        time.Time
}

type CreateTierInput struct {
	EventID     string
	Name        string
	Price       decimal.Decimal
	Currency    string
	Description string
	Count       int
	Condition   string
}

type CreateCouponInput struct {
	EventID    string
	TierID     string
	Code       string
	Discount   decimal.Decimal
	Type       domain.CouponType
	UsageLimit int
}

// PurchaseInput describes one checkout. TicketCount must be >= 1.
type PurchaseInput struct {
	EventID        string
	TierID         string
	CouponCode     string
	TicketCount    int
	Details        map[string]any
	IdempotencyKey string
}

// PurchaseResult is what a committed purchase returns, and what idempotent replays return.
type PurchaseResult struct {
	PurchaseID string           `json:"purchase_id"`
	Tickets    []*domain.Ticket `json:"tickets"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Total      decimal.Decimal  `json:"total"`
	Currency   string           `json:"currency"`
	CouponCode string           `json:"coupon_code,omitempty"`
	Replayed   bool             `json:"-"`
}
