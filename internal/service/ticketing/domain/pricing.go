package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// MaxSeats bounds event capacity and tier allocations.
const MaxSeats = 1_000_000

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// PricingTier is a named price with its own seat allocation inside an event.
type PricingTier struct {
	ID          string
	EventID     string
	Name        string
	Price       decimal.Decimal
	Currency    string
	Description string
	Count       int
	// Condition is an optional boolean expression a purchase must satisfy.
	Condition string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *PricingTier) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	t.Condition = strings.TrimSpace(t.Condition)
}

func (t *PricingTier) Validate() error {
	if t.EventID == "" {
		return NewValidation("event_id_required", "event_id is required")
	}
	if t.Name == "" {
		return NewValidation("tier_name_required", "pricing scheme name is required")
	}
	if t.Price.IsNegative() {
		return NewValidation("invalid_price", "price must be >= 0, got %s", t.Price.String())
	}
	if t.Count < 1 || t.Count > MaxSeats {
		return NewValidation("invalid_tier_count", "count must be between 1 and %d, got %d", MaxSeats, t.Count)
	}
	if !currencyPattern.MatchString(t.Currency) {
		return NewValidation("invalid_currency", "currency must be a 3-letter ISO code, got %q", t.Currency)
	}
	return nil
}

// CheckCapacity enforces sum(tier counts) <= event capacity. allocatedOthers excludes the
// tier being written.
func CheckCapacity(allocatedOthers, count, capacity int) error {
	if count > capacity-allocatedOthers {
		return CapacityExceeded(allocatedOthers, count, capacity)
	}
	return nil
}

type TierPatch struct {
	Name        *string
	Price       *decimal.Decimal
	Currency    *string
	Description *string
	Count       *int
	Condition   *string
}

func (t *PricingTier) ApplyPatch(p TierPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Count != nil {
		t.Count = *p.Count
	}
	if p.Condition != nil {
		t.Condition = *p.Condition
	}
	t.Normalize()
}
