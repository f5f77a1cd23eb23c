package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount code bound to one tier of one event.
type Coupon struct {
	ID         string
	EventID    string
	TierID     string
	Code       string
	Discount   decimal.Decimal
	Type       CouponType
	UsageLimit int
	TimesUsed  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Coupon) Normalize() {
	c.Code = strings.TrimSpace(c.Code)
	if c.Type == "" {
		c.Type = CouponPercentage
	}
	if c.UsageLimit == 0 {
		c.UsageLimit = 1
	}
}

func (c *Coupon) Validate() error {
	if c.Code == "" {
		return NewValidation("coupon_code_required", "coupon code is required")
	}
	if c.EventID == "" || c.TierID == "" {
		return NewValidation("coupon_scope_required", "coupon event_id and tier_id are required")
	}
	if c.Discount.IsNegative() {
		return NewValidation("invalid_discount", "discount must be >= 0, got %s", c.Discount.String())
	}
	switch c.Type {
	case CouponPercentage:
		if c.Discount.GreaterThan(hundred) {
			return NewValidation("invalid_discount", "percentage discount must be <= 100, got %s", c.Discount.String())
		}
	case CouponFixed:
	default:
		return NewValidation("invalid_coupon_type", "coupon type must be percentage or fixed, got %q", c.Type)
	}
	if c.UsageLimit < 1 {
		return NewValidation("invalid_usage_limit", "usage_limit must be >= 1, got %d", c.UsageLimit)
	}
	if c.TimesUsed < 0 || c.TimesUsed > c.UsageLimit {
		return NewValidation("invalid_usage_limit",
			"usage_limit %d is below times_used %d", c.UsageLimit, c.TimesUsed)
	}
	return nil
}

func (c *Coupon) Exhausted() bool {
	return c.TimesUsed >= c.UsageLimit
}

// PriceAfterDiscount returns the discounted price, never below zero, rounded half-up to cents.
func (c *Coupon) PriceAfterDiscount(base decimal.Decimal) decimal.Decimal {
	var final decimal.Decimal
	switch c.Type {
	case CouponFixed:
		final = base.Sub(c.Discount)
	default:
		final = base.Mul(hundred.Sub(c.Discount)).Div(hundred)
	}
	if final.IsNegative() {
		final = decimal.Zero
	}
	return RoundMoney(final)
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

type CouponPatch struct {
	Discount   *decimal.Decimal
	Type       *CouponType
	UsageLimit *int
}

func (c *Coupon) ApplyPatch(p CouponPatch) {
	if p.Discount != nil {
		c.Discount = *p.Discount
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.UsageLimit != nil {
		c.UsageLimit = *p.UsageLimit
	}
}
