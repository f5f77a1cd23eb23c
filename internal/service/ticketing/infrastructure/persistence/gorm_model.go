package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventModel maps the events table. Tiers and coupons cascade on delete; tickets restrict it.
type EventModel struct {
	ID               string    `gorm:"primaryKey;type:char(36)"`
	ManagerID        string    `gorm:"type:varchar(64);index"`
	Name             string    `gorm:"type:varchar(255);not null"`
	Type             string    `gorm:"type:varchar(64);index"`
	Location         string    `gorm:"type:varchar(255)"`
	Description      string    `gorm:"type:text"`
	OrganizerName    string    `gorm:"type:varchar(255)"`
	OrganizerEmail   string    `gorm:"type:varchar(255)"`
	OrganizerPhone   string    `gorm:"type:varchar(64)"`
	OrganizerWebsite string    `gorm:"type:varchar(255)"`
	Tags             []string  `gorm:"type:json;serializer:json"`
	Regulations      []string  `gorm:"type:json;serializer:json"`
	MediaLinks       []string  `gorm:"type:json;serializer:json"`
	AvailableSeats   int       `gorm:"not null;check:chk_events_seats,available_seats >= 0"`
	MaxPurchase      int       `gorm:"not null;default:1;check:chk_events_max_purchase,max_purchase >= 1"`
	StartDate        time.Time `gorm:"not null;index"`
	EndDate          time.Time `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Tiers         []PricingTierModel  `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Coupons       []CouponModel       `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	PurchaseLocks []PurchaseLockModel `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Tickets       []TicketModel       `gorm:"foreignKey:EventID;constraint:OnDelete:RESTRICT"`
}

func (EventModel) TableName() string {
	return "events"
}

type PricingTierModel struct {
	ID          string          `gorm:"primaryKey;type:char(36)"`
	EventID     string          `gorm:"type:char(36);not null;index"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_tiers_price,price >= 0"`
	Currency    string          `gorm:"type:char(3);not null;default:USD"`
	Description string          `gorm:"type:text"`
	SeatCount   int             `gorm:"not null;check:chk_tiers_seat_count,seat_count >= 1"`
	Condition   string          `gorm:"column:eligibility_condition;type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Coupons []CouponModel `gorm:"foreignKey:TierID;constraint:OnDelete:CASCADE"`
	Tickets []TicketModel `gorm:"foreignKey:TierID;constraint:OnDelete:RESTRICT"`
}

func (PricingTierModel) TableName() string {
	return "pricing_tiers"
}

type CouponModel struct {
	ID         string          `gorm:"primaryKey;type:char(36)"`
	EventID    string          `gorm:"type:char(36);not null;index"`
	TierID     string          `gorm:"type:char(36);not null;index"`
	Code       string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Discount   decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_coupons_discount,discount >= 0"`
	Type       string          `gorm:"type:varchar(16);not null;default:percentage"`
	UsageLimit int             `gorm:"not null;default:1;check:chk_coupons_usage_limit,usage_limit >= 1"`
	TimesUsed  int             `gorm:"not null;default:0;check:chk_coupons_times_used,times_used <= usage_limit"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CouponModel) TableName() string {
	return "coupons"
}

type TicketModel struct {
	ID            string          `gorm:"primaryKey;type:char(36)"`
	Identifier    string          `gorm:"type:char(36);not null;uniqueIndex"`
	UserID        string          `gorm:"type:varchar(64);not null;index:idx_tickets_event_user,priority:2"`
	EventID       string          `gorm:"type:char(36);not null;index:idx_tickets_event_user,priority:1"`
	TierID        string          `gorm:"type:char(36);not null;index"`
	PricingScheme string          `gorm:"type:varchar(255)"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_tickets_amount,amount >= 0"`
	Currency      string          `gorm:"type:char(3);not null"`
	CouponCode    string          `gorm:"type:varchar(64);index"`
	ValidUntil    time.Time       `gorm:"not null"`
	CancelUntil   *time.Time
	Details       map[string]any `gorm:"type:json;serializer:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (TicketModel) TableName() string {
	return "tickets"
}

// PurchaseLockModel is the per (event, user) row purchases lock to serialize the cap check.
type PurchaseLockModel struct {
	EventID   string `gorm:"primaryKey;type:char(36)"`
	UserID    string `gorm:"primaryKey;type:varchar(64)"`
	CreatedAt time.Time
}

func (PurchaseLockModel) TableName() string {
	return "purchase_locks"
}
