package domain

import "context"

// TxManager runs fn in one transaction. Repositories called with the ctx passed to fn
// join that transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, id string) (*Event, error)
	// FindByIDForUpdate locks the event row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	Update(ctx context.Context, event *Event) error
	// Delete removes the event together with its tiers and coupons.
	Delete(ctx context.Context, id string) error
}

type PricingRepository interface {
	Create(ctx context.Context, tier *PricingTier) error
	FindByID(ctx context.Context, id string) (*PricingTier, error)
	FindByIDForUpdate(ctx context.Context, id string) (*PricingTier, error)
	ListByEvent(ctx context.Context, eventID string) ([]*PricingTier, error)
	Update(ctx context.Context, tier *PricingTier) error
	Delete(ctx context.Context, id string) error
	// SumAllocated sums tier counts of eventID, skipping excludeTierID when non-empty.
	SumAllocated(ctx context.Context, eventID, excludeTierID string) (int, error)
}

type CouponRepository interface {
	Create(ctx context.Context, coupon *Coupon) error
	FindByID(ctx context.Context, id string) (*Coupon, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// FindByCodeForUpdate looks up code within eventID and locks the row.
	FindByCodeForUpdate(ctx context.Context, code, eventID string) (*Coupon, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Coupon, error)
	Update(ctx context.Context, coupon *Coupon) error
	Delete(ctx context.Context, id string) error
	// IncrementUsage adds one use unless the limit is reached; it reports whether a row changed.
	IncrementUsage(ctx context.Context, id string) (bool, error)
}

type TicketRepository interface {
	CreateBatch(ctx context.Context, tickets []*Ticket) error
	FindByID(ctx context.Context, id string) (*Ticket, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Ticket, error)
	Update(ctx context.Context, ticket *Ticket) error
	Delete(ctx context.Context, id string) error
	CountByEventAndUser(ctx context.Context, eventID, userID string) (int, error)
	CountByTier(ctx context.Context, tierID string) (int, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	CountByCoupon(ctx context.Context, code string) (int, error)
	// IssuedByTier returns the ticket count per tier id of eventID.
	IssuedByTier(ctx context.Context, eventID string) (map[string]int, error)
	// LockPurchaser upserts and locks the (event, user) purchase-counter row.
	LockPurchaser(ctx context.Context, eventID, userID string) error
}
