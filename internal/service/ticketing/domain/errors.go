package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation_failed"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is the single error type returned by the ticketing core.
// errors.Is matches on Kind, and on Code too when the target sets one.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Kind sentinels.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInternal     = &Error{Kind: KindInternal}
)

var (
	ErrEventNotFound  = &Error{Kind: KindNotFound, Code: "event_not_found", Message: "event not found"}
	ErrTierNotFound   = &Error{Kind: KindNotFound, Code: "tier_not_found", Message: "pricing tier not found"}
	ErrCouponNotFound = &Error{Kind: KindNotFound, Code: "coupon_not_found", Message: "coupon not found"}
	ErrTicketNotFound = &Error{Kind: KindNotFound, Code: "ticket_not_found", Message: "ticket not found"}

	// ErrInvalidCoupon matches every InvalidCoupon error regardless of reason.
	ErrInvalidCoupon = &Error{Kind: KindValidation, Code: "invalid_coupon"}
	// ErrCapacityExceeded, ErrPurchaseLimitExceeded and ErrTierSoldOut match the constructors below.
	ErrCapacityExceeded      = &Error{Kind: KindValidation, Code: "capacity_exceeded"}
	ErrPurchaseLimitExceeded = &Error{Kind: KindValidation, Code: "purchase_limit_exceeded"}
	ErrTierSoldOut           = &Error{Kind: KindValidation, Code: "tier_sold_out"}
)

func NewValidation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: msg}
}

func NewForbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: msg}
}

// CapacityExceeded reports a tier allocation that would overflow the event capacity.
func CapacityExceeded(allocated, requested, capacity int) *Error {
	return NewValidation(ErrCapacityExceeded.Code,
		"capacity exceeded: %d seats already allocated, %d requested, event capacity is %d",
		allocated, requested, capacity)
}

// PurchaseLimitExceeded reports a purchase over the per-user cap.
func PurchaseLimitExceeded(existing, requested, max int) *Error {
	return NewValidation(ErrPurchaseLimitExceeded.Code,
		"purchase limit exceeded: %d tickets held, %d requested, limit is %d per user",
		existing, requested, max)
}

// TierSoldOut reports a purchase over the tier allocation.
func TierSoldOut(issued, requested, count int) *Error {
	return NewValidation(ErrTierSoldOut.Code,
		"tier sold out: %d of %d tickets issued, %d requested",
		issued, count, requested)
}

func InvalidCoupon(reason string) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidCoupon.Code, Message: "invalid coupon: " + reason}
}

// KindOf returns the kind of err, treating anything outside the taxonomy as internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
