package domain

import "fmt"

type Role string

const (
	RoleUser         Role = "user"
	RoleEventManager Role = "eventmanager"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEventManager, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller. A nil *Principal is an anonymous caller.
type Principal struct {
	UserID string
	Role   Role
}

type Action string

const (
	ActionEventCreate  Action = "event.create"
	ActionEventUpdate  Action = "event.update"
	ActionEventDelete  Action = "event.delete"
	ActionEventRead    Action = "event.read"
	ActionTierCreate   Action = "tier.create"
	ActionTierUpdate   Action = "tier.update"
	ActionTierDelete   Action = "tier.delete"
	ActionTierRead     Action = "tier.read"
	ActionCouponCreate Action = "coupon.create"
	ActionCouponUpdate Action = "coupon.update"
	ActionCouponDelete Action = "coupon.delete"
	ActionCouponRead   Action = "coupon.read"
	ActionPurchase     Action = "ticket.purchase"
	ActionTicketRead   Action = "ticket.read"
	ActionTicketUpdate Action = "ticket.update"
	ActionTicketDelete Action = "ticket.delete"
)

var (
	managers      = []Role{RoleEventManager, RoleAdmin}
	adminsOnly    = []Role{RoleAdmin}
	authenticated = []Role{RoleUser, RoleEventManager, RoleAdmin}
)

// policy maps each action to its permitted roles; a nil entry means public.
var policy = map[Action][]Role{
	ActionEventCreate:  managers,
	ActionEventUpdate:  managers,
	ActionEventDelete:  managers,
	ActionEventRead:    nil,
	ActionTierCreate:   managers,
	ActionTierUpdate:   managers,
	ActionTierDelete:   adminsOnly,
	ActionTierRead:     authenticated,
	ActionCouponCreate: managers,
	ActionCouponUpdate: managers,
	ActionCouponDelete: adminsOnly,
	ActionCouponRead:   authenticated,
	ActionPurchase:     authenticated,
	ActionTicketRead:   authenticated,
	ActionTicketUpdate: managers,
	ActionTicketDelete: adminsOnly,
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
	kind    Kind
}

// Err converts a denial into an Unauthorized or Forbidden error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.kind == KindUnauthorized {
		return NewUnauthorized(d.Reason)
	}
	return NewForbidden(d.Reason)
}

// Authorize checks principal against the role policy for action.
func Authorize(p *Principal, action Action) Decision {
	roles, known := policy[action]
	if !known {
		return Decision{Reason: fmt.Sprintf("unknown action %q", action), kind: KindForbidden}
	}
	if roles == nil {
		return Decision{Allowed: true}
	}
	if p == nil || p.UserID == "" {
		return Decision{Reason: "authentication required", kind: KindUnauthorized}
	}
	for _, r := range roles {
		if p.Role == r {
			return Decision{Allowed: true}
		}
	}
	return Decision{
		Reason: fmt.Sprintf("role %q may not perform %s", p.Role, action),
		kind:   KindForbidden,
	}
}
