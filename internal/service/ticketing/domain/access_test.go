package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	user := &Principal{UserID: "u1", Role: RoleUser}
	manager := &Principal{UserID: "m1", Role: RoleEventManager}
	admin := &Principal{UserID: "a1", Role: RoleAdmin}

	cases := []struct {
		action  Action
		who     *Principal
		allowed bool
	}{
		{ActionEventRead, nil, true},
		{ActionEventCreate, nil, false},
		{ActionEventCreate, user, false},
		{ActionEventCreate, manager, true},
		{ActionEventDelete, admin, true},
		{ActionTierCreate, manager, true},
		{ActionTierDelete, manager, false},
		{ActionTierDelete, admin, true},
		{ActionTierRead, user, true},
		{ActionTierRead, nil, false},
		{ActionCouponUpdate, user, false},
		{ActionCouponDelete, manager, false},
		{ActionPurchase, user, true},
		{ActionPurchase, nil, false},
		{ActionTicketUpdate, user, false},
		{ActionTicketUpdate, manager, true},
		{ActionTicketDelete, manager, false},
		{ActionTicketDelete, admin, true},
	}
	for _, tc := range cases {
		d := Authorize(tc.who, tc.action)
		assert.Equal(t, tc.allowed, d.Allowed, "%s by %+v", tc.action, tc.who)
		if !d.Allowed {
			assert.NotEmpty(t, d.Reason)
		}
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Authorize(nil, ActionEventRead).Err())
	assert.ErrorIs(t, Authorize(nil, ActionPurchase).Err(), ErrUnauthorized)
	assert.ErrorIs(t, Authorize(&Principal{UserID: "u", Role: RoleUser}, ActionTierDelete).Err(), ErrForbidden)
	assert.ErrorIs(t, Authorize(&Principal{UserID: "u", Role: RoleAdmin}, Action("nope")).Err(), ErrForbidden)
}
