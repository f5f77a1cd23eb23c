package application

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/testutil"
)

func tierInput(eventID string, count int) CreateTierInput {
	return CreateTierInput{EventID: eventID, Name: "General", Price: decimal.NewFromInt(200), Count: count}
}

func TestPricingService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("allocations up to capacity are accepted", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 4)

		_, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 60))
		require.NoError(t, err)

		_, err = h.pricing.Create(ctx, manager, tierInput(event.ID, 50))
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "100")

		tier, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 40))
		require.NoError(t, err)
		assert.Equal(t, "USD", tier.Currency)

		sum, _ := testutil.Tiers{Store: h.store}.SumAllocated(ctx, event.ID, "")
		assert.Equal(t, 100, sum)
	})

	t.Run("oversized count cannot wrap the allocation", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 4)
		_, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 60))
		require.NoError(t, err)

		_, err = h.pricing.Create(ctx, manager, tierInput(event.ID, math.MaxInt))
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = h.pricing.Create(ctx, manager, tierInput(event.ID, domain.MaxSeats))
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		assert.Len(t, h.store.TierRows, 1)

		avail, err := h.events.Availability(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 60, avail.Allocated)
	})

	t.Run("unknown event", func(t *testing.T) {
		h := newHarness()
		_, err := h.pricing.Create(ctx, manager, tierInput("missing", 1))
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("attendee may not create tiers", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 4)
		_, err := h.pricing.Create(ctx, attendee, tierInput(event.ID, 1))
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = h.pricing.Create(ctx, nil, tierInput(event.ID, 1))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("invalid condition is rejected before writing", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 4)
		h.conditions.CompileErr = errors.New("syntax error")
		in := tierInput(event.ID, 10)
		in.Condition = "ticket_count <"
		_, err := h.pricing.Create(ctx, manager, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, h.store.TierRows)
	})

	t.Run("negative price and zero count", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 4)
		in := tierInput(event.ID, 0)
		_, err := h.pricing.Create(ctx, manager, in)
		assert.ErrorIs(t, err, domain.ErrValidation)

		in = tierInput(event.ID, 1)
		in.Price = decimal.NewFromInt(-1)
		_, err = h.pricing.Create(ctx, manager, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestPricingService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("count is checked against the other tiers", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 4)
		a, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 60))
		require.NoError(t, err)
		_, err = h.pricing.Create(ctx, manager, tierInput(event.ID, 30))
		require.NoError(t, err)

		grow := 70
		_, err = h.pricing.Update(ctx, manager, a.ID, domain.TierPatch{Count: &grow})
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		assert.Equal(t, 60, h.store.TierRows[a.ID].Count)

		shrink := 50
		_, err = h.pricing.Update(ctx, manager, a.ID, domain.TierPatch{Count: &shrink})
		require.NoError(t, err)

		exact := 70
		updated, err := h.pricing.Update(ctx, manager, a.ID, domain.TierPatch{Count: &exact})
		require.NoError(t, err)
		assert.Equal(t, 70, updated.Count)
	})

	t.Run("count may not drop below issued tickets", func(t *testing.T) {
		h := newHarness()
		event := h.seedEvent(100, 10)
		tier, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 10))
		require.NoError(t, err)
		_, err = h.issuance.Purchase(ctx, attendee, PurchaseInput{EventID: event.ID, TierID: tier.ID, TicketCount: 3})
		require.NoError(t, err)

		two := 2
		_, err = h.pricing.Update(ctx, manager, tier.ID, domain.TierPatch{Count: &two})
		assert.ErrorIs(t, err, domain.ErrValidation)

		three := 3
		_, err = h.pricing.Update(ctx, manager, tier.ID, domain.TierPatch{Count: &three})
		assert.NoError(t, err)
	})

	t.Run("unknown tier", func(t *testing.T) {
		h := newHarness()
		n := 1
		_, err := h.pricing.Update(ctx, manager, "missing", domain.TierPatch{Count: &n})
		assert.ErrorIs(t, err, domain.ErrTierNotFound)
	})
}

func TestPricingService_Delete(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	event := h.seedEvent(100, 10)
	tier, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 10))
	require.NoError(t, err)
	spare, err := h.pricing.Create(ctx, manager, tierInput(event.ID, 10))
	require.NoError(t, err)
	_, err = h.issuance.Purchase(ctx, attendee, PurchaseInput{EventID: event.ID, TierID: tier.ID, TicketCount: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, h.pricing.Delete(ctx, manager, spare.ID), domain.ErrForbidden)
	assert.ErrorIs(t, h.pricing.Delete(ctx, admin, tier.ID), domain.ErrConflict)
	require.NoError(t, h.pricing.Delete(ctx, admin, spare.ID))

	tiers, err := h.pricing.ListByEvent(ctx, attendee, event.ID)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, tier.ID, tiers[0].ID)
}
