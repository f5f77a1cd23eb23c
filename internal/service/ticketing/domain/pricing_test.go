package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCapacity(t *testing.T) {
	require.NoError(t, CheckCapacity(0, 60, 100))
	require.NoError(t, CheckCapacity(60, 40, 100))

	err := CheckCapacity(60, 50, 100)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "event capacity is 100")

	assert.ErrorIs(t, CheckCapacity(60, math.MaxInt, 100), ErrCapacityExceeded)
	assert.ErrorIs(t, CheckCapacity(math.MaxInt, 1, 100), ErrCapacityExceeded)
}

func TestPricingTierValidate(t *testing.T) {
	tier := PricingTier{EventID: "e", Name: " VIP ", Price: dec("10"), Count: 5, Currency: "usd"}
	tier.Normalize()
	require.NoError(t, tier.Validate())
	assert.Equal(t, "VIP", tier.Name)
	assert.Equal(t, "USD", tier.Currency)

	tier.Count = 0
	assert.ErrorIs(t, tier.Validate(), ErrValidation)
	tier.Count = MaxSeats + 1
	assert.ErrorIs(t, tier.Validate(), ErrValidation)

	tier.Count = 1
	tier.Price = dec("-0.01")
	assert.ErrorIs(t, tier.Validate(), ErrValidation)

	empty := PricingTier{EventID: "e", Name: "GA", Count: 1}
	empty.Normalize()
	require.NoError(t, empty.Validate())
	assert.Equal(t, DefaultCurrency, empty.Currency)
}

func TestEventValidate(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	e := Event{Name: "Show", AvailableSeats: 100, MaxPurchase: 2, StartDate: start, EndDate: start.Add(3 * time.Hour)}
	require.NoError(t, e.Validate())

	bad := e
	bad.EndDate = start
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = e
	bad.MaxPurchase = 0
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = e
	bad.AvailableSeats = -1
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	assert.False(t, e.HasEnded(start))
	assert.True(t, e.HasEnded(start.Add(3*time.Hour)))
}

func TestCancelDeadline(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	e := &Event{StartDate: start}

	d := CancelDeadline(e, 24*time.Hour, start.Add(-48*time.Hour))
	require.NotNil(t, d)
	assert.Equal(t, start.Add(-24*time.Hour), *d)

	assert.Nil(t, CancelDeadline(e, 24*time.Hour, start.Add(-time.Hour)))
}
