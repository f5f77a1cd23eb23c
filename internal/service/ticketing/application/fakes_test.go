package application

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace/noop"

	"ticketing/internal/pkg/clock"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/testutil"
)

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	attendee = &domain.Principal{UserID: "user-1", Role: domain.RoleUser}
	manager  = &domain.Principal{UserID: "manager-1", Role: domain.RoleEventManager}
	admin    = &domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin}
)

type harness struct {
	store       *testutil.Store
	publisher   *testutil.RecordingPublisher
	idempotency *testutil.MemIdempotency
	conditions  *testutil.StubConditions
	events      *EventService
	pricing     *PricingService
	coupons     *CouponService
	issuance    *IssuanceService
}

func newHarness() *harness {
	store := testutil.NewStore()
	clk := clock.NewFixed(testNow)
	tracer := noop.NewTracerProvider().Tracer("test")
	events, tiers, coupons, tickets := testutil.Events{Store: store}, testutil.Tiers{Store: store}, testutil.Coupons{Store: store}, testutil.Tickets{Store: store}
	h := &harness{
		store:       store,
		publisher:   &testutil.RecordingPublisher{},
		idempotency: testutil.NewMemIdempotency(),
		conditions:  &testutil.StubConditions{Allow: true},
	}
	h.events = NewEventService(store, events, tiers, tickets, clk, tracer)
	h.pricing = NewPricingService(store, events, tiers, tickets, h.conditions, clk, tracer)
	h.coupons = NewCouponService(store, events, tiers, coupons, tickets, clk, tracer)
	h.issuance = NewIssuanceService(IssuanceDeps{
		Tx:          store,
		Events:      events,
		Tiers:       tiers,
		Tickets:     tickets,
		Coupons:     h.coupons,
		Conditions:  h.conditions,
		Publisher:   h.publisher,
		Idempotency: h.idempotency,
		Clock:       clk,
		Tracer:      tracer,
	}, IssuanceConfig{PurchaseTimeout: time.Second, CancellationWindow: 24 * time.Hour})
	return h
}

func (h *harness) seedEvent(seats, maxPurchase int) *domain.Event {
	e := domain.Event{
		ID:             uuid.NewString(),
		Name:           "Concert",
		AvailableSeats: seats,
		MaxPurchase:    maxPurchase,
		StartDate:      testNow.Add(7 * 24 * time.Hour),
		EndDate:        testNow.Add(7*24*time.Hour + 3*time.Hour),
	}
	h.store.EventRows[e.ID] = e
	return &e
}
