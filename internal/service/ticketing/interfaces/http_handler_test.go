package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"ticketing/internal/pkg/clock"
	"ticketing/internal/service/ticketing/application"
	"ticketing/internal/service/ticketing/infrastructure/adapter"
	"ticketing/internal/service/ticketing/testutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	mux   *http.ServeMux
	store *testutil.Store
	live  *LiveHub
}

func newTestServer(t *testing.T, checks ...ReadinessCheck) *testServer {
	t.Helper()
	store := testutil.NewStore()
	clk := clock.NewFixed(testNow)
	tracer := noop.NewTracerProvider().Tracer("test")
	events, tiers, coupons, tickets := testutil.Events{Store: store}, testutil.Tiers{Store: store}, testutil.Coupons{Store: store}, testutil.Tickets{Store: store}
	conditions := testutil.StubConditions{Allow: true}
	live := NewLiveHub()

	couponSvc := application.NewCouponService(store, events, tiers, coupons, tickets, clk, tracer)
	h := NewTicketingHandler(HandlerDeps{
		Events:  application.NewEventService(store, events, tiers, tickets, clk, tracer),
		Tiers:   application.NewPricingService(store, events, tiers, tickets, conditions, clk, tracer),
		Coupons: couponSvc,
		Issuance: application.NewIssuanceService(application.IssuanceDeps{
			Tx:          store,
			Events:      events,
			Tiers:       tiers,
			Tickets:     tickets,
			Coupons:     couponSvc,
			Conditions:  conditions,
			Publisher:   live,
			Idempotency: testutil.NewMemIdempotency(),
			Clock:       clk,
			Tracer:      tracer,
		}, application.IssuanceConfig{PurchaseTimeout: time.Second, CancellationWindow: 24 * time.Hour}),
		Identity: adapter.NewIdentityHeaderAdapter(),
		Live:     live,
		Checks:   checks,
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	t.Cleanup(func() { _ = live.Close(context.Background()) })
	return &testServer{mux: mux, store: store, live: live}
}

type response struct {
	Code   int             `json:"-"`
	Header http.Header     `json:"-"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	ErrKey string          `json:"code"`
}

// do sends a request as userID with role; an empty userID is anonymous.
func (s *testServer) do(t *testing.T, method, path, userID, role string, body any, header ...string) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Role", role)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	resp := response{Code: rec.Code, Header: rec.Header()}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return resp
}

func decodeData[T any](t *testing.T, r response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(r.Data, &out))
	return out
}

func eventBody(seats, maxPurchase int) map[string]any {
	return map[string]any{
		"name":            "Spring Concert",
		"type":            "concert",
		"location":        "Hall A",
		"organizer":       map[string]any{"name": "Acme Events"},
		"tags":            []string{"music"},
		"available_seats": seats,
		"max_purchase":    maxPurchase,
		"start_date":      testNow.Add(7 * 24 * time.Hour).Format(time.RFC3339),
		"end_date":        testNow.Add(7*24*time.Hour + 3*time.Hour).Format(time.RFC3339),
	}
}

func (s *testServer) seedEvent(t *testing.T, seats, maxPurchase int) eventResponse {
	t.Helper()
	r := s.do(t, http.MethodPost, "/api/v1/events", "manager-1", "eventmanager", eventBody(seats, maxPurchase))
	require.Equal(t, http.StatusCreated, r.Code, r.Error)
	return decodeData[eventResponse](t, r)
}

func (s *testServer) seedTier(t *testing.T, eventID string, price string, count int) tierResponse {
	t.Helper()
	r := s.do(t, http.MethodPost, "/api/v1/pricing", "manager-1", "eventmanager",
		map[string]any{"event_id": eventID, "name": "General", "price": price, "count": count})
	require.Equal(t, http.StatusCreated, r.Code, r.Error)
	return decodeData[tierResponse](t, r)
}

func TestEventRoutesAuthorization(t *testing.T) {
	s := newTestServer(t)

	r := s.do(t, http.MethodPost, "/api/v1/events", "", "", eventBody(100, 2))
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = s.do(t, http.MethodPost, "/api/v1/events", "user-1", "user", eventBody(100, 2))
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "forbidden", r.ErrKey)

	event := s.seedEvent(t, 100, 2)
	assert.Equal(t, "manager-1", event.ManagerID)
	assert.Equal(t, []string{"music"}, event.Tags)

	// Event reads are public.
	r = s.do(t, http.MethodGet, "/api/v1/events/"+event.ID, "", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "success", r.Status)
	assert.Equal(t, "Spring Concert", decodeData[eventResponse](t, r).Name)

	r = s.do(t, http.MethodGet, "/api/v1/events?type=concert", "", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, decodeData[[]eventResponse](t, r), 1)

	r = s.do(t, http.MethodGet, "/api/v1/events?limit=-3", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "invalid_query", r.ErrKey)

	r = s.do(t, http.MethodGet, "/api/v1/events/missing", "", "", nil)
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Equal(t, "event_not_found", r.ErrKey)

	r = s.do(t, http.MethodPatch, "/api/v1/events/"+event.ID, "manager-1", "eventmanager", map[string]any{"location": "Hall B"})
	require.Equal(t, http.StatusOK, r.Code, r.Error)
	assert.Equal(t, "Hall B", decodeData[eventResponse](t, r).Location)
}

func TestTierCapacityOverHTTP(t *testing.T) {
	s := newTestServer(t)
	event := s.seedEvent(t, 100, 4)

	s.seedTier(t, event.ID, "50", 60)
	r := s.do(t, http.MethodPost, "/api/v1/pricing", "manager-1", "eventmanager",
		map[string]any{"event_id": event.ID, "name": "VIP", "price": "90", "count": 50})
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "capacity_exceeded", r.ErrKey)
	assert.Contains(t, r.Error, "100")

	s.seedTier(t, event.ID, "90", 40)

	r = s.do(t, http.MethodGet, "/api/v1/events/"+event.ID+"/availability", "", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	a := decodeData[availabilityResponse](t, r)
	assert.Equal(t, 100, a.Allocated)
	assert.Equal(t, 0, a.Unallocated)

	r = s.do(t, http.MethodGet, "/api/v1/pricing/event/"+event.ID, "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code, "tier reads need an authenticated caller")
	r = s.do(t, http.MethodGet, "/api/v1/pricing/event/"+event.ID, "user-1", "user", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, decodeData[[]tierResponse](t, r), 2)
}

func TestPurchaseOverHTTP(t *testing.T) {
	s := newTestServer(t)
	event := s.seedEvent(t, 100, 2)
	tier := s.seedTier(t, event.ID, "200", 50)

	r := s.do(t, http.MethodPost, "/api/v1/coupons", "manager-1", "eventmanager", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "code": "SAVE10", "discount": 10, "type": "percentage", "usage_limit": 1,
	})
	require.Equal(t, http.StatusCreated, r.Code, r.Error)

	r = s.do(t, http.MethodPost, "/api/v1/tickets", "user-1", "user", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "coupon_code": "SAVE10",
	}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, r.Code, r.Error)
	purchase := decodeData[purchaseResponse](t, r)
	assert.Equal(t, "180.00", purchase.UnitPrice)
	require.Len(t, purchase.Tickets, 1, "ticket_count defaults to one")
	assert.Equal(t, "180.00", purchase.Tickets[0].Amount)

	r = s.do(t, http.MethodPost, "/api/v1/tickets", "user-1", "user", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "coupon_code": "SAVE10",
	}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, r.Code)
	assert.Equal(t, "true", r.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, purchase.PurchaseID, decodeData[purchaseResponse](t, r).PurchaseID)

	r = s.do(t, http.MethodPost, "/api/v1/tickets", "user-2", "user", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "coupon_code": "SAVE10",
	})
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "invalid_coupon", r.ErrKey)

	r = s.do(t, http.MethodPost, "/api/v1/tickets", "user-1", "user", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "ticket_count": 2,
	})
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "purchase_limit_exceeded", r.ErrKey)

	r = s.do(t, http.MethodPost, "/api/v1/tickets", "user-1", "user", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "ticket_count": 0,
	})
	assert.Equal(t, http.StatusBadRequest, r.Code)

	ticketID := purchase.Tickets[0].ID
	r = s.do(t, http.MethodPatch, "/api/v1/tickets/"+ticketID, "user-1", "user", map[string]any{"details": map[string]any{"seat": "A1"}})
	assert.Equal(t, http.StatusForbidden, r.Code)
	r = s.do(t, http.MethodPatch, "/api/v1/tickets/"+ticketID, "manager-1", "eventmanager", map[string]any{"details": map[string]any{"seat": "A1"}})
	require.Equal(t, http.StatusOK, r.Code, r.Error)
	assert.Equal(t, "A1", decodeData[ticketResponse](t, r).Details["seat"])

	r = s.do(t, http.MethodDelete, "/api/v1/events/"+event.ID, "admin-1", "admin", nil)
	assert.Equal(t, http.StatusConflict, r.Code, "events with tickets cannot be deleted")

	r = s.do(t, http.MethodGet, "/api/v1/tickets/event/"+event.ID, "user-1", "user", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, decodeData[[]ticketResponse](t, r), 1)
}

func TestRequestBodyErrors(t *testing.T) {
	s := newTestServer(t)

	r := s.do(t, http.MethodPost, "/api/v1/events", "manager-1", "eventmanager", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "invalid_body", r.ErrKey)

	r = s.do(t, http.MethodPost, "/api/v1/events", "manager-1", "eventmanager", `{"nmae":"typo"}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = s.do(t, http.MethodPost, "/api/v1/events", "x-1", "superuser", eventBody(1, 1))
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestServer(t, ReadinessCheck{Name: "mysql", Check: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, healthy.do(t, http.MethodGet, "/healthz", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, healthy.do(t, http.MethodGet, "/readyz", "", "", nil).Code)

	broken := newTestServer(t, ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }})
	r := broken.do(t, http.MethodGet, "/readyz", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)
	assert.Equal(t, "not_ready", r.ErrKey)
}

func TestLiveFeedReceivesPurchases(t *testing.T) {
	s := newTestServer(t)
	event := s.seedEvent(t, 10, 4)
	tier := s.seedTier(t, event.ID, "25", 10)

	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/" + event.ID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.live.Subscribers(event.ID) == 1 }, time.Second, 10*time.Millisecond)

	r := s.do(t, http.MethodPost, "/api/v1/tickets", "user-1", "user", map[string]any{
		"event_id": event.ID, "tier_id": tier.ID, "ticket_count": 3,
	})
	require.Equal(t, http.StatusCreated, r.Code, r.Error)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, event.ID, msg["event_id"])
	assert.Equal(t, float64(7), msg["tier_remaining"])
	assert.Len(t, msg["ticket_identifiers"], 3)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/events/missing/live", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
