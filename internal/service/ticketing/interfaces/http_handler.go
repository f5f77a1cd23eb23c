package interfaces

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"ticketing/internal/pkg/logger"
	"ticketing/internal/service/ticketing/application"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

const apiPrefix = "/api/v1"

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// TicketingHandler exposes the ticketing application services over HTTP.
type TicketingHandler struct {
	events   *application.EventService
	tiers    *application.PricingService
	coupons  *application.CouponService
	issuance *application.IssuanceService
	identity port.IdentityProvider
	live     *LiveHub
	checks   []ReadinessCheck
}

type HandlerDeps struct {
	Events   *application.EventService
	Tiers    *application.PricingService
	Coupons  *application.CouponService
	Issuance *application.IssuanceService
	Identity port.IdentityProvider
	Live     *LiveHub // optional
	Checks   []ReadinessCheck
}

func NewTicketingHandler(deps HandlerDeps) *TicketingHandler {
	return &TicketingHandler{
		events:   deps.Events,
		tiers:    deps.Tiers,
		coupons:  deps.Coupons,
		issuance: deps.Issuance,
		identity: deps.Identity,
		live:     deps.Live,
		checks:   deps.Checks,
	}
}

type handlerFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request)

// RegisterRoutes mounts every route on mux.
func (h *TicketingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h.handle(mux, "GET /readyz", h.ready)

	h.handle(mux, "POST "+apiPrefix+"/events", h.createEvent)
	h.handle(mux, "GET "+apiPrefix+"/events", h.listEvents)
	h.handle(mux, "GET "+apiPrefix+"/events/{id}", h.getEvent)
	h.handle(mux, "PATCH "+apiPrefix+"/events/{id}", h.updateEvent)
	h.handle(mux, "DELETE "+apiPrefix+"/events/{id}", h.deleteEvent)
	h.handle(mux, "GET "+apiPrefix+"/events/{id}/availability", h.availability)
	if h.live != nil {
		h.handle(mux, "GET "+apiPrefix+"/events/{id}/live", h.subscribeLive)
	}

	h.handle(mux, "POST "+apiPrefix+"/pricing", h.createTier)
	h.handle(mux, "GET "+apiPrefix+"/pricing/{id}", h.getTier)
	h.handle(mux, "PATCH "+apiPrefix+"/pricing/{id}", h.updateTier)
	h.handle(mux, "DELETE "+apiPrefix+"/pricing/{id}", h.deleteTier)
	h.handle(mux, "GET "+apiPrefix+"/pricing/event/{eventId}", h.listTiers)

	h.handle(mux, "POST "+apiPrefix+"/coupons", h.createCoupon)
	h.handle(mux, "GET "+apiPrefix+"/coupons/{id}", h.getCoupon)
	h.handle(mux, "PATCH "+apiPrefix+"/coupons/{id}", h.updateCoupon)
	h.handle(mux, "DELETE "+apiPrefix+"/coupons/{id}", h.deleteCoupon)
	h.handle(mux, "GET "+apiPrefix+"/coupons/event/{eventId}", h.listCoupons)

	h.handle(mux, "POST "+apiPrefix+"/tickets", h.purchase)
	h.handle(mux, "GET "+apiPrefix+"/tickets/{id}", h.getTicket)
	h.handle(mux, "PATCH "+apiPrefix+"/tickets/{id}", h.updateTicket)
	h.handle(mux, "DELETE "+apiPrefix+"/tickets/{id}", h.deleteTicket)
	h.handle(mux, "GET "+apiPrefix+"/tickets/event/{eventId}", h.listTickets)
}

// handle extracts the caller's trace context before invoking fn.
func (h *TicketingHandler) handle(mux *http.ServeMux, pattern string, fn handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		fn(ctx, w, r.WithContext(ctx))
	})
}

func credentials(r *http.Request) port.Credentials {
	var creds port.Credentials
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		creds.BearerToken = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	} else if c, err := r.Cookie("jwt"); err == nil && c.Value != "" && c.Value != "loggedout" {
		creds.BearerToken = c.Value
	}
	creds.UserID = r.Header.Get("X-User-ID")
	creds.Role = r.Header.Get("X-User-Role")
	return creds
}

// principal resolves the caller. Requests without credentials are anonymous (nil, nil)
// and the services decide whether that is enough.
func (h *TicketingHandler) principal(ctx context.Context, r *http.Request) (*domain.Principal, error) {
	creds := credentials(r)
	if creds.Empty() {
		return nil, nil
	}
	return h.identity.CurrentUser(ctx, creds)
}

// withPrincipal resolves the caller and writes the error response when that fails.
func (h *TicketingHandler) withPrincipal(ctx context.Context, w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, err := h.principal(ctx, r)
	if err != nil {
		writeDomainError(ctx, w, err)
		return nil, false
	}
	return p, true
}

func (h *TicketingHandler) ready(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("dependency", c.Name).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "not_ready", c.Name+" unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "ready"})
}

// Events

func (h *TicketingHandler) createEvent(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	event, err := h.events.Create(ctx, actor, req.input())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEventResponse(event))
}

func (h *TicketingHandler) listEvents(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{Type: q.Get("type"), ManagerID: q.Get("manager_id")}
	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	events, err := h.events.List(ctx, filter)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, newEventResponse))
}

func (h *TicketingHandler) getEvent(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(event))
}

func (h *TicketingHandler) updateEvent(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	event, err := h.events.Update(ctx, actor, r.PathValue("id"), req.patch())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(event))
}

func (h *TicketingHandler) deleteEvent(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	if err := h.events.Delete(ctx, actor, r.PathValue("id")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *TicketingHandler) availability(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	a, err := h.events.Availability(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAvailabilityResponse(a))
}

// Pricing tiers

func (h *TicketingHandler) createTier(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req createTierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	tier, err := h.tiers.Create(ctx, actor, req.input())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTierResponse(tier))
}

func (h *TicketingHandler) getTier(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	tier, err := h.tiers.Get(ctx, actor, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTierResponse(tier))
}

func (h *TicketingHandler) listTiers(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	tiers, err := h.tiers.ListByEvent(ctx, actor, r.PathValue("eventId"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(tiers, newTierResponse))
}

func (h *TicketingHandler) updateTier(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req updateTierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	tier, err := h.tiers.Update(ctx, actor, r.PathValue("id"), req.patch())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTierResponse(tier))
}

func (h *TicketingHandler) deleteTier(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	if err := h.tiers.Delete(ctx, actor, r.PathValue("id")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Coupons

func (h *TicketingHandler) createCoupon(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req createCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	coupon, err := h.coupons.Create(ctx, actor, req.input())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCouponResponse(coupon))
}

func (h *TicketingHandler) getCoupon(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	coupon, err := h.coupons.Get(ctx, actor, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponResponse(coupon))
}

func (h *TicketingHandler) listCoupons(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	coupons, err := h.coupons.ListByEvent(ctx, actor, r.PathValue("eventId"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(coupons, newCouponResponse))
}

func (h *TicketingHandler) updateCoupon(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req updateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	coupon, err := h.coupons.Update(ctx, actor, r.PathValue("id"), req.patch())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponResponse(coupon))
}

func (h *TicketingHandler) deleteCoupon(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	if err := h.coupons.Delete(ctx, actor, r.PathValue("id")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Tickets

func (h *TicketingHandler) purchase(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	result, err := h.issuance.Purchase(ctx, actor, req.input(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	if result.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeJSON(w, http.StatusCreated, newPurchaseResponse(result))
}

func (h *TicketingHandler) getTicket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	ticket, err := h.issuance.GetTicket(ctx, actor, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}

func (h *TicketingHandler) listTickets(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	tickets, err := h.issuance.ListTicketsByEvent(ctx, actor, r.PathValue("eventId"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(tickets, newTicketResponse))
}

func (h *TicketingHandler) updateTicket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	var req updateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	ticket, err := h.issuance.UpdateTicket(ctx, actor, r.PathValue("id"), req.patch())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}

func (h *TicketingHandler) deleteTicket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	actor, ok := h.withPrincipal(ctx, w, r)
	if !ok {
		return
	}
	if err := h.issuance.DeleteTicket(ctx, actor, r.PathValue("id")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidation("invalid_query", "%q is not a non-negative integer", raw)
	}
	return n, nil
}
