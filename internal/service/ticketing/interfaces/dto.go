package interfaces

import (
	"time"

	"github.com/shopspring/decimal"

	"ticketing/internal/service/ticketing/application"
	"ticketing/internal/service/ticketing/domain"
)

type organizerJSON struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

type createEventRequest struct {
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Location       string        `json:"location"`
	Description    string        `json:"description"`
	Organizer      organizerJSON `json:"organizer"`
	Tags           []string      `json:"tags"`
	Regulations    []string      `json:"regulations"`
	MediaLinks     []string      `json:"media_links"`
	AvailableSeats int           `json:"available_seats"`
	MaxPurchase    int           `json:"max_purchase"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
}

func (r createEventRequest) input() application.CreateEventInput {
	return application.CreateEventInput{
		Name:           r.Name,
		Type:           r.Type,
		Location:       r.Location,
		Description:    r.Description,
		Organizer:      domain.Organizer(r.Organizer),
		Tags:           r.Tags,
		Regulations:    r.Regulations,
		MediaLinks:     r.MediaLinks,
		AvailableSeats: r.AvailableSeats,
		MaxPurchase:    r.MaxPurchase,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
	}
}

type updateEventRequest struct {
	Name           *string        `json:"name"`
	Type           *string        `json:"type"`
	Location       *string        `json:"location"`
	Description    *string        `json:"description"`
	Organizer      *organizerJSON `json:"organizer"`
	Tags           *[]string      `json:"tags"`
	Regulations    *[]string      `json:"regulations"`
	MediaLinks     *[]string      `json:"media_links"`
	AvailableSeats *int           `json:"available_seats"`
	MaxPurchase    *int           `json:"max_purchase"`
	StartDate      *time.Time     `json:"start_date"`
	EndDate        *time.Time     `json:"end_date"`
}

func (r updateEventRequest) patch() domain.EventPatch {
	p := domain.EventPatch{
		Name:           r.Name,
		Type:           r.Type,
		Location:       r.Location,
		Description:    r.Description,
		Tags:           r.Tags,
		Regulations:    r.Regulations,
		MediaLinks:     r.MediaLinks,
		AvailableSeats: r.AvailableSeats,
		MaxPurchase:    r.MaxPurchase,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
	}
	if r.Organizer != nil {
		o := domain.Organizer(*r.Organizer)
		p.Organizer = &o
	}
	return p
}

type eventResponse struct {
	ID             string        `json:"id"`
	ManagerID      string        `json:"manager_id"`
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Location       string        `json:"location"`
	Description    string        `json:"description"`
	Organizer      organizerJSON `json:"organizer"`
	Tags           []string      `json:"tags"`
	Regulations    []string      `json:"regulations"`
	MediaLinks     []string      `json:"media_links"`
	AvailableSeats int           `json:"available_seats"`
	MaxPurchase    int           `json:"max_purchase"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func newEventResponse(e *domain.Event) eventResponse {
	return eventResponse{
		ID:             e.ID,
		ManagerID:      e.ManagerID,
		Name:           e.Name,
		Type:           e.Type,
		Location:       e.Location,
		Description:    e.Description,
		Organizer:      organizerJSON(e.Organizer),
		Tags:           nonNil(e.Tags),
		Regulations:    nonNil(e.Regulations),
		MediaLinks:     nonNil(e.MediaLinks),
		AvailableSeats: e.AvailableSeats,
		MaxPurchase:    e.MaxPurchase,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

type tierAvailabilityResponse struct {
	TierID    string `json:"tier_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Issued    int    `json:"issued"`
	Remaining int    `json:"remaining"`
}

type availabilityResponse struct {
	EventID     string                     `json:"event_id"`
	Capacity    int                        `json:"capacity"`
	Allocated   int                        `json:"allocated"`
	Issued      int                        `json:"issued"`
	Unallocated int                        `json:"unallocated"`
	Tiers       []tierAvailabilityResponse `json:"tiers"`
}

func newAvailabilityResponse(a *domain.Availability) availabilityResponse {
	resp := availabilityResponse{
		EventID:     a.EventID,
		Capacity:    a.Capacity,
		Allocated:   a.Allocated,
		Issued:      a.Issued,
		Unallocated: a.Unallocated,
		Tiers:       make([]tierAvailabilityResponse, 0, len(a.Tiers)),
	}
	for _, t := range a.Tiers {
		resp.Tiers = append(resp.Tiers, tierAvailabilityResponse(t))
	}
	return resp
}

type createTierRequest struct {
	EventID     string          `json:"event_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Count       int             `json:"count"`
	Condition   string          `json:"condition"`
}

func (r createTierRequest) input() application.CreateTierInput {
	return application.CreateTierInput(r)
}

type updateTierRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency"`
	Description *string          `json:"description"`
	Count       *int             `json:"count"`
	Condition   *string          `json:"condition"`
}

func (r updateTierRequest) patch() domain.TierPatch {
	return domain.TierPatch(r)
}

type tierResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	Condition   string    `json:"condition,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTierResponse(t *domain.PricingTier) tierResponse {
	return tierResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		Price:       t.Price.StringFixed(2),
		Currency:    t.Currency,
		Description: t.Description,
		Count:       t.Count,
		Condition:   t.Condition,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type createCouponRequest struct {
	EventID    string          `json:"event_id"`
	TierID     string          `json:"tier_id"`
	Code       string          `json:"code"`
	Discount   decimal.Decimal `json:"discount"`
	Type       string          `json:"type"`
	UsageLimit int             `json:"usage_limit"`
}

func (r createCouponRequest) input() application.CreateCouponInput {
	return application.CreateCouponInput{
		EventID:    r.EventID,
		TierID:     r.TierID,
		Code:       r.Code,
		Discount:   r.Discount,
		Type:       domain.CouponType(r.Type),
		UsageLimit: r.UsageLimit,
	}
}

type updateCouponRequest struct {
	Discount   *decimal.Decimal `json:"discount"`
	Type       *string          `json:"type"`
	UsageLimit *int             `json:"usage_limit"`
}

func (r updateCouponRequest) patch() domain.CouponPatch {
	p := domain.CouponPatch{Discount: r.Discount, UsageLimit: r.UsageLimit}
	if r.Type != nil {
		t := domain.CouponType(*r.Type)
		p.Type = &t
	}
	return p
}

type couponResponse struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	TierID     string    `json:"tier_id"`
	Code       string    `json:"code"`
	Discount   string    `json:"discount"`
	Type       string    `json:"type"`
	UsageLimit int       `json:"usage_limit"`
	TimesUsed  int       `json:"times_used"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newCouponResponse(c *domain.Coupon) couponResponse {
	return couponResponse{
		ID:         c.ID,
		EventID:    c.EventID,
		TierID:     c.TierID,
		Code:       c.Code,
		Discount:   c.Discount.StringFixed(2),
		Type:       string(c.Type),
		UsageLimit: c.UsageLimit,
		TimesUsed:  c.TimesUsed,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// purchaseRequest leaves TicketCount nil when omitted so it can default to one.
type purchaseRequest struct {
	EventID     string         `json:"event_id"`
	TierID      string         `json:"tier_id"`
	CouponCode  string         `json:"coupon_code"`
	TicketCount *int           `json:"ticket_count"`
	Details     map[string]any `json:"details"`
}

func (r purchaseRequest) input(idempotencyKey string) application.PurchaseInput {
	count := 1
	if r.TicketCount != nil {
		count = *r.TicketCount
	}
	return application.PurchaseInput{
		EventID:        r.EventID,
		TierID:         r.TierID,
		CouponCode:     r.CouponCode,
		TicketCount:    count,
		Details:        r.Details,
		IdempotencyKey: idempotencyKey,
	}
}

type ticketResponse struct {
	ID            string         `json:"id"`
	Identifier    string         `json:"ticket_identifier"`
	UserID        string         `json:"user_id"`
	EventID       string         `json:"event_id"`
	TierID        string         `json:"tier_id"`
	PricingScheme string         `json:"pricing_scheme"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	ValidUntil    time.Time      `json:"valid_until"`
	CancelUntil   *time.Time     `json:"cancel_until"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func newTicketResponse(t *domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:            t.ID,
		Identifier:    t.Identifier,
		UserID:        t.UserID,
		EventID:       t.EventID,
		TierID:        t.TierID,
		PricingScheme: t.PricingScheme,
		Amount:        t.Amount.StringFixed(2),
		Currency:      t.Currency,
		CouponCode:    t.CouponCode,
		ValidUntil:    t.ValidUntil,
		CancelUntil:   t.CancelUntil,
		Details:       t.Details,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

type updateTicketRequest struct {
	Details     *map[string]any `json:"details"`
	CancelUntil *time.Time      `json:"cancel_until"`
}

func (r updateTicketRequest) patch() domain.TicketPatch {
	return domain.TicketPatch(r)
}

type purchaseResponse struct {
	PurchaseID string           `json:"purchase_id"`
	Tickets    []ticketResponse `json:"tickets"`
	UnitPrice  string           `json:"unit_price"`
	Total      string           `json:"total"`
	Currency   string           `json:"currency"`
	CouponCode string           `json:"coupon_code,omitempty"`
}

func newPurchaseResponse(r *application.PurchaseResult) purchaseResponse {
	resp := purchaseResponse{
		PurchaseID: r.PurchaseID,
		Tickets:    mapSlice(r.Tickets, newTicketResponse),
		UnitPrice:  r.UnitPrice.StringFixed(2),
		Total:      r.Total.StringFixed(2),
		Currency:   r.Currency,
		CouponCode: r.CouponCode,
	}
	return resp
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
