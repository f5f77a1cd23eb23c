package domain

import (
	"strings"
	"time"
)

type Organizer struct {
	Name    string
	Email   string
	Phone   string
	Website string
}

// Event is the root aggregate: it owns its pricing tiers and coupons.
type Event struct {
	ID             string
	ManagerID      string
	Name           string
	Type           string
	Location       string
	Description    string
	Organizer      Organizer
	Tags           []string
	Regulations    []string
	MediaLinks     []string
	AvailableSeats int
	MaxPurchase    int
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return NewValidation("event_name_required", "event name is required")
	}
	if e.AvailableSeats < 0 || e.AvailableSeats > MaxSeats {
		return NewValidation("invalid_available_seats", "available_seats must be between 0 and %d, got %d", MaxSeats, e.AvailableSeats)
	}
	if e.MaxPurchase < 1 {
		return NewValidation("invalid_max_purchase", "max_purchase must be >= 1, got %d", e.MaxPurchase)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return NewValidation("event_dates_required", "start_date and end_date are required")
	}
	if !e.StartDate.Before(e.EndDate) {
		return NewValidation("invalid_event_window", "start_date must be before end_date")
	}
	return nil
}

// HasEnded reports whether sales are closed at now.
func (e *Event) HasEnded(now time.Time) bool {
	return !now.Before(e.EndDate)
}

// EventPatch carries the fields of a partial update; nil means unchanged.
type EventPatch struct {
	Name           *string
	Type           *string
	Location       *string
	Description    *string
	Organizer      *Organizer
	Tags           *[]string
	Regulations    *[]string
	MediaLinks     *[]string
	AvailableSeats *int
	MaxPurchase    *int
	StartDate      *time.Time
	EndDate        *time.Time
}

func (e *Event) ApplyPatch(p EventPatch) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Organizer != nil {
		e.Organizer = *p.Organizer
	}
	if p.Tags != nil {
		e.Tags = *p.Tags
	}
	if p.Regulations != nil {
		e.Regulations = *p.Regulations
	}
	if p.MediaLinks != nil {
		e.MediaLinks = *p.MediaLinks
	}
	if p.AvailableSeats != nil {
		e.AvailableSeats = *p.AvailableSeats
	}
	if p.MaxPurchase != nil {
		e.MaxPurchase = *p.MaxPurchase
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
}

// EventFilter narrows List results. Zero values mean no filter.
type EventFilter struct {
	Type      string
	ManagerID string
	Limit     int
	Offset    int
}

// Availability is a capacity snapshot of one event.
type Availability struct {
	EventID     string
	Capacity    int
	Allocated   int
	Issued      int
	Unallocated int
	Tiers       []TierAvailability
}

type TierAvailability struct {
	TierID    string
	Name      string
	Count     int
	Issued    int
	Remaining int
}
