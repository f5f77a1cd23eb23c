package application

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/logger"
	"ticketing/internal/service/ticketing/domain"
)

const maxListLimit = 200

// EventService implements the event catalog use cases.
type EventService struct {
	tx      domain.TxManager
	events  domain.EventRepository
	tiers   domain.PricingRepository
	tickets domain.TicketRepository
	clock   clock.Clock
	tracer  trace.Tracer
}

func NewEventService(tx domain.TxManager, events domain.EventRepository, tiers domain.PricingRepository,
	tickets domain.TicketRepository, clk clock.Clock, tracer trace.Tracer) *EventService {
	return &EventService{tx: tx, events: events, tiers: tiers, tickets: tickets, clock: clk, tracer: tracer}
}

func (s *EventService) Create(ctx context.Context, actor *domain.Principal, in CreateEventInput) (*domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateEvent")
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionEventCreate).Err(); err != nil {
		return nil, fail(span, err)
	}

	now := s.clock.Now()
	event := &domain.Event{
		ID:             uuid.NewString(),
		ManagerID:      actor.UserID,
		Name:           in.Name,
		Type:           in.Type,
		Location:       in.Location,
		Description:    in.Description,
		Organizer:      in.Organizer,
		Tags:           in.Tags,
		Regulations:    in.Regulations,
		MediaLinks:     in.MediaLinks,
		AvailableSeats: in.AvailableSeats,
		MaxPurchase:    in.MaxPurchase,
		StartDate:      in.StartDate.UTC(),
		EndDate:        in.EndDate.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := event.Validate(); err != nil {
		return nil, fail(span, err)
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("event.id", event.ID))
	logger.Ctx(ctx).Info().Str("event_id", event.ID).Str("manager_id", actor.UserID).Msg("event created")
	return event, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetEvent", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return event, nil
}

func (s *EventService) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListEvents")
	defer span.End()

	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fail(span, err)
	}
	return events, nil
}

// Update applies patch. Capacity may not drop below the seats already allocated to tiers.
func (s *EventService) Update(ctx context.Context, actor *domain.Principal, id string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdateEvent", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionEventUpdate).Err(); err != nil {
		return nil, fail(span, err)
	}

	var updated *domain.Event
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		event.ApplyPatch(patch)
		if err := event.Validate(); err != nil {
			return err
		}
		if patch.AvailableSeats != nil {
			allocated, err := s.tiers.SumAllocated(ctx, id, "")
			if err != nil {
				return err
			}
			if event.AvailableSeats < allocated {
				return domain.NewValidation(domain.ErrCapacityExceeded.Code,
					"available_seats %d is below the %d seats allocated to pricing tiers",
					event.AvailableSeats, allocated)
			}
		}
		event.UpdatedAt = s.clock.Now()
		if err := s.events.Update(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("event_id", id).Str("actor", actor.UserID).Msg("event updated")
	return updated, nil
}

// Delete removes the event with its tiers and coupons; events with issued tickets are kept.
func (s *EventService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteEvent", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionEventDelete).Err(); err != nil {
		return fail(span, err)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		issued, err := s.tickets.CountByEvent(ctx, id)
		if err != nil {
			return err
		}
		if issued > 0 {
			return domain.NewConflict("event_has_tickets", "event has %d issued tickets and cannot be deleted", issued)
		}
		return s.events.Delete(ctx, id)
	})
	if err != nil {
		return fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("event_id", id).Str("actor", actor.UserID).Msg("event deleted")
	return nil
}

// Availability reports capacity, allocation and sales for one event.
func (s *EventService) Availability(ctx context.Context, id string) (*domain.Availability, error) {
	ctx, span := s.tracer.Start(ctx, "service.Availability", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	tiers, err := s.tiers.ListByEvent(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	issuedByTier, err := s.tickets.IssuedByTier(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	av := &domain.Availability{EventID: id, Capacity: event.AvailableSeats}
	for _, t := range tiers {
		issued := issuedByTier[t.ID]
		av.Allocated += t.Count
		av.Issued += issued
		av.Tiers = append(av.Tiers, domain.TierAvailability{
			TierID:    t.ID,
			Name:      t.Name,
			Count:     t.Count,
			Issued:    issued,
			Remaining: max(t.Count-issued, 0),
		})
	}
	av.Unallocated = max(av.Capacity-av.Allocated, 0)
	return av, nil
}

// fail records err on span and returns it unchanged.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	if domain.KindOf(err) == domain.KindInternal {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
