package application

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/metrics"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

// PricingService is the pricing registry: tiers and their share of event capacity.
type PricingService struct {
	tx         domain.TxManager
	events     domain.EventRepository
	tiers      domain.PricingRepository
	tickets    domain.TicketRepository
	conditions port.ConditionEvaluator
	clock      clock.Clock
	tracer     trace.Tracer
}

func NewPricingService(tx domain.TxManager, events domain.EventRepository, tiers domain.PricingRepository,
	tickets domain.TicketRepository, conditions port.ConditionEvaluator, clk clock.Clock, tracer trace.Tracer) *PricingService {
	return &PricingService{
		tx:         tx,
		events:     events,
		tiers:      tiers,
		tickets:    tickets,
		conditions: conditions,
		clock:      clk,
		tracer:     tracer,
	}
}

// Create persists a tier after checking, under the event row lock, that the event's
// tier allocations stay within its capacity.
func (s *PricingService) Create(ctx context.Context, actor *domain.Principal, in CreateTierInput) (*domain.PricingTier, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateTier", trace.WithAttributes(attribute.String("event.id", in.EventID)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTierCreate).Err(); err != nil {
		return nil, fail(span, err)
	}

	now := s.clock.Now()
	tier := &domain.PricingTier{
		ID:          uuid.NewString(),
		EventID:     in.EventID,
		Name:        in.Name,
		Price:       in.Price,
		Currency:    in.Currency,
		Description: in.Description,
		Count:       in.Count,
		Condition:   in.Condition,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tier.Normalize()
	if err := tier.Validate(); err != nil {
		return nil, fail(span, err)
	}
	if err := s.compile(tier.Condition); err != nil {
		return nil, fail(span, err)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.FindByIDForUpdate(ctx, in.EventID)
		if err != nil {
			return err
		}
		allocated, err := s.tiers.SumAllocated(ctx, event.ID, "")
		if err != nil {
			return err
		}
		if err := domain.CheckCapacity(allocated, tier.Count, event.AvailableSeats); err != nil {
			metrics.CapacityRejectionsTotal.WithLabelValues("event_capacity").Inc()
			return err
		}
		return s.tiers.Create(ctx, tier)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("tier.id", tier.ID))
	logger.Ctx(ctx).Info().Str("event_id", tier.EventID).Str("tier_id", tier.ID).Int("count", tier.Count).Msg("pricing tier created")
	return tier, nil
}

func (s *PricingService) Get(ctx context.Context, actor *domain.Principal, id string) (*domain.PricingTier, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetTier", trace.WithAttributes(attribute.String("tier.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTierRead).Err(); err != nil {
		return nil, fail(span, err)
	}
	tier, err := s.tiers.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return tier, nil
}

func (s *PricingService) ListByEvent(ctx context.Context, actor *domain.Principal, eventID string) ([]*domain.PricingTier, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListTiers", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTierRead).Err(); err != nil {
		return nil, fail(span, err)
	}
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, fail(span, err)
	}
	tiers, err := s.tiers.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fail(span, err)
	}
	return tiers, nil
}

// Update applies patch. A new count is checked against the other tiers' allocation and
// may not fall below the tickets already issued from this tier.
func (s *PricingService) Update(ctx context.Context, actor *domain.Principal, id string, patch domain.TierPatch) (*domain.PricingTier, error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdateTier", trace.WithAttributes(attribute.String("tier.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTierUpdate).Err(); err != nil {
		return nil, fail(span, err)
	}
	if patch.Condition != nil {
		if err := s.compile(*patch.Condition); err != nil {
			return nil, fail(span, err)
		}
	}

	current, err := s.tiers.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	var updated *domain.PricingTier
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.FindByIDForUpdate(ctx, current.EventID)
		if err != nil {
			return err
		}
		tier, err := s.tiers.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		tier.ApplyPatch(patch)
		if err := tier.Validate(); err != nil {
			return err
		}

		if patch.Count != nil {
			others, err := s.tiers.SumAllocated(ctx, event.ID, tier.ID)
			if err != nil {
				return err
			}
			if err := domain.CheckCapacity(others, tier.Count, event.AvailableSeats); err != nil {
				metrics.CapacityRejectionsTotal.WithLabelValues("event_capacity").Inc()
				return err
			}
			issued, err := s.tickets.CountByTier(ctx, tier.ID)
			if err != nil {
				return err
			}
			if tier.Count < issued {
				return domain.NewValidation("tier_count_below_issued",
					"count %d is below the %d tickets already issued from this tier", tier.Count, issued)
			}
		}

		tier.UpdatedAt = s.clock.Now()
		if err := s.tiers.Update(ctx, tier); err != nil {
			return err
		}
		updated = tier
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("tier_id", id).Str("actor", actor.UserID).Msg("pricing tier updated")
	return updated, nil
}

// Delete removes a tier that has no issued tickets. Its coupons go with it.
func (s *PricingService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteTier", trace.WithAttributes(attribute.String("tier.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTierDelete).Err(); err != nil {
		return fail(span, err)
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.tiers.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		issued, err := s.tickets.CountByTier(ctx, id)
		if err != nil {
			return err
		}
		if issued > 0 {
			return domain.NewConflict("tier_has_tickets", "pricing tier has %d issued tickets and cannot be deleted", issued)
		}
		return s.tiers.Delete(ctx, id)
	})
	if err != nil {
		return fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("tier_id", id).Str("actor", actor.UserID).Msg("pricing tier deleted")
	return nil
}

func (s *PricingService) compile(expr string) error {
	if expr == "" || s.conditions == nil {
		return nil
	}
	if err := s.conditions.Compile(expr); err != nil {
		return domain.NewValidation("invalid_condition", "invalid tier condition: %v", err)
	}
	return nil
}
