package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/metrics"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

// IssuanceConfig holds the tunables of the issuance engine.
type IssuanceConfig struct {
	PurchaseTimeout    time.Duration
	CancellationWindow time.Duration
}

// IssuanceService validates purchases and issues tickets atomically.
type IssuanceService struct {
	tx          domain.TxManager
	events      domain.EventRepository
	tiers       domain.PricingRepository
	tickets     domain.TicketRepository
	coupons     *CouponService
	conditions  port.ConditionEvaluator
	publisher   port.TicketPublisher
	idempotency port.IdempotencyStore
	clock       clock.Clock
	tracer      trace.Tracer
	cfg         IssuanceConfig
}

type IssuanceDeps struct {
	Tx          domain.TxManager
	Events      domain.EventRepository
	Tiers       domain.PricingRepository
	Tickets     domain.TicketRepository
	Coupons     *CouponService
	Conditions  port.ConditionEvaluator // optional
	Publisher   port.TicketPublisher    // optional
	Idempotency port.IdempotencyStore   // optional
	Clock       clock.Clock
	Tracer      trace.Tracer
}

func NewIssuanceService(deps IssuanceDeps, cfg IssuanceConfig) *IssuanceService {
	if cfg.PurchaseTimeout <= 0 {
		cfg.PurchaseTimeout = 5 * time.Second
	}
	return &IssuanceService{
		tx:          deps.Tx,
		events:      deps.Events,
		tiers:       deps.Tiers,
		tickets:     deps.Tickets,
		coupons:     deps.Coupons,
		conditions:  deps.Conditions,
		publisher:   deps.Publisher,
		idempotency: deps.Idempotency,
		clock:       deps.Clock,
		tracer:      deps.Tracer,
		cfg:         cfg,
	}
}

// Purchase issues in.TicketCount tickets of one tier in a single transaction:
// tier lock, eligibility, purchase cap, tier stock, coupon, ticket rows, coupon usage.
func (s *IssuanceService) Purchase(ctx context.Context, actor *domain.Principal, in PurchaseInput) (*PurchaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.Purchase", trace.WithAttributes(
		attribute.String("event.id", in.EventID),
		attribute.String("tier.id", in.TierID),
		attribute.Int("ticket.count", in.TicketCount),
		attribute.Bool("coupon.present", in.CouponCode != ""),
	))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionPurchase).Err(); err != nil {
		metrics.PurchasesTotal.WithLabelValues("unauthorized").Inc()
		return nil, fail(span, err)
	}
	if in.TicketCount < 1 {
		metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
		return nil, fail(span, domain.NewValidation("invalid_ticket_count", "ticket_count must be >= 1, got %d", in.TicketCount))
	}

	if in.IdempotencyKey != "" && s.idempotency != nil {
		cached, err := s.idempotency.Begin(ctx, actor.UserID, in.IdempotencyKey)
		if err != nil {
			return nil, fail(span, err)
		}
		if cached != nil {
			var replay PurchaseResult
			if err := json.Unmarshal(cached, &replay); err != nil {
				return nil, fail(span, errors.Wrap(err, "decode stored purchase result"))
			}
			replay.Replayed = true
			span.AddEvent("idempotent replay")
			metrics.PurchasesTotal.WithLabelValues("replayed").Inc()
			return &replay, nil
		}
	}

	result, issued, err := s.purchase(ctx, actor, in)
	if err != nil {
		s.releaseKey(ctx, actor, in.IdempotencyKey)
		metrics.PurchasesTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, fail(span, err)
	}

	metrics.PurchasesTotal.WithLabelValues("committed").Inc()
	metrics.TicketsIssuedTotal.WithLabelValues(in.EventID).Add(float64(len(result.Tickets)))
	span.SetAttributes(attribute.String("purchase.id", result.PurchaseID))
	logger.Ctx(ctx).Info().
		Str("purchase_id", result.PurchaseID).
		Str("event_id", in.EventID).
		Str("tier_id", in.TierID).
		Str("user_id", actor.UserID).
		Int("tickets", len(result.Tickets)).
		Str("unit_price", result.UnitPrice.StringFixed(2)).
		Msg("purchase committed")

	if in.IdempotencyKey != "" && s.idempotency != nil {
		if payload, err := json.Marshal(result); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to encode purchase result for idempotency")
		} else if err := s.idempotency.Complete(ctx, actor.UserID, in.IdempotencyKey, payload); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store purchase result")
		}
	}

	s.publish(ctx, issued)
	return result, nil
}

func (s *IssuanceService) purchase(ctx context.Context, actor *domain.Principal, in PurchaseInput) (*PurchaseResult, domain.TicketsIssued, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PurchaseTimeout)
	defer cancel()

	now := s.clock.Now()
	purchaseID := uuid.NewString()
	var (
		result *PurchaseResult
		issued domain.TicketsIssued
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		// validating
		tier, err := s.tiers.FindByIDForUpdate(ctx, in.TierID)
		if err != nil {
			return err
		}
		if tier.EventID != in.EventID {
			return domain.NewValidation("tier_event_mismatch", "pricing tier %s does not belong to event %s", tier.ID, in.EventID)
		}
		event, err := s.events.FindByID(ctx, in.EventID)
		if err != nil {
			return err
		}
		if event.HasEnded(now) {
			return domain.NewValidation("event_ended", "event ended at %s", event.EndDate.Format(time.RFC3339))
		}
		if err := s.checkCondition(ctx, tier, actor, in.TicketCount, now); err != nil {
			return err
		}

		// Locks are taken tier, purchaser, coupon; rejections are reported in pricing then
		// capacity order.
		if err := s.tickets.LockPurchaser(ctx, event.ID, actor.UserID); err != nil {
			return err
		}

		// pricing
		unit, coupon, err := s.coupons.ResolveDiscount(ctx, in.CouponCode, event.ID, tier.ID, tier.Price)
		if err != nil {
			return err
		}

		// capacity-checked
		held, err := s.tickets.CountByEventAndUser(ctx, event.ID, actor.UserID)
		if err != nil {
			return err
		}
		if in.TicketCount > event.MaxPurchase-held {
			return domain.PurchaseLimitExceeded(held, in.TicketCount, event.MaxPurchase)
		}
		sold, err := s.tickets.CountByTier(ctx, tier.ID)
		if err != nil {
			return err
		}
		if in.TicketCount > tier.Count-sold {
			return domain.TierSoldOut(sold, in.TicketCount, tier.Count)
		}

		// committed
		tickets := make([]*domain.Ticket, 0, in.TicketCount)
		identifiers := make([]string, 0, in.TicketCount)
		cancelUntil := domain.CancelDeadline(event, s.cfg.CancellationWindow, now)
		for i := 0; i < in.TicketCount; i++ {
			t := &domain.Ticket{
				ID:            uuid.NewString(),
				Identifier:    uuid.NewString(),
				UserID:        actor.UserID,
				EventID:       event.ID,
				TierID:        tier.ID,
				PricingScheme: tier.Name,
				Amount:        unit,
				Currency:      tier.Currency,
				CouponCode:    in.CouponCode,
				ValidUntil:    event.EndDate,
				CancelUntil:   cancelUntil,
				Details:       in.Details,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			tickets = append(tickets, t)
			identifiers = append(identifiers, t.Identifier)
		}
		if err := s.tickets.CreateBatch(ctx, tickets); err != nil {
			return err
		}
		if coupon != nil {
			if err := s.coupons.RecordUsage(ctx, coupon); err != nil {
				return err
			}
		}

		result = &PurchaseResult{
			PurchaseID: purchaseID,
			Tickets:    tickets,
			UnitPrice:  unit,
			Total:      domain.RoundMoney(unit.Mul(decimal.NewFromInt(int64(in.TicketCount)))),
			Currency:   tier.Currency,
			CouponCode: in.CouponCode,
		}
		issued = domain.TicketsIssued{
			PurchaseID:        purchaseID,
			EventID:           event.ID,
			TierID:            tier.ID,
			UserID:            actor.UserID,
			TicketIdentifiers: identifiers,
			UnitAmount:        unit,
			Currency:          tier.Currency,
			CouponCode:        in.CouponCode,
			TierRemaining:     tier.Count - sold - in.TicketCount,
			OccurredAt:        now,
		}
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, domain.TicketsIssued{}, domain.NewConflict("purchase_timeout", "purchase did not complete within %s, retry", s.cfg.PurchaseTimeout)
	}
	if err != nil {
		return nil, domain.TicketsIssued{}, err
	}
	return result, issued, nil
}

func (s *IssuanceService) checkCondition(ctx context.Context, tier *domain.PricingTier, actor *domain.Principal, count int, now time.Time) error {
	if tier.Condition == "" || s.conditions == nil {
		return nil
	}
	ok, err := s.conditions.Evaluate(ctx, tier.Condition, port.ConditionFacts{
		TicketCount: count,
		Role:        string(actor.Role),
		UserID:      actor.UserID,
		Now:         now,
	})
	if err != nil {
		return errors.Wrapf(err, "evaluate condition of tier %s", tier.ID)
	}
	if !ok {
		return domain.NewValidation("tier_condition_not_met", "purchase does not satisfy the conditions of pricing tier %q", tier.Name)
	}
	return nil
}

func (s *IssuanceService) publish(ctx context.Context, event domain.TicketsIssued) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTicketsIssued(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("purchase_id", event.PurchaseID).Msg("failed to publish TicketsIssued")
	}
}

func (s *IssuanceService) releaseKey(ctx context.Context, actor *domain.Principal, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, actor.UserID, key); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrPurchaseLimitExceeded):
		metrics.CapacityRejectionsTotal.WithLabelValues("purchase_limit").Inc()
		return "purchase_limit"
	case errors.Is(err, domain.ErrTierSoldOut):
		metrics.CapacityRejectionsTotal.WithLabelValues("tier_sold_out").Inc()
		return "sold_out"
	case errors.Is(err, domain.ErrInvalidCoupon):
		return "invalid_coupon"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case domain.KindOf(err) == domain.KindInternal:
		return "error"
	default:
		return "rejected"
	}
}

func (s *IssuanceService) GetTicket(ctx context.Context, actor *domain.Principal, id string) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetTicket", trace.WithAttributes(attribute.String("ticket.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTicketRead).Err(); err != nil {
		return nil, fail(span, err)
	}
	t, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return t, nil
}

func (s *IssuanceService) ListTicketsByEvent(ctx context.Context, actor *domain.Principal, eventID string) ([]*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListTickets", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTicketRead).Err(); err != nil {
		return nil, fail(span, err)
	}
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, fail(span, err)
	}
	tickets, err := s.tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fail(span, err)
	}
	return tickets, nil
}

// UpdateTicket changes details or the cancellation deadline; the amount is never touched.
func (s *IssuanceService) UpdateTicket(ctx context.Context, actor *domain.Principal, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdateTicket", trace.WithAttributes(attribute.String("ticket.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTicketUpdate).Err(); err != nil {
		return nil, fail(span, err)
	}
	var updated *domain.Ticket
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.FindByID(ctx, id)
		if err != nil {
			return err
		}
		event, err := s.events.FindByID(ctx, t.EventID)
		if err != nil {
			return err
		}
		if err := t.ApplyPatch(patch, event); err != nil {
			return err
		}
		t.UpdatedAt = s.clock.Now()
		if err := s.tickets.Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("ticket_id", id).Str("actor", actor.UserID).Msg("ticket updated")
	return updated, nil
}

func (s *IssuanceService) DeleteTicket(ctx context.Context, actor *domain.Principal, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteTicket", trace.WithAttributes(attribute.String("ticket.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionTicketDelete).Err(); err != nil {
		return fail(span, err)
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("ticket_id", id).Str("actor", actor.UserID).Msg("ticket deleted")
	return nil
}
