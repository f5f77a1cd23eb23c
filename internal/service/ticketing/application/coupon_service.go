package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/metrics"
	"ticketing/internal/service/ticketing/domain"
)

// CouponService is the coupon ledger: discount codes and their usage counts.
type CouponService struct {
	tx      domain.TxManager
	events  domain.EventRepository
	tiers   domain.PricingRepository
	coupons domain.CouponRepository
	tickets domain.TicketRepository
	clock   clock.Clock
	tracer  trace.Tracer
}

func NewCouponService(tx domain.TxManager, events domain.EventRepository, tiers domain.PricingRepository,
	coupons domain.CouponRepository, tickets domain.TicketRepository, clk clock.Clock, tracer trace.Tracer) *CouponService {
	return &CouponService{
		tx:      tx,
		events:  events,
		tiers:   tiers,
		coupons: coupons,
		tickets: tickets,
		clock:   clk,
		tracer:  tracer,
	}
}

func (s *CouponService) Create(ctx context.Context, actor *domain.Principal, in CreateCouponInput) (*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateCoupon", trace.WithAttributes(
		attribute.String("event.id", in.EventID),
		attribute.String("coupon.code", in.Code),
	))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionCouponCreate).Err(); err != nil {
		return nil, fail(span, err)
	}

	now := s.clock.Now()
	coupon := &domain.Coupon{
		ID:         uuid.NewString(),
		EventID:    in.EventID,
		TierID:     in.TierID,
		Code:       in.Code,
		Discount:   in.Discount,
		Type:       in.Type,
		UsageLimit: in.UsageLimit,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	coupon.Normalize()
	if err := coupon.Validate(); err != nil {
		return nil, fail(span, err)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.FindByID(ctx, coupon.EventID); err != nil {
			return err
		}
		tier, err := s.tiers.FindByID(ctx, coupon.TierID)
		if err != nil {
			return err
		}
		if tier.EventID != coupon.EventID {
			return domain.NewValidation("tier_event_mismatch", "pricing tier %s does not belong to event %s", tier.ID, coupon.EventID)
		}
		if _, err := s.coupons.FindByCode(ctx, coupon.Code); err == nil {
			return domain.NewConflict("coupon_code_taken", "coupon code %q already exists", coupon.Code)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return s.coupons.Create(ctx, coupon)
	})
	if err != nil {
		return nil, fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("coupon_id", coupon.ID).Str("event_id", coupon.EventID).Msg("coupon created")
	return coupon, nil
}

func (s *CouponService) Get(ctx context.Context, actor *domain.Principal, id string) (*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetCoupon", trace.WithAttributes(attribute.String("coupon.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionCouponRead).Err(); err != nil {
		return nil, fail(span, err)
	}
	coupon, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return coupon, nil
}

func (s *CouponService) ListByEvent(ctx context.Context, actor *domain.Principal, eventID string) ([]*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListCoupons", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionCouponRead).Err(); err != nil {
		return nil, fail(span, err)
	}
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, fail(span, err)
	}
	coupons, err := s.coupons.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fail(span, err)
	}
	return coupons, nil
}

// Update changes discount, type or usage limit. The limit may not drop below times_used.
func (s *CouponService) Update(ctx context.Context, actor *domain.Principal, id string, patch domain.CouponPatch) (*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdateCoupon", trace.WithAttributes(attribute.String("coupon.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionCouponUpdate).Err(); err != nil {
		return nil, fail(span, err)
	}

	var updated *domain.Coupon
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		coupon, err := s.coupons.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		coupon.ApplyPatch(patch)
		if err := coupon.Validate(); err != nil {
			return err
		}
		coupon.UpdatedAt = s.clock.Now()
		if err := s.coupons.Update(ctx, coupon); err != nil {
			return err
		}
		updated = coupon
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("coupon_id", id).Str("actor", actor.UserID).Msg("coupon updated")
	return updated, nil
}

// Delete removes a coupon that no ticket was bought with.
func (s *CouponService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteCoupon", trace.WithAttributes(attribute.String("coupon.id", id)))
	defer span.End()

	if err := domain.Authorize(actor, domain.ActionCouponDelete).Err(); err != nil {
		return fail(span, err)
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		coupon, err := s.coupons.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		used, err := s.tickets.CountByCoupon(ctx, coupon.Code)
		if err != nil {
			return err
		}
		if used > 0 {
			return domain.NewConflict("coupon_in_use", "coupon %q was used by %d tickets and cannot be deleted", coupon.Code, used)
		}
		return s.coupons.Delete(ctx, id)
	})
	if err != nil {
		return fail(span, err)
	}
	logger.Ctx(ctx).Info().Str("coupon_id", id).Str("actor", actor.UserID).Msg("coupon deleted")
	return nil
}

// ResolveDiscount returns the price to charge for one ticket of tierID. Without a code the
// base price is returned unchanged. The coupon row stays locked until the caller's
// transaction ends, so it must be called inside WithTx.
func (s *CouponService) ResolveDiscount(ctx context.Context, code, eventID, tierID string, base decimal.Decimal) (decimal.Decimal, *domain.Coupon, error) {
	if code == "" {
		return domain.RoundMoney(base), nil, nil
	}
	coupon, err := s.coupons.FindByCodeForUpdate(ctx, code, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, nil, domain.InvalidCoupon("code not found for this event")
		}
		return decimal.Zero, nil, err
	}
	if coupon.TierID != tierID {
		return decimal.Zero, nil, domain.InvalidCoupon("code does not apply to this pricing tier")
	}
	if coupon.Exhausted() {
		return decimal.Zero, nil, domain.InvalidCoupon("usage limit reached")
	}
	return coupon.PriceAfterDiscount(base), coupon, nil
}

// RecordUsage counts one use of coupon in the caller's transaction.
func (s *CouponService) RecordUsage(ctx context.Context, coupon *domain.Coupon) error {
	changed, err := s.coupons.IncrementUsage(ctx, coupon.ID)
	if err != nil {
		return err
	}
	if !changed {
		return domain.InvalidCoupon("usage limit reached")
	}
	coupon.TimesUsed++
	metrics.CouponRedemptionsTotal.WithLabelValues(coupon.EventID).Inc()
	return nil
}
