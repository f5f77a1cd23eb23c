package persistence

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketing/internal/service/ticketing/domain"
)

type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

func (r *GormCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	err := conn(ctx, r.db).Create(fromDomainCoupon(coupon)).Error
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrConflict) {
			return domain.NewConflict("duplicate_coupon", "coupon code %q already exists", coupon.Code)
		}
	}
	return err
}

func (r *GormCouponRepository) FindByID(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.find(conn(ctx, r.db).Where("id = ?", id))
}

func (r *GormCouponRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return r.find(conn(ctx, r.db).Where("code = ?", code))
}

func (r *GormCouponRepository) FindByCodeForUpdate(ctx context.Context, code, eventID string) (*domain.Coupon, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ? AND event_id = ?", code, eventID))
}

func (r *GormCouponRepository) find(q *gorm.DB) (*domain.Coupon, error) {
	var model CouponModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, translateError(err)
	}
	return toDomainCoupon(&model), nil
}

func (r *GormCouponRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Coupon, error) {
	var models []CouponModel
	err := conn(ctx, r.db).Where("event_id = ?", eventID).
		Order("created_at ASC").Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	coupons := make([]*domain.Coupon, 0, len(models))
	for i := range models {
		coupons = append(coupons, toDomainCoupon(&models[i]))
	}
	return coupons, nil
}

func (r *GormCouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	res := conn(ctx, r.db).Model(&CouponModel{ID: coupon.ID}).
		Select("*").Omit("id", "event_id", "tier_id", "code", "created_at").
		Updates(fromDomainCoupon(coupon))
	return translateError(res.Error)
}

func (r *GormCouponRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&CouponModel{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

// IncrementUsage is a guarded update; a coupon already at its limit changes no row.
func (r *GormCouponRepository) IncrementUsage(ctx context.Context, id string) (bool, error) {
	res := conn(ctx, r.db).Model(&CouponModel{}).
		Where("id = ? AND times_used < usage_limit", id).
		UpdateColumn("times_used", gorm.Expr("times_used + ?", 1))
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
