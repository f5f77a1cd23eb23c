package persistence

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketing/internal/service/ticketing/domain"
)

type GormPricingRepository struct {
	db *gorm.DB
}

func NewGormPricingRepository(db *gorm.DB) *GormPricingRepository {
	return &GormPricingRepository{db: db}
}

func (r *GormPricingRepository) Create(ctx context.Context, tier *domain.PricingTier) error {
	return translateError(conn(ctx, r.db).Omit(clause.Associations).Create(fromDomainTier(tier)).Error)
}

func (r *GormPricingRepository) FindByID(ctx context.Context, id string) (*domain.PricingTier, error) {
	return r.find(conn(ctx, r.db), id)
}

func (r *GormPricingRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.PricingTier, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPricingRepository) find(db *gorm.DB, id string) (*domain.PricingTier, error) {
	var model PricingTierModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTierNotFound
		}
		return nil, translateError(err)
	}
	return toDomainTier(&model), nil
}

func (r *GormPricingRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.PricingTier, error) {
	var models []PricingTierModel
	err := conn(ctx, r.db).Where("event_id = ?", eventID).
		Order("created_at ASC").Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	tiers := make([]*domain.PricingTier, 0, len(models))
	for i := range models {
		tiers = append(tiers, toDomainTier(&models[i]))
	}
	return tiers, nil
}

func (r *GormPricingRepository) Update(ctx context.Context, tier *domain.PricingTier) error {
	res := conn(ctx, r.db).Model(&PricingTierModel{ID: tier.ID}).
		Select("*").Omit("id", "event_id", "created_at", clause.Associations).
		Updates(fromDomainTier(tier))
	return translateError(res.Error)
}

func (r *GormPricingRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&PricingTierModel{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTierNotFound
	}
	return nil
}

func (r *GormPricingRepository) SumAllocated(ctx context.Context, eventID, excludeTierID string) (int, error) {
	q := conn(ctx, r.db).Model(&PricingTierModel{}).Where("event_id = ?", eventID)
	if excludeTierID != "" {
		q = q.Where("id <> ?", excludeTierID)
	}
	var total int64
	if err := q.Select("COALESCE(SUM(seat_count), 0)").Scan(&total).Error; err != nil {
		return 0, translateError(err)
	}
	return int(total), nil
}
