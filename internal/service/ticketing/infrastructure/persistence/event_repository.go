package persistence

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketing/internal/service/ticketing/domain"
)

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, event *domain.Event) error {
	return translateError(conn(ctx, r.db).Omit(clause.Associations).Create(fromDomainEvent(event)).Error)
}

func (r *GormEventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.find(conn(ctx, r.db), id)
}

func (r *GormEventRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormEventRepository) find(db *gorm.DB, id string) (*domain.Event, error) {
	var model EventModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, translateError(err)
	}
	return toDomainEvent(&model), nil
}

func (r *GormEventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	q := conn(ctx, r.db).Model(&EventModel{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.ManagerID != "" {
		q = q.Where("manager_id = ?", filter.ManagerID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var models []EventModel
	if err := q.Order("start_date ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}
	events := make([]*domain.Event, 0, len(models))
	for i := range models {
		events = append(events, toDomainEvent(&models[i]))
	}
	return events, nil
}

func (r *GormEventRepository) Update(ctx context.Context, event *domain.Event) error {
	res := conn(ctx, r.db).Model(&EventModel{ID: event.ID}).
		Select("*").Omit("id", "created_at", clause.Associations).
		Updates(fromDomainEvent(event))
	return translateError(res.Error)
}

// Delete relies on the ON DELETE CASCADE foreign keys for tiers, coupons and purchase locks.
func (r *GormEventRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&EventModel{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
