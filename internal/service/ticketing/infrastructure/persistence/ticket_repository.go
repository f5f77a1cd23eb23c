package persistence

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketing/internal/service/ticketing/domain"
)

const ticketBatchSize = 100

type GormTicketRepository struct {
	db *gorm.DB
}

func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

func (r *GormTicketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	models := make([]*TicketModel, 0, len(tickets))
	for _, t := range tickets {
		models = append(models, fromDomainTicket(t))
	}
	return translateError(conn(ctx, r.db).CreateInBatches(models, ticketBatchSize).Error)
}

func (r *GormTicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var model TicketModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, translateError(err)
	}
	return toDomainTicket(&model), nil
}

func (r *GormTicketRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	var models []TicketModel
	err := conn(ctx, r.db).Where("event_id = ?", eventID).
		Order("created_at ASC").Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	tickets := make([]*domain.Ticket, 0, len(models))
	for i := range models {
		tickets = append(tickets, toDomainTicket(&models[i]))
	}
	return tickets, nil
}

// Update writes the mutable ticket fields only.
func (r *GormTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	m := fromDomainTicket(ticket)
	res := conn(ctx, r.db).Model(&TicketModel{ID: ticket.ID}).
		Select("details", "cancel_until", "updated_at").
		Updates(m)
	return translateError(res.Error)
}

func (r *GormTicketRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&TicketModel{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *GormTicketRepository) CountByEventAndUser(ctx context.Context, eventID, userID string) (int, error) {
	return r.count(conn(ctx, r.db).Where("event_id = ? AND user_id = ?", eventID, userID))
}

func (r *GormTicketRepository) CountByTier(ctx context.Context, tierID string) (int, error) {
	return r.count(conn(ctx, r.db).Where("tier_id = ?", tierID))
}

func (r *GormTicketRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	return r.count(conn(ctx, r.db).Where("event_id = ?", eventID))
}

func (r *GormTicketRepository) CountByCoupon(ctx context.Context, code string) (int, error) {
	return r.count(conn(ctx, r.db).Where("coupon_code = ?", code))
}

func (r *GormTicketRepository) count(q *gorm.DB) (int, error) {
	var n int64
	if err := q.Model(&TicketModel{}).Count(&n).Error; err != nil {
		return 0, translateError(err)
	}
	return int(n), nil
}

func (r *GormTicketRepository) IssuedByTier(ctx context.Context, eventID string) (map[string]int, error) {
	var rows []struct {
		TierID string
		Issued int
	}
	err := conn(ctx, r.db).Model(&TicketModel{}).
		Select("tier_id, COUNT(*) AS issued").
		Where("event_id = ?", eventID).
		Group("tier_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.TierID] = row.Issued
	}
	return out, nil
}

// LockPurchaser holds the (event, user) row FOR UPDATE so concurrent purchases by one user
// on one event run their cap check one at a time. The row is created on first use.
func (r *GormTicketRepository) LockPurchaser(ctx context.Context, eventID, userID string) error {
	db := conn(ctx, r.db)
	found, err := r.lockRow(db, eventID, userID)
	if err != nil || found {
		return err
	}
	row := &PurchaseLockModel{EventID: eventID, UserID: userID}
	if err := db.Clauses(clause.Insert{Modifier: "IGNORE"}).Create(row).Error; err != nil {
		return translateError(err)
	}
	_, err = r.lockRow(db, eventID, userID)
	return err
}

func (r *GormTicketRepository) lockRow(db *gorm.DB, eventID, userID string) (bool, error) {
	var rows []PurchaseLockModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Limit(1).Find(&rows).Error
	if err != nil {
		return false, translateError(err)
	}
	return len(rows) > 0, nil
}
