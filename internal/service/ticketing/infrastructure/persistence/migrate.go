package persistence

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Models lists every table in creation order.
func Models() []any {
	return []any{
		&EventModel{},
		&PricingTierModel{},
		&CouponModel{},
		&TicketModel{},
		&PurchaseLockModel{},
	}
}

// AutoMigrate creates or alters the schema. Callers serialize concurrent runs.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
