package persistence

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ticketing/internal/pkg/bootstrap"
	"ticketing/internal/service/ticketing/domain"
)

// MySQL error numbers the repositories translate.
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errRowIsReferenced = 1451
	errCheckViolated   = 3819
)

// Open connects to MySQL and applies the pool settings.
func Open(ctx context.Context, cfg bootstrap.MySQLConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("mysql dsn is empty")
	}
	db, err := gorm.Open(gormmysql.Open(cfg.DSN), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "mysql pool")
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}

// translateError maps driver errors onto the domain taxonomy. Domain errors pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateEntry:
			return domain.NewConflict("duplicate", "resource already exists")
		case errLockWaitTimeout, errDeadlock:
			return domain.NewConflict("concurrent_update", "concurrent update, retry the request")
		case errRowIsReferenced:
			return domain.NewConflict("in_use", "resource is still referenced")
		case errCheckViolated:
			return domain.NewValidation("constraint_violated", "%s", me.Message)
		}
	}
	return &wrappedInternal{cause: errors.WithStack(err)}
}

// wrappedInternal keeps the driver error as cause while matching domain.ErrInternal.
type wrappedInternal struct {
	cause error
}

func (e *wrappedInternal) Error() string { return "storage: " + e.cause.Error() }

func (e *wrappedInternal) Unwrap() error { return e.cause }

func (e *wrappedInternal) Is(target error) bool { return target == domain.ErrInternal }
