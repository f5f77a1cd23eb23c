package main

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"ticketing/internal/pkg/bootstrap"
	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/httpclient"
	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/mq"
	"ticketing/internal/pkg/redis"
	"ticketing/internal/service/ticketing/application"
	"ticketing/internal/service/ticketing/domain/port"
	"ticketing/internal/service/ticketing/infrastructure/adapter"
	"ticketing/internal/service/ticketing/infrastructure/persistence"
	"ticketing/internal/service/ticketing/infrastructure/rule"
	"ticketing/internal/service/ticketing/interfaces"
)

const serviceName = "ticketing-service"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		RegisterHandlers: registerHandlers,
	})
}

// registerHandlers is the composition root: it builds every adapter, wires the
// application services and mounts the HTTP routes.
func registerHandlers(app bootstrap.AppCtx) error {
	cfg := app.Config
	ctx := context.Background()
	log := logger.L()
	tracer := otel.Tracer(serviceName)

	db, err := persistence.Open(ctx, cfg.Infra.MySQL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "mysql pool")
	}
	app.OnShutdown("mysql", func(context.Context) error { return sqlDB.Close() })
	checks := []interfaces.ReadinessCheck{{Name: "mysql", Check: sqlDB.PingContext}}

	var idempotency port.IdempotencyStore
	if len(cfg.Infra.Redis.Addrs) > 0 {
		rc, err := redis.NewClient(ctx, cfg.Infra.Redis.Addrs, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, Idempotency-Key support disabled")
		} else {
			idempotency = adapter.NewIdempotencyRedisAdapter(rc.GetClient(), cfg.App.IdempotencyTTL)
			app.OnShutdown("redis", func(context.Context) error { return rc.Close() })
			checks = append(checks, interfaces.ReadinessCheck{Name: "redis", Check: rc.Ping})
		}
	}

	live := interfaces.NewLiveHub()
	app.OnShutdown("live-feed", live.Close)
	sinks := []adapter.Sink{{Name: "live", Publisher: live}}
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		kafkaPublisher := adapter.NewTicketKafkaAdapter(mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.TicketsTopic))
		app.OnShutdown("kafka", func(context.Context) error { return kafkaPublisher.Close() })
		sinks = append(sinks, adapter.Sink{Name: "kafka", Publisher: kafkaPublisher})
	} else {
		log.Warn().Msg("no kafka brokers configured, TicketsIssued goes to the live feed only")
	}

	conditions, err := rule.NewCELConditionEngine()
	if err != nil {
		return err
	}

	var identity port.IdentityProvider
	switch cfg.Infra.Identity.Mode {
	case "header":
		identity = adapter.NewIdentityHeaderAdapter()
	default:
		var resolver adapter.BaseURLResolver
		if app.Nacos != nil {
			resolver = app.Nacos
		}
		identity = adapter.NewIdentityHTTPAdapter(httpclient.NewClient(tracer), cfg.Infra.Identity.BaseURL,
			cfg.Infra.Identity.ServiceName, resolver, cfg.Infra.Identity.Timeout)
	}

	tx := persistence.NewTxManager(db)
	events := persistence.NewGormEventRepository(db)
	tiers := persistence.NewGormPricingRepository(db)
	coupons := persistence.NewGormCouponRepository(db)
	tickets := persistence.NewGormTicketRepository(db)
	clk := clock.NewSystem()

	couponService := application.NewCouponService(tx, events, tiers, coupons, tickets, clk, tracer)
	handler := interfaces.NewTicketingHandler(interfaces.HandlerDeps{
		Events:  application.NewEventService(tx, events, tiers, tickets, clk, tracer),
		Tiers:   application.NewPricingService(tx, events, tiers, tickets, conditions, clk, tracer),
		Coupons: couponService,
		Issuance: application.NewIssuanceService(application.IssuanceDeps{
			Tx:          tx,
			Events:      events,
			Tiers:       tiers,
			Tickets:     tickets,
			Coupons:     couponService,
			Conditions:  conditions,
			Publisher:   adapter.NewFanoutPublisher(sinks...),
			Idempotency: idempotency,
			Clock:       clk,
			Tracer:      tracer,
		}, application.IssuanceConfig{
			PurchaseTimeout:    cfg.App.PurchaseTimeout,
			CancellationWindow: cfg.App.CancellationWindow,
		}),
		Identity: identity,
		Live:     live,
		Checks:   checks,
	})
	handler.RegisterRoutes(app.Mux)
	return nil
}
