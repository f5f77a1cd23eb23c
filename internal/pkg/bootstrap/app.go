package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/metrics"
	"ticketing/internal/pkg/nacos"
	"ticketing/internal/pkg/tracing"
)

// ShutdownHook releases a resource acquired while registering handlers.
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// AppCtx is handed to RegisterHandlers so each service can mount routes and own resources.
type AppCtx struct {
	Mux    *http.ServeMux
	Nacos  *nacos.Client // nil when Nacos is not configured
	Config *Config

	hooks *[]ShutdownHook
}

// OnShutdown registers a cleanup step. Hooks run in reverse registration order.
func (a AppCtx) OnShutdown(name string, fn func(ctx context.Context) error) {
	*a.hooks = append(*a.hooks, ShutdownHook{Name: name, Fn: fn})
}

// AppInfo holds everything specific to one service binary.
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) error
}

// StartService wires the shared runtime (logging, tracing, registry, HTTP server) and blocks
// until SIGINT/SIGTERM, then shuts everything down.
func StartService(info AppInfo) {
	cfg, err := LoadConfig("")
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	if info.Port == 0 {
		info.Port = cfg.App.Port
	}
	logger.Init(info.ServiceName, cfg.App.LogLevel)
	log := logger.L()

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	var (
		namingClient *nacos.Client
		ip           string
	)
	if cfg.Infra.Nacos.ServerAddrs != "" {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		if ip, err = outboundIP(); err != nil {
			log.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
	}

	var hooks []ShutdownHook
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient, Config: cfg, hooks: &hooks}); err != nil {
			log.Fatal().Err(err).Msg("failed to register handlers")
		}
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           metrics.InstrumentHandler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	// Registered once the listener goroutine is running.
	if namingClient != nil {
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msgf("shutting down service %s", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	// LIFO: deregister, stop accepting requests, release service resources, flush traces.
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Error().Err(err).Msg("error deregistering from nacos")
		}
		namingClient.Close()
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	} else {
		log.Info().Msg("http server shut down")
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].Fn(ctx); err != nil {
			log.Error().Err(err).Str("resource", hooks[i].Name).Msg("error releasing resource")
		}
	}

	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down tracer provider")
	}

	log.Info().Msgf("service %s gracefully shut down", info.ServiceName)
}

func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
