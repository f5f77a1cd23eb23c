package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config is the full service configuration, loaded from YAML and overridden by the environment.
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	Name               string        `yaml:"name"`
	Port               int           `yaml:"port"`
	LogLevel           string        `yaml:"log_level"`
	PurchaseTimeout    time.Duration `yaml:"purchase_timeout"`
	CancellationWindow time.Duration `yaml:"cancellation_window"`
	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Identity  IdentityConfig  `yaml:"identity"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	TicketsTopic string   `yaml:"tickets_topic"`
}

// NacosConfig leaves ServerAddrs empty to run without registration.
type NacosConfig struct {
	ServerAddrs string `yaml:"server_addrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// IdentityConfig selects how callers are identified. Mode is "http" or "header".
type IdentityConfig struct {
	Mode        string        `yaml:"mode"`
	BaseURL     string        `yaml:"base_url"`
	ServiceName string        `yaml:"service_name"`
	Timeout     time.Duration `yaml:"timeout"`
}

var current atomic.Pointer[Config]

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:               "ticketing-service",
			Port:               8080,
			LogLevel:           "info",
			PurchaseTimeout:    5 * time.Second,
			CancellationWindow: 24 * time.Hour,
			IdempotencyTTL:     24 * time.Hour,
			ShutdownTimeout:    10 * time.Second,
		},
		Infra: InfraConfig{
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			MySQL: MySQLConfig{
				MaxOpenConns:    50,
				MaxIdleConns:    10,
				ConnMaxLifetime: 30 * time.Minute,
			},
			Redis:     RedisConfig{Addrs: []string{"localhost:6379"}},
			Kafka:     KafkaConfig{TicketsTopic: "tickets-issued"},
			Nacos:     NacosConfig{Group: "DEFAULT_GROUP"},
			Zookeeper: ZookeeperConfig{SessionTimeout: 10 * time.Second},
			Identity: IdentityConfig{
				Mode:        "http",
				ServiceName: "identity-service",
				Timeout:     3 * time.Second,
			},
		},
	}
}

// LoadConfig reads the YAML file at path (CONFIG_PATH or the default when empty), applies
// environment overrides and installs the result as the current configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = getEnv("CONFIG_PATH", defaultConfigPath)
	}
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err):
		// env-only deployments
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// GetCurrentConfig returns the last loaded configuration, or the defaults.
func GetCurrentConfig() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	return DefaultConfig()
}

func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.Errorf("app.port out of range: %d", c.App.Port)
	}
	if c.App.PurchaseTimeout <= 0 {
		return errors.New("app.purchase_timeout must be positive")
	}
	if c.App.CancellationWindow < 0 {
		return errors.New("app.cancellation_window must not be negative")
	}
	switch c.Infra.Identity.Mode {
	case "http", "header":
	default:
		return errors.Errorf("infra.identity.mode must be http or header, got %q", c.Infra.Identity.Mode)
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	if v := getEnv("PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.App.Port = port
		}
	}
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.Infra.MySQL.DSN = getEnv("MYSQL_DSN", c.Infra.MySQL.DSN)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.ServerAddrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)
	c.Infra.Identity.BaseURL = getEnv("IDENTITY_BASE_URL", c.Infra.Identity.BaseURL)
	c.Infra.Identity.Mode = getEnv("IDENTITY_MODE", c.Infra.Identity.Mode)
	if v := getEnv("REDIS_ADDRS", ""); v != "" {
		c.Infra.Redis.Addrs = splitList(v)
	}
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Infra.Kafka.Brokers = splitList(v)
	}
	if v := getEnv("ZOOKEEPER_SERVERS", ""); v != "" {
		c.Infra.Zookeeper.Servers = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
