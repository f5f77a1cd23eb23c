package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml values over defaults", func(t *testing.T) {
		path := writeConfig(t, `
app:
  port: 9090
  purchase_timeout: 2s
infra:
  redis:
    addrs: ["redis-a:6379", "redis-b:6379"]
  kafka:
    brokers: ["kafka:9092"]
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.App.Port)
		assert.Equal(t, 2*time.Second, cfg.App.PurchaseTimeout)
		assert.Equal(t, 24*time.Hour, cfg.App.CancellationWindow)
		assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, cfg.Infra.Redis.Addrs)
		assert.Equal(t, "tickets-issued", cfg.Infra.Kafka.TicketsTopic)
		assert.Same(t, cfg, GetCurrentConfig())
	})

	t.Run("environment overrides yaml", func(t *testing.T) {
		path := writeConfig(t, "app:\n  port: 9090\n")
		t.Setenv("PORT", "7070")
		t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/t")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
		t.Setenv("ZOOKEEPER_SERVERS", "zk:2181")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.App.Port)
		assert.Equal(t, "u:p@tcp(db:3306)/t", cfg.Infra.MySQL.DSN)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Infra.Kafka.Brokers)
		assert.Equal(t, []string{"zk:2181"}, cfg.Infra.Zookeeper.Servers)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.App.Port)
		assert.Equal(t, 5*time.Second, cfg.App.PurchaseTimeout)
	})

	t.Run("invalid identity mode", func(t *testing.T) {
		path := writeConfig(t, "infra:\n  identity:\n    mode: ldap\n")
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "infra.identity.mode")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "app: [")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
