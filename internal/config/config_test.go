package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/chatflow/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), *cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "chatflow.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":9000"
store:
  driver: redis
  ttl: 24h
engine:
  substantive_intents: [menu, payment]
log:
  level: debug
`), 0o644))
	t.Setenv("CHATFLOW_SERVER_ADDR", ":9100")
	t.Setenv("CHATFLOW_FLOWS_DIR", "/srv/flows")

	cfg, err := config.Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, "/srv/flows", cfg.Flows.Dir)
	assert.Equal(t, config.StoreRedis, cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, []string{"menu", "payment"}, cfg.Engine.SubstantiveIntents)
	assert.Equal(t, 50, cfg.Engine.MaxNodeVisits, "unset keys keep defaults")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CHATFLOW_STORE_DRIVER", "mongo")
	_, err := config.Load(viper.New(), "")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestLoad_DistributedLockNeedsRedis(t *testing.T) {
	t.Setenv("CHATFLOW_STORE_DISTRIBUTED_LOCK", "true")
	_, err := config.Load(viper.New(), "")
	assert.Error(t, err)
}

func TestLoad_LogFormat(t *testing.T) {
	t.Setenv("CHATFLOW_LOG_FORMAT", "json")
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Setenv("CHATFLOW_LOG_FORMAT", "xml")
	_, err = config.Load(viper.New(), "")
	assert.ErrorContains(t, err, "unknown log format")
}
