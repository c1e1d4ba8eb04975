package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/protocol"
)

func writeConfig(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	vip := viper.New()
	err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), vip)
	require.ErrorContains(t, err, "can't load config")

	require.NoError(t, LoadConfig("", vip))
}

func TestUnmarshal(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[main]
data-folder = "/var/lib/randomness"
db-connections = 4

[logging]
log-encoder = "json"
ledger = "debug"

[api]
address = "0.0.0.0:9000"
allowed-origins = "https://a.example,https://b.example"
read-timeout = "3s"

[ordering]
path = "/var/lib/randomness/events.ndjson"
poll-interval = "250ms"

[ledger]
checkpoint-interval = "1m"

[recovery]
recovery-uri = "https://snapshots.example/snapshot-10"

[[protocol.upgrades]]
epoch = 0
version = 1
[protocol.upgrades.features]
random_beacon = false

[[protocol.upgrades]]
epoch = 4
version = 2
[protocol.upgrades.features]
random_beacon = true
`)
	vip := viper.New()
	require.NoError(t, LoadConfig(path, vip))
	cfg := DefaultConfig()
	require.NoError(t, Unmarshal(vip, &cfg))

	require.Equal(t, "/var/lib/randomness", cfg.DataDirParent)
	require.Equal(t, 4, cfg.DatabaseConnections)
	require.Equal(t, JSONLogEncoder, cfg.LOGGING.Encoder)
	require.Equal(t, "debug", cfg.LOGGING.LedgerLoggerLevel)
	require.Equal(t, "info", cfg.LOGGING.APILoggerLevel)
	require.Equal(t, "0.0.0.0:9000", cfg.API.Address)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
	require.Equal(t, 3*time.Second, cfg.API.ReadTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.Ordering.PollInterval)
	require.Equal(t, time.Minute, cfg.Ledger.CheckpointInterval)
	require.Equal(t, time.Hour, cfg.Ledger.SnapshotInterval)
	require.Equal(t, "https://snapshots.example/snapshot-10", cfg.Recovery.Uri)
	require.Equal(t, []protocol.Upgrade{
		{Epoch: 0, Version: 1, Features: map[string]bool{types.FeatureRandomBeacon: false}},
		{Epoch: 4, Version: 2, Features: map[string]bool{types.FeatureRandomBeacon: true}},
	}, cfg.Protocol.Upgrades)
	require.NoError(t, cfg.Validate())
}

func TestUnmarshalUnknownKey(t *testing.T) {
	path := writeConfig(t, "config.json", `{"api": {"adress": "127.0.0.1:1"}}`)
	vip := viper.New()
	require.NoError(t, LoadConfig(path, vip))
	cfg := DefaultConfig()
	require.ErrorContains(t, Unmarshal(vip, &cfg), "adress")
}

func TestValidate(t *testing.T) {
	require.NoError(t, func() error {
		cfg := DefaultConfig()
		return cfg.Validate()
	}())

	cfg := TestConfig()
	cfg.DataDirParent = ""
	cfg.DatabaseConnections = 0
	cfg.LOGGING.Encoder = "xml"
	cfg.LOGGING.OrderingLoggerLevel = "loud"
	cfg.API.RateLimit = -1
	cfg.Protocol = protocol.Config{}
	cfg.Ledger.CheckpointInterval = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 7)
	require.ErrorIs(t, err, protocol.ErrNoGenesisUpgrade)
	for _, key := range []string{
		"main.data-folder", "main.db-connections", "logging.log-encoder", "logging.ordering",
		"api.rate-limit", "protocol", "ledger.checkpoint-interval",
	} {
		require.ErrorContains(t, err, key)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	cfg.DataDirParent = t.TempDir()
	require.NoError(t, cfg.Validate())
	require.Equal(t, cfg.DataDirParent, cfg.DataDir())
}
