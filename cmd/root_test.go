package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/config"
)

func TestAddFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	flagSet := pflag.NewFlagSet("node", pflag.ContinueOnError)
	configPath := AddFlags(flagSet, &cfg)

	require.NoError(t, flagSet.Parse([]string{
		"-c", "/etc/randomness.toml",
		"-d", "/var/lib/randomness",
		"--events-file", "/var/lib/randomness/events.ndjson",
		"--poll-interval", "100ms",
		"--api-allowed-origins", "https://a.example,https://b.example",
		"--metrics",
		"--recovery-uri", "file:///tmp/snapshot-10",
	}))
	require.Equal(t, "/etc/randomness.toml", *configPath)
	require.Equal(t, "/var/lib/randomness", cfg.DataDirParent)
	require.Equal(t, "/var/lib/randomness/events.ndjson", cfg.Ordering.Path)
	require.Equal(t, 100*time.Millisecond, cfg.Ordering.PollInterval)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, "file:///tmp/snapshot-10", cfg.Recovery.Uri)

	defaults := config.DefaultConfig()
	require.Equal(t, defaults.Ledger, cfg.Ledger)
	require.Equal(t, defaults.API.Address, cfg.API.Address)
}
