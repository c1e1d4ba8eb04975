// Package config contains go-randomness node configuration definitions
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spacemeshos/go-randomness/api/server"
	"github.com/spacemeshos/go-randomness/checkpoint"
	"github.com/spacemeshos/go-randomness/metrics"
	"github.com/spacemeshos/go-randomness/ordering"
	"github.com/spacemeshos/go-randomness/protocol"
)

const (
	defaultConfigFileName = "./config.toml"
	defaultDataDirName    = "go-randomness"
)

var defaultDataDir = filepath.Join(os.TempDir(), defaultDataDirName)

// Config defines the top level configuration for a randomness node.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Preset     string            `mapstructure:"preset"`
	LOGGING    LoggerConfig      `mapstructure:"logging"`
	API        server.Config     `mapstructure:"api"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Protocol   protocol.Config   `mapstructure:"protocol"`
	Ordering   ordering.Config   `mapstructure:"ordering"`
	Ledger     LedgerConfig      `mapstructure:"ledger"`
	Recovery   checkpoint.Config `mapstructure:"recovery"`
}

// DataDir returns the absolute path to use for the node's data.
func (cfg *Config) DataDir() string {
	if abs, err := filepath.Abs(cfg.DataDirParent); err == nil {
		return abs
	}
	return cfg.DataDirParent
}

// BaseConfig defines the default configuration options for the node.
type BaseConfig struct {
	DataDirParent string `mapstructure:"data-folder"`
	ConfigFile    string `mapstructure:"config"`

	DatabaseConnections     int  `mapstructure:"db-connections"`
	DatabaseLatencyMetering bool `mapstructure:"db-latency-metering"`
}

// MetricsConfig defines where metrics are served and pushed.
type MetricsConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Address string             `mapstructure:"address"`
	Push    metrics.PushConfig `mapstructure:"push"`
}

// LedgerConfig defines how often the ledger is sealed and snapshotted.
type LedgerConfig struct {
	// CheckpointInterval seals pending records periodically. Zero leaves sealing to the ordering feed.
	CheckpointInterval time.Duration `mapstructure:"checkpoint-interval"`
	// SnapshotInterval writes a snapshot of the ledger periodically. Zero disables snapshots.
	SnapshotInterval time.Duration `mapstructure:"snapshot-interval"`
}

// DefaultConfig returns the default configuration for a randomness node.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		LOGGING:    defaultLoggingConfig(),
		API:        server.DefaultConfig(),
		Metrics: MetricsConfig{
			Address: "127.0.0.1:1010",
			Push: metrics.PushConfig{
				Period: time.Minute,
			},
		},
		Protocol: protocol.DefaultConfig(),
		Ordering: ordering.DefaultConfig(),
		Ledger: LedgerConfig{
			CheckpointInterval: 10 * time.Second,
			SnapshotInterval:   time.Hour,
		},
		Recovery: checkpoint.DefaultConfig(),
	}
}

// TestConfig returns a configuration suitable for tests: local ports are picked by the kernel and
// the beacon is enabled at genesis.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.DataDirParent = ""
	cfg.DatabaseConnections = 1
	cfg.API.Address = "127.0.0.1:0"
	cfg.API.RateLimit = 0
	cfg.Metrics.Address = "127.0.0.1:0"
	cfg.Protocol = protocol.GenesisEnabledConfig()
	cfg.Ordering.PollInterval = 10 * time.Millisecond
	cfg.Ledger.CheckpointInterval = 0
	cfg.Ledger.SnapshotInterval = 0
	return cfg
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		DataDirParent:       defaultDataDir,
		ConfigFile:          defaultConfigFileName,
		DatabaseConnections: 16,
	}
}

// LoadConfig load the config file.
func LoadConfig(config string, vip *viper.Viper) error {
	if len(config) == 0 {
		return nil
	}
	vip.SetConfigFile(config)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("can't load config at %s: %w", config, err)
	}
	return nil
}

// Unmarshal decodes everything set in vip on top of cfg.
func Unmarshal(vip *viper.Viper, cfg *Config) error {
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		func(dc *mapstructure.DecoderConfig) {
			dc.IgnoreUntaggedFields = true
			dc.ErrorUnused = true
		},
	}
	if err := vip.Unmarshal(cfg, opts...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Validate reports every invalid value of the configuration.
func (cfg *Config) Validate() error {
	var result *multierror.Error
	if cfg.DataDirParent == "" {
		result = multierror.Append(result, errors.New("main.data-folder must be set"))
	}
	if cfg.DatabaseConnections < 1 {
		result = multierror.Append(result,
			fmt.Errorf("main.db-connections must be positive, got %d", cfg.DatabaseConnections))
	}
	if err := cfg.LOGGING.validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if cfg.API.Address == "" {
		result = multierror.Append(result, errors.New("api.address must be set"))
	}
	if cfg.API.RateLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("api.rate-limit must not be negative, got %v", cfg.API.RateLimit))
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		result = multierror.Append(result, errors.New("metrics.address must be set when metrics are enabled"))
	}
	if cfg.Metrics.Push.URL != "" && cfg.Metrics.Push.Period <= 0 {
		result = multierror.Append(result, errors.New("metrics.push.period must be positive"))
	}
	if _, err := protocol.NewSchedule(cfg.Protocol); err != nil {
		result = multierror.Append(result, fmt.Errorf("protocol: %w", err))
	}
	if cfg.Ordering.PollInterval < 0 {
		result = multierror.Append(result, errors.New("ordering.poll-interval must not be negative"))
	}
	if cfg.Ledger.CheckpointInterval < 0 {
		result = multierror.Append(result, errors.New("ledger.checkpoint-interval must not be negative"))
	}
	if cfg.Ledger.SnapshotInterval < 0 {
		result = multierror.Append(result, errors.New("ledger.snapshot-interval must not be negative"))
	}
	return result.ErrorOrNil()
}
