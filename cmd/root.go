package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/go-randomness/config"
	"github.com/spacemeshos/go-randomness/config/presets"
)

// AddFlags adds cobra flags to the app and returns the path of the config file.
func AddFlags(flagSet *pflag.FlagSet, cfg *config.Config) (configPath *string) {
	configPath = flagSet.StringP("config", "c", "", "load configuration from file")
	flagSet.StringVarP(&cfg.Preset, "preset", "p", "",
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== BaseConfig Flags ========================== **/
	flagSet.StringVarP(&cfg.BaseConfig.DataDirParent, "data-folder", "d",
		cfg.BaseConfig.DataDirParent, "specify data directory for the node")
	flagSet.IntVar(&cfg.DatabaseConnections, "db-connections",
		cfg.DatabaseConnections, "configure number of active connections to enable parallel read requests")
	flagSet.BoolVar(&cfg.DatabaseLatencyMetering, "db-latency-metering",
		cfg.DatabaseLatencyMetering, "if enabled collect latency histogram for every database query")
	flagSet.StringVar(&cfg.LOGGING.Encoder, "log-encoder",
		cfg.LOGGING.Encoder, "log as JSON instead of plain text")

	/** ======================== Metrics Flags ========================== **/
	flagSet.BoolVar(&cfg.Metrics.Enabled, "metrics",
		cfg.Metrics.Enabled, "collect node metrics")
	flagSet.StringVar(&cfg.Metrics.Address, "metrics-address",
		cfg.Metrics.Address, "address of the metrics server")
	flagSet.StringVar(&cfg.Metrics.Push.URL, "metrics-push",
		cfg.Metrics.Push.URL, "push metrics to url")
	flagSet.DurationVar(&cfg.Metrics.Push.Period, "metrics-push-period",
		cfg.Metrics.Push.Period, "push period")

	/** ======================== API Flags ========================== **/
	flagSet.StringVar(&cfg.API.Address, "api-address",
		cfg.API.Address, "address of the http api")
	flagSet.StringSliceVar(&cfg.API.AllowedOrigins, "api-allowed-origins",
		cfg.API.AllowedOrigins, "origins allowed to query the http api from a browser")
	flagSet.Float64Var(&cfg.API.RateLimit, "api-rate-limit",
		cfg.API.RateLimit, "requests per second served by the http api, 0 disables the limit")

	/** ======================== Ordering Flags ========================== **/
	flagSet.StringVar(&cfg.Ordering.Path, "events-file",
		cfg.Ordering.Path, "file with ordered consensus events to apply to the ledger")
	flagSet.DurationVar(&cfg.Ordering.PollInterval, "poll-interval",
		cfg.Ordering.PollInterval, "follow the events file and poll it for new events at this interval")

	/** ======================== Ledger Flags ========================== **/
	flagSet.DurationVar(&cfg.Ledger.CheckpointInterval, "checkpoint-interval",
		cfg.Ledger.CheckpointInterval, "seal pending transactions into a checkpoint at this interval")
	flagSet.DurationVar(&cfg.Ledger.SnapshotInterval, "snapshot-interval",
		cfg.Ledger.SnapshotInterval, "write a snapshot of the ledger at this interval")

	/** ======================== Recovery Flags ========================== **/
	flagSet.StringVar(&cfg.Recovery.Uri, "recovery-uri",
		cfg.Recovery.Uri, "recover an empty node from the snapshot at this uri (file:// or http(s)://)")

	return configPath
}
