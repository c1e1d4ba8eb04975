package presets

import (
	"time"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/config"
	"github.com/spacemeshos/go-randomness/protocol"
)

func init() {
	register("testnet", testnet())
}

func testnet() config.Config {
	conf := config.DefaultConfig()
	conf.Preset = "testnet"
	conf.LOGGING.Encoder = config.JSONLogEncoder
	conf.Metrics.Enabled = true
	conf.API.Address = "0.0.0.0:9070"

	// the beacon is switched on by the second upgrade, mirroring a network that adopts it after launch
	conf.Protocol = protocol.Config{
		Upgrades: []protocol.Upgrade{
			{Epoch: 0, Version: 1, Features: map[string]bool{types.FeatureRandomBeacon: false}},
			{Epoch: 2, Version: 2},
			{Epoch: 3, Version: 3, Features: map[string]bool{types.FeatureRandomBeacon: true}},
		},
	}
	conf.Ledger.CheckpointInterval = 5 * time.Second
	conf.Ledger.SnapshotInterval = 30 * time.Minute
	return conf
}
