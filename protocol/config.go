package protocol

import (
	"github.com/spacemeshos/go-randomness/common/types"
)

// Upgrade switches the protocol version and feature flags starting from an epoch.
// Flags not mentioned by an upgrade keep the value of the previous upgrade.
type Upgrade struct {
	Epoch    types.EpochID         `mapstructure:"epoch"`
	Version  types.ProtocolVersion `mapstructure:"version"`
	Features map[string]bool       `mapstructure:"features"`
}

// Config is the configuration of the protocol schedule.
type Config struct {
	Upgrades []Upgrade `mapstructure:"upgrades"`
}

// DefaultConfig enables the randomness beacon from the first epoch after genesis.
func DefaultConfig() Config {
	return Config{
		Upgrades: []Upgrade{
			{Epoch: 0, Version: 1, Features: map[string]bool{types.FeatureRandomBeacon: false}},
			{Epoch: 1, Version: 2, Features: map[string]bool{types.FeatureRandomBeacon: true}},
		},
	}
}

// GenesisEnabledConfig enables the randomness beacon at genesis.
func GenesisEnabledConfig() Config {
	return Config{
		Upgrades: []Upgrade{
			{Epoch: 0, Version: 1, Features: map[string]bool{types.FeatureRandomBeacon: true}},
		},
	}
}
