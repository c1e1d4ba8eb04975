package protocol

import (
	"errors"
	"fmt"
	"maps"

	"github.com/spacemeshos/go-randomness/common/types"
)

var (
	// ErrNoGenesisUpgrade is returned if the schedule doesn't start at epoch 0.
	ErrNoGenesisUpgrade = errors.New("protocol: schedule must start at epoch 0")
	// ErrUnordered is returned if upgrades are not strictly ordered by epoch and version.
	ErrUnordered = errors.New("protocol: upgrades are not ordered")
)

// Schedule answers which protocol configuration is in effect for an epoch.
type Schedule struct {
	// configs[i] is the accumulated config starting at epochs[i].
	epochs  []types.EpochID
	configs []*types.ProtocolConfig
}

// NewSchedule validates the upgrades and accumulates their feature flags.
func NewSchedule(cfg Config) (*Schedule, error) {
	if len(cfg.Upgrades) == 0 || cfg.Upgrades[0].Epoch != 0 {
		return nil, ErrNoGenesisUpgrade
	}
	s := &Schedule{}
	flags := map[string]bool{}
	for i, upgrade := range cfg.Upgrades {
		if i > 0 {
			prev := cfg.Upgrades[i-1]
			if upgrade.Epoch <= prev.Epoch || upgrade.Version < prev.Version {
				return nil, fmt.Errorf("%w: upgrade %d (epoch %s, version %d) after epoch %s, version %d",
					ErrUnordered, i, upgrade.Epoch, upgrade.Version, prev.Epoch, prev.Version)
			}
		}
		maps.Copy(flags, upgrade.Features)
		s.epochs = append(s.epochs, upgrade.Epoch)
		s.configs = append(s.configs, &types.ProtocolConfig{
			Version:      upgrade.Version,
			FeatureFlags: maps.Clone(flags),
		})
	}
	return s, nil
}

// ProtocolConfig returns a copy of the configuration in effect for the epoch.
func (s *Schedule) ProtocolConfig(epoch types.EpochID) (*types.ProtocolConfig, error) {
	for i := len(s.epochs) - 1; i >= 0; i-- {
		if s.epochs[i] <= epoch {
			return s.configs[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("no protocol config for epoch %s", epoch)
}
