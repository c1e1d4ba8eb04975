package types

import (
	"maps"
	"slices"
)

// FeatureRandomBeacon is the feature flag that enables the randomness beacon object.
const FeatureRandomBeacon = "random_beacon"

// ProtocolVersion identifies the rules the ledger runs under.
type ProtocolVersion uint64

// ProtocolConfig is the protocol configuration in effect for an epoch.
type ProtocolConfig struct {
	Version      ProtocolVersion
	FeatureFlags map[string]bool
}

// Enabled is true if the flag is present and set.
func (c *ProtocolConfig) Enabled(flag string) bool {
	if c == nil {
		return false
	}
	return c.FeatureFlags[flag]
}

// Flag returns the value of the flag and whether it is known.
func (c *ProtocolConfig) Flag(flag string) (value, ok bool) {
	if c == nil {
		return false, false
	}
	value, ok = c.FeatureFlags[flag]
	return value, ok
}

// FlagNames returns the names of all known flags in sorted order.
func (c *ProtocolConfig) FlagNames() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.FeatureFlags))
}

// Clone returns a deep copy of the config.
func (c *ProtocolConfig) Clone() *ProtocolConfig {
	if c == nil {
		return nil
	}
	return &ProtocolConfig{
		Version:      c.Version,
		FeatureFlags: maps.Clone(c.FeatureFlags),
	}
}
