// Package presets holds named configurations that replace the defaults before a config file is applied.
package presets

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/spacemeshos/go-randomness/config"
)

var presets = map[string]config.Config{}

func register(name string, preset config.Config) {
	if _, exist := presets[name]; exist {
		panic(fmt.Sprintf("preset with name %s already exists", name))
	}
	presets[name] = preset
}

// Options returns the names of all registered presets.
func Options() []string {
	var rst []string
	for name := range presets {
		rst = append(rst, name)
	}
	sort.Strings(rst)
	return rst
}

// Get returns the preset registered under name.
func Get(name string) (config.Config, error) {
	preset, exist := presets[name]
	if !exist {
		return config.Config{}, fmt.Errorf("preset %s is not registered. select one from the options %+s",
			name, Options())
	}
	preset.Protocol.Upgrades = slices.Clone(preset.Protocol.Upgrades)
	for i := range preset.Protocol.Upgrades {
		preset.Protocol.Upgrades[i].Features = maps.Clone(preset.Protocol.Upgrades[i].Features)
	}
	preset.API.AllowedOrigins = slices.Clone(preset.API.AllowedOrigins)
	return preset, nil
}
