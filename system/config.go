package system

import (
	"github.com/spacemeshos/go-randomness/common/types"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/config.go -source=./config.go

// ConfigProvider returns the protocol configuration in effect for an epoch.
type ConfigProvider interface {
	ProtocolConfig(types.EpochID) (*types.ProtocolConfig, error)
}
