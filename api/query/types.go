package query

import (
	"encoding/json"

	"github.com/spacemeshos/go-randomness/common/types"
)

// FeatureFlag is the value of a named protocol feature.
type FeatureFlag struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// ProtocolConfigs is the protocol configuration of the active epoch.
type ProtocolConfigs struct {
	ProtocolVersion uint64        `json:"protocolVersion"`
	FeatureFlags    []FeatureFlag `json:"featureFlags"`
}

// FeatureFlag returns the flag by key. Unknown flags are reported as disabled.
func (c *ProtocolConfigs) FeatureFlag(key string) FeatureFlag {
	for _, flag := range c.FeatureFlags {
		if flag.Key == key {
			return flag
		}
	}
	return FeatureFlag{Key: key}
}

// EpochRef identifies an epoch.
type EpochRef struct {
	EpochID uint32 `json:"epochId"`
}

// SystemState summarizes the latest committed ledger state.
type SystemState struct {
	Epoch           EpochRef        `json:"epoch"`
	Version         uint64          `json:"version"`
	Round           uint64          `json:"round"`
	StartTimestamp  uint64          `json:"startTimestampMs"`
	ProtocolConfigs ProtocolConfigs `json:"protocolConfigs"`
}

// Location is where an object lives.
type Location string

const (
	LocationShared    Location = "shared"
	LocationImmutable Location = "immutable"
	LocationSystem    Location = "system"
)

// ObjectContents is a typed view of object contents.
type ObjectContents struct {
	Type string          `json:"type"`
	JSON json.RawMessage `json:"json"`
	// BCS is the raw encoded contents.
	BCS types.Base64Enc `json:"bcs"`
}

// Object is the latest version of an object.
type Object struct {
	Address              types.Address   `json:"address"`
	Location             Location        `json:"location"`
	Version              uint64          `json:"version"`
	InitialSharedVersion *uint64         `json:"initialSharedVersion"`
	PreviousTransaction  string          `json:"previousTransaction"`
	Contents             *ObjectContents `json:"contents"`
}

// RandomnessJSON is the structured form of the beacon object.
type RandomnessJSON struct {
	ID              types.Address   `json:"id"`
	Epoch           uint32          `json:"epoch"`
	RandomnessRound *uint64         `json:"randomness_round"`
	RandomBytes     types.Base64Enc `json:"random_bytes"`
}

// SystemStateJSON is the structured form of the system state object.
type SystemStateJSON struct {
	Epoch           uint32 `json:"epoch"`
	ProtocolVersion uint64 `json:"protocol_version"`
	Round           uint64 `json:"round"`
}

// TransactionNode is a committed transaction. Randomness fields are set only for kinds that
// carry them.
type TransactionNode struct {
	Digest         string                `json:"digest"`
	Sequence       uint64                `json:"sequence"`
	Kind           types.TransactionKind `json:"kind"`
	Epoch          EpochRef              `json:"epoch"`
	Round          uint64                `json:"round"`
	LamportVersion uint64                `json:"lamportVersion"`
	Checkpoint     *uint64               `json:"checkpoint"`

	RandomnessRound                   *uint64         `json:"randomnessRound,omitempty"`
	RandomBytes                       types.Base64Enc `json:"randomBytes,omitempty"`
	RandomnessObjInitialSharedVersion *uint64         `json:"randomnessObjInitialSharedVersion,omitempty"`

	Cursor string `json:"cursor"`
}

// PageInfo describes the position of a page within the history.
type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
}

// TransactionConnection is a page of the history in commit order.
type TransactionConnection struct {
	Nodes    []*TransactionNode `json:"nodes"`
	PageInfo PageInfo           `json:"pageInfo"`
}

// TransactionsRequest selects a page of the history. Cursors are taken from TransactionNode.Cursor.
type TransactionsRequest struct {
	First  int
	After  string
	Last   int
	Before string
	// Kind filters the page. Zero matches every kind.
	Kind types.TransactionKind
}
