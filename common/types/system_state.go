package types

//go:generate scalegen -types SystemState,ChangeEpoch

// SystemStateType is the type tag of the system state object.
const SystemStateType = "0x3::system::SystemState"

// SystemState is the content of the system state object. Every epoch change mutates it.
type SystemState struct {
	Epoch           EpochID
	ProtocolVersion ProtocolVersion
	// Round is the last consensus commit round seen by the ledger.
	Round RoundID
}

// ChangeEpoch is the ledger generated transaction that moves the system to the next epoch.
type ChangeEpoch struct {
	Epoch           EpochID
	ProtocolVersion ProtocolVersion
	Round           RoundID
	TimestampMs     uint64
}

// EpochInfo describes an epoch the ledger entered.
type EpochInfo struct {
	Epoch    EpochID
	Protocol *ProtocolConfig
	// StartRound is the last round seen when the epoch started.
	StartRound RoundID
	// StartCheckpoint is the sequence of the first checkpoint that can belong to the epoch.
	StartCheckpoint CheckpointSequence
	StartTimestampMs uint64
}
