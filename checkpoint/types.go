package checkpoint

import (
	"github.com/spacemeshos/go-randomness/common/types"
)

type Snapshot struct {
	Version string    `json:"version"`
	Data    InnerData `json:"data"`
}

type InnerData struct {
	SnapshotID   string        `json:"id"`
	Checkpoint   *Checkpoint   `json:"checkpoint,omitempty"`
	Epochs       []Epoch       `json:"epochs"`
	Objects      []Object      `json:"objects"`
	Transactions []Transaction `json:"transactions"`
}

type Checkpoint struct {
	Sequence    uint64          `json:"sequence"`
	Epoch       uint32          `json:"epoch"`
	Digest      types.Base64Enc `json:"digest"`
	FirstTx     uint64          `json:"firstTx"`
	LastTx      uint64          `json:"lastTx"`
	TimestampMs uint64          `json:"timestampMs"`
}

type Epoch struct {
	Epoch            uint32          `json:"epoch"`
	ProtocolVersion  uint64          `json:"protocolVersion"`
	FeatureFlags     map[string]bool `json:"featureFlags"`
	StartRound       uint64          `json:"startRound"`
	StartCheckpoint  uint64          `json:"startCheckpoint"`
	StartTimestampMs uint64          `json:"startTimestampMs"`
}

type Object struct {
	Address              types.Address   `json:"address"`
	Version              uint64          `json:"version"`
	Owner                string          `json:"owner"`
	InitialSharedVersion uint64          `json:"initialSharedVersion,omitempty"`
	Type                 string          `json:"type"`
	Contents             types.Base64Enc `json:"contents"`
	PreviousTransaction  types.Base64Enc `json:"previousTransaction"`
}

// Transaction is a record of the history tail. Sealed records carry the checkpoint.
type Transaction struct {
	Sequence   uint64                `json:"sequence"`
	Digest     types.Base64Enc       `json:"digest"`
	Kind       types.TransactionKind `json:"kind"`
	Epoch      uint32                `json:"epoch"`
	Round      uint64                `json:"round"`
	Checkpoint *uint64               `json:"checkpoint,omitempty"`
	Version    uint64                `json:"version"`
	Payload    types.Base64Enc       `json:"payload"`
}

var owners = map[types.OwnerKind]string{
	types.OwnerImmutable: "immutable",
	types.OwnerShared:    "shared",
	types.OwnerSystem:    "system",
}

func fromCheckpoint(cp *types.Checkpoint) *Checkpoint {
	return &Checkpoint{
		Sequence:    cp.Sequence.Uint64(),
		Epoch:       cp.Epoch.Uint32(),
		Digest:      cp.Digest.Bytes(),
		FirstTx:     cp.FirstTx,
		LastTx:      cp.LastTx,
		TimestampMs: cp.TimestampMs,
	}
}

func (c *Checkpoint) toCheckpoint() *types.Checkpoint {
	cp := &types.Checkpoint{
		Sequence:    types.CheckpointSequence(c.Sequence),
		Epoch:       types.EpochID(c.Epoch),
		FirstTx:     c.FirstTx,
		LastTx:      c.LastTx,
		TimestampMs: c.TimestampMs,
	}
	copy(cp.Digest[:], c.Digest)
	return cp
}

func fromEpoch(info *types.EpochInfo) Epoch {
	return Epoch{
		Epoch:            info.Epoch.Uint32(),
		ProtocolVersion:  uint64(info.Protocol.Version),
		FeatureFlags:     info.Protocol.FeatureFlags,
		StartRound:       info.StartRound.Uint64(),
		StartCheckpoint:  info.StartCheckpoint.Uint64(),
		StartTimestampMs: info.StartTimestampMs,
	}
}

func (e *Epoch) toEpoch() *types.EpochInfo {
	flags := e.FeatureFlags
	if flags == nil {
		flags = map[string]bool{}
	}
	return &types.EpochInfo{
		Epoch: types.EpochID(e.Epoch),
		Protocol: &types.ProtocolConfig{
			Version:      types.ProtocolVersion(e.ProtocolVersion),
			FeatureFlags: flags,
		},
		StartRound:       types.RoundID(e.StartRound),
		StartCheckpoint:  types.CheckpointSequence(e.StartCheckpoint),
		StartTimestampMs: e.StartTimestampMs,
	}
}

func fromObject(obj *types.Object) Object {
	o := Object{
		Address:             obj.Address,
		Version:             obj.Version.Uint64(),
		Owner:               owners[obj.Owner],
		Type:                obj.Type,
		Contents:            obj.Contents,
		PreviousTransaction: obj.PreviousTransaction.Bytes(),
	}
	if obj.IsShared() {
		o.InitialSharedVersion = obj.InitialSharedVersion.Uint64()
	}
	return o
}

func (o *Object) toObject() *types.Object {
	obj := &types.Object{
		Address:              o.Address,
		Version:              types.ObjectVersion(o.Version),
		InitialSharedVersion: types.ObjectVersion(o.InitialSharedVersion),
		Type:                 o.Type,
		Contents:             o.Contents,
	}
	for kind, name := range owners {
		if name == o.Owner {
			obj.Owner = kind
		}
	}
	copy(obj.PreviousTransaction[:], o.PreviousTransaction)
	return obj
}

func fromTransaction(rec *types.TransactionRecord) Transaction {
	tx := Transaction{
		Sequence: rec.Sequence,
		Digest:   rec.Digest.Bytes(),
		Kind:     rec.Kind,
		Epoch:    rec.Epoch.Uint32(),
		Round:    rec.Round.Uint64(),
		Version:  rec.Version.Uint64(),
		Payload:  rec.Payload,
	}
	if rec.Checkpoint != nil {
		cp := rec.Checkpoint.Uint64()
		tx.Checkpoint = &cp
	}
	return tx
}

func (t *Transaction) toTransaction() *types.TransactionRecord {
	rec := &types.TransactionRecord{
		Sequence: t.Sequence,
		Kind:     t.Kind,
		Epoch:    types.EpochID(t.Epoch),
		Round:    types.RoundID(t.Round),
		Version:  types.ObjectVersion(t.Version),
		Payload:  t.Payload,
	}
	if t.Checkpoint != nil {
		cp := types.CheckpointSequence(*t.Checkpoint)
		rec.Checkpoint = &cp
	}
	copy(rec.Digest[:], t.Digest)
	return rec
}
