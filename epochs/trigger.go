// Package epochs bootstraps the randomness beacon at epoch boundaries.
package epochs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-randomness/codec"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/randomness"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/system"
)

//go:generate mockgen -typed -package=epochs -destination=./mocks.go -source=./trigger.go

// Recorder appends a ledger generated transaction to the history within the same database
// transaction that applied it.
type Recorder interface {
	Record(db sql.Executor, kind types.TransactionKind, version types.ObjectVersion, payload []byte) (*types.TransactionRecord, error)
}

// Opt for configuring Trigger.
type Opt func(*Trigger)

// WithLogger defines logger for the trigger.
func WithLogger(logger *zap.Logger) Opt {
	return func(t *Trigger) {
		t.logger = logger
	}
}

// New creates a Trigger.
func New(provider system.ConfigProvider, machine *randomness.StateMachine, opts ...Opt) *Trigger {
	t := &Trigger{
		logger:   zap.NewNop(),
		provider: provider,
		machine:  machine,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trigger creates the beacon object in the first epoch whose protocol config enables it.
type Trigger struct {
	logger   *zap.Logger
	provider system.ConfigProvider
	machine  *randomness.StateMachine
}

// ProtocolConfig looks up the configuration of the epoch that is about to start.
// It is called once per epoch boundary.
func (t *Trigger) ProtocolConfig(epoch types.EpochID) (*types.ProtocolConfig, error) {
	cfg, err := t.provider.ProtocolConfig(epoch)
	if err != nil {
		return nil, fmt.Errorf("protocol config for epoch %s: %w", epoch, err)
	}
	return cfg, nil
}

// Created describes the outcome of a bootstrap that created the beacon.
type Created struct {
	Object *types.Object
	Record *types.TransactionRecord
}

// Bootstrap creates the beacon object at version if cfg enables it and the object doesn't exist
// yet, and records one RandomnessStateCreate transaction. It returns nil if there was nothing to do.
func (t *Trigger) Bootstrap(
	db sql.Executor,
	recorder Recorder,
	epoch types.EpochID,
	cfg *types.ProtocolConfig,
	version types.ObjectVersion,
) (*Created, error) {
	if !cfg.Enabled(types.FeatureRandomBeacon) {
		return nil, nil
	}
	state, err := t.machine.State(db)
	if err != nil {
		return nil, err
	}
	if state.Status != randomness.StatusAbsent {
		return nil, nil
	}
	payload, err := codec.Encode(&types.RandomnessStateCreate{Epoch: epoch, Version: version})
	if err != nil {
		return nil, err
	}
	digest := types.TransactionDigest(types.TransactionRandomnessStateCreate, payload)
	obj, err := t.machine.Create(db, epoch, cfg, version, digest)
	if err != nil {
		return nil, err
	}
	rec, err := recorder.Record(db, types.TransactionRandomnessStateCreate, version, payload)
	if err != nil {
		return nil, err
	}
	t.logger.Info("randomness beacon bootstrapped",
		zap.Uint32("epoch", epoch.Uint32()),
		zap.Stringer("version", version),
		zap.Uint64("seq", rec.Sequence),
	)
	return &Created{Object: obj, Record: rec}, nil
}
