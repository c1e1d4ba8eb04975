// Package randomness maintains the randomness beacon object: a singleton shared object at
// types.RandomnessStateAddress that is created once at an epoch boundary and then replaced by every
// accepted beacon value.
package randomness

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-randomness/codec"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/log"
	"github.com/spacemeshos/go-randomness/metrics/public"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/objects"
)

// Status is the lifecycle stage of the beacon object.
type Status uint8

const (
	// StatusAbsent means the object was never created.
	StatusAbsent Status = iota
	// StatusCreated means the object exists without a beacon value.
	StatusCreated
	// StatusUpdated means at least one beacon value was applied.
	StatusUpdated
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusCreated:
		return "created"
	case StatusUpdated:
		return "updated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// State is a consistent view of the beacon object.
type State struct {
	Status Status
	// Object and Value are nil when Status is StatusAbsent.
	Object *types.Object
	Value  *types.RandomnessState
}

// Opt for configuring StateMachine.
type Opt func(*StateMachine)

// WithLogger defines logger for the state machine.
func WithLogger(logger *zap.Logger) Opt {
	return func(m *StateMachine) {
		m.logger = logger
	}
}

// New creates a StateMachine.
func New(opts ...Opt) *StateMachine {
	m := &StateMachine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StateMachine validates and applies beacon transitions. It keeps no state of its own: the
// object store passed to every call is the single source of truth, so callers decide atomicity by
// passing a transaction.
type StateMachine struct {
	logger *zap.Logger
}

// State loads the current beacon object.
func (m *StateMachine) State(db sql.Executor) (*State, error) {
	obj, err := objects.Latest(db, types.RandomnessStateAddress)
	if errors.Is(err, sql.ErrNotFound) {
		return &State{Status: StatusAbsent}, nil
	}
	if err != nil {
		return nil, err
	}
	if obj.Type != types.RandomnessStateType || !obj.IsShared() {
		return nil, fmt.Errorf("object %s is %s owned %s, not a beacon",
			obj.Address.ShortString(), obj.Owner, obj.Type)
	}
	value := &types.RandomnessState{}
	if err := codec.Decode(obj.Contents, value); err != nil {
		return nil, fmt.Errorf("decode beacon at version %s: %w", obj.Version, err)
	}
	status := StatusCreated
	if value.Initialized() {
		status = StatusUpdated
	}
	return &State{Status: status, Object: obj, Value: value}, nil
}

// Create writes the initial beacon object at version. The version becomes the initial shared
// version of the object for its whole lifetime.
func (m *StateMachine) Create(
	db sql.Executor,
	epoch types.EpochID,
	cfg *types.ProtocolConfig,
	version types.ObjectVersion,
	tx types.Hash32,
) (*types.Object, error) {
	obj, err := m.create(db, epoch, cfg, version, tx)
	if err != nil {
		rejected.WithLabelValues(reason(err)).Inc()
		return nil, err
	}
	createdCount.Inc()
	m.logger.Info("created randomness beacon",
		zap.Uint32("epoch", epoch.Uint32()),
		zap.Stringer("initial_shared_version", version),
		log.ZShortStringer("tx", tx),
	)
	return obj, nil
}

func (m *StateMachine) create(
	db sql.Executor,
	epoch types.EpochID,
	cfg *types.ProtocolConfig,
	version types.ObjectVersion,
	tx types.Hash32,
) (*types.Object, error) {
	if !cfg.Enabled(types.FeatureRandomBeacon) {
		return nil, fmt.Errorf("%w: epoch %s", ErrUnsupportedFeature, epoch)
	}
	current, err := m.State(db)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusAbsent {
		return nil, fmt.Errorf("%w: at version %s", ErrAlreadyCreated, current.Object.Version)
	}
	contents, err := codec.Encode(&types.RandomnessState{Epoch: epoch})
	if err != nil {
		return nil, err
	}
	obj := &types.Object{
		Address:              types.RandomnessStateAddress,
		Version:              version,
		Owner:                types.OwnerShared,
		InitialSharedVersion: version,
		Type:                 types.RandomnessStateType,
		Contents:             contents,
		PreviousTransaction:  tx,
	}
	if err := objects.Add(db, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Validate checks the update against the current beacon object without writing anything.
func (m *StateMachine) Validate(
	db sql.Executor,
	active types.EpochID,
	update *types.RandomnessStateUpdate,
) (*State, error) {
	current, err := m.State(db)
	if err != nil {
		return nil, err
	}
	switch {
	case current.Status == StatusAbsent:
		return nil, ErrNotInitialized
	case len(update.RandomBytes) == 0:
		return nil, fmt.Errorf("%w: empty random bytes", ErrMalformedUpdate)
	case len(update.RandomBytes) > types.MaxRandomBytes:
		return nil, fmt.Errorf("%w: %d random bytes exceed limit %d",
			ErrMalformedUpdate, len(update.RandomBytes), types.MaxRandomBytes)
	}
	if isv := current.Object.InitialSharedVersion; update.RandomnessObjInitialSharedVersion != isv {
		return nil, fmt.Errorf("%w: initial shared version %s, beacon was created at %s",
			ErrMalformedUpdate, update.RandomnessObjInitialSharedVersion, isv)
	}
	if update.Epoch != active {
		return nil, fmt.Errorf("%w: update for %s, active %s", ErrEpochMismatch, update.Epoch, active)
	}
	if last := current.Value.RandomnessRound; last != nil && update.RandomnessRound <= *last {
		return nil, fmt.Errorf("%w: got %s, current %s", ErrStaleRound, update.RandomnessRound, *last)
	}
	return current, nil
}

// ApplyUpdate validates the update and writes the next version of the beacon object. The object
// is the only input of an update, so the new version is the current version plus one.
// Nothing is written if validation fails.
func (m *StateMachine) ApplyUpdate(
	db sql.Executor,
	active types.EpochID,
	update *types.RandomnessStateUpdate,
	tx types.Hash32,
) (*types.Object, error) {
	current, err := m.Validate(db, active, update)
	if err != nil {
		rejected.WithLabelValues(reason(err)).Inc()
		m.logger.Debug("rejected randomness update",
			zap.Uint32("epoch", update.Epoch.Uint32()),
			zap.Uint64("randomness_round", update.RandomnessRound.Uint64()),
			zap.Error(err),
		)
		return nil, err
	}
	round := update.RandomnessRound
	contents, err := codec.Encode(&types.RandomnessState{
		Epoch:           update.Epoch,
		RandomnessRound: &round,
		RandomBytes:     bytes.Clone(update.RandomBytes),
	})
	if err != nil {
		return nil, err
	}
	obj := &types.Object{
		Address:              types.RandomnessStateAddress,
		Version:              current.Object.Version.Next(),
		Owner:                types.OwnerShared,
		InitialSharedVersion: current.Object.InitialSharedVersion,
		Type:                 types.RandomnessStateType,
		Contents:             contents,
		PreviousTransaction:  tx,
	}
	if err := objects.Add(db, obj); err != nil {
		return nil, err
	}
	updatedCount.Inc()
	latestRound.Set(float64(round))
	public.RandomnessRound.Set(float64(round))
	m.logger.Debug("applied randomness update",
		zap.Uint32("epoch", update.Epoch.Uint32()),
		zap.Uint64("round", update.Round.Uint64()),
		zap.Uint64("randomness_round", round.Uint64()),
		zap.Stringer("version", obj.Version),
	)
	return obj, nil
}
