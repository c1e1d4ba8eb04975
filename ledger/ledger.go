// Package ledger applies ordered inputs to the object store. Every call commits one sqlite
// transaction that writes the new object versions together with their history records.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-randomness/codec"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/epochs"
	"github.com/spacemeshos/go-randomness/events"
	"github.com/spacemeshos/go-randomness/log"
	"github.com/spacemeshos/go-randomness/metrics/public"
	"github.com/spacemeshos/go-randomness/randomness"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/checkpoints"
	sqlepochs "github.com/spacemeshos/go-randomness/sql/epochs"
	"github.com/spacemeshos/go-randomness/sql/objects"
	"github.com/spacemeshos/go-randomness/sql/transactions"
	"github.com/spacemeshos/go-randomness/system"
)

var _ system.Sequencer = (*Ledger)(nil)

// Opt for configuring Ledger.
type Opt func(*Ledger)

// WithLogger defines logger for the ledger.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock defines the clock used for epoch and checkpoint timestamps.
func WithClock(clock clockwork.Clock) Opt {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithReporter defines where events are reported after commit.
func WithReporter(reporter *events.Reporter) Opt {
	return func(l *Ledger) {
		l.reporter = reporter
	}
}

// Ledger is the single writer of the object store.
type Ledger struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	reporter *events.Reporter

	db      *sql.Database
	trigger *epochs.Trigger
	machine *randomness.StateMachine

	mu          sync.Mutex
	initialized bool
	epoch       types.EpochID
	round       types.RoundID
}

// New creates a Ledger and recovers its position from the database.
func New(
	db *sql.Database,
	trigger *epochs.Trigger,
	machine *randomness.StateMachine,
	opts ...Opt,
) (*Ledger, error) {
	l := &Ledger{
		logger:  zap.NewNop(),
		clock:   clockwork.NewRealClock(),
		db:      db,
		trigger: trigger,
		machine: machine,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.recover(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) recover() error {
	obj, state, err := systemState(l.db)
	if errors.Is(err, sql.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	l.initialized = true
	l.epoch = state.Epoch
	l.round = state.Round
	last, err := transactions.Last(l.db, 0, 1)
	if err != nil {
		return err
	}
	if len(last) > 0 && last[0].Round > l.round {
		l.round = last[0].Round
	}
	public.Epoch.Set(float64(l.epoch))
	l.logger.Info("recovered ledger",
		zap.Uint32("epoch", l.epoch.Uint32()),
		zap.Uint64("round", l.round.Uint64()),
		zap.Stringer("system_state_version", obj.Version),
	)
	return nil
}

// Initialized is true once genesis was applied.
func (l *Ledger) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialized
}

// Epoch returns the active epoch.
func (l *Ledger) Epoch() types.EpochID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch
}

// Round returns the last committed consensus round.
func (l *Ledger) Round() types.RoundID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

func systemState(db sql.Executor) (*types.Object, *types.SystemState, error) {
	obj, err := objects.Latest(db, types.SystemStateAddress)
	if err != nil {
		return nil, nil, err
	}
	state := &types.SystemState{}
	if err := codec.Decode(obj.Contents, state); err != nil {
		return nil, nil, fmt.Errorf("decode system state at version %s: %w", obj.Version, err)
	}
	return obj, state, nil
}

// recorder appends ledger records stamped with the position of the transaction being applied.
type recorder struct {
	epoch types.EpochID
	round types.RoundID
}

// Record implements epochs.Recorder.
func (r recorder) Record(
	db sql.Executor,
	kind types.TransactionKind,
	version types.ObjectVersion,
	payload []byte,
) (*types.TransactionRecord, error) {
	seq, err := nextSequence(db)
	if err != nil {
		return nil, err
	}
	rec := &types.TransactionRecord{
		Sequence: seq,
		Digest:   types.TransactionDigest(kind, payload),
		Kind:     kind,
		Epoch:    r.epoch,
		Round:    r.round,
		Version:  version,
		Payload:  payload,
	}
	if err := transactions.Add(db, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// nextSequence continues after the last stored record or, for a database restored from a
// snapshot without history, after the last sealed one.
func nextSequence(db sql.Executor) (uint64, error) {
	last, err := transactions.LastSequence(db)
	if err != nil {
		return 0, err
	}
	cp, err := checkpoints.Latest(db)
	switch {
	case errors.Is(err, sql.ErrNotFound):
	case err != nil:
		return 0, err
	case cp.LastTx > last:
		last = cp.LastTx
	}
	return last + 1, nil
}

type boundary struct {
	epoch   types.EpochID
	cfg     *types.ProtocolConfig
	records []*types.TransactionRecord
	created *epochs.Created
}

// Genesis writes the system state for epoch 0 and creates the beacon if epoch 0 enables it.
func (l *Ledger) Genesis(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		return ErrGenesisApplied
	}
	start := time.Now()
	cfg, err := l.trigger.ProtocolConfig(0)
	if err != nil {
		return err
	}
	b := &boundary{epoch: 0, cfg: cfg}
	if err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if has, err := objects.Has(tx, types.SystemStateAddress); err != nil {
			return err
		} else if has {
			return ErrGenesisApplied
		}
		return l.enterEpoch(tx, b, types.TransactionGenesis, types.StartVersion)
	}); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	commitDuration.WithLabelValues("genesis").Observe(time.Since(start).Seconds())
	l.initialized = true
	l.committed(b)
	return nil
}

// AdvanceEpoch moves the ledger to the next epoch and returns it.
func (l *Ledger) AdvanceEpoch(ctx context.Context) (types.EpochID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.initialized {
		return 0, ErrNoGenesis
	}
	start := time.Now()
	next := l.epoch + 1
	cfg, err := l.trigger.ProtocolConfig(next)
	if err != nil {
		return 0, err
	}
	b := &boundary{epoch: next, cfg: cfg}
	if err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		obj, state, err := systemState(tx)
		if err != nil {
			return err
		}
		if state.Epoch != l.epoch {
			return fmt.Errorf("system state is at epoch %s, ledger at %s", state.Epoch, l.epoch)
		}
		return l.enterEpoch(tx, b, types.TransactionChangeEpoch, obj.Version.Next())
	}); err != nil {
		return 0, fmt.Errorf("advance to epoch %s: %w", next, err)
	}
	commitDuration.WithLabelValues("advance_epoch").Observe(time.Since(start).Seconds())
	l.committed(b)
	return next, nil
}

// enterEpoch writes the system state of b.epoch at version, records the boundary transaction,
// stores the epoch info and runs the beacon bootstrap at the same version.
func (l *Ledger) enterEpoch(
	tx sql.Executor,
	b *boundary,
	kind types.TransactionKind,
	version types.ObjectVersion,
) error {
	now := uint64(l.clock.Now().UnixMilli())
	payload, err := codec.Encode(&types.ChangeEpoch{
		Epoch:           b.epoch,
		ProtocolVersion: b.cfg.Version,
		Round:           l.round,
		TimestampMs:     now,
	})
	if err != nil {
		return err
	}
	contents, err := codec.Encode(&types.SystemState{
		Epoch:           b.epoch,
		ProtocolVersion: b.cfg.Version,
		Round:           l.round,
	})
	if err != nil {
		return err
	}
	r := recorder{epoch: b.epoch, round: l.round}
	rec, err := r.Record(tx, kind, version, payload)
	if err != nil {
		return err
	}
	b.records = append(b.records, rec)
	if err := objects.Add(tx, &types.Object{
		Address:             types.SystemStateAddress,
		Version:             version,
		Owner:               types.OwnerSystem,
		Type:                types.SystemStateType,
		Contents:            contents,
		PreviousTransaction: rec.Digest,
	}); err != nil {
		return err
	}
	startCheckpoint, err := nextCheckpoint(tx)
	if err != nil {
		return err
	}
	if err := sqlepochs.Add(tx, &types.EpochInfo{
		Epoch:            b.epoch,
		Protocol:         b.cfg,
		StartRound:       l.round,
		StartCheckpoint:  startCheckpoint,
		StartTimestampMs: now,
	}); err != nil {
		return err
	}
	created, err := l.trigger.Bootstrap(tx, r, b.epoch, b.cfg, version)
	if err != nil {
		return err
	}
	if created != nil {
		b.created = created
		b.records = append(b.records, created.Record)
	}
	return nil
}

func (l *Ledger) committed(b *boundary) {
	l.epoch = b.epoch
	for _, rec := range b.records {
		transactionsCount.WithLabelValues(rec.Kind.String()).Inc()
	}
	public.Epoch.Set(float64(b.epoch))
	l.logger.Info("entered epoch",
		zap.Uint32("epoch", b.epoch.Uint32()),
		zap.Uint64("protocol_version", uint64(b.cfg.Version)),
		zap.Strings("features", b.cfg.FlagNames()),
		zap.Bool("beacon_created", b.created != nil),
	)
	events.Emit(l.reporter, events.EventEpoch{
		Epoch:           b.epoch,
		ProtocolVersion: b.cfg.Version,
		BeaconEnabled:   b.cfg.Enabled(types.FeatureRandomBeacon),
	})
	if b.created != nil {
		events.Emit(l.reporter, events.EventRandomnessCreated{
			Epoch:                b.epoch,
			InitialSharedVersion: b.created.Object.InitialSharedVersion,
			Transaction:          b.created.Record.Digest,
		})
	}
}

// Submit applies a beacon update. A rejected update returns *ValidationError and leaves the
// store unchanged.
func (l *Ledger) Submit(ctx context.Context, update *types.RandomnessStateUpdate) (*types.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.initialized {
		return nil, ErrNoGenesis
	}
	if len(update.RandomBytes) > types.MaxRandomBytes {
		// payload can't be encoded, so the rejection carries no digest
		_, err := l.machine.Validate(l.db, l.epoch, update)
		if !randomness.IsRejection(err) {
			return nil, fmt.Errorf("validate oversized update: %w", err)
		}
		rejectedUpdates.Inc()
		return nil, &ValidationError{Err: err}
	}
	start := time.Now()
	payload, err := codec.Encode(update)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	digest := types.TransactionDigest(types.TransactionRandomnessStateUpdate, payload)
	if update.Round < l.round {
		rejectedUpdates.Inc()
		return nil, &ValidationError{
			Digest: digest,
			Err:    fmt.Errorf("%w: %s < %s", ErrRoundRegression, update.Round, l.round),
		}
	}
	var rec *types.TransactionRecord
	if err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		obj, err := l.machine.ApplyUpdate(tx, l.epoch, update, digest)
		if err != nil {
			return err
		}
		rec, err = recorder{epoch: update.Epoch, round: update.Round}.Record(
			tx, types.TransactionRandomnessStateUpdate, obj.Version, payload)
		return err
	}); err != nil {
		if randomness.IsRejection(err) {
			rejectedUpdates.Inc()
			return nil, &ValidationError{Digest: digest, Err: err}
		}
		return nil, fmt.Errorf("submit %s: %w", digest.ShortString(), err)
	}
	commitDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	acceptedUpdates.Inc()
	transactionsCount.WithLabelValues(rec.Kind.String()).Inc()
	l.round = update.Round
	l.logger.Debug("committed randomness update",
		log.ZShortStringer("tx", rec.Digest),
		zap.Uint64("seq", rec.Sequence),
		zap.Uint64("randomness_round", update.RandomnessRound.Uint64()),
		zap.Stringer("version", rec.Version),
	)
	events.Emit(l.reporter, events.EventRandomnessUpdated{
		Epoch:           update.Epoch,
		Round:           update.Round,
		RandomnessRound: update.RandomnessRound,
		RandomBytes:     update.RandomBytes,
		Version:         rec.Version,
		Transaction:     rec.Digest,
	})
	return rec, nil
}

func nextCheckpoint(db sql.Executor) (types.CheckpointSequence, error) {
	latest, err := checkpoints.Latest(db)
	if errors.Is(err, sql.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return latest.Sequence + 1, nil
}

// CreateCheckpoint seals every record that is not part of a checkpoint yet. It returns nil if
// there is nothing to seal.
func (l *Ledger) CreateCheckpoint(ctx context.Context) (*types.Checkpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.initialized {
		return nil, ErrNoGenesis
	}
	start := time.Now()
	var cp *types.Checkpoint
	if err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		unsealed, err := transactions.Unsealed(tx)
		if err != nil || len(unsealed) == 0 {
			return err
		}
		var prev types.Hash32
		seq := types.CheckpointSequence(0)
		latest, err := checkpoints.Latest(tx)
		switch {
		case errors.Is(err, sql.ErrNotFound):
		case err != nil:
			return err
		default:
			prev = latest.Digest
			seq = latest.Sequence + 1
		}
		digests := make([]types.Hash32, 0, len(unsealed))
		for _, rec := range unsealed {
			digests = append(digests, rec.Digest)
		}
		cp = &types.Checkpoint{
			Sequence:    seq,
			Epoch:       l.epoch,
			Digest:      types.CheckpointDigest(seq, prev, digests),
			FirstTx:     unsealed[0].Sequence,
			LastTx:      unsealed[len(unsealed)-1].Sequence,
			TimestampMs: uint64(l.clock.Now().UnixMilli()),
		}
		if err := checkpoints.Add(tx, cp); err != nil {
			return err
		}
		return transactions.Seal(tx, seq, cp.FirstTx, cp.LastTx)
	}); err != nil {
		return nil, fmt.Errorf("create checkpoint: %w", err)
	}
	if cp == nil {
		return nil, nil
	}
	commitDuration.WithLabelValues("checkpoint").Observe(time.Since(start).Seconds())
	sealedCheckpoint.Set(float64(cp.Sequence))
	l.logger.Debug("sealed checkpoint",
		zap.Stringer("seq", cp.Sequence),
		log.ZShortStringer("digest", cp.Digest),
		zap.Uint64("first_tx", cp.FirstTx),
		zap.Uint64("last_tx", cp.LastTx),
	)
	events.Emit(l.reporter, events.EventCheckpoint{Checkpoint: *cp})
	return cp, nil
}
