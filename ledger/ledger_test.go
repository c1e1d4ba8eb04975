package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/codec"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/epochs"
	"github.com/spacemeshos/go-randomness/events"
	"github.com/spacemeshos/go-randomness/log/logtest"
	"github.com/spacemeshos/go-randomness/protocol"
	"github.com/spacemeshos/go-randomness/randomness"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/checkpoints"
	sqlepochs "github.com/spacemeshos/go-randomness/sql/epochs"
	"github.com/spacemeshos/go-randomness/sql/objects"
	"github.com/spacemeshos/go-randomness/sql/transactions"
)

type testLedger struct {
	*Ledger
	db       *sql.Database
	clock    clockwork.FakeClock
	reporter *events.Reporter
}

func newTestLedger(tb testing.TB, db *sql.Database, cfg protocol.Config) *testLedger {
	tb.Helper()
	schedule, err := protocol.NewSchedule(cfg)
	require.NoError(tb, err)
	logger := logtest.New(tb)
	machine := randomness.New(randomness.WithLogger(logger))
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	reporter := events.NewReporter(logger)
	l, err := New(db, epochs.New(schedule, machine, epochs.WithLogger(logger)), machine,
		WithLogger(logger),
		WithClock(clock),
		WithReporter(reporter),
	)
	require.NoError(tb, err)
	return &testLedger{Ledger: l, db: db, clock: clock, reporter: reporter}
}

func beacon(tb testing.TB, db sql.Executor) (*types.Object, *types.RandomnessState) {
	tb.Helper()
	obj, err := objects.Latest(db, types.RandomnessStateAddress)
	require.NoError(tb, err)
	state := &types.RandomnessState{}
	require.NoError(tb, codec.Decode(obj.Contents, state))
	return obj, state
}

func update(epoch types.EpochID, round types.RoundID, rround types.RandomnessRound, isv types.ObjectVersion) *types.RandomnessStateUpdate {
	return &types.RandomnessStateUpdate{
		Epoch:                             epoch,
		Round:                             round,
		RandomnessRound:                   rround,
		RandomBytes:                       []byte{byte(rround), 1, 2, 3},
		RandomnessObjInitialSharedVersion: isv,
	}
}

func TestGenesisWithBeacon(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.GenesisEnabledConfig())
	created := events.Subscribe[events.EventRandomnessCreated](tl.reporter, 1)
	t.Cleanup(created.Close)

	require.NoError(t, tl.Genesis(context.Background()))
	require.True(t, tl.Initialized())
	require.Equal(t, types.EpochID(0), tl.Epoch())

	obj, state := beacon(t, tl.db)
	require.Equal(t, types.StartVersion, obj.Version)
	require.Equal(t, obj.Version, obj.InitialSharedVersion)
	require.False(t, state.Initialized())

	recs, err := transactions.Last(tl.db, 0, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, types.TransactionGenesis, recs[0].Kind)
	require.Equal(t, types.TransactionRandomnessStateCreate, recs[1].Kind)
	require.Equal(t, recs[1].Digest, obj.PreviousTransaction)

	select {
	case ev := <-created.Out():
		require.Equal(t, types.StartVersion, ev.InitialSharedVersion)
	default:
		require.FailNow(t, "creation event is not reported")
	}

	require.ErrorIs(t, tl.Genesis(context.Background()), ErrGenesisApplied)
}

func TestEpochAdvanceCreatesBeacon(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.DefaultConfig())
	require.NoError(t, tl.Genesis(context.Background()))

	has, err := objects.Has(tl.db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.False(t, has)

	epoch, err := tl.AdvanceEpoch(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.EpochID(1), epoch)

	obj, _ := beacon(t, tl.db)
	require.Equal(t, types.ObjectVersion(2), obj.InitialSharedVersion)

	info, err := sqlepochs.Get(tl.db, 1)
	require.NoError(t, err)
	require.True(t, info.Protocol.Enabled(types.FeatureRandomBeacon))
	require.Equal(t, uint64(tl.clock.Now().UnixMilli()), info.StartTimestampMs)

	count, err := transactions.Count(tl.db, types.TransactionRandomnessStateCreate)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// the flag stays on, the beacon is not created again
	_, err = tl.AdvanceEpoch(context.Background())
	require.NoError(t, err)
	count, err = transactions.Count(tl.db, types.TransactionRandomnessStateCreate)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	obj, _ = beacon(t, tl.db)
	require.Equal(t, types.ObjectVersion(2), obj.Version)
}

func TestSubmitUpdate(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.DefaultConfig())
	require.NoError(t, tl.Genesis(context.Background()))
	_, err := tl.AdvanceEpoch(context.Background())
	require.NoError(t, err)

	updated := events.Subscribe[events.EventRandomnessUpdated](tl.reporter, 1)
	t.Cleanup(updated.Close)

	upd := &types.RandomnessStateUpdate{
		Epoch:                             1,
		Round:                             1,
		RandomnessRound:                   1,
		RandomBytes:                       types.MustBase64FromString("SGVsbG8gU3Vp"),
		RandomnessObjInitialSharedVersion: 2,
	}
	rec, err := tl.Submit(context.Background(), upd)
	require.NoError(t, err)
	require.Equal(t, types.TransactionRandomnessStateUpdate, rec.Kind)
	require.Equal(t, types.ObjectVersion(3), rec.Version)
	require.Equal(t, types.RoundID(1), tl.Round())

	last, err := transactions.Last(tl.db, 0, 1)
	require.NoError(t, err)
	require.Equal(t, []*types.TransactionRecord{rec}, last)
	decoded := &types.RandomnessStateUpdate{}
	require.NoError(t, codec.Decode(last[0].Payload, decoded))
	require.Equal(t, upd, decoded)

	obj, state := beacon(t, tl.db)
	require.Equal(t, rec.Version, obj.Version)
	require.Equal(t, types.RandomnessRound(1), *state.RandomnessRound)
	require.Equal(t, "Hello Sui", string(state.RandomBytes))

	ev := <-updated.Out()
	require.Equal(t, rec.Digest, ev.Transaction)
	require.Equal(t, rec.Version, ev.Version)
}

func oversized(upd *types.RandomnessStateUpdate) *types.RandomnessStateUpdate {
	upd.RandomBytes = make([]byte, types.MaxRandomBytes+1)
	return upd
}

func TestSubmitRejected(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.GenesisEnabledConfig())
	require.NoError(t, tl.Genesis(context.Background()))
	_, err := tl.Submit(context.Background(), update(0, 5, 1, types.StartVersion))
	require.NoError(t, err)

	for _, tc := range []struct {
		desc   string
		update *types.RandomnessStateUpdate
		err    error
	}{
		{desc: "repeated randomness round", update: update(0, 5, 1, types.StartVersion), err: randomness.ErrStaleRound},
		{desc: "round regression", update: update(0, 4, 2, types.StartVersion), err: ErrRoundRegression},
		{desc: "other epoch", update: update(1, 6, 2, types.StartVersion), err: randomness.ErrEpochMismatch},
		{desc: "other object", update: update(0, 6, 2, 7), err: randomness.ErrMalformedUpdate},
		{desc: "too many bytes", update: oversized(update(0, 6, 2, types.StartVersion)), err: randomness.ErrMalformedUpdate},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			before, err := transactions.Count(tl.db, 0)
			require.NoError(t, err)
			_, err = tl.Submit(context.Background(), tc.update)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.ErrorIs(t, err, tc.err)

			after, err := transactions.Count(tl.db, 0)
			require.NoError(t, err)
			require.Equal(t, before, after)
			_, state := beacon(t, tl.db)
			require.Equal(t, types.RandomnessRound(1), *state.RandomnessRound)
		})
	}
}

func TestSubmitBeforeCreation(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.DefaultConfig())
	_, err := tl.Submit(context.Background(), update(0, 1, 1, 1))
	require.ErrorIs(t, err, ErrNoGenesis)

	require.NoError(t, tl.Genesis(context.Background()))
	_, err = tl.Submit(context.Background(), update(0, 1, 1, 1))
	require.ErrorIs(t, err, randomness.ErrNotInitialized)

	_, err = tl.Submit(context.Background(), oversized(update(0, 1, 1, 1)))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, randomness.ErrNotInitialized)
}

func TestSubmitLargestValue(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.GenesisEnabledConfig())
	require.NoError(t, tl.Genesis(context.Background()))

	upd := update(0, 1, 1, types.StartVersion)
	upd.RandomBytes = make([]byte, types.MaxRandomBytes)
	_, err := tl.Submit(context.Background(), upd)
	require.NoError(t, err)
	_, state := beacon(t, tl.db)
	require.Len(t, state.RandomBytes, types.MaxRandomBytes)

	_, err = tl.Submit(context.Background(), oversized(update(0, 2, 2, types.StartVersion)))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, randomness.ErrMalformedUpdate)
	require.Equal(t, types.Hash32{}, verr.Digest)
}

func TestNoGenesis(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.DefaultConfig())
	_, err := tl.AdvanceEpoch(context.Background())
	require.ErrorIs(t, err, ErrNoGenesis)
	_, err = tl.CreateCheckpoint(context.Background())
	require.ErrorIs(t, err, ErrNoGenesis)
}

func TestCreateCheckpoint(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.GenesisEnabledConfig())
	require.NoError(t, tl.Genesis(context.Background()))

	first, err := tl.CreateCheckpoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.CheckpointSequence(0), first.Sequence)
	require.Equal(t, uint64(1), first.FirstTx)
	require.Equal(t, uint64(2), first.LastTx)

	empty, err := tl.CreateCheckpoint(context.Background())
	require.NoError(t, err)
	require.Nil(t, empty)

	tl.clock.Advance(time.Second)
	rec, err := tl.Submit(context.Background(), update(0, 1, 1, types.StartVersion))
	require.NoError(t, err)
	second, err := tl.CreateCheckpoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.CheckpointSequence(1), second.Sequence)
	require.Equal(t, rec.Sequence, second.FirstTx)
	require.Equal(t, rec.Sequence, second.LastTx)
	require.Equal(t, types.CheckpointDigest(1, first.Digest, []types.Hash32{rec.Digest}), second.Digest)
	require.Equal(t, first.TimestampMs+1000, second.TimestampMs)

	sealed, err := transactions.Get(tl.db, rec.Digest)
	require.NoError(t, err)
	require.Equal(t, second.Sequence, *sealed.Checkpoint)

	latest, err := checkpoints.Latest(tl.db)
	require.NoError(t, err)
	require.Equal(t, second, latest)
}

func TestVersionsAcrossUpdates(t *testing.T) {
	tl := newTestLedger(t, sql.InMemory(), protocol.DefaultConfig())
	require.NoError(t, tl.Genesis(context.Background()))
	_, err := tl.AdvanceEpoch(context.Background())
	require.NoError(t, err)

	rounds := []types.RandomnessRound{0, 3, 4, 10}
	for i, r := range rounds {
		_, err := tl.Submit(context.Background(), update(1, types.RoundID(i), r, 2))
		require.NoError(t, err)
	}
	// epoch changes don't touch the beacon
	_, err = tl.AdvanceEpoch(context.Background())
	require.NoError(t, err)
	_, err = tl.Submit(context.Background(), update(2, 10, 11, 2))
	require.NoError(t, err)

	versions, err := objects.Versions(tl.db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.Equal(t, []types.ObjectVersion{2, 3, 4, 5, 6, 7}, versions)

	recs, err := transactions.Last(tl.db, types.TransactionRandomnessStateUpdate, 100)
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i := 1; i < len(recs); i++ {
		require.LessOrEqual(t, recs[i-1].Round, recs[i].Round)
		require.Less(t, recs[i-1].Sequence, recs[i].Sequence)
	}
}

func TestRecover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sql")
	db, err := sql.Open("file:" + path)
	require.NoError(t, err)
	tl := newTestLedger(t, db, protocol.DefaultConfig())
	require.NoError(t, tl.Genesis(context.Background()))
	_, err = tl.AdvanceEpoch(context.Background())
	require.NoError(t, err)
	_, err = tl.Submit(context.Background(), update(1, 7, 1, 2))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = sql.Open("file:" + path)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	recovered := newTestLedger(t, db, protocol.DefaultConfig())
	require.True(t, recovered.Initialized())
	require.Equal(t, types.EpochID(1), recovered.Epoch())
	require.Equal(t, types.RoundID(7), recovered.Round())

	_, err = recovered.Submit(context.Background(), update(1, 8, 1, 2))
	require.ErrorIs(t, err, randomness.ErrStaleRound)
	rec, err := recovered.Submit(context.Background(), update(1, 8, 2, 2))
	require.NoError(t, err)
	require.Equal(t, uint64(5), rec.Sequence)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Digest: types.Hash32{0xab}, Err: randomness.ErrStaleRound}
	require.True(t, errors.Is(err, randomness.ErrStaleRound))
	require.Contains(t, err.Error(), "rejected")
}
