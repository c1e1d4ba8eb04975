package randomness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/log/logtest"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/objects"
)

var enabled = &types.ProtocolConfig{
	Version:      1,
	FeatureFlags: map[string]bool{types.FeatureRandomBeacon: true},
}

func newTestMachine(tb testing.TB) (*StateMachine, *sql.Database) {
	tb.Helper()
	return New(WithLogger(logtest.New(tb))), sql.InMemory()
}

func update(epoch types.EpochID, round types.RandomnessRound, isv types.ObjectVersion) *types.RandomnessStateUpdate {
	return &types.RandomnessStateUpdate{
		Epoch:                             epoch,
		Round:                             types.RoundID(round) * 2,
		RandomnessRound:                   round,
		RandomBytes:                       []byte{byte(round), 0xff},
		RandomnessObjInitialSharedVersion: isv,
	}
}

func TestStateAbsent(t *testing.T) {
	m, db := newTestMachine(t)
	state, err := m.State(db)
	require.NoError(t, err)
	require.Equal(t, StatusAbsent, state.Status)
	require.Nil(t, state.Object)
	require.Nil(t, state.Value)
}

func TestCreate(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		m, db := newTestMachine(t)
		for _, cfg := range []*types.ProtocolConfig{
			nil,
			{Version: 1},
			{Version: 1, FeatureFlags: map[string]bool{types.FeatureRandomBeacon: false}},
		} {
			_, err := m.Create(db, 1, cfg, 2, types.Hash32{1})
			require.ErrorIs(t, err, ErrUnsupportedFeature)
		}
		state, err := m.State(db)
		require.NoError(t, err)
		require.Equal(t, StatusAbsent, state.Status)
	})
	t.Run("enabled", func(t *testing.T) {
		m, db := newTestMachine(t)
		obj, err := m.Create(db, 1, enabled, 2, types.Hash32{1})
		require.NoError(t, err)
		require.Equal(t, types.RandomnessStateAddress, obj.Address)
		require.Equal(t, types.ObjectVersion(2), obj.Version)
		require.Equal(t, obj.Version, obj.InitialSharedVersion)
		require.True(t, obj.IsShared())

		state, err := m.State(db)
		require.NoError(t, err)
		require.Equal(t, StatusCreated, state.Status)
		require.Equal(t, obj, state.Object)
		require.Equal(t, &types.RandomnessState{Epoch: 1}, state.Value)
		require.False(t, state.Value.Initialized())
	})
	t.Run("twice", func(t *testing.T) {
		m, db := newTestMachine(t)
		_, err := m.Create(db, 1, enabled, 2, types.Hash32{1})
		require.NoError(t, err)
		_, err = m.Create(db, 2, enabled, 3, types.Hash32{2})
		require.ErrorIs(t, err, ErrAlreadyCreated)

		versions, err := objects.Versions(db, types.RandomnessStateAddress)
		require.NoError(t, err)
		require.Equal(t, []types.ObjectVersion{2}, versions)
	})
}

func TestApplyUpdate(t *testing.T) {
	m, db := newTestMachine(t)

	_, err := m.ApplyUpdate(db, 1, update(1, 1, 2), types.Hash32{})
	require.ErrorIs(t, err, ErrNotInitialized)
	empty := update(1, 1, 2)
	empty.RandomBytes = nil
	_, err = m.ApplyUpdate(db, 1, empty, types.Hash32{})
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = m.Validate(db, 1, &types.RandomnessStateUpdate{RandomBytes: make([]byte, types.MaxRandomBytes+1)})
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = m.Create(db, 1, enabled, 2, types.Hash32{1})
	require.NoError(t, err)

	upd := &types.RandomnessStateUpdate{
		Epoch:                             1,
		Round:                             1,
		RandomnessRound:                   1,
		RandomBytes:                       types.MustBase64FromString("SGVsbG8gU3Vp"),
		RandomnessObjInitialSharedVersion: 2,
	}
	obj, err := m.ApplyUpdate(db, 1, upd, types.Hash32{2})
	require.NoError(t, err)
	require.Equal(t, types.ObjectVersion(3), obj.Version)
	require.Equal(t, types.ObjectVersion(2), obj.InitialSharedVersion)
	require.Equal(t, types.Hash32{2}, obj.PreviousTransaction)

	state, err := m.State(db)
	require.NoError(t, err)
	require.Equal(t, StatusUpdated, state.Status)
	require.Equal(t, types.EpochID(1), state.Value.Epoch)
	require.Equal(t, types.RandomnessRound(1), *state.Value.RandomnessRound)
	require.Equal(t, "Hello Sui", string(state.Value.RandomBytes))
}

func TestRejectedUpdatesKeepState(t *testing.T) {
	m, db := newTestMachine(t)
	_, err := m.Create(db, 1, enabled, 2, types.Hash32{1})
	require.NoError(t, err)
	_, err = m.ApplyUpdate(db, 1, update(1, 5, 2), types.Hash32{2})
	require.NoError(t, err)

	before, err := m.State(db)
	require.NoError(t, err)

	empty := update(1, 6, 2)
	empty.RandomBytes = nil
	oversized := update(1, 6, 2)
	oversized.RandomBytes = make([]byte, types.MaxRandomBytes+1)

	for _, tc := range []struct {
		desc   string
		active types.EpochID
		update *types.RandomnessStateUpdate
		err    error
	}{
		{desc: "same round", active: 1, update: update(1, 5, 2), err: ErrStaleRound},
		{desc: "older round", active: 1, update: update(1, 4, 2), err: ErrStaleRound},
		{desc: "future epoch", active: 1, update: update(2, 6, 2), err: ErrEpochMismatch},
		{desc: "past epoch", active: 2, update: update(1, 6, 2), err: ErrEpochMismatch},
		{desc: "wrong object", active: 1, update: update(1, 6, 3), err: ErrMalformedUpdate},
		{desc: "empty bytes", active: 1, update: empty, err: ErrMalformedUpdate},
		{desc: "oversized bytes", active: 1, update: oversized, err: ErrMalformedUpdate},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := m.ApplyUpdate(db, tc.active, tc.update, types.Hash32{9})
			require.ErrorIs(t, err, tc.err)

			after, err := m.State(db)
			require.NoError(t, err)
			require.Equal(t, before, after)
		})
	}
}

func TestVersionsStrictlyIncrease(t *testing.T) {
	m, db := newTestMachine(t)
	created, err := m.Create(db, 3, enabled, 7, types.Hash32{1})
	require.NoError(t, err)

	prev := created.Version
	// gaps between randomness rounds are accepted
	for _, round := range []types.RandomnessRound{0, 1, 4, 5, 100} {
		obj, err := m.ApplyUpdate(db, 3, update(3, round, 7), types.Hash32{byte(round)})
		require.NoError(t, err)
		require.Equal(t, prev+1, obj.Version)
		require.Equal(t, created.InitialSharedVersion, obj.InitialSharedVersion)
		prev = obj.Version
	}

	versions, err := objects.Versions(db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.Equal(t, []types.ObjectVersion{7, 8, 9, 10, 11, 12}, versions)
}

func TestStateRejectsForeignObject(t *testing.T) {
	m, db := newTestMachine(t)
	require.NoError(t, objects.Add(db, &types.Object{
		Address:  types.RandomnessStateAddress,
		Version:  1,
		Owner:    types.OwnerImmutable,
		Type:     "0x2::coin::Coin",
		Contents: []byte{1},
	}))
	_, err := m.State(db)
	require.Error(t, err)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "absent", StatusAbsent.String())
	require.Equal(t, "created", StatusCreated.String())
	require.Equal(t, "updated", StatusUpdated.String())
}
