package checkpoint_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/checkpoint"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/epochs"
	"github.com/spacemeshos/go-randomness/ledger"
	"github.com/spacemeshos/go-randomness/log/logtest"
	"github.com/spacemeshos/go-randomness/protocol"
	"github.com/spacemeshos/go-randomness/randomness"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/objects"
)

const dataDir = "/data"

func newLedger(tb testing.TB, db *sql.Database) *ledger.Ledger {
	tb.Helper()
	schedule, err := protocol.NewSchedule(protocol.DefaultConfig())
	require.NoError(tb, err)
	logger := logtest.New(tb)
	machine := randomness.New(randomness.WithLogger(logger))
	l, err := ledger.New(db, epochs.New(schedule, machine), machine, ledger.WithLogger(logger))
	require.NoError(tb, err)
	return l
}

func update(round types.RoundID, rround types.RandomnessRound) *types.RandomnessStateUpdate {
	return &types.RandomnessStateUpdate{
		Epoch:                             1,
		Round:                             round,
		RandomnessRound:                   rround,
		RandomBytes:                       []byte{byte(rround), 0xfe, 0xff},
		RandomnessObjInitialSharedVersion: 2,
	}
}

// createLedger leaves one sealed checkpoint with records 1-4 and an unsealed record 5.
func createLedger(tb testing.TB, db *sql.Database) *ledger.Ledger {
	tb.Helper()
	ctx := context.Background()
	l := newLedger(tb, db)
	require.NoError(tb, l.Genesis(ctx))
	_, err := l.AdvanceEpoch(ctx)
	require.NoError(tb, err)
	_, err = l.Submit(ctx, update(3, 1))
	require.NoError(tb, err)
	cp, err := l.CreateCheckpoint(ctx)
	require.NoError(tb, err)
	require.NotNil(tb, cp)
	rec, err := l.Submit(ctx, update(7, 4))
	require.NoError(tb, err)
	require.Equal(tb, uint64(5), rec.Sequence)
	return l
}

func latestObjects(tb testing.TB, db sql.Executor) []*types.Object {
	tb.Helper()
	var all []*types.Object
	require.NoError(tb, objects.IterateLatest(db, func(obj *types.Object) bool {
		all = append(all, obj)
		return true
	}))
	return all
}

func TestRunner_Generate(t *testing.T) {
	db := sql.InMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	createLedger(t, db)

	fs := afero.NewMemMapFs()
	path, err := checkpoint.Generate(context.Background(), fs, db, dataDir)
	require.NoError(t, err)
	require.Equal(t, checkpoint.SelfCheckpointFilename(dataDir, "snapshot-0"), path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.NoError(t, checkpoint.ValidateSchema(data))

	var snapshot checkpoint.Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	require.Equal(t, checkpoint.SchemaVersion, snapshot.Version)
	require.Equal(t, "snapshot-0", snapshot.Data.SnapshotID)
	require.NotNil(t, snapshot.Data.Checkpoint)
	require.Equal(t, uint64(1), snapshot.Data.Checkpoint.FirstTx)
	require.Equal(t, uint64(4), snapshot.Data.Checkpoint.LastTx)
	require.Len(t, snapshot.Data.Epochs, 2)
	require.Len(t, snapshot.Data.Objects, 2)
	require.Len(t, snapshot.Data.Transactions, 2)
	require.Equal(t, uint64(4), snapshot.Data.Transactions[0].Sequence)
	require.NotNil(t, snapshot.Data.Transactions[0].Checkpoint)
	require.Equal(t, uint64(5), snapshot.Data.Transactions[1].Sequence)
	require.Nil(t, snapshot.Data.Transactions[1].Checkpoint)

	beacon := snapshot.Data.Objects[1]
	require.Equal(t, types.RandomnessStateAddress, beacon.Address)
	require.Equal(t, "shared", beacon.Owner)
	require.Equal(t, uint64(2), beacon.InitialSharedVersion)
	require.Equal(t, uint64(4), beacon.Version)

	files, err := afero.ReadDir(fs, dataDir+"/checkpoint")
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestRunner_GenerateBeforeGenesis(t *testing.T) {
	db := sql.InMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	fs := afero.NewMemMapFs()
	_, err := checkpoint.Generate(context.Background(), fs, db, dataDir)
	require.ErrorIs(t, err, checkpoint.ErrNoState)
	exists, err := afero.DirExists(fs, dataDir+"/checkpoint")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRunner_GenerateWithoutCheckpoint(t *testing.T) {
	db := sql.InMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	l := newLedger(t, db)
	require.NoError(t, l.Genesis(context.Background()))

	fs := afero.NewMemMapFs()
	path, err := checkpoint.Generate(context.Background(), fs, db, dataDir)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.NoError(t, checkpoint.ValidateSchema(data))

	var snapshot checkpoint.Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	require.Equal(t, "snapshot-genesis", snapshot.Data.SnapshotID)
	require.Nil(t, snapshot.Data.Checkpoint)
	require.Len(t, snapshot.Data.Transactions, 1)
	require.Equal(t, types.TransactionGenesis, snapshot.Data.Transactions[0].Kind)
	if diff := cmp.Diff(latestObjects(t, db)[0].Contents, []byte(snapshot.Data.Objects[0].Contents)); diff != "" {
		t.Errorf("system state mismatch (-db +snapshot):\n%s", diff)
	}
}
