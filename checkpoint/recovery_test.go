package checkpoint_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/checkpoint"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/log/logtest"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/epochs"
	"github.com/spacemeshos/go-randomness/sql/transactions"
)

func generate(tb testing.TB, fs afero.Fs) (*sql.Database, string) {
	tb.Helper()
	db := sql.InMemory()
	tb.Cleanup(func() { require.NoError(tb, db.Close()) })
	createLedger(tb, db)
	path, err := checkpoint.Generate(context.Background(), fs, db, dataDir)
	require.NoError(tb, err)
	return db, path
}

func TestRecover(t *testing.T) {
	fs := afero.NewMemMapFs()
	olddb, path := generate(t, fs)

	newdb := sql.InMemory()
	t.Cleanup(func() { require.NoError(t, newdb.Close()) })
	require.NoError(t, checkpoint.Recover(context.Background(), logtest.New(t), fs, newdb, path))

	if diff := cmp.Diff(latestObjects(t, olddb), latestObjects(t, newdb)); diff != "" {
		t.Errorf("objects mismatch (-old +new):\n%s", diff)
	}
	oldEpochs, err := epochs.All(olddb)
	require.NoError(t, err)
	newEpochs, err := epochs.All(newdb)
	require.NoError(t, err)
	if diff := cmp.Diff(oldEpochs, newEpochs); diff != "" {
		t.Errorf("epochs mismatch (-old +new):\n%s", diff)
	}
	unsealed, err := transactions.Unsealed(newdb)
	require.NoError(t, err)
	require.Len(t, unsealed, 1)
	require.Equal(t, uint64(5), unsealed[0].Sequence)

	// both ledgers continue identically
	oldLedger := newLedger(t, olddb)
	recoveredLedger := newLedger(t, newdb)
	require.True(t, recoveredLedger.Initialized())
	require.Equal(t, oldLedger.Epoch(), recoveredLedger.Epoch())
	require.Equal(t, types.RoundID(7), recoveredLedger.Round())

	_, err = recoveredLedger.Submit(context.Background(), update(6, 5))
	require.Error(t, err)

	expected, err := oldLedger.Submit(context.Background(), update(8, 5))
	require.NoError(t, err)
	recovered, err := recoveredLedger.Submit(context.Background(), update(8, 5))
	require.NoError(t, err)
	require.Equal(t, expected, recovered)
	require.Equal(t, uint64(6), recovered.Sequence)
	require.Equal(t, types.ObjectVersion(5), recovered.Version)

	expectedCp, err := oldLedger.CreateCheckpoint(context.Background())
	require.NoError(t, err)
	recoveredCp, err := recoveredLedger.CreateCheckpoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, expectedCp.Sequence, recoveredCp.Sequence)
	require.Equal(t, expectedCp.Digest, recoveredCp.Digest)
	require.Equal(t, uint64(5), recoveredCp.FirstTx)
	require.Equal(t, uint64(6), recoveredCp.LastTx)
}

func TestRecover_NotEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, path := generate(t, fs)
	err := checkpoint.Recover(context.Background(), logtest.New(t), fs, db, path)
	require.ErrorIs(t, err, checkpoint.ErrNotEmpty)
}

func TestRecover_Invalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, path := generate(t, fs)
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	for _, tc := range []struct {
		desc string
		data string
		err  error
	}{
		{
			desc: "unsupported version",
			data: strings.Replace(string(data), checkpoint.SchemaVersion, "https://spacemesh.io/v0", 1),
			err:  checkpoint.ErrUnsupportedVersion,
		},
		{desc: "truncated", data: string(data[:len(data)/2])},
		{desc: "no objects", data: `{"version":"x","data":{"id":"a","epochs":[],"objects":[],"transactions":[]}}`},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			file := filepath.Join(dataDir, "broken")
			require.NoError(t, afero.WriteFile(fs, file, []byte(tc.data), 0o600))
			db := sql.InMemory()
			t.Cleanup(func() { require.NoError(t, db.Close()) })
			err := checkpoint.Recover(context.Background(), logtest.New(t), fs, db, file)
			require.Error(t, err)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestRecover_MissingFile(t *testing.T) {
	db := sql.InMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	err := checkpoint.Recover(context.Background(), logtest.New(t), afero.NewMemMapFs(), db, "/missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func snapshotData(tb testing.TB) []byte {
	tb.Helper()
	fs := afero.NewMemMapFs()
	_, path := generate(tb, fs)
	data, err := afero.ReadFile(fs, path)
	require.NoError(tb, err)
	return data
}

func TestFetch(t *testing.T) {
	data := snapshotData(t)
	src := filepath.Join(t.TempDir(), "snapshot-0")
	require.NoError(t, os.WriteFile(src, data, 0o600))

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		path, err := checkpoint.Fetch(context.Background(), logtest.New(t), dir, "file://"+src)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(checkpoint.RecoveryDir(dir), "snapshot-0"), path)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, data, got)
	})
	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/snapshots/snapshot-0" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		}))
		t.Cleanup(srv.Close)

		dir := t.TempDir()
		path, err := checkpoint.Fetch(context.Background(), logtest.New(t), dir, srv.URL+"/snapshots/snapshot-0")
		require.NoError(t, err)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, data, got)

		_, err = checkpoint.Fetch(context.Background(), logtest.New(t), dir, srv.URL+"/snapshots/snapshot-9")
		require.Error(t, err)
	})
	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := checkpoint.Fetch(context.Background(), logtest.New(t), t.TempDir(), "ftp://host/snapshot")
		require.Error(t, err)
	})
}
