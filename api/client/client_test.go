package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/api/query"
	"github.com/spacemeshos/go-randomness/api/server"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/epochs"
	"github.com/spacemeshos/go-randomness/ledger"
	"github.com/spacemeshos/go-randomness/log/logtest"
	"github.com/spacemeshos/go-randomness/protocol"
	"github.com/spacemeshos/go-randomness/randomness"
	"github.com/spacemeshos/go-randomness/sql"
)

type testClient struct {
	*Client
	ledger *ledger.Ledger
}

func launch(tb testing.TB, wrap func(http.Handler) http.Handler) *testClient {
	tb.Helper()
	db := sql.InMemory()
	tb.Cleanup(func() { require.NoError(tb, db.Close()) })
	logger := logtest.New(tb)
	schedule, err := protocol.NewSchedule(protocol.DefaultConfig())
	require.NoError(tb, err)
	machine := randomness.New()
	l, err := ledger.New(db, epochs.New(schedule, machine), machine, ledger.WithLogger(logger))
	require.NoError(tb, err)
	require.NoError(tb, l.Genesis(context.Background()))
	q, err := query.New(db)
	require.NoError(tb, err)

	handler := server.New(q, server.DefaultConfig()).Handler()
	if wrap != nil {
		handler = wrap(handler)
	}
	srv := httptest.NewServer(handler)
	tb.Cleanup(srv.Close)
	return &testClient{
		Client: New(srv.URL, WithLogger(logger), WithRetryMax(2), WithRetryWait(time.Millisecond, time.Millisecond)),
		ledger: l,
	}
}

func TestSystemState(t *testing.T) {
	tc := launch(t, nil)
	ctx := context.Background()

	rst, err := tc.SystemState(ctx, types.FeatureRandomBeacon)
	require.NoError(t, err)
	require.NotNil(t, rst.SystemState)
	require.Zero(t, rst.SystemState.Epoch.EpochID)
	require.NotNil(t, rst.FeatureFlag)
	require.False(t, rst.FeatureFlag.Value)

	_, err = tc.ledger.AdvanceEpoch(ctx)
	require.NoError(t, err)
	rst, err = tc.SystemState(ctx, types.FeatureRandomBeacon)
	require.NoError(t, err)
	require.Equal(t, uint32(1), rst.SystemState.Epoch.EpochID)
	require.True(t, rst.FeatureFlag.Value)

	rst, err = tc.SystemState(ctx, "")
	require.NoError(t, err)
	require.Nil(t, rst.FeatureFlag)
}

func TestObject(t *testing.T) {
	tc := launch(t, nil)
	ctx := context.Background()

	obj, err := tc.Object(ctx, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.Nil(t, obj)

	_, err = tc.ledger.AdvanceEpoch(ctx)
	require.NoError(t, err)
	obj, err = tc.Object(ctx, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.NotNil(t, obj)
	require.Equal(t, query.LocationShared, obj.Location)
	require.Equal(t, obj.Version, *obj.InitialSharedVersion)
}

func TestTransactions(t *testing.T) {
	tc := launch(t, nil)
	ctx := context.Background()
	_, err := tc.ledger.AdvanceEpoch(ctx)
	require.NoError(t, err)
	_, err = tc.ledger.Submit(ctx, &types.RandomnessStateUpdate{
		Epoch:                             1,
		Round:                             1,
		RandomnessRound:                   1,
		RandomBytes:                       types.MustBase64FromString("SGVsbG8gU3Vp"),
		RandomnessObjInitialSharedVersion: 2,
	})
	require.NoError(t, err)

	all, err := tc.Transactions(ctx, query.TransactionsRequest{First: 10})
	require.NoError(t, err)
	require.Len(t, all.Nodes, 4)

	updates, err := tc.Transactions(ctx, query.TransactionsRequest{
		Last: 1,
		Kind: types.TransactionRandomnessStateUpdate,
	})
	require.NoError(t, err)
	require.Len(t, updates.Nodes, 1)
	require.Equal(t, types.Base64Enc("Hello Sui"), updates.Nodes[0].RandomBytes)

	head, err := tc.Transactions(ctx, query.TransactionsRequest{Last: 10, Before: updates.Nodes[0].Cursor})
	require.NoError(t, err)
	require.Equal(t, all.Nodes[:3], head.Nodes)
}

func TestMalformedRequest(t *testing.T) {
	var calls atomic.Int32
	tc := launch(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			next.ServeHTTP(w, r)
		})
	})
	_, err := tc.Transactions(context.Background(), query.TransactionsRequest{First: 1, Last: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Contains(t, apiErr.Message, "malformed")
	require.NotEmpty(t, apiErr.RequestID)
	require.Equal(t, int32(1), calls.Load())
}

func TestRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	tc := launch(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	rst, err := tc.SystemState(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, rst.SystemState)
	require.Equal(t, int32(3), calls.Load())
}

func TestGivesUp(t *testing.T) {
	tc := launch(t, func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	_, err := tc.SystemState(context.Background(), "")
	require.ErrorContains(t, err, "giving up")
}
