package objects

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
)

func beacon(version types.ObjectVersion, contents string) *types.Object {
	return &types.Object{
		Address:              types.RandomnessStateAddress,
		Version:              version,
		Owner:                types.OwnerShared,
		InitialSharedVersion: 2,
		Type:                 types.RandomnessStateType,
		Contents:             []byte(contents),
		PreviousTransaction:  types.CalcHash32([]byte(contents)),
	}
}

func TestAddLatest(t *testing.T) {
	db := sql.InMemory()

	_, err := Latest(db, types.RandomnessStateAddress)
	require.ErrorIs(t, err, sql.ErrNotFound)
	has, err := Has(db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.False(t, has)

	for v := types.ObjectVersion(2); v <= 4; v++ {
		require.NoError(t, Add(db, beacon(v, v.String())))
	}
	require.ErrorIs(t, Add(db, beacon(3, "again")), sql.ErrObjectExists)

	latest, err := Latest(db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.Equal(t, beacon(4, "4"), latest)

	old, err := Get(db, types.RandomnessStateAddress, 2)
	require.NoError(t, err)
	require.Equal(t, beacon(2, "2"), old)

	_, err = Get(db, types.RandomnessStateAddress, 5)
	require.ErrorIs(t, err, sql.ErrNotFound)

	versions, err := Versions(db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.Equal(t, []types.ObjectVersion{2, 3, 4}, versions)

	has, err = Has(db, types.RandomnessStateAddress)
	require.NoError(t, err)
	require.True(t, has)
}

func TestNotSharedObject(t *testing.T) {
	db := sql.InMemory()
	obj := &types.Object{
		Address:             types.SystemStateAddress,
		Version:             types.StartVersion,
		Owner:               types.OwnerSystem,
		Type:                types.SystemStateType,
		Contents:            []byte{1, 2},
		PreviousTransaction: types.Hash32{1},
	}
	require.NoError(t, Add(db, obj))

	got, err := Latest(db, types.SystemStateAddress)
	require.NoError(t, err)
	require.Equal(t, obj, got)
	require.Zero(t, got.InitialSharedVersion)
}

func TestIterateLatest(t *testing.T) {
	db := sql.InMemory()
	system := &types.Object{
		Address:  types.SystemStateAddress,
		Version:  3,
		Owner:    types.OwnerSystem,
		Type:     types.SystemStateType,
		Contents: []byte{3},
	}
	require.NoError(t, Add(db, &types.Object{
		Address:  types.SystemStateAddress,
		Version:  1,
		Owner:    types.OwnerSystem,
		Type:     types.SystemStateType,
		Contents: []byte{1},
	}))
	require.NoError(t, Add(db, system))
	require.NoError(t, Add(db, beacon(2, "2")))
	require.NoError(t, Add(db, beacon(5, "5")))

	var got []*types.Object
	require.NoError(t, IterateLatest(db, func(obj *types.Object) bool {
		got = append(got, obj)
		return true
	}))
	require.Equal(t, []*types.Object{system, beacon(5, "5")}, got)

	got = nil
	require.NoError(t, IterateLatest(db, func(obj *types.Object) bool {
		got = append(got, obj)
		return false
	}))
	require.Len(t, got, 1)
}
