package objects

import (
	"fmt"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
)

const fullQuery = `select address, version, owner, initial_shared_version, type, contents, prev_tx from objects`

func decode(stmt *sql.Statement) *types.Object {
	obj := &types.Object{
		Version:  types.ObjectVersion(stmt.ColumnInt64(1)),
		Owner:    types.OwnerKind(stmt.ColumnInt(2)),
		Type:     stmt.ColumnText(4),
		Contents: sql.ColumnBytes(stmt, 5),
	}
	stmt.ColumnBytes(0, obj.Address[:])
	if !sql.IsNull(stmt, 3) {
		obj.InitialSharedVersion = types.ObjectVersion(stmt.ColumnInt64(3))
	}
	stmt.ColumnBytes(6, obj.PreviousTransaction[:])
	return obj
}

// Add writes a new version of an object. Existing versions are never overwritten.
func Add(db sql.Executor, obj *types.Object) error {
	enc := func(stmt *sql.Statement) {
		stmt.BindBytes(1, obj.Address[:])
		stmt.BindInt64(2, int64(obj.Version))
		stmt.BindInt64(3, int64(obj.Owner))
		if obj.IsShared() {
			stmt.BindInt64(4, int64(obj.InitialSharedVersion))
		} else {
			stmt.BindNull(4)
		}
		stmt.BindText(5, obj.Type)
		stmt.BindBytes(6, obj.Contents)
		stmt.BindBytes(7, obj.PreviousTransaction[:])
	}
	_, err := db.Exec(`insert into objects
		(address, version, owner, initial_shared_version, type, contents, prev_tx)
		values (?1, ?2, ?3, ?4, ?5, ?6, ?7);`, enc, nil)
	if err != nil {
		return fmt.Errorf("insert object %s version %d: %w", obj.Address.ShortString(), obj.Version, err)
	}
	return nil
}

// Latest returns the highest version of the object.
func Latest(db sql.Executor, addr types.Address) (*types.Object, error) {
	var obj *types.Object
	rows, err := db.Exec(fullQuery+` where address = ?1 order by version desc limit 1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, addr[:])
		}, func(stmt *sql.Statement) bool {
			obj = decode(stmt)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("latest object %s: %w", addr.ShortString(), err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("object %s: %w", addr.ShortString(), sql.ErrNotFound)
	}
	return obj, nil
}

// Get returns a specific version of the object.
func Get(db sql.Executor, addr types.Address, version types.ObjectVersion) (*types.Object, error) {
	var obj *types.Object
	rows, err := db.Exec(fullQuery+` where address = ?1 and version = ?2;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, addr[:])
			stmt.BindInt64(2, int64(version))
		}, func(stmt *sql.Statement) bool {
			obj = decode(stmt)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("object %s version %d: %w", addr.ShortString(), version, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("object %s version %d: %w", addr.ShortString(), version, sql.ErrNotFound)
	}
	return obj, nil
}

// Has is true if any version of the object exists.
func Has(db sql.Executor, addr types.Address) (bool, error) {
	rows, err := db.Exec(`select 1 from objects where address = ?1 limit 1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, addr[:])
		}, nil)
	if err != nil {
		return false, fmt.Errorf("has object %s: %w", addr.ShortString(), err)
	}
	return rows > 0, nil
}

// Versions returns all stored versions of the object in ascending order.
func Versions(db sql.Executor, addr types.Address) ([]types.ObjectVersion, error) {
	var versions []types.ObjectVersion
	_, err := db.Exec(`select version from objects where address = ?1 order by version asc;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, addr[:])
		}, func(stmt *sql.Statement) bool {
			versions = append(versions, types.ObjectVersion(stmt.ColumnInt64(0)))
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("versions of %s: %w", addr.ShortString(), err)
	}
	return versions, nil
}

// IterateLatest calls fn with the latest version of every object, ordered by address.
// Iteration stops when fn returns false.
func IterateLatest(db sql.Executor, fn func(*types.Object) bool) error {
	_, err := db.Exec(fullQuery+` o where version = (
			select max(version) from objects where address = o.address
		) order by address;`, nil,
		func(stmt *sql.Statement) bool {
			return fn(decode(stmt))
		})
	if err != nil {
		return fmt.Errorf("iterate objects: %w", err)
	}
	return nil
}
