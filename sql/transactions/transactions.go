package transactions

import (
	"fmt"
	"slices"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
)

const fullQuery = `select seq, digest, kind, epoch, round, version, checkpoint, payload from transactions`

func decode(stmt *sql.Statement) *types.TransactionRecord {
	rec := &types.TransactionRecord{
		Sequence: uint64(stmt.ColumnInt64(0)),
		Kind:     types.TransactionKind(stmt.ColumnInt(2)),
		Epoch:    types.EpochID(stmt.ColumnInt64(3)),
		Round:    types.RoundID(stmt.ColumnInt64(4)),
		Version:  types.ObjectVersion(stmt.ColumnInt64(5)),
		Payload:  sql.ColumnBytes(stmt, 7),
	}
	stmt.ColumnBytes(1, rec.Digest[:])
	if !sql.IsNull(stmt, 6) {
		cp := types.CheckpointSequence(stmt.ColumnInt64(6))
		rec.Checkpoint = &cp
	}
	return rec
}

// Add appends a record to the history. The record must carry the next sequence.
func Add(db sql.Executor, rec *types.TransactionRecord) error {
	enc := func(stmt *sql.Statement) {
		stmt.BindInt64(1, int64(rec.Sequence))
		stmt.BindBytes(2, rec.Digest[:])
		stmt.BindInt64(3, int64(rec.Kind))
		stmt.BindInt64(4, int64(rec.Epoch))
		stmt.BindInt64(5, int64(rec.Round))
		stmt.BindInt64(6, int64(rec.Version))
		if rec.Checkpoint != nil {
			stmt.BindInt64(7, int64(*rec.Checkpoint))
		} else {
			stmt.BindNull(7)
		}
		stmt.BindBytes(8, rec.Payload)
	}
	if _, err := db.Exec(`insert into transactions
		(seq, digest, kind, epoch, round, version, checkpoint, payload)
		values (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8);`, enc, nil); err != nil {
		return fmt.Errorf("insert %s %s: %w", rec.Kind, rec.Digest.ShortString(), err)
	}
	return nil
}

// Get returns the record with the given digest.
func Get(db sql.Executor, digest types.Hash32) (*types.TransactionRecord, error) {
	var rec *types.TransactionRecord
	rows, err := db.Exec(fullQuery+` where digest = ?1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, digest[:])
		}, func(stmt *sql.Statement) bool {
			rec = decode(stmt)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", digest.ShortString(), err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("tx %s: %w", digest.ShortString(), sql.ErrNotFound)
	}
	return rec, nil
}

// GetBySequence returns the record committed at seq.
func GetBySequence(db sql.Executor, seq uint64) (*types.TransactionRecord, error) {
	var rec *types.TransactionRecord
	rows, err := db.Exec(fullQuery+` where seq = ?1;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(seq))
		}, func(stmt *sql.Statement) bool {
			rec = decode(stmt)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("get seq %d: %w", seq, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("tx seq %d: %w", seq, sql.ErrNotFound)
	}
	return rec, nil
}

// LastSequence returns the sequence of the most recent record, or 0 if history is empty.
func LastSequence(db sql.Executor) (uint64, error) {
	var seq uint64
	if _, err := db.Exec(`select coalesce(max(seq), 0) from transactions;`, nil,
		func(stmt *sql.Statement) bool {
			seq = uint64(stmt.ColumnInt64(0))
			return false
		}); err != nil {
		return 0, fmt.Errorf("last sequence: %w", err)
	}
	return seq, nil
}

// Last returns up to n most recent records of the given kind in commit order.
// Kind 0 matches every record.
func Last(db sql.Executor, kind types.TransactionKind, n int) ([]*types.TransactionRecord, error) {
	var recs []*types.TransactionRecord
	if _, err := db.Exec(fullQuery+` where (?1 = 0 or kind = ?1) order by seq desc limit ?2;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(kind))
			stmt.BindInt64(2, int64(n))
		}, func(stmt *sql.Statement) bool {
			recs = append(recs, decode(stmt))
			return true
		}); err != nil {
		return nil, fmt.Errorf("last %d: %w", n, err)
	}
	slices.Reverse(recs)
	return recs, nil
}

// Count returns the number of records of the given kind. Kind 0 counts every record.
func Count(db sql.Executor, kind types.TransactionKind) (int, error) {
	var count int
	if _, err := db.Exec(`select count(*) from transactions where (?1 = 0 or kind = ?1);`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(kind))
		}, func(stmt *sql.Statement) bool {
			count = stmt.ColumnInt(0)
			return false
		}); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// PageRequest selects a window of the history. Either First or Last must be set.
// With First the page starts right after the After cursor, with Last it ends right before
// the Before cursor. A zero cursor means the start or the end of the history.
type PageRequest struct {
	First  int
	After  uint64
	Last   int
	Before uint64
	// Kind restricts the page to one kind of records. Zero matches every kind.
	Kind types.TransactionKind
}

// Page is a window of the history in commit order.
type Page struct {
	Records         []*types.TransactionRecord
	HasNextPage     bool
	HasPreviousPage bool
}

// Paginate returns the page of records selected by req.
func Paginate(db sql.Executor, req PageRequest) (*Page, error) {
	switch {
	case req.First > 0 && req.Last > 0:
		return nil, fmt.Errorf("first and last are mutually exclusive")
	case req.First > 0:
		return forward(db, req)
	case req.Last > 0:
		return backward(db, req)
	default:
		return nil, fmt.Errorf("either first or last must be positive")
	}
}

func forward(db sql.Executor, req PageRequest) (*Page, error) {
	page := &Page{}
	if _, err := db.Exec(fullQuery+` where seq > ?1 and (?2 = 0 or kind = ?2) order by seq asc limit ?3;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(req.After))
			stmt.BindInt64(2, int64(req.Kind))
			stmt.BindInt64(3, int64(req.First)+1)
		}, func(stmt *sql.Statement) bool {
			page.Records = append(page.Records, decode(stmt))
			return true
		}); err != nil {
		return nil, fmt.Errorf("page after %d: %w", req.After, err)
	}
	if len(page.Records) > req.First {
		page.Records = page.Records[:req.First]
		page.HasNextPage = true
	}
	if req.After > 0 {
		exists, err := exists(db, `select 1 from transactions where seq <= ?1 and (?2 = 0 or kind = ?2) limit 1;`,
			req.After, req.Kind)
		if err != nil {
			return nil, err
		}
		page.HasPreviousPage = exists
	}
	return page, nil
}

func backward(db sql.Executor, req PageRequest) (*Page, error) {
	before := req.Before
	if before == 0 {
		before = 1<<63 - 1
	}
	page := &Page{}
	if _, err := db.Exec(fullQuery+` where seq < ?1 and (?2 = 0 or kind = ?2) order by seq desc limit ?3;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(before))
			stmt.BindInt64(2, int64(req.Kind))
			stmt.BindInt64(3, int64(req.Last)+1)
		}, func(stmt *sql.Statement) bool {
			page.Records = append(page.Records, decode(stmt))
			return true
		}); err != nil {
		return nil, fmt.Errorf("page before %d: %w", req.Before, err)
	}
	if len(page.Records) > req.Last {
		page.Records = page.Records[:req.Last]
		page.HasPreviousPage = true
	}
	slices.Reverse(page.Records)
	if req.Before > 0 {
		exists, err := exists(db, `select 1 from transactions where seq >= ?1 and (?2 = 0 or kind = ?2) limit 1;`,
			req.Before, req.Kind)
		if err != nil {
			return nil, err
		}
		page.HasNextPage = exists
	}
	return page, nil
}

func exists(db sql.Executor, query string, seq uint64, kind types.TransactionKind) (bool, error) {
	rows, err := db.Exec(query, func(stmt *sql.Statement) {
		stmt.BindInt64(1, int64(seq))
		stmt.BindInt64(2, int64(kind))
	}, nil)
	if err != nil {
		return false, fmt.Errorf("check page boundary: %w", err)
	}
	return rows > 0, nil
}

// Unsealed returns the records that are not part of any checkpoint yet, in commit order.
func Unsealed(db sql.Executor) ([]*types.TransactionRecord, error) {
	var recs []*types.TransactionRecord
	if _, err := db.Exec(fullQuery+` where checkpoint is null order by seq asc;`, nil,
		func(stmt *sql.Statement) bool {
			recs = append(recs, decode(stmt))
			return true
		}); err != nil {
		return nil, fmt.Errorf("unsealed: %w", err)
	}
	return recs, nil
}

// Seal assigns every record in the inclusive sequence range to the checkpoint.
// Only the checkpoint column is ever updated.
func Seal(db sql.Executor, cp types.CheckpointSequence, first, last uint64) error {
	rows, err := db.Exec(`update transactions set checkpoint = ?1
		where seq between ?2 and ?3 and checkpoint is null returning seq;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(cp))
			stmt.BindInt64(2, int64(first))
			stmt.BindInt64(3, int64(last))
		}, nil)
	if err != nil {
		return fmt.Errorf("seal %d-%d into %d: %w", first, last, cp, err)
	}
	if expected := int(last - first + 1); rows != expected {
		return fmt.Errorf("seal %d-%d into %d: sealed %d records, expected %d", first, last, cp, rows, expected)
	}
	return nil
}
