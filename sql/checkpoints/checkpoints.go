package checkpoints

import (
	"fmt"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
)

const fullQuery = `select seq, epoch, digest, first_tx, last_tx, timestamp from checkpoints`

func decode(stmt *sql.Statement) *types.Checkpoint {
	cp := &types.Checkpoint{
		Sequence:    types.CheckpointSequence(stmt.ColumnInt64(0)),
		Epoch:       types.EpochID(stmt.ColumnInt64(1)),
		FirstTx:     uint64(stmt.ColumnInt64(3)),
		LastTx:      uint64(stmt.ColumnInt64(4)),
		TimestampMs: uint64(stmt.ColumnInt64(5)),
	}
	stmt.ColumnBytes(2, cp.Digest[:])
	return cp
}

// Add stores a sealed checkpoint.
func Add(db sql.Executor, cp *types.Checkpoint) error {
	if _, err := db.Exec(`insert into checkpoints (seq, epoch, digest, first_tx, last_tx, timestamp)
		values (?1, ?2, ?3, ?4, ?5, ?6);`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(cp.Sequence))
			stmt.BindInt64(2, int64(cp.Epoch))
			stmt.BindBytes(3, cp.Digest[:])
			stmt.BindInt64(4, int64(cp.FirstTx))
			stmt.BindInt64(5, int64(cp.LastTx))
			stmt.BindInt64(6, int64(cp.TimestampMs))
		}, nil); err != nil {
		return fmt.Errorf("insert checkpoint %s: %w", cp.Sequence, err)
	}
	return nil
}

// Get returns the checkpoint with the given sequence.
func Get(db sql.Executor, seq types.CheckpointSequence) (*types.Checkpoint, error) {
	var cp *types.Checkpoint
	rows, err := db.Exec(fullQuery+` where seq = ?1;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(seq))
		}, func(stmt *sql.Statement) bool {
			cp = decode(stmt)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", seq, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("checkpoint %s: %w", seq, sql.ErrNotFound)
	}
	return cp, nil
}

// Latest returns the checkpoint with the highest sequence.
func Latest(db sql.Executor) (*types.Checkpoint, error) {
	var cp *types.Checkpoint
	rows, err := db.Exec(fullQuery+` order by seq desc limit 1;`, nil,
		func(stmt *sql.Statement) bool {
			cp = decode(stmt)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("latest checkpoint: %w", sql.ErrNotFound)
	}
	return cp, nil
}
