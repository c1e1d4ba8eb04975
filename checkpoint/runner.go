package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/checkpoints"
	"github.com/spacemeshos/go-randomness/sql/epochs"
	"github.com/spacemeshos/go-randomness/sql/objects"
	"github.com/spacemeshos/go-randomness/sql/transactions"
)

const (
	SchemaVersion = "https://spacemesh.io/randomness/snapshot.schema.json.1.0"

	checkpointDir = "checkpoint"
	schemaFile    = "snapshot.schema.json"
	dirPerm       = 0o700
)

// ErrNoState is returned when a snapshot is requested before genesis.
var ErrNoState = errors.New("checkpoint: ledger has no state")

func checkpointDB(ctx context.Context, db *sql.Database) (*Snapshot, error) {
	snapshot := &Snapshot{Version: SchemaVersion}
	err := db.WithReadTx(ctx, func(tx *sql.Tx) error {
		latest, err := checkpoints.Latest(tx)
		switch {
		case errors.Is(err, sql.ErrNotFound):
			snapshot.Data.SnapshotID = "snapshot-genesis"
		case err != nil:
			return err
		default:
			snapshot.Data.SnapshotID = fmt.Sprintf("snapshot-%d", latest.Sequence)
			snapshot.Data.Checkpoint = fromCheckpoint(latest)
		}

		infos, err := epochs.All(tx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			return ErrNoState
		}
		for _, info := range infos {
			snapshot.Data.Epochs = append(snapshot.Data.Epochs, fromEpoch(info))
		}

		if err := objects.IterateLatest(tx, func(obj *types.Object) bool {
			snapshot.Data.Objects = append(snapshot.Data.Objects, fromObject(obj))
			return true
		}); err != nil {
			return err
		}

		// the last sealed record keeps the round, unsealed ones go into the next checkpoint
		snapshot.Data.Transactions = []Transaction{}
		if latest != nil && latest.LastTx > 0 {
			rec, err := transactions.GetBySequence(tx, latest.LastTx)
			if err != nil {
				return err
			}
			snapshot.Data.Transactions = append(snapshot.Data.Transactions, fromTransaction(rec))
		}
		unsealed, err := transactions.Unsealed(tx)
		if err != nil {
			return err
		}
		for _, rec := range unsealed {
			snapshot.Data.Transactions = append(snapshot.Data.Transactions, fromTransaction(rec))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot db: %w", err)
	}
	return snapshot, nil
}

// Generate writes a snapshot of the current ledger state into the checkpoint directory and returns
// the path of the file.
func Generate(ctx context.Context, fs afero.Fs, db *sql.Database, dataDir string) (string, error) {
	snapshot, err := checkpointDB(ctx, db)
	if err != nil {
		return "", err
	}
	path := SelfCheckpointFilename(dataDir, snapshot.Data.SnapshotID)
	rf, err := NewRecoveryFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("new recovery file: %w", err)
	}
	if err = json.NewEncoder(rf.fwriter).Encode(snapshot); err != nil {
		rf.abort(fs)
		return "", fmt.Errorf("marshal snapshot json: %w", err)
	}
	if err = rf.Save(fs); err != nil {
		return "", err
	}
	return path, nil
}

func SelfCheckpointFilename(dataDir, id string) string {
	return filepath.Join(dataDir, checkpointDir, id)
}
