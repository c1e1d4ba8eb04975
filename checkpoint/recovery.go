package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/natefinch/atomic"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/checkpoints"
	"github.com/spacemeshos/go-randomness/sql/epochs"
	"github.com/spacemeshos/go-randomness/sql/objects"
	"github.com/spacemeshos/go-randomness/sql/transactions"
)

const recoveryDir = "recovery"

var (
	// ErrNotEmpty is returned when a snapshot is loaded into a database that already has state.
	ErrNotEmpty = errors.New("checkpoint: database is not empty")
	// ErrUnsupportedVersion is returned for snapshots written with another schema.
	ErrUnsupportedVersion = errors.New("checkpoint: unsupported snapshot version")
)

type Config struct {
	// Uri of a snapshot to recover from when the database is empty. file, http and https are supported.
	Uri string `mapstructure:"recovery-uri"`
}

func DefaultConfig() Config {
	return Config{}
}

func RecoveryDir(dataDir string) string {
	return filepath.Join(dataDir, recoveryDir)
}

// Fetch copies the snapshot at uri into the recovery directory and returns the local path.
func Fetch(ctx context.Context, logger *zap.Logger, dataDir, uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: parse recovery URI %v", err, uri)
	}
	dst := filepath.Join(RecoveryDir(dataDir), filepath.Base(parsed.Path))
	switch parsed.Scheme {
	case "file":
		src := filepath.Join(parsed.Host, parsed.Path)
		if src == dst {
			return dst, nil
		}
		fs := afero.NewOsFs()
		if err := CopyFile(fs, src, dst); err != nil {
			return "", err
		}
		logger.Debug("copied file", zap.String("from", src), zap.String("to", dst))
		return dst, nil
	case "http", "https":
		if err := httpToLocalFile(ctx, parsed, dst); err != nil {
			return "", err
		}
		logger.Info("snapshot persisted", zap.String("file", dst))
		return dst, nil
	default:
		return "", fmt.Errorf("uri scheme not supported: %s", uri)
	}
}

func httpToLocalFile(ctx context.Context, resource *url.URL, dst string) error {
	client := retryablehttp.NewClient()
	client.Logger = nil
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, resource.String(), nil)
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http get recovery file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recovery file not found: %s (%d)", resource, resp.StatusCode)
	}
	if err := afero.NewOsFs().MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return fmt.Errorf("create recovery dir: %w", err)
	}
	if err := atomic.WriteFile(dst, resp.Body); err != nil {
		return fmt.Errorf("write recovery file %s: %w", dst, err)
	}
	return nil
}

// Recover loads the snapshot in file into db. The database must have no ledger state.
func Recover(ctx context.Context, logger *zap.Logger, fs afero.Fs, db *sql.Database, file string) error {
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", file, err)
	}
	if err := ValidateSchema(data); err != nil {
		return err
	}
	var snapshot Snapshot
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Version != SchemaVersion {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, snapshot.Version)
	}
	if err := db.WithTx(ctx, func(tx *sql.Tx) error {
		exists, err := objects.Has(tx, types.SystemStateAddress)
		if err != nil {
			return err
		}
		if exists {
			return ErrNotEmpty
		}
		return load(tx, &snapshot.Data)
	}); err != nil {
		return fmt.Errorf("recover from %s: %w", file, err)
	}
	if err := sql.Vacuum(db); err != nil {
		return err
	}
	logger.Info("recovered from snapshot",
		zap.String("file", file),
		zap.String("id", snapshot.Data.SnapshotID),
		zap.Int("objects", len(snapshot.Data.Objects)),
		zap.Int("epochs", len(snapshot.Data.Epochs)),
		zap.Int("transactions", len(snapshot.Data.Transactions)),
	)
	return nil
}

func load(tx *sql.Tx, data *InnerData) error {
	var system bool
	for i := range data.Objects {
		obj := data.Objects[i].toObject()
		if obj.Owner == 0 {
			return fmt.Errorf("object %s: unknown owner %q", obj.Address.ShortString(), data.Objects[i].Owner)
		}
		system = system || obj.Address == types.SystemStateAddress
		if err := objects.Add(tx, obj); err != nil {
			return err
		}
	}
	if !system {
		return errors.New("snapshot has no system state")
	}
	for i := range data.Epochs {
		if err := epochs.Add(tx, data.Epochs[i].toEpoch()); err != nil {
			return err
		}
	}
	if data.Checkpoint != nil {
		if err := checkpoints.Add(tx, data.Checkpoint.toCheckpoint()); err != nil {
			return err
		}
	}
	for i := range data.Transactions {
		if err := transactions.Add(tx, data.Transactions[i].toTransaction()); err != nil {
			return err
		}
	}
	return nil
}
