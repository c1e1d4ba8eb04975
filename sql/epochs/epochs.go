package epochs

import (
	"fmt"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/sql"
)

// Add stores the info of a new epoch together with its feature flags.
func Add(db sql.Executor, info *types.EpochInfo) error {
	var version types.ProtocolVersion
	if info.Protocol != nil {
		version = info.Protocol.Version
	}
	if _, err := db.Exec(`insert into epochs
		(epoch, protocol_version, start_round, start_checkpoint, start_timestamp)
		values (?1, ?2, ?3, ?4, ?5);`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(info.Epoch))
			stmt.BindInt64(2, int64(version))
			stmt.BindInt64(3, int64(info.StartRound))
			stmt.BindInt64(4, int64(info.StartCheckpoint))
			stmt.BindInt64(5, int64(info.StartTimestampMs))
		}, nil); err != nil {
		return fmt.Errorf("insert epoch %s: %w", info.Epoch, err)
	}
	for _, flag := range info.Protocol.FlagNames() {
		enabled := info.Protocol.FeatureFlags[flag]
		if _, err := db.Exec(`insert into epoch_features (epoch, flag, enabled) values (?1, ?2, ?3);`,
			func(stmt *sql.Statement) {
				stmt.BindInt64(1, int64(info.Epoch))
				stmt.BindText(2, flag)
				stmt.BindBool(3, enabled)
			}, nil); err != nil {
			return fmt.Errorf("insert flag %s for epoch %s: %w", flag, info.Epoch, err)
		}
	}
	return nil
}

func features(db sql.Executor, epoch types.EpochID) (map[string]bool, error) {
	flags := map[string]bool{}
	if _, err := db.Exec(`select flag, enabled from epoch_features where epoch = ?1;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(epoch))
		}, func(stmt *sql.Statement) bool {
			flags[stmt.ColumnText(0)] = stmt.ColumnInt(1) != 0
			return true
		}); err != nil {
		return nil, fmt.Errorf("flags for epoch %s: %w", epoch, err)
	}
	return flags, nil
}

func load(db sql.Executor, query string, enc sql.Encoder) ([]*types.EpochInfo, error) {
	var infos []*types.EpochInfo
	if _, err := db.Exec(query, enc, func(stmt *sql.Statement) bool {
		infos = append(infos, &types.EpochInfo{
			Epoch:            types.EpochID(stmt.ColumnInt64(0)),
			Protocol:         &types.ProtocolConfig{Version: types.ProtocolVersion(stmt.ColumnInt64(1))},
			StartRound:       types.RoundID(stmt.ColumnInt64(2)),
			StartCheckpoint:  types.CheckpointSequence(stmt.ColumnInt64(3)),
			StartTimestampMs: uint64(stmt.ColumnInt64(4)),
		})
		return true
	}); err != nil {
		return nil, err
	}
	for _, info := range infos {
		flags, err := features(db, info.Epoch)
		if err != nil {
			return nil, err
		}
		info.Protocol.FeatureFlags = flags
	}
	return infos, nil
}

const fullQuery = `select epoch, protocol_version, start_round, start_checkpoint, start_timestamp from epochs`

// Get returns the info of the epoch.
func Get(db sql.Executor, epoch types.EpochID) (*types.EpochInfo, error) {
	infos, err := load(db, fullQuery+` where epoch = ?1;`, func(stmt *sql.Statement) {
		stmt.BindInt64(1, int64(epoch))
	})
	if err != nil {
		return nil, fmt.Errorf("get epoch %s: %w", epoch, err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("epoch %s: %w", epoch, sql.ErrNotFound)
	}
	return infos[0], nil
}

// Latest returns the info of the most recent epoch.
func Latest(db sql.Executor) (*types.EpochInfo, error) {
	infos, err := load(db, fullQuery+` order by epoch desc limit 1;`, nil)
	if err != nil {
		return nil, fmt.Errorf("latest epoch: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("latest epoch: %w", sql.ErrNotFound)
	}
	return infos[0], nil
}

// All returns every stored epoch in ascending order.
func All(db sql.Executor) ([]*types.EpochInfo, error) {
	infos, err := load(db, fullQuery+` order by epoch asc;`, nil)
	if err != nil {
		return nil, fmt.Errorf("all epochs: %w", err)
	}
	return infos, nil
}
