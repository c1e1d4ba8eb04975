package presets

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-randomness/config"
	"github.com/spacemeshos/go-randomness/protocol"
)

func init() {
	register("standalone", standalone())
}

// standalone runs a single node that follows a local events file with the beacon active from genesis.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.Preset = "standalone"
	conf.DataDirParent = filepath.Join(os.TempDir(), "go-randomness-standalone")
	conf.DatabaseConnections = 4

	conf.LOGGING.LedgerLoggerLevel = zapcore.DebugLevel.String()
	conf.LOGGING.OrderingLoggerLevel = zapcore.DebugLevel.String()

	conf.API.AllowedOrigins = []string{"*"}
	conf.API.RateLimit = 0

	conf.Protocol = protocol.GenesisEnabledConfig()
	conf.Ordering.Path = filepath.Join(conf.DataDirParent, "events.ndjson")
	conf.Ordering.PollInterval = 200 * time.Millisecond
	conf.Ledger.CheckpointInterval = 2 * time.Second
	conf.Ledger.SnapshotInterval = time.Minute
	return conf
}
