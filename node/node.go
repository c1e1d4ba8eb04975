// Package node contains the main executable for go-randomness node
package node

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-randomness/api/query"
	"github.com/spacemeshos/go-randomness/api/server"
	"github.com/spacemeshos/go-randomness/checkpoint"
	"github.com/spacemeshos/go-randomness/cmd"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/config"
	"github.com/spacemeshos/go-randomness/config/presets"
	"github.com/spacemeshos/go-randomness/epochs"
	"github.com/spacemeshos/go-randomness/events"
	"github.com/spacemeshos/go-randomness/ledger"
	"github.com/spacemeshos/go-randomness/log"
	"github.com/spacemeshos/go-randomness/metrics"
	"github.com/spacemeshos/go-randomness/ordering"
	"github.com/spacemeshos/go-randomness/protocol"
	"github.com/spacemeshos/go-randomness/randomness"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/objects"
)

const (
	dbFile   = "state.sql"
	lockFile = "node.lock"
)

// Logger names.
const (
	AppLogger        = "app"
	StateDbLogger    = "stateDb"
	LedgerLogger     = "ledger"
	EpochsLogger     = "epochs"
	RandomnessLogger = "randomness"
	OrderingLogger   = "ordering"
	CheckpointLogger = "checkpoint"
	APILogger        = "api"
	EventsLogger     = "events"
	MetricsLogger    = "metrics"
)

func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	var configPath *string
	c := &cobra.Command{
		Use:   "node",
		Short: "start node",
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, &conf); err != nil {
				return err
			}
			// NOTE: the root logger is kept at debug so module loggers can be lowered or raised independently.
			logger, err := log.New(conf.LOGGING.Encoder, zapcore.DebugLevel)
			if err != nil {
				return log.ErrBadFlags(err)
			}
			app := New(
				WithConfig(&conf),
				WithLog(logger),
			)

			// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := app.Initialize(); err != nil {
				return err
			}
			if err := app.Lock(); err != nil {
				return err
			}
			defer app.Unlock()

			// Don't print usage on error from this point forward
			c.SilenceUsage = true

			// This blocks until the context is finished or until an error is produced
			err = app.Start(ctx)
			app.Cleanup()
			return err
		},
	}

	configPath = cmd.AddFlags(c.PersistentFlags(), &conf)

	// versionCmd returns the current version of the node.
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Print(cmd.Version)
			fmt.Println()
		},
	}
	c.AddCommand(versionCmd)

	return c
}

func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	preset := conf.Preset // might be set via CLI flag
	if err := loadConfig(conf, preset, configPath); err != nil {
		return log.ErrMalformedConfig(err)
	}
	// apply CLI args to config
	if err := c.ParseFlags(os.Args[1:]); err != nil {
		return log.ErrBadFlags(err)
	}
	if err := conf.Validate(); err != nil {
		return log.ErrMalformedConfig(err)
	}
	return nil
}

// loadConfig loads config and preset (if provided) into the provided config.
// It first loads the preset and then overrides it with values from the config file.
func loadConfig(cfg *config.Config, preset, path string) error {
	v := viper.New()
	// read in config from file
	if err := config.LoadConfig(path, v); err != nil {
		return err
	}

	// override default config with preset if provided
	if len(preset) == 0 && v.IsSet("preset") {
		preset = v.GetString("preset")
	}
	if len(preset) > 0 {
		p, err := presets.Get(preset)
		if err != nil {
			return err
		}
		*cfg = p
	}
	return config.Unmarshal(v, cfg)
}

// Option to modify an App instance.
type Option func(app *App)

// WithLog sets the root logger of an App.
func WithLog(logger *zap.Logger) Option {
	return func(app *App) {
		app.log = logger
	}
}

// WithConfig overwrites default App config.
func WithConfig(conf *config.Config) Option {
	return func(app *App) {
		app.Config = conf
	}
}

// WithClock sets the clock that drives periodic checkpoints and snapshots.
func WithClock(clock clockwork.Clock) Option {
	return func(app *App) {
		app.clock = clock
	}
}

// New creates an instance of the randomness node.
func New(opts ...Option) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config:  &defaultConfig,
		log:     zap.NewNop(),
		clock:   clockwork.NewRealClock(),
		loggers: map[string]*zap.Logger{},
		started: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// App is the randomness node.
type App struct {
	Config *config.Config

	log      *zap.Logger
	levels   log.Levels
	loggers  map[string]*zap.Logger
	clock    clockwork.Clock
	fileLock *flock.Flock

	db       *sql.Database
	reporter *events.Reporter
	ledger   *ledger.Ledger
	query    *query.Service
	apiAddr  net.Addr

	started chan struct{} // closed once every service is running
}

// Initialize creates the data directory and the module loggers.
func (app *App) Initialize() error {
	dataDir := app.Config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return log.ErrEnsureDataDir(dataDir, err)
	}
	for name, level := range app.Config.LOGGING.Levels() {
		logger, err := app.levels.Named(app.log, name, level)
		if err != nil {
			return log.ErrMalformedConfig(err)
		}
		app.loggers[name] = logger
	}
	app.logger(AppLogger).Info("starting randomness node",
		zap.String("version", cmd.Version),
		zap.String("branch", cmd.Branch),
		zap.String("commit", cmd.Commit),
		zap.String("go", runtime.Version()),
		zap.String("os", runtime.GOOS+"-"+runtime.GOARCH),
		zap.String("data_dir", dataDir),
		zap.String("preset", app.Config.Preset),
	)
	return nil
}

func (app *App) logger(name string) *zap.Logger {
	if logger, ok := app.loggers[name]; ok {
		return logger
	}
	return app.log.Named(name)
}

// SetLogLevel updates the log level of an existing logger.
func (app *App) SetLogLevel(name, loglevel string) error {
	lvl, err := zapcore.ParseLevel(loglevel)
	if err != nil {
		return fmt.Errorf("parse level: %w", err)
	}
	return app.levels.SetLevel(name, lvl)
}

// Lock locks the data directory for exclusive use. It returns an error if it is already locked.
func (app *App) Lock() error {
	path := filepath.Join(app.Config.DataDir(), lockFile)
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("flock %s: %w", path, err)
	}
	if !locked {
		return log.ErrLockDataDir(app.Config.DataDir())
	}
	app.fileLock = fl
	return nil
}

// Unlock unlocks the data directory. It is a no-op if the app is not locked.
func (app *App) Unlock() {
	if app.fileLock == nil {
		return
	}
	if err := app.fileLock.Unlock(); err != nil {
		app.log.Error("failed to unlock file",
			zap.String("path", app.fileLock.Path()),
			zap.Error(err),
		)
	}
}

// Started is closed once the app serves requests.
func (app *App) Started() <-chan struct{} {
	return app.started
}

// APIAddress is the address the http api listens on. It is set once the app started.
func (app *App) APIAddress() net.Addr {
	return app.apiAddr
}

func (app *App) setupDB(ctx context.Context) error {
	dbPath := filepath.Join(app.Config.DataDir(), dbFile)
	db, err := sql.Open("file:"+dbPath,
		sql.WithConnections(app.Config.DatabaseConnections),
		sql.WithLatencyMetering(app.Config.DatabaseLatencyMetering),
		sql.WithLogger(app.logger(StateDbLogger)),
	)
	if err != nil {
		return log.ErrOpenDatabase(err)
	}
	app.db = db

	uri := app.Config.Recovery.Uri
	if uri == "" {
		return nil
	}
	lg := app.logger(CheckpointLogger)
	exists, err := objects.Has(db, types.SystemStateAddress)
	if err != nil {
		return err
	}
	if exists {
		lg.Info("ledger already initialized, skipping recovery", zap.String("uri", uri))
		return nil
	}
	lg.Info("recover from snapshot", zap.String("uri", uri))
	file, err := checkpoint.Fetch(ctx, lg, app.Config.DataDir(), uri)
	if err != nil {
		return err
	}
	return checkpoint.Recover(ctx, lg, afero.NewOsFs(), db, file)
}

func (app *App) initServices(ctx context.Context) error {
	schedule, err := protocol.NewSchedule(app.Config.Protocol)
	if err != nil {
		return err
	}
	machine := randomness.New(randomness.WithLogger(app.logger(RandomnessLogger)))
	trigger := epochs.New(schedule, machine, epochs.WithLogger(app.logger(EpochsLogger)))
	app.reporter = events.NewReporter(app.logger(EventsLogger))
	app.ledger, err = ledger.New(app.db, trigger, machine,
		ledger.WithLogger(app.logger(LedgerLogger)),
		ledger.WithClock(app.clock),
		ledger.WithReporter(app.reporter),
	)
	if err != nil {
		return fmt.Errorf("recover ledger: %w", err)
	}
	if !app.ledger.Initialized() {
		if err := app.ledger.Genesis(ctx); err != nil {
			return err
		}
	}
	app.query, err = query.New(app.db, query.WithLogger(app.logger(APILogger)))
	return err
}

// Start opens the database, applies genesis or recovery if needed and runs every service until
// ctx is canceled or one of them fails.
func (app *App) Start(ctx context.Context) error {
	if err := app.setupDB(ctx); err != nil {
		return err
	}
	if err := app.initServices(ctx); err != nil {
		return err
	}
	var feed *ordering.Feed
	if app.Config.Ordering.Path != "" {
		var err error
		if feed, err = app.newFeed(); err != nil {
			return err
		}
	}

	lis, err := net.Listen("tcp", app.Config.API.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", app.Config.API.Address, err)
	}
	app.apiAddr = lis.Addr()

	eg, ctx := errgroup.WithContext(ctx)
	api := server.New(app.query, app.Config.API, server.WithLogger(app.logger(APILogger)))
	eg.Go(func() error {
		return api.Serve(ctx, lis)
	})
	if app.Config.Metrics.Enabled {
		srv := metrics.NewServer(app.Config.Metrics.Address, app.logger(MetricsLogger))
		eg.Go(func() error {
			return srv.Run(ctx)
		})
	}
	if app.Config.Metrics.Push.URL != "" {
		node, err := os.Hostname()
		if err != nil {
			node = "unknown"
		}
		eg.Go(func() error {
			return metrics.RunPusher(ctx, app.Config.Metrics.Push, node, app.logger(MetricsLogger))
		})
	}
	if feed != nil {
		eg.Go(func() error {
			return feed.Run(ctx)
		})
	}
	if interval := app.Config.Ledger.CheckpointInterval; interval > 0 {
		eg.Go(func() error {
			return app.runPeriodically(ctx, interval, app.checkpoint)
		})
	}
	if interval := app.Config.Ledger.SnapshotInterval; interval > 0 {
		eg.Go(func() error {
			return app.runPeriodically(ctx, interval, app.snapshot)
		})
	}
	close(app.started)
	return eg.Wait()
}

func (app *App) newFeed() (*ordering.Feed, error) {
	cfg := app.Config.Ordering
	if cfg.PollInterval > 0 {
		// a followed feed may be created by the writer after the node started
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.Path, os.O_RDONLY|os.O_CREATE, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create events file: %w", err)
		}
		f.Close()
	}
	return ordering.New(app.ledger, cfg, ordering.WithLogger(app.logger(OrderingLogger)))
}

func (app *App) runPeriodically(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	ticker := app.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
}

func (app *App) checkpoint(ctx context.Context) error {
	cp, err := app.ledger.CreateCheckpoint(ctx)
	switch {
	case ctx.Err() != nil:
		return nil
	case err != nil:
		return err
	case cp != nil:
		app.logger(LedgerLogger).Debug("sealed pending transactions",
			zap.Uint64("checkpoint", uint64(cp.Sequence)),
			zap.Uint64("first_tx", uint64(cp.FirstTx)),
			zap.Uint64("last_tx", uint64(cp.LastTx)),
		)
	}
	return nil
}

func (app *App) snapshot(ctx context.Context) error {
	path, err := checkpoint.Generate(ctx, afero.NewOsFs(), app.db, app.Config.DataDir())
	switch {
	case ctx.Err() != nil:
		return nil
	case err != nil:
		// a failed snapshot leaves the ledger intact, the next tick retries
		app.logger(CheckpointLogger).Error("failed to write snapshot", zap.Error(err))
	default:
		app.logger(CheckpointLogger).Info("wrote snapshot", zap.String("path", path))
	}
	return nil
}

// Cleanup closes the database.
func (app *App) Cleanup() {
	app.log.Info("app cleanup starting...")
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.log.Error("failed to close database", zap.Error(err))
		}
	}
	app.log.Info("app cleanup completed")
}
