package sql

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite "github.com/go-llsqlite/crawshaw"
	"github.com/go-llsqlite/crawshaw/sqlitex"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrNoConnection is returned when the pool can't hand out a connection before ctx is done.
	ErrNoConnection = errors.New("database: no free connection")
	// ErrNotFound is returned by table accessors when no row matches.
	ErrNotFound = errors.New("database: not found")
	// ErrObjectExists is returned when a primary key or unique constraint rejects a write.
	ErrObjectExists = errors.New("database: object exists")
	// ErrTooNew is returned when the schema on disk is ahead of the embedded migrations.
	ErrTooNew = errors.New("database version is too new")
)

// Executor runs a single statement. Both *Database and *Tx implement it, so table
// accessors work the same way inside and outside of a transaction.
type Executor interface {
	Exec(string, Encoder, Decoder) (int, error)
}

// Statement is an sqlite statement.
type Statement = sqlite.Stmt

// Encoder binds statement parameters, positional (?1) or named (@address).
// See https://www.sqlite.org/c3ref/bind_blob.html.
type Encoder func(*Statement)

// Decoder is called for every row. Returning false stops the iteration.
type Decoder func(*Statement) bool

const (
	beginDeferred  = "BEGIN;"
	beginImmediate = "BEGIN IMMEDIATE;"
)

type options struct {
	connections int
	fresh       bool
	metered     bool
	logger      *zap.Logger
}

// Opt modifies how a database is opened.
type Opt func(o *options)

// WithConnections sets the size of the connection pool.
func WithConnections(n int) Opt {
	return func(o *options) {
		o.connections = n
	}
}

// WithLogger sets the logger used while migrating.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLatencyMetering records the duration of every statement, labeled by query text.
// Cardinality is bounded by the number of distinct queries in the code.
func WithLatencyMetering(enable bool) Opt {
	return func(o *options) {
		o.metered = enable
	}
}

func fresh() Opt {
	return func(o *options) {
		o.fresh = true
	}
}

// OpenInMemory opens an empty database that lives as long as its single connection.
func OpenInMemory(opts ...Opt) (*Database, error) {
	return Open("file::memory:?mode=memory", append(opts, WithConnections(1), fresh())...)
}

// InMemory is OpenInMemory for tests. It panics on error.
func InMemory(opts ...Opt) *Database {
	db, err := OpenInMemory(opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// Open opens the database at uri, creating it if it doesn't exist, and brings its
// schema to the latest version.
//
// Files are opened in WAL mode (https://sqlite.org/wal.html), so readers never block
// the single writer.
func Open(uri string, opts ...Opt) (*Database, error) {
	o := options{
		connections: 16,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	pool, err := openPool(uri, o)
	if err != nil {
		return nil, err
	}
	db := &Database{pool: pool}
	if o.metered {
		db.latency = queryDuration
	}
	if err := Migrate(db, o.logger.With(zap.String("uri", uri))); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

func openPool(uri string, o options) (*sqlitex.Pool, error) {
	if o.fresh {
		pool, err := sqlitex.Open(uri, 0, o.connections)
		if err != nil {
			return nil, fmt.Errorf("open db %s: %w", uri, err)
		}
		return pool, nil
	}
	flags := sqlite.SQLITE_OPEN_READWRITE | sqlite.SQLITE_OPEN_WAL | sqlite.SQLITE_OPEN_URI | sqlite.SQLITE_OPEN_NOMUTEX
	pool, err := sqlitex.Open(uri, flags, o.connections)
	switch {
	case err == nil:
		return pool, nil
	case sqlite.ErrCode(err) != sqlite.SQLITE_CANTOPEN:
		return nil, fmt.Errorf("open db %s: %w", uri, err)
	}
	pool, err = sqlitex.Open(uri, flags|sqlite.SQLITE_OPEN_CREATE, o.connections)
	if err != nil {
		return nil, fmt.Errorf("create db %s: %w", uri, err)
	}
	return pool, nil
}

// Database is a pool of sqlite connections. It is safe for concurrent use.
type Database struct {
	pool    *sqlitex.Pool
	latency *prometheus.HistogramVec

	mu     sync.Mutex
	closed bool
}

func (db *Database) acquire(ctx context.Context) (*sqlite.Conn, error) {
	start := time.Now()
	conn := db.pool.Get(ctx)
	if conn == nil {
		return nil, ErrNoConnection
	}
	connWaitLatency.Observe(time.Since(start).Seconds())
	return conn, nil
}

func (db *Database) run(conn *sqlite.Conn, query string, enc Encoder, dec Decoder) (int, error) {
	if db.latency != nil {
		defer func(start time.Time) {
			db.latency.WithLabelValues(query).Observe(float64(time.Since(start)))
		}(time.Now())
	}
	return exec(conn, query, enc, dec)
}

func (db *Database) begin(ctx context.Context, mode string) (*Tx, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := step(conn, mode); err != nil {
		db.pool.Put(conn)
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{db: db, conn: conn}, nil
}

func (db *Database) within(ctx context.Context, mode string, fn func(*Tx) error) error {
	tx, err := db.begin(ctx, mode)
	if err != nil {
		return err
	}
	defer tx.Release()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx starts a deferred transaction. It takes the write lock only when the first write
// statement runs. The caller must Release it.
func (db *Database) Tx(ctx context.Context) (*Tx, error) {
	return db.begin(ctx, beginDeferred)
}

// WithTx runs fn in an immediate transaction and commits if fn returns nil.
// The write lock is taken up front, so concurrent writers queue at BEGIN instead of
// failing on upgrade.
func (db *Database) WithTx(ctx context.Context, fn func(*Tx) error) error {
	return db.within(ctx, beginImmediate, fn)
}

// WithReadTx runs fn in a deferred transaction. Every read in fn sees the same snapshot.
func (db *Database) WithReadTx(ctx context.Context, fn func(*Tx) error) error {
	return db.within(ctx, beginDeferred, fn)
}

// Exec runs query on a pooled connection outside of any transaction.
// It blocks until a connection is free.
func (db *Database) Exec(query string, enc Encoder, dec Decoder) (int, error) {
	conn, err := db.acquire(context.Background())
	if err != nil {
		return 0, err
	}
	defer db.pool.Put(conn)
	return db.run(conn, query, enc, dec)
}

// Close closes the pool. Closing twice is a no-op.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	if err := db.pool.Close(); err != nil {
		return fmt.Errorf("close pool %w", err)
	}
	db.closed = true
	return nil
}

func step(conn *sqlite.Conn, query string) error {
	_, err := conn.Prep(query).Step()
	return err
}

func isConstraint(err error) bool {
	switch sqlite.ErrCode(err) {
	case sqlite.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func exec(conn *sqlite.Conn, query string, enc Encoder, dec Decoder) (int, error) {
	stmt, err := conn.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("prepare %s: %w", query, err)
	}
	defer stmt.ClearBindings()
	if enc != nil {
		enc(stmt)
	}
	for rows := 0; ; rows++ {
		more, err := stmt.Step()
		if err != nil {
			stmt.Reset()
			if isConstraint(err) {
				return 0, ErrObjectExists
			}
			return 0, fmt.Errorf("step %d: %w", rows, err)
		}
		if !more {
			return rows, nil
		}
		if dec != nil && !dec(stmt) {
			if err := stmt.Reset(); err != nil {
				return rows + 1, fmt.Errorf("statement reset %w", err)
			}
			return rows + 1, nil
		}
	}
}

// Tx is a transaction bound to one pooled connection.
type Tx struct {
	db        *Database
	conn      *sqlite.Conn
	committed bool
}

// Commit commits the transaction. Release must still be called.
func (tx *Tx) Commit() error {
	if err := step(tx.conn, "COMMIT;"); err != nil {
		return err
	}
	tx.committed = true
	return nil
}

// Release rolls back an uncommitted transaction and returns the connection to the pool.
func (tx *Tx) Release() error {
	defer tx.db.pool.Put(tx.conn)
	if tx.committed {
		return nil
	}
	return step(tx.conn, "ROLLBACK;")
}

// Exec runs query inside the transaction.
func (tx *Tx) Exec(query string, enc Encoder, dec Decoder) (int, error) {
	return tx.db.run(tx.conn, query, enc, dec)
}

// IsNull reports whether result column col is NULL.
func IsNull(stmt *Statement, col int) bool {
	return stmt.ColumnType(col) == sqlite.SQLITE_NULL
}

// ColumnBytes copies a blob column into a new slice. A null or empty column yields nil.
func ColumnBytes(stmt *Statement, col int) []byte {
	n := stmt.ColumnLen(col)
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	stmt.ColumnBytes(col, buf)
	return buf
}
