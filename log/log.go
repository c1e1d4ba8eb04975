// Package log builds the zap loggers used across the node.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoder names accepted by New.
const (
	ConsoleEncoder = "console"
	JSONEncoder    = "json"
)

// where logs go by default.
var logWriter io.Writer = os.Stdout

// New creates a root logger that writes to stdout.
func New(encoder string, level zapcore.Level) (*zap.Logger, error) {
	return NewWithWriter(logWriter, encoder, zap.NewAtomicLevelAt(level))
}

// NewWithWriter creates a root logger with a dynamic level.
func NewWithWriter(w io.Writer, encoder string, level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch encoder {
	case ConsoleEncoder, "":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	case JSONEncoder:
		enc = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, fmt.Errorf("unknown log encoder %q", encoder)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)), nil
}

// Levels keeps the dynamic level of every named module logger, so levels can be changed at runtime.
type Levels struct {
	mu     sync.Mutex
	levels map[string]zap.AtomicLevel
}

// Named returns a child of root with its own level. The level of a name is shared by every logger
// created with that name.
func (l *Levels) Named(root *zap.Logger, name, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse level for %s: %w", name, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.levels == nil {
		l.levels = map[string]zap.AtomicLevel{}
	}
	if existing, ok := l.levels[name]; ok {
		lvl = existing
	} else {
		l.levels[name] = lvl
	}
	return root.Named(name).WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &coreWithLevel{Core: core, lvl: lvl}
	})), nil
}

// SetLevel changes the level of an existing module logger.
func (l *Levels) SetLevel(name string, level zapcore.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	lvl, ok := l.levels[name]
	if !ok {
		return fmt.Errorf("logger %s is not registered", name)
	}
	lvl.SetLevel(level)
	return nil
}

type coreWithLevel struct {
	zapcore.Core
	lvl zap.AtomicLevel
}

func (c *coreWithLevel) Enabled(level zapcore.Level) bool {
	return c.lvl.Enabled(level)
}

func (c *coreWithLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.lvl.Enabled(e.Level) {
		return ce
	}
	return ce.AddCore(e, c)
}

func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{Core: c.Core.With(fields), lvl: c.lvl}
}
