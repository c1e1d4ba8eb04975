package log

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestModuleLevels(t *testing.T) {
	var buf bytes.Buffer
	root, err := NewWithWriter(&buf, JSONEncoder, zap.NewAtomicLevelAt(zapcore.DebugLevel))
	require.NoError(t, err)

	var levels Levels
	lg, err := levels.Named(root, "ledger", "warn")
	require.NoError(t, err)

	lg.Info("dropped")
	require.Empty(t, buf.String())
	lg.Warn("kept")
	require.Contains(t, buf.String(), "kept")
	require.Contains(t, buf.String(), `"logger":"ledger"`)

	buf.Reset()
	require.NoError(t, levels.SetLevel("ledger", zapcore.InfoLevel))
	lg.With(zap.Int("n", 1)).Info("now visible")
	require.Contains(t, buf.String(), "now visible")

	require.Error(t, levels.SetLevel("unknown", zapcore.InfoLevel))
	_, err = levels.Named(root, "api", "loud")
	require.Error(t, err)
}

func TestUnknownEncoder(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "xml", zap.NewAtomicLevel())
	require.Error(t, err)
}

func TestZContext(t *testing.T) {
	var buf bytes.Buffer
	lg, err := NewWithWriter(&buf, JSONEncoder, zap.NewAtomicLevelAt(zapcore.InfoLevel))
	require.NoError(t, err)

	lg.Info("without", ZContext(context.Background()))
	require.NotContains(t, buf.String(), "request_id")

	ctx := WithRequestID(context.Background(), "abc")
	lg.Info("with", ZContext(ctx))
	require.Contains(t, buf.String(), `"request_id":"abc"`)

	id, ok := ExtractRequestID(WithNewRequestID(context.Background()))
	require.True(t, ok)
	require.Len(t, id, 36)
}

func TestFatalError(t *testing.T) {
	reason := errors.New("disk full")
	err := ErrOpenDatabase(reason)
	require.ErrorIs(t, err, reason)
	require.Equal(t, "could not open database: disk full", err.Error())

	err = ErrLockDataDir("/tmp/data")
	require.Equal(t, "data dir /tmp/data is used by another process", err.Error())
}
