// Package ordering feeds the ledger with inputs ordered by consensus. Inputs arrive as newline
// delimited json events and are applied strictly in the order they are read.
package ordering

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/ledger"
	"github.com/spacemeshos/go-randomness/system"
)

//go:embed schema.json
var schema string

const schemaFile = "ordering.schema.json"

// ErrInvalidEvent is returned for lines that don't match the event schema.
var ErrInvalidEvent = errors.New("ordering: invalid event")

// EventType is the kind of an ordered input.
type EventType string

const (
	EventAdvanceEpoch EventType = "advance_epoch"
	EventRandomness   EventType = "randomness"
	EventCheckpoint   EventType = "checkpoint"
)

// Event is one ordered input. Randomness fields are set only for EventRandomness.
type Event struct {
	Type                 EventType       `json:"type"`
	Epoch                uint32          `json:"epoch,omitempty"`
	Round                uint64          `json:"round,omitempty"`
	RandomnessRound      uint64          `json:"randomness_round,omitempty"`
	RandomBytes          types.Base64Enc `json:"random_bytes,omitempty"`
	InitialSharedVersion uint64          `json:"initial_shared_version,omitempty"`
}

// Update converts a randomness event into the update transaction.
func (ev *Event) Update() *types.RandomnessStateUpdate {
	return &types.RandomnessStateUpdate{
		Epoch:                             types.EpochID(ev.Epoch),
		Round:                             types.RoundID(ev.Round),
		RandomnessRound:                   types.RandomnessRound(ev.RandomnessRound),
		RandomBytes:                       ev.RandomBytes,
		RandomnessObjInitialSharedVersion: types.ObjectVersion(ev.InitialSharedVersion),
	}
}

// Config for the feed.
type Config struct {
	// Path of the events file. The feed is disabled if empty.
	Path string `mapstructure:"path"`
	// PollInterval is how often the file is checked for new events after the end was reached.
	// Zero stops the feed at the end of the file.
	PollInterval time.Duration `mapstructure:"poll-interval"`
}

// DefaultConfig for the feed.
func DefaultConfig() Config {
	return Config{PollInterval: time.Second}
}

// Opt for configuring Feed.
type Opt func(*Feed)

// WithLogger defines logger for the feed.
func WithLogger(logger *zap.Logger) Opt {
	return func(f *Feed) {
		f.logger = logger
	}
}

// WithFilesystem overwrites the filesystem the events are read from.
func WithFilesystem(fs afero.Fs) Opt {
	return func(f *Feed) {
		f.fs = fs
	}
}

// Feed reads events and applies them to the sequencer.
type Feed struct {
	logger    *zap.Logger
	fs        afero.Fs
	cfg       Config
	sequencer system.Sequencer
	schema    *jsonschema.Schema
}

// New creates a Feed.
func New(sequencer system.Sequencer, cfg Config, opts ...Opt) (*Feed, error) {
	sch, err := jsonschema.CompileString(schemaFile, schema)
	if err != nil {
		return nil, fmt.Errorf("compile event schema: %w", err)
	}
	f := &Feed{
		logger:    zap.NewNop(),
		fs:        afero.NewOsFs(),
		cfg:       cfg,
		sequencer: sequencer,
		schema:    sch,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Parse validates a line against the event schema and decodes it.
func (f *Feed) Parse(line []byte) (*Event, error) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := f.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	ev := &Event{}
	if err := json.Unmarshal(line, ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return ev, nil
}

// Apply passes the event to the sequencer.
func (f *Feed) Apply(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventAdvanceEpoch:
		epoch, err := f.sequencer.AdvanceEpoch(ctx)
		if err != nil {
			return err
		}
		f.logger.Debug("advanced epoch", zap.Uint32("epoch", epoch.Uint32()))
	case EventRandomness:
		rec, err := f.sequencer.Submit(ctx, ev.Update())
		if err != nil {
			return err
		}
		f.logger.Debug("submitted randomness",
			zap.Uint64("randomness_round", ev.RandomnessRound),
			zap.Uint64("seq", rec.Sequence),
		)
	case EventCheckpoint:
		cp, err := f.sequencer.CreateCheckpoint(ctx)
		if err != nil {
			return err
		}
		if cp != nil {
			f.logger.Debug("created checkpoint", zap.Stringer("seq", cp.Sequence))
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	return nil
}

// Run reads the events file and applies every event in order until the end of the file, or
// until ctx is canceled if the file is followed. Invalid and rejected events are skipped.
func (f *Feed) Run(ctx context.Context) error {
	file, err := f.fs.Open(f.cfg.Path)
	if err != nil {
		return fmt.Errorf("open events %s: %w", f.cfg.Path, err)
	}
	defer file.Close()

	lines := make(chan []byte, 64)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(lines)
		return f.read(ctx, file, lines)
	})
	eg.Go(func() error {
		for line := range lines {
			if ctx.Err() != nil {
				return nil
			}
			if err := f.handle(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	return eg.Wait()
}

func (f *Feed) read(ctx context.Context, r io.Reader, lines chan<- []byte) error {
	reader := bufio.NewReader(r)
	var partial []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		partial = append(partial, chunk...)
		switch {
		case err == nil:
			line := bytes.TrimSpace(partial)
			partial = nil
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		case errors.Is(err, io.EOF):
			if f.cfg.PollInterval == 0 {
				if line := bytes.TrimSpace(partial); len(line) > 0 {
					select {
					case lines <- line:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			}
			select {
			case <-time.After(f.cfg.PollInterval):
			case <-ctx.Done():
				// a followed feed stops only by cancellation
				return nil
			}
		default:
			return fmt.Errorf("read events: %w", err)
		}
	}
}

func (f *Feed) handle(ctx context.Context, line []byte) error {
	ev, err := f.Parse(line)
	if err != nil {
		applied.WithLabelValues("unknown", "invalid").Inc()
		f.logger.Warn("skipping invalid event", zap.ByteString("line", line), zap.Error(err))
		return nil
	}
	err = f.Apply(ctx, ev)
	var verr *ledger.ValidationError
	switch {
	case err == nil:
		applied.WithLabelValues(string(ev.Type), "applied").Inc()
		return nil
	case errors.As(err, &verr):
		applied.WithLabelValues(string(ev.Type), "rejected").Inc()
		f.logger.Info("event rejected", zap.String("type", string(ev.Type)), zap.Error(err))
		return nil
	default:
		applied.WithLabelValues(string(ev.Type), "failed").Inc()
		return fmt.Errorf("apply %s: %w", ev.Type, err)
	}
}
