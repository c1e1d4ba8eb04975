// Package query is the read side of the ledger. Every call observes a single committed snapshot
// of the database and never writes.
package query

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-randomness/codec"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/log"
	"github.com/spacemeshos/go-randomness/sql"
	"github.com/spacemeshos/go-randomness/sql/epochs"
	"github.com/spacemeshos/go-randomness/sql/objects"
	"github.com/spacemeshos/go-randomness/sql/transactions"
)

const (
	// DefaultPageSize is used when a request sets neither first nor last.
	DefaultPageSize = 20
	// MaxPageSize bounds first and last.
	MaxPageSize = 100
	// DefaultCacheSize is the number of decoded transactions kept in memory.
	DefaultCacheSize = 4096
)

// ErrMalformedRequest is returned for requests that can't be served.
var ErrMalformedRequest = errors.New("query: malformed request")

// Opt for configuring Service.
type Opt func(*Service)

// WithLogger defines logger for the service.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCacheSize overwrites the number of cached transactions.
func WithCacheSize(size int) Opt {
	return func(s *Service) {
		s.cacheSize = size
	}
}

// Service answers read queries.
type Service struct {
	logger    *zap.Logger
	db        *sql.Database
	cacheSize int
	// nodes holds only sealed transactions. The checkpoint of an unsealed one may still change.
	nodes *lru.Cache[uint64, *TransactionNode]
}

// New creates a Service.
func New(db *sql.Database, opts ...Opt) (*Service, error) {
	s := &Service{
		logger:    zap.NewNop(),
		db:        db,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	nodes, err := lru.New[uint64, *TransactionNode](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	s.nodes = nodes
	return s, nil
}

// SystemState returns the state of the active epoch. It returns nil before genesis.
func (s *Service) SystemState(ctx context.Context) (*SystemState, error) {
	var state *SystemState
	if err := s.db.WithReadTx(ctx, func(tx *sql.Tx) error {
		info, err := epochs.Latest(tx)
		if errors.Is(err, sql.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		obj, err := objects.Latest(tx, types.SystemStateAddress)
		if err != nil {
			return err
		}
		sys := &types.SystemState{}
		if err := codec.Decode(obj.Contents, sys); err != nil {
			return fmt.Errorf("decode system state: %w", err)
		}
		state = &SystemState{
			Epoch:          EpochRef{EpochID: info.Epoch.Uint32()},
			Version:        obj.Version.Uint64(),
			Round:          sys.Round.Uint64(),
			StartTimestamp: info.StartTimestampMs,
			ProtocolConfigs: ProtocolConfigs{
				ProtocolVersion: uint64(sys.ProtocolVersion),
				FeatureFlags:    []FeatureFlag{},
			},
		}
		for _, name := range info.Protocol.FlagNames() {
			state.ProtocolConfigs.FeatureFlags = append(state.ProtocolConfigs.FeatureFlags, FeatureFlag{
				Key:   name,
				Value: info.Protocol.Enabled(name),
			})
		}
		return nil
	}); err != nil {
		s.logger.Debug("system state query failed", log.ZContext(ctx), zap.Error(err))
		return nil, err
	}
	return state, nil
}

// FeatureFlag returns the value of the flag in the active epoch.
func (s *Service) FeatureFlag(ctx context.Context, key string) (FeatureFlag, error) {
	state, err := s.SystemState(ctx)
	if err != nil || state == nil {
		return FeatureFlag{Key: key}, err
	}
	return state.ProtocolConfigs.FeatureFlag(key), nil
}

// Object returns the latest version of the object. Unknown addresses return nil.
func (s *Service) Object(ctx context.Context, addr types.Address) (*Object, error) {
	var result *Object
	if err := s.db.WithReadTx(ctx, func(tx *sql.Tx) error {
		obj, err := objects.Latest(tx, addr)
		if errors.Is(err, sql.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		result, err = convertObject(obj)
		return err
	}); err != nil {
		s.logger.Debug("object query failed",
			log.ZContext(ctx),
			log.ZShortStringer("address", addr),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func convertObject(obj *types.Object) (*Object, error) {
	result := &Object{
		Address:             obj.Address,
		Version:             obj.Version.Uint64(),
		PreviousTransaction: obj.PreviousTransaction.Hex(),
	}
	switch obj.Owner {
	case types.OwnerShared:
		result.Location = LocationShared
		isv := obj.InitialSharedVersion.Uint64()
		result.InitialSharedVersion = &isv
	case types.OwnerImmutable:
		result.Location = LocationImmutable
	default:
		result.Location = LocationSystem
	}
	structured, err := contentsJSON(obj)
	if err != nil {
		return nil, err
	}
	result.Contents = &ObjectContents{
		Type: obj.Type,
		JSON: structured,
		BCS:  obj.Contents,
	}
	return result, nil
}

func contentsJSON(obj *types.Object) (json.RawMessage, error) {
	var value any
	switch obj.Type {
	case types.RandomnessStateType:
		state := &types.RandomnessState{}
		if err := codec.Decode(obj.Contents, state); err != nil {
			return nil, fmt.Errorf("decode %s: %w", obj.Type, err)
		}
		rj := &RandomnessJSON{
			ID:          obj.Address,
			Epoch:       state.Epoch.Uint32(),
			RandomBytes: state.RandomBytes,
		}
		if state.RandomnessRound != nil {
			round := state.RandomnessRound.Uint64()
			rj.RandomnessRound = &round
		}
		value = rj
	case types.SystemStateType:
		state := &types.SystemState{}
		if err := codec.Decode(obj.Contents, state); err != nil {
			return nil, fmt.Errorf("decode %s: %w", obj.Type, err)
		}
		value = &SystemStateJSON{
			Epoch:           state.Epoch.Uint32(),
			ProtocolVersion: uint64(state.ProtocolVersion),
			Round:           state.Round.Uint64(),
		}
	default:
		// contents of unknown types are available only in raw form
		return json.RawMessage("null"), nil
	}
	return json.Marshal(value)
}

// EncodeCursor returns the opaque cursor of the transaction at seq.
func EncodeCursor(seq uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// DecodeCursor parses a cursor produced by EncodeCursor. An empty cursor decodes to zero.
func DecodeCursor(cursor string) (uint64, error) {
	if cursor == "" {
		return 0, nil
	}
	buf, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(buf) != 8 {
		return 0, fmt.Errorf("%w: invalid cursor %q", ErrMalformedRequest, cursor)
	}
	seq := binary.BigEndian.Uint64(buf)
	if seq == 0 {
		return 0, fmt.Errorf("%w: invalid cursor %q", ErrMalformedRequest, cursor)
	}
	return seq, nil
}

func pageRequest(req TransactionsRequest) (transactions.PageRequest, error) {
	var page transactions.PageRequest
	switch {
	case req.First < 0 || req.Last < 0:
		return page, fmt.Errorf("%w: negative page size", ErrMalformedRequest)
	case req.First > MaxPageSize || req.Last > MaxPageSize:
		return page, fmt.Errorf("%w: page size exceeds %d", ErrMalformedRequest, MaxPageSize)
	case req.First > 0 && req.Last > 0:
		return page, fmt.Errorf("%w: first and last are mutually exclusive", ErrMalformedRequest)
	case req.First > 0 && req.Before != "":
		return page, fmt.Errorf("%w: before requires last", ErrMalformedRequest)
	case req.Last > 0 && req.After != "":
		return page, fmt.Errorf("%w: after requires first", ErrMalformedRequest)
	}
	after, err := DecodeCursor(req.After)
	if err != nil {
		return page, err
	}
	before, err := DecodeCursor(req.Before)
	if err != nil {
		return page, err
	}
	page = transactions.PageRequest{
		First:  req.First,
		After:  after,
		Last:   req.Last,
		Before: before,
		Kind:   req.Kind,
	}
	if page.First == 0 && page.Last == 0 {
		if before != 0 {
			page.Last = DefaultPageSize
		} else {
			page.First = DefaultPageSize
		}
	}
	return page, nil
}

// Transactions returns a page of the history in commit order.
func (s *Service) Transactions(ctx context.Context, req TransactionsRequest) (*TransactionConnection, error) {
	preq, err := pageRequest(req)
	if err != nil {
		return nil, err
	}
	var conn *TransactionConnection
	if err := s.db.WithReadTx(ctx, func(tx *sql.Tx) error {
		page, err := transactions.Paginate(tx, preq)
		if err != nil {
			return err
		}
		conn = &TransactionConnection{
			Nodes: make([]*TransactionNode, 0, len(page.Records)),
			PageInfo: PageInfo{
				HasNextPage:     page.HasNextPage,
				HasPreviousPage: page.HasPreviousPage,
			},
		}
		for _, rec := range page.Records {
			node, err := s.node(rec)
			if err != nil {
				return err
			}
			conn.Nodes = append(conn.Nodes, node)
		}
		return nil
	}); err != nil {
		s.logger.Debug("transactions query failed", log.ZContext(ctx), zap.Error(err))
		return nil, err
	}
	if len(conn.Nodes) > 0 {
		conn.PageInfo.StartCursor = conn.Nodes[0].Cursor
		conn.PageInfo.EndCursor = conn.Nodes[len(conn.Nodes)-1].Cursor
	}
	return conn, nil
}

func (s *Service) node(rec *types.TransactionRecord) (*TransactionNode, error) {
	if node, ok := s.nodes.Get(rec.Sequence); ok {
		return node, nil
	}
	node, err := convertTransaction(rec)
	if err != nil {
		return nil, err
	}
	if rec.Checkpoint != nil {
		s.nodes.Add(rec.Sequence, node)
	}
	return node, nil
}

func convertTransaction(rec *types.TransactionRecord) (*TransactionNode, error) {
	node := &TransactionNode{
		Digest:         rec.Digest.Hex(),
		Sequence:       rec.Sequence,
		Kind:           rec.Kind,
		Epoch:          EpochRef{EpochID: rec.Epoch.Uint32()},
		Round:          rec.Round.Uint64(),
		LamportVersion: rec.Version.Uint64(),
		Cursor:         EncodeCursor(rec.Sequence),
	}
	if rec.Checkpoint != nil {
		cp := rec.Checkpoint.Uint64()
		node.Checkpoint = &cp
	}
	switch rec.Kind {
	case types.TransactionRandomnessStateUpdate:
		update := &types.RandomnessStateUpdate{}
		if err := codec.Decode(rec.Payload, update); err != nil {
			return nil, fmt.Errorf("decode update %s: %w", rec.Digest.ShortString(), err)
		}
		round := update.RandomnessRound.Uint64()
		isv := update.RandomnessObjInitialSharedVersion.Uint64()
		node.RandomnessRound = &round
		node.RandomBytes = update.RandomBytes
		node.RandomnessObjInitialSharedVersion = &isv
	case types.TransactionRandomnessStateCreate:
		create := &types.RandomnessStateCreate{}
		if err := codec.Decode(rec.Payload, create); err != nil {
			return nil, fmt.Errorf("decode create %s: %w", rec.Digest.ShortString(), err)
		}
		isv := create.Version.Uint64()
		node.RandomnessObjInitialSharedVersion = &isv
	}
	return node, nil
}
