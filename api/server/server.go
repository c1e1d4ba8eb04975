// Package server exposes the read side of the ledger over http with json bodies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	httpmiddleware "github.com/slok/go-http-metrics/middleware"
	httpstd "github.com/slok/go-http-metrics/middleware/std"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spacemeshos/go-randomness/api/query"
	"github.com/spacemeshos/go-randomness/common/types"
	"github.com/spacemeshos/go-randomness/log"
	"github.com/spacemeshos/go-randomness/metrics"
)

// RequestIDHeader carries the id of the request in both directions.
const RequestIDHeader = "X-Request-Id"

var recorder = httpmetrics.NewRecorder(httpmetrics.Config{Prefix: metrics.Namespace})

// Opt for configuring Server.
type Opt func(*Server)

// WithLogger defines logger for the server.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server serves queries over http.
type Server struct {
	logger  *zap.Logger
	cfg     Config
	query   *query.Service
	limiter *rate.Limiter
	handler http.Handler
}

// New creates a Server.
func New(q *query.Service, cfg Config, opts ...Opt) *Server {
	s := &Server{
		logger: zap.NewNop(),
		cfg:    cfg,
		query:  q,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	mdlw := httpmiddleware.New(httpmiddleware.Config{Recorder: recorder})
	router := mux.NewRouter()
	router.Use(s.requestID, s.logging, s.rateLimit)
	router.Handle("/v1/system_state",
		httpstd.Handler("/v1/system_state", mdlw, http.HandlerFunc(s.systemState)),
	).Methods(http.MethodGet)
	router.Handle("/v1/objects/{address}",
		httpstd.Handler("/v1/objects", mdlw, http.HandlerFunc(s.object)),
	).Methods(http.MethodGet)
	router.Handle("/v1/transactions",
		httpstd.Handler("/v1/transactions", mdlw, http.HandlerFunc(s.transactions)),
	).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("unknown path %s", r.URL.Path))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead},
		ExposedHeaders: []string{RequestIDHeader},
	})
	s.handler = c.Handler(router)
	return s
}

// Handler returns the root http handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is canceled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	s.logger.Info("api server started", zap.Stringer("address", lis.Addr()))
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(lis)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(log.WithRequestID(r.Context(), id)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("api request",
			log.ZContext(r.Context()),
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.fail(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("failed to write response", log.ZContext(r.Context()), zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	id, _ := log.ExtractRequestID(r.Context())
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Warn("api request failed", log.ZContext(r.Context()), zap.Error(err))
		msg = http.StatusText(status)
	}
	s.respond(w, r, status, &ErrorResponse{Error: msg, RequestID: id})
}

func (s *Server) failQuery(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, query.ErrMalformedRequest) {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	s.fail(w, r, http.StatusInternalServerError, err)
}

func (s *Server) systemState(w http.ResponseWriter, r *http.Request) {
	state, err := s.query.SystemState(r.Context())
	if err != nil {
		s.failQuery(w, r, err)
		return
	}
	resp := &SystemStateResponse{SystemState: state}
	if key := r.URL.Query().Get("feature_flag"); key != "" {
		flag := query.FeatureFlag{Key: key}
		if state != nil {
			flag = state.ProtocolConfigs.FeatureFlag(key)
		}
		resp.FeatureFlag = &flag
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) object(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	obj, err := s.query.Object(r.Context(), addr)
	if err != nil {
		s.failQuery(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, &ObjectResponse{Object: obj})
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := query.TransactionsRequest{
		After:  params.Get("after"),
		Before: params.Get("before"),
	}
	for name, dst := range map[string]*int{"first": &req.First, "last": &req.Last} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %s=%q", query.ErrMalformedRequest, name, raw))
			return
		}
		*dst = n
	}
	if raw := params.Get("kind"); raw != "" {
		kind, err := types.ParseTransactionKind(raw)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %w", query.ErrMalformedRequest, err))
			return
		}
		req.Kind = kind
	}
	conn, err := s.query.Transactions(r.Context(), req)
	if err != nil {
		s.failQuery(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, conn)
}
