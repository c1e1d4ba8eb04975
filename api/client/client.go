// Package client queries the http api of a randomness node.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-randomness/api/query"
	"github.com/spacemeshos/go-randomness/api/server"
	"github.com/spacemeshos/go-randomness/common/types"
)

// APIError is returned for every response that is not 200 OK.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s (request %s)", e.Status, e.Message, e.RequestID)
}

type Opt func(*Client)

func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryMax sets how many times a failed request is retried.
func WithRetryMax(n int) Opt {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Opt {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// Client is safe for concurrent use.
type Client struct {
	logger  *zap.Logger
	baseURL string
	http    *retryablehttp.Client
}

// New creates a Client for the node serving at baseURL, e.g. http://127.0.0.1:9070.
func New(baseURL string, opts ...Opt) *Client {
	c := &Client{
		logger:  zap.NewNop(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    retryablehttp.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Logger = leveledLogger{c.logger.Sugar()}
	return c
}

// SystemState returns the latest system state. If featureFlag is not empty the state of that flag
// is returned as well.
func (c *Client) SystemState(ctx context.Context, featureFlag string) (*server.SystemStateResponse, error) {
	params := url.Values{}
	if featureFlag != "" {
		params.Set("feature_flag", featureFlag)
	}
	var rst server.SystemStateResponse
	if err := c.get(ctx, "/v1/system_state", params, &rst); err != nil {
		return nil, err
	}
	return &rst, nil
}

// Object returns the latest version of the object at addr, or nil if it doesn't exist.
func (c *Client) Object(ctx context.Context, addr types.Address) (*query.Object, error) {
	var rst server.ObjectResponse
	if err := c.get(ctx, "/v1/objects/"+addr.String(), nil, &rst); err != nil {
		return nil, err
	}
	return rst.Object, nil
}

// Transactions returns a page of the transaction history.
func (c *Client) Transactions(ctx context.Context, req query.TransactionsRequest) (*query.TransactionConnection, error) {
	params := url.Values{}
	if req.First > 0 {
		params.Set("first", strconv.Itoa(req.First))
	}
	if req.After != "" {
		params.Set("after", req.After)
	}
	if req.Last > 0 {
		params.Set("last", strconv.Itoa(req.Last))
	}
	if req.Before != "" {
		params.Set("before", req.Before)
	}
	if req.Kind != 0 {
		params.Set("kind", req.Kind.String())
	}
	var rst query.TransactionConnection
	if err := c.get(ctx, "/v1/transactions", params, &rst); err != nil {
		return nil, err
	}
	return &rst, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, body any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			Message:   http.StatusText(resp.StatusCode),
			RequestID: resp.Header.Get(server.RequestIDHeader),
		}
		var failure server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			apiErr.Message = failure.Error
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(body); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	*zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.Warnw(msg, keysAndValues...)
}
