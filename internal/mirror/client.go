// Package mirror pushes saved ledger changes to a remote JSON-RPC mirror.
// The local ledger always wins: failures are retried a few times, then
// logged and dropped.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rpggio/siteledger/internal/transport"
)

// Options configure a Client.
type Options struct {
	URL   string `validate:"required,http_url"`
	Token string
	// Timeout bounds each attempt.
	Timeout time.Duration `validate:"gte=0"`
	// MaxTries bounds attempts per call, including the first.
	MaxTries uint `validate:"gte=0"`
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration `validate:"gte=0"`
	HTTPClient      *http.Client
}

const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxTries        = 3
	DefaultInitialInterval = 500 * time.Millisecond
)

var optionsValidator = validator.New(validator.WithRequiredStructEnabled())

// RemoteError is a JSON-RPC error returned by the mirror.
type RemoteError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// APICode returns the application error code carried in Data, if any.
func (e *RemoteError) APICode() string {
	var data struct {
		Code string `json:"code"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &data) != nil {
		return ""
	}
	return data.Code
}

// retryable reports whether the mirror might accept the same call later.
// Storage failures on the mirror are transient; rejected input is not.
func (e *RemoteError) retryable() bool {
	switch e.Code {
	case transport.ErrInternal:
		return true
	case transport.ErrApplication:
		switch e.APICode() {
		case "ROLLED_BACK", "NOT_PERSISTED":
			return true
		}
	}
	return false
}

// StatusError is returned for non-200 HTTP responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mirror responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Client calls the mirror's JSON-RPC endpoint.
type Client struct {
	url             string
	token           string
	timeout         time.Duration
	maxTries        uint
	initialInterval time.Duration
	http            *http.Client
	logger          *slog.Logger
	nextID          atomic.Int64
}

// NewClient validates opts and applies defaults for zero values.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if err := optionsValidator.Struct(opts); err != nil {
		return nil, fmt.Errorf("mirror options: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		url:             opts.URL,
		token:           opts.Token,
		timeout:         opts.Timeout,
		maxTries:        opts.MaxTries,
		initialInterval: opts.InitialInterval,
		http:            opts.HTTPClient,
		logger:          logger,
	}
	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxTries == 0 {
		c.maxTries = DefaultMaxTries
	}
	if c.initialInterval == 0 {
		c.initialInterval = DefaultInitialInterval
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c, nil
}

// Call invokes method with params and decodes the result into result, which
// may be nil. Transient failures are retried with exponential backoff.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	req, err := transport.NewRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", method, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval

	attempt := 0
	raw, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		attempt++
		raw, err := c.post(ctx, body)
		if err == nil {
			return raw, nil
		}
		if !isRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		c.logger.Debug("mirror call failed", "method", method, "attempt", attempt, "error", err)
		return nil, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}

	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

func isRetryable(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.retryable()
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.retryable()
	}
	return !errors.Is(err, context.Canceled)
}
