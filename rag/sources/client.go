package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BaSui01/researchflow/internal/tlsutil"
	"github.com/BaSui01/researchflow/llm/retry"
	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of an error response is kept in the error message.
const maxErrorBody = 512

// ClientConfig holds the transport settings shared by every source.
type ClientConfig struct {
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count"`
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
	RateLimit  float64       `json:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst      int           `json:"burst" yaml:"burst"`
	MaxConns   int           `json:"max_conns" yaml:"max_conns"`
}

// DefaultClientConfig returns transport defaults suited to parallel fan-out.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    30 * time.Second,
		RetryCount: 2,
		RetryDelay: 500 * time.Millisecond,
		RateLimit:  10,
		Burst:      10,
		MaxConns:   16,
	}
}

// jsonClient performs rate-limited JSON requests with retry on retryable failures.
type jsonClient struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	retryer retry.Retryer
	logger  *zap.Logger
}

func newJSONClient(name string, cfg ClientConfig, logger *zap.Logger) *jsonClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "source"), zap.String("source", name))

	def := DefaultClientConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = def.MaxConns
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	policy := &retry.RetryPolicy{
		MaxRetries:   cfg.RetryCount,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		ShouldRetry:  types.IsRetryable,
	}

	return &jsonClient{
		name:    name,
		client:  tlsutil.FanOutHTTPClient(cfg.Timeout, cfg.MaxConns),
		limiter: rate.NewLimiter(limit, burst),
		retryer: retry.NewBackoffRetryer(policy, logger),
		logger:  logger,
	}
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *jsonClient) do(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.name, err)
		}
	}

	start := time.Now()
	err := c.retryer.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.once(ctx, method, url, headers, payload, out)
	})
	c.logger.Debug("source request finished",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

func (c *jsonClient) once(ctx context.Context, method, url string, headers map[string]string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return types.NewError(types.ErrUpstreamTimeout, c.name+" request cancelled").
				WithCause(err).WithProvider(c.name)
		}
		return types.NewError(types.ErrUpstreamError, c.name+" request failed").
			WithCause(err).WithRetryable(true).WithProvider(c.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return types.HTTPStatusError(c.name, resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrUpstreamError, c.name+" returned malformed JSON").
			WithCause(err).WithProvider(c.name)
	}
	return nil
}
