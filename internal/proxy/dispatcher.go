package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL          = "http://127.0.0.1:3000"
	defaultTimeout          = 600 * time.Second
	defaultTransportRetries = 10
	defaultBackoffBase      = 100 * time.Millisecond
	defaultReadinessRetries = 3
	defaultReadinessDelay   = 200 * time.Millisecond
)

// DispatcherOptions configures a Dispatcher. Zero values get the production
// defaults; tests shrink the retry budgets and delays.
type DispatcherOptions struct {
	BaseURL          string
	HTTPClient       *http.Client
	Timeout          time.Duration
	Logger           zerolog.Logger
	TransportRetries int
	BackoffBase      time.Duration
	ReadinessRetries int
	ReadinessDelay   time.Duration
}

// Dispatcher forwards validated requests to the generation backend over a
// shared HTTP client. It applies two independent retry policies: a transport
// retry for connection failures and 502/503/504 responses, and a readiness
// retry for POSTs answered with 404 while the backend model is still
// loading. Any other status is returned to the caller unchanged.
type Dispatcher struct {
	client           *http.Client
	baseURL          string
	timeout          time.Duration
	logger           zerolog.Logger
	transportRetries int
	backoffBase      time.Duration
	readinessRetries int
	readinessDelay   time.Duration
}

// NewDispatcher builds a Dispatcher from opts, applying defaults for any
// zero field. The HTTP client is shared across concurrent requests and must
// stay safe for concurrent use.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	d := &Dispatcher{
		client:           client,
		baseURL:          base,
		timeout:          opts.Timeout,
		logger:           opts.Logger,
		transportRetries: opts.TransportRetries,
		backoffBase:      opts.BackoffBase,
		readinessRetries: opts.ReadinessRetries,
		readinessDelay:   opts.ReadinessDelay,
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.transportRetries <= 0 {
		d.transportRetries = defaultTransportRetries
	}
	if d.backoffBase <= 0 {
		d.backoffBase = defaultBackoffBase
	}
	if d.readinessRetries <= 0 {
		d.readinessRetries = defaultReadinessRetries
	}
	if d.readinessDelay <= 0 {
		d.readinessDelay = defaultReadinessDelay
	}
	return d
}

// BackendResponse is the backend's answer as received: status code and raw
// body. The dispatcher never interprets statuses beyond its retry triggers.
type BackendResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the backend answered with a 2xx status.
func (r *BackendResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// JSON decodes the response body into a generic map.
func (r *BackendResponse) JSON() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, fmt.Errorf("decoding backend response: %w", err)
	}
	return out, nil
}

// Dispatch sends the operation to the backend and returns its response. The
// whole call, retries and backoff sleeps included, is bounded by the
// configured timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation, payload map[string]any) (*BackendResponse, error) {
	var body []byte
	if op.Method == http.MethodPost {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		body = encoded
	}
	url := d.baseURL + "/" + op.Endpoint

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// Readiness loop. A 404 on POST means the model has not finished
	// loading; the identical request is retried a bounded number of times.
	// GET endpoints are assumed available once the backend is listening.
	attempts := 1
	if op.Method == http.MethodPost {
		attempts += d.readinessRetries
	}
	var resp *BackendResponse
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, d.readinessDelay); err != nil {
				return nil, ErrDispatchTimeout
			}
			d.logger.Info().Str("endpoint", op.Endpoint).Int("attempt", attempt+1).Msg("backend not ready, retrying")
		}
		var err error
		resp, err = d.send(ctx, op.Method, url, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusNotFound {
			return resp, nil
		}
	}
	// Still 404 after the readiness budget: hand the backend's own answer
	// to the caller rather than masking it as a middleware failure.
	return resp, nil
}

// send performs one logical request with the transport retry policy: up to
// transportRetries extra attempts on connection errors and 502/503/504,
// with exponential backoff starting at backoffBase.
func (d *Dispatcher) send(ctx context.Context, method, url string, body []byte) (*BackendResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= d.transportRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, d.backoffBase<<(attempt-1)); err != nil {
				return nil, ErrDispatchTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if method == http.MethodPost {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := d.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrDispatchTimeout
			}
			lastErr = err
			continue
		}

		if retryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("backend returned %d", resp.StatusCode)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrDispatchTimeout
			}
			lastErr = err
			continue
		}
		return &BackendResponse{StatusCode: resp.StatusCode, Body: data}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendUnreachable, lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
