// Package upstream is the HTTP adapter for one payment processor. A client
// performs exactly one POST per call and classifies the result; retry policy
// belongs to the dispatcher, not here.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"payment-router/internal/core/domain"
	"payment-router/internal/observability"
)

const (
	connectTimeout  = 25 * time.Millisecond
	maxIdlePerHost  = 64
	idleConnTimeout = 30 * time.Second
)

// Client posts payments to one processor over a pooled, keep-alive transport.
type Client struct {
	name   domain.Upstream
	payURL string
	http   *http.Client
}

// New creates a client for the processor at baseURL. requestTimeout caps one
// attempt end to end; the per-request context usually carries the same
// deadline and whichever fires first wins.
func New(name domain.Upstream, baseURL, payPath string, requestTimeout time.Duration) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxIdlePerHost * 2,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     idleConnTimeout,
		ForceAttemptHTTP2:   false,
	}
	return &Client{
		name:   name,
		payURL: baseURL + payPath,
		http: &http.Client{
			Transport: observability.NewTransport(transport, string(name)),
			Timeout:   requestTimeout,
		},
	}
}

// Name returns the upstream tag this client serves.
func (c *Client) Name() domain.Upstream {
	return c.name
}

// Send forwards the inbound body unchanged and classifies the outcome:
// 2xx success; 4xx other than 408/429 a rejection (still a failure sample);
// everything else — 408, 429, 5xx, connect errors, timeouts — a failure.
// A context cancelled by the dispatcher marks the result Aborted.
func (c *Client) Send(ctx context.Context, req domain.PaymentRequest) domain.AttemptResult {
	res := domain.AttemptResult{Upstream: c.name}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.payURL, bytes.NewReader(req.Raw))
	if err != nil {
		res.Err = err
		return res
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		res.Err = err
		res.Aborted = errors.Is(err, context.Canceled)
		return res
	}
	defer resp.Body.Close()
	// Drain so the connection returns to the pool.
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Code = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.Success = true
	case resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout &&
		resp.StatusCode != http.StatusTooManyRequests:
		res.Rejected = true
	}
	return res
}
