package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-router/internal/core/domain"
)

func testRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		CorrelationID: "c1",
		AmountCents:   1000,
		Raw:           []byte(`{"correlationId":"c1","amount":10.00}`),
	}
}

func TestClient_SuccessOn2xx(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(domain.UpstreamDefault, srv.URL, "/payments", time.Second)
	res := c.Send(context.Background(), testRequest())

	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.False(t, res.Rejected)
	assert.Equal(t, `{"correlationId":"c1","amount":10.00}`, gotBody, "body is forwarded unchanged")
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_Classification(t *testing.T) {
	cases := []struct {
		name     string
		code     int
		success  bool
		rejected bool
	}{
		{"created", http.StatusCreated, true, false},
		{"bad request", http.StatusBadRequest, false, true},
		{"unprocessable", http.StatusUnprocessableEntity, false, true},
		{"request timeout", http.StatusRequestTimeout, false, false},
		{"too many requests", http.StatusTooManyRequests, false, false},
		{"server error", http.StatusInternalServerError, false, false},
		{"bad gateway", http.StatusBadGateway, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.code)
			}))
			defer srv.Close()

			c := New(domain.UpstreamFallback, srv.URL, "/payments", time.Second)
			res := c.Send(context.Background(), testRequest())

			assert.Equal(t, tc.success, res.Success)
			assert.Equal(t, tc.rejected, res.Rejected)
			assert.Equal(t, tc.code, res.Code)
		})
	}
}

func TestClient_TimeoutIsFailureNotAborted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(domain.UpstreamDefault, srv.URL, "/payments", time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := c.Send(ctx, testRequest())
	require.Error(t, res.Err)
	assert.False(t, res.Success)
	assert.False(t, res.Aborted, "a deadline miss is a genuine failure sample")
}

func TestClient_CancelledAttemptIsAborted(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(domain.UpstreamDefault, srv.URL, "/payments", time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan domain.AttemptResult, 1)
	go func() { done <- c.Send(ctx, testRequest()) }()

	<-started
	cancel()

	res := <-done
	require.Error(t, res.Err)
	assert.True(t, res.Aborted, "a cancelled loser must not feed the breaker")
}

func TestClient_ConnectionErrorIsFailure(t *testing.T) {
	// Nothing listens here.
	c := New(domain.UpstreamDefault, "http://127.0.0.1:1", "/payments", 100*time.Millisecond)
	res := c.Send(context.Background(), testRequest())

	require.Error(t, res.Err)
	assert.False(t, res.Success)
	assert.False(t, res.Aborted)
}
