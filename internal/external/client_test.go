package external

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"frostwatch/internal/types"
)

func noSleep(time.Duration) {}

func testClient(url string, policy RetryPolicy) *BaseClient {
	return NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-breaker-"+url, // unique breaker per test server
		policy,
		"FrostWatch/1.0",
		types.ErrCodeUpstreamSensor,
		WithSleepFunc(noSleep),
	)
}

func TestBaseClient_SuccessPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "FrostWatch/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(server.URL, DefaultRetryPolicy())
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBaseClient_RetriesOn5xxThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(server.URL, RetryPolicy{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestBaseClient_ExhaustedRetriesMapsToUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := testClient(server.URL, RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	_, err := c.Do(req)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeUpstreamSensor {
		t.Errorf("code = %s, want %s", appErr.Code, types.ErrCodeUpstreamSensor)
	}
}

func TestBaseClient_TerminalRateLimitMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := testClient(server.URL, RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	_, err := c.Do(req)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeUpstreamRateLimited {
		t.Errorf("code = %s, want %s", appErr.Code, types.ErrCodeUpstreamRateLimited)
	}
}

func TestBaseClient_ReplaysBodyOnRetry(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodies = append(bodies, string(buf[:n]))
		if len(bodies) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(server.URL, RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond})
	req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("payload=1"))

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(bodies))
	}
	for i, body := range bodies {
		if body != "payload=1" {
			t.Errorf("attempt %d body = %q, want payload=1", i, body)
		}
	}
}

func TestComputeBackoff_RespectsRetryAfter(t *testing.T) {
	c := testClient("http://unused", RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: 3 * time.Second})

	resp := &http.Response{Header: http.Header{"Retry-After": []string{"2"}}}
	if got := c.computeBackoff(0, resp); got != 2*time.Second {
		t.Errorf("backoff = %v, want 2s from Retry-After", got)
	}

	// Retry-After beyond MaxWait is clamped.
	resp.Header.Set("Retry-After", "60")
	if got := c.computeBackoff(0, resp); got != 3*time.Second {
		t.Errorf("backoff = %v, want clamped 3s", got)
	}
}
