package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = time.Millisecond
	cfg.Timeout = 2 * time.Second
	cfg.RespectRobots = false
	return cfg
}

func TestGetSendsPolitenessHeaders(t *testing.T) {
	var ua, lang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		lang = r.Header.Get("Accept-Language")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(testConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if ua != DefaultUserAgent {
		t.Errorf("Expected UA %q, got %q", DefaultUserAgent, ua)
	}
	if lang != "en, *;q=0.1" {
		t.Errorf("Unexpected Accept-Language %q", lang)
	}
	if string(resp.Body) != "ok" || resp.Status != 200 || resp.Attempts != 1 {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	c := New(testConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if resp.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", resp.Attempts)
	}
	if c.Used() != 3 {
		t.Errorf("Expected 3 requests against the budget, got %d", c.Used())
	}
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(testConfig())
	_, err := c.Get(context.Background(), srv.URL)

	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadGateway {
		t.Fatalf("Expected StatusError 502, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 1 attempt plus 2 retries, got %d", calls.Load())
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Status == 404
		}},
		{"forbidden", http.StatusForbidden, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{"unauthorized", http.StatusUnauthorized, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New(testConfig()).Get(context.Background(), srv.URL)
			if !tt.check(err) {
				t.Errorf("Unexpected error classification: %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("Expected a single attempt, got %d", calls.Load())
			}
		})
	}
}

func TestGetBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRequests = 2
	c := New(cfg)

	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}
	if c.Remaining() != 0 {
		t.Errorf("Expected 0 remaining, got %d", c.Remaining())
	}

	_, err := c.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("Expected ErrBudgetExhausted, got %v", err)
	}
}

func TestGetHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(testConfig()).Get(ctx, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
}
