package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWaitForBackendReturnsOnFirstResponse(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Even an error status means the backend is listening.
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := WaitForBackend(context.Background(), srv.Client(), srv.URL+"/sdapi/v1/sd-models", zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestWaitForBackendHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Nothing listens on this port.
	err := WaitForBackend(ctx, &http.Client{Timeout: 10 * time.Millisecond}, "http://127.0.0.1:1/never", zerolog.Nop())
	if err == nil {
		t.Fatalf("expected a context error")
	}
}
