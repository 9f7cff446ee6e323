package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func newTestFetcher(name string, attempts int, threshold uint32) *Fetcher {
	getter := &HTTPGetter{Client: http.DefaultClient, UserAgent: "race-comb-test"}
	return NewFetcher(name, getter, FetchOptions{
		Attempts:         attempts,
		RetryInterval:    time.Millisecond,
		BreakerThreshold: threshold,
	})
}

func TestFetcherRetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("User-Agent") != "race-comb-test" {
			t.Errorf("Unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>ok</p>"))
	}))
	defer server.Close()

	page, err := newTestFetcher("retry", 3, 5).Load(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(page.Body) != "<p>ok</p>" {
		t.Errorf("Unexpected body %q", page.Body)
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", hits.Load())
	}
}

func TestFetcherDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestFetcher("notfound", 3, 5).Load(context.Background(), server.URL)
	var f *Failure
	if !errors.As(err, &f) || f.Kind != FetchFailure {
		t.Fatalf("Expected FetchFailure, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("Expected wrapped 404, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", hits.Load())
	}
}

func TestFetcherGivesUpAfterAttempts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestFetcher("down", 3, 10).Load(context.Background(), server.URL)
	if KindOf(err) != FetchFailure {
		t.Errorf("Expected FetchFailure, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", hits.Load())
	}
}

func TestFetcherCircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := newTestFetcher("breaker", 1, 2)
	for i := 0; i < 2; i++ {
		if _, err := fetcher.Load(context.Background(), server.URL); err == nil {
			t.Fatal("Expected error")
		}
	}
	if !fetcher.BreakerOpen() {
		t.Fatal("Expected breaker to be open")
	}

	_, err := fetcher.Load(context.Background(), server.URL)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected open-state error, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected no request while open, got %d hits", hits.Load())
	}
}

func TestFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher("slow", 3, 5).Load(ctx, server.URL)
	if KindOf(err) != Timeout {
		t.Errorf("Expected Timeout, got %v", err)
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("boom")) != ProviderFailure {
		t.Error("Expected unclassified errors to be provider failures")
	}
	f := &Failure{Kind: ExtractionFailure, Provider: "x", URL: "https://x.example.com", Err: errors.New("no body")}
	if f.Error() != "ExtractionFailure [x] https://x.example.com: no body" {
		t.Errorf("Unexpected message %q", f.Error())
	}
}
