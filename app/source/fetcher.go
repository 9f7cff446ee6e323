package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lysyi3m/race-comb/app/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const maxPageBytes = 10 << 20

// Getter performs a single page load with no retries.
type Getter interface {
	Get(ctx context.Context, url string) (*Page, error)
}

type HTTPGetter struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
}

func (g *HTTPGetter) Get(ctx context.Context, url string) (*Page, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Page{URL: resp.Request.URL.String(), Body: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

type FetchOptions struct {
	Attempts          int
	RetryInterval     time.Duration
	RequestsPerSecond float64
	BreakerThreshold  uint32
}

// Fetcher is the Loader handed to adapters: rate limited, retried with
// exponential backoff, and guarded by a circuit breaker so a dead site stops
// costing a full retry cycle per item.
type Fetcher struct {
	provider string
	getter   Getter
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*Page]
	attempts int
	interval time.Duration
}

func NewFetcher(provider string, getter Getter, opts FetchOptions) *Fetcher {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	breakerName := "provider-" + provider
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*Page](gobreaker.Settings{
		Name:    breakerName,
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// a 404 on one detail page says nothing about the site
			var se *StatusError
			return err == nil || (errors.As(err, &se) && !se.Temporary())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Fetcher{
		provider: provider,
		getter:   getter,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  cb,
		attempts: opts.Attempts,
		interval: opts.RetryInterval,
	}
}

// Load retries transient failures and returns a *Failure of kind
// FetchFailure once attempts are exhausted, or Timeout when the adapter's
// own deadline expired.
func (f *Fetcher) Load(ctx context.Context, url string) (*Page, error) {
	attempt := 0
	operation := func() (*Page, error) {
		attempt++
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		page, err := f.breaker.Execute(func() (*Page, error) {
			return f.getter.Get(ctx, url)
		})
		if err == nil {
			return page, nil
		}

		if ctx.Err() != nil || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, backoff.Permanent(err)
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return nil, backoff.Permanent(err)
		}

		metrics.PageFetches.WithLabelValues(f.provider, "retry").Inc()
		slog.Debug("Page load failed, retrying", "provider", f.provider, "url", url, "attempt", attempt, "error", err)
		return nil, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.interval
	exp.MaxInterval = 30 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.attempts-1)), ctx)

	page, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		metrics.PageFetches.WithLabelValues(f.provider, "failure").Inc()
		kind := FetchFailure
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = Timeout
		}
		return nil, &Failure{Kind: kind, Provider: f.provider, URL: url, Err: err}
	}

	metrics.PageFetches.WithLabelValues(f.provider, "success").Inc()
	return page, nil
}

// BreakerOpen reports whether the fetcher stopped trying the site.
func (f *Fetcher) BreakerOpen() bool {
	return f.breaker.State() == gobreaker.StateOpen
}
