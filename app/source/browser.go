package source

import (
	"context"
	"fmt"
	"time"
)

// Session is one headless browser instance. It is never shared between
// adapters.
type Session interface {
	Render(ctx context.Context, url string, wait time.Duration) (string, error)
}

// BrowserPool bounds how many sessions exist at once. Every Acquire must be
// paired with exactly one Release, on every exit path.
type BrowserPool interface {
	Acquire(ctx context.Context) (Session, error)
	Release(s Session)
	Size() int
	Close() error
}

// SessionGetter loads pages by rendering them in a browser session.
type SessionGetter struct {
	Session     Session
	RenderDelay time.Duration
	Timeout     time.Duration
}

func (g *SessionGetter) Get(ctx context.Context, url string) (*Page, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	html, err := g.Session.Render(ctx, url, g.RenderDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	return &Page{URL: url, Body: []byte(html), ContentType: "text/html; charset=utf-8"}, nil
}
