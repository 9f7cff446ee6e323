package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/lysyi3m/race-comb/app/metrics"
	"golang.org/x/sync/semaphore"
)

var _ BrowserPool = (*ChromePool)(nil)

// ChromePool hands out headless Chrome instances, at most size at a time.
// Each session is a separate browser process started on Acquire and killed
// on Release.
type ChromePool struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	slots       *semaphore.Weighted
	size        int
}

func NewChromePool(size int, execPath, userAgent string) *ChromePool {
	if size <= 0 {
		size = 1
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(1366, 900),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromePool{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		slots:       semaphore.NewWeighted(int64(size)),
		size:        size,
	}
}

func (p *ChromePool) Acquire(ctx context.Context) (Session, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire browser slot: %w", err)
	}

	browserCtx, cancel := chromedp.NewContext(p.allocCtx)
	// start the browser now so launch errors surface here, not mid-extraction
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		p.slots.Release(1)
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	metrics.BrowserSlotsInUse.Inc()
	return &chromeSession{ctx: browserCtx, cancel: cancel}, nil
}

func (p *ChromePool) Release(s Session) {
	cs, ok := s.(*chromeSession)
	if !ok {
		return
	}
	cs.once.Do(func() {
		cs.cancel()
		p.slots.Release(1)
		metrics.BrowserSlotsInUse.Dec()
	})
}

func (p *ChromePool) Size() int {
	return p.size
}

func (p *ChromePool) Close() error {
	p.allocCancel()
	return nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (s *chromeSession) Render(ctx context.Context, url string, wait time.Duration) (string, error) {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if wait > 0 {
		actions = append(actions, chromedp.Sleep(wait))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	slog.Debug("Page rendered", "url", url, "bytes", len(html))
	return html, nil
}
