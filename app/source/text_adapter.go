package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"github.com/lysyi3m/race-comb/app/providers"
)

// TextAdapter handles sites that list events as flat text: the visible page
// text is split into lines and segmented at every date line.
type TextAdapter struct {
	base
	window int
}

func NewTextAdapter(config *providers.Config) (Adapter, error) {
	return &TextAdapter{base: base{config: config}, window: heuristics.DefaultWindow}, nil
}

func (a *TextAdapter) Extract(ctx context.Context, load Loader, emit Emit) (Stats, error) {
	var stats Stats
	var lastErr error
	loaded := 0

	for _, url := range pageURLs(a.config) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := load.Load(ctx, url)
		if err != nil {
			lastErr = err
			stats.Fail(asFailure(err, FetchFailure, a.Provider(), url))
			continue
		}
		loaded++

		doc, err := parseHTML(page)
		if err != nil {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: url, Err: err})
			continue
		}

		scope := doc.Find("body")
		if a.config.Selectors.Item != "" {
			scope = doc.Find(a.config.Selectors.Item)
		}
		if scope.Length() == 0 {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: url, Err: errors.New("listing container not found")})
			continue
		}

		blocks := heuristics.SegmentText(heuristics.VisibleLines(scope), a.window)
		slog.Debug("Text page segmented", "provider", a.Provider(), "url", url, "blocks", len(blocks))

		for _, b := range blocks {
			c := event.RawCandidate{
				SourcePlatform:   a.Provider(),
				RawTitle:         b.Title(),
				RawDateText:      b.DateLine,
				RawLocationText:  b.Location(),
				RawPriceText:     b.Price(),
				RawDistanceTexts: distanceLines(b.Lines),
				DetailURL:        page.URL,
			}
			if !inRegion(a.config.RegionFilter, c.RawLocationText) {
				continue
			}
			stats.Emitted++
			if !emit(c) {
				return stats, nil
			}
		}
	}

	if loaded == 0 {
		return stats, &Failure{Kind: ProviderFailure, Provider: a.Provider(), Err: fmt.Errorf("no listing page could be loaded: %w", lastErr)}
	}
	return stats, nil
}

// asFailure keeps an existing classification or wraps err with kind.
func asFailure(err error, kind FailureKind, provider, url string) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: kind, Provider: provider, URL: url, Err: err}
}
