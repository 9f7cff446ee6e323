package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"github.com/lysyi3m/race-comb/app/providers"
)

// CardsAdapter handles card/grid listings. With an item selector every card
// is read in place; otherwise anchors are filtered down to event links and
// each detail page is visited.
type CardsAdapter struct {
	base
	detail *DetailExtractor
}

func NewCardsAdapter(config *providers.Config) (Adapter, error) {
	return &CardsAdapter{
		base:   base{config: config},
		detail: NewDetailExtractor(config.Name, config.Selectors),
	}, nil
}

func (a *CardsAdapter) Extract(ctx context.Context, load Loader, emit Emit) (Stats, error) {
	var stats Stats
	var lastErr error
	var links []string
	seen := make(map[string]bool)
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

		if a.config.Selectors.Item != "" {
			if !a.emitCards(doc, page.URL, &stats, emit) {
				return stats, nil
			}
			continue
		}

		found, err := a.discoverLinks(doc, page.URL)
		if err != nil {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: url, Err: err})
			continue
		}
		for _, l := range found {
			if !seen[l] {
				seen[l] = true
				links = append(links, l)
			}
		}
	}

	if loaded == 0 {
		return stats, &Failure{Kind: ProviderFailure, Provider: a.Provider(), Err: fmt.Errorf("no listing page could be loaded: %w", lastErr)}
	}

	if a.config.MaxItems > 0 && len(links) > a.config.MaxItems {
		links = links[:a.config.MaxItems]
	}
	slog.Debug("Event links discovered", "provider", a.Provider(), "links", len(links))

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := load.Load(ctx, link)
		if err != nil {
			stats.Fail(asFailure(err, FetchFailure, a.Provider(), link))
			continue
		}

		c, err := a.detail.Extract(page)
		if err != nil {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: link, Err: err})
			continue
		}
		if !inRegion(a.config.RegionFilter, c.RawLocationText) {
			continue
		}

		stats.Emitted++
		if !emit(c) {
			return stats, nil
		}
	}

	return stats, nil
}

func (a *CardsAdapter) discoverLinks(doc *goquery.Document, pageURL string) ([]string, error) {
	filter, err := heuristics.NewLinkFilter(pageURL, a.config.Deny...)
	if err != nil {
		return nil, err
	}

	selector := a.config.Selectors.Link
	if selector == "" {
		selector = "a[href]"
	}

	var links []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if abs, ok := filter.Resolve(href, s.Text()); ok && abs != pageURL {
			links = append(links, abs)
		}
	})
	return links, nil
}

func (a *CardsAdapter) emitCards(doc *goquery.Document, pageURL string, stats *Stats, emit Emit) bool {
	sel := a.config.Selectors
	keepGoing := true

	doc.Find(sel.Item).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		lines := heuristics.VisibleLines(card)

		link := selHref(card, sel.Link)
		if link == "" {
			link, _ = card.Find("a[href]").First().Attr("href")
		}
		detailURL := pageURL
		if link != "" {
			detailURL = resolveURL(pageURL, link)
		}

		c := event.RawCandidate{
			SourcePlatform:   a.Provider(),
			SourceEventID:    heuristics.EventIDFromURL(detailURL),
			RawTitle:         selText(card, sel.Title),
			RawDateText:      selText(card, sel.Date),
			RawLocationText:  selText(card, sel.Location),
			RawPriceText:     selText(card, sel.Price),
			RawDistanceTexts: selTexts(card, sel.Distance),
			DetailURL:        detailURL,
		}
		if href := selHref(card, sel.Registration); href != "" {
			c.RegistrationURL = resolveURL(pageURL, href)
		}
		if c.RawTitle == "" {
			c.RawTitle = selText(card, "h1, h2, h3, h4, strong")
		}
		fillFromLines(&c, lines)
		if len(c.RawDistanceTexts) == 0 {
			c.RawDistanceTexts = distanceLines(lines)
		}

		if !inRegion(a.config.RegionFilter, c.RawLocationText) {
			return true
		}
		stats.Emitted++
		keepGoing = emit(c)
		return keepGoing
	})

	return keepGoing
}
