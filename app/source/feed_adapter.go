package source

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"github.com/lysyi3m/race-comb/app/providers"
	"github.com/mmcdole/gofeed"
)

// FeedAdapter reads calendars published as RSS or Atom. The feed's own
// publication dates are ignored; the event date is looked for in the title
// and description.
type FeedAdapter struct {
	base
	parser *gofeed.Parser
}

func NewFeedAdapter(config *providers.Config) (Adapter, error) {
	return &FeedAdapter{base: base{config: config}, parser: gofeed.NewParser()}, nil
}

func (a *FeedAdapter) Extract(ctx context.Context, load Loader, emit Emit) (Stats, error) {
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

		feed, err := a.parser.Parse(bytes.NewReader(page.Body))
		if err != nil {
			stats.Fail(&Failure{Kind: ExtractionFailure, Provider: a.Provider(), URL: url, Err: fmt.Errorf("failed to parse feed: %w", err)})
			continue
		}

		for _, item := range feed.Items {
			c := a.candidate(item)
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
		return stats, &Failure{Kind: ProviderFailure, Provider: a.Provider(), Err: fmt.Errorf("no feed could be loaded: %w", lastErr)}
	}
	return stats, nil
}

func (a *FeedAdapter) candidate(item *gofeed.Item) event.RawCandidate {
	lines := descriptionLines(cmp.Or(item.Content, item.Description))

	title := heuristics.CollapseSpace(item.Title)
	date := heuristics.FindDate(title)
	if date != "" {
		title = strings.Trim(strings.Replace(title, date, "", 1), " -–|:")
	}

	c := event.RawCandidate{
		SourcePlatform:   a.Provider(),
		SourceEventID:    cmp.Or(item.GUID, heuristics.EventIDFromURL(item.Link)),
		RawTitle:         title,
		RawDateText:      date,
		RawDistanceTexts: distanceLines(append([]string{title}, lines...)),
		DetailURL:        item.Link,
	}
	fillFromLines(&c, lines)
	return c
}

// descriptionLines renders an HTML (or plain text) description into lines.
func descriptionLines(description string) []string {
	if strings.TrimSpace(description) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return strings.Split(description, "\n")
	}
	return heuristics.VisibleLines(doc.Find("body"))
}
