package source

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"github.com/lysyi3m/race-comb/app/providers"
)

var errNoEventFields = errors.New("no title or date found on page")

const maxDistanceLines = 20

// DetailExtractor pulls one candidate out of an event detail page. Configured
// selectors win; otherwise common markup (h1, og:title, <time>) and line
// heuristics are used, and as a last resort the readability main text.
type DetailExtractor struct {
	provider  string
	selectors providers.Selectors
}

func NewDetailExtractor(provider string, selectors providers.Selectors) *DetailExtractor {
	return &DetailExtractor{provider: provider, selectors: selectors}
}

func (d *DetailExtractor) Extract(page *Page) (event.RawCandidate, error) {
	doc, err := parseHTML(page)
	if err != nil {
		return event.RawCandidate{}, err
	}

	body := doc.Find("body")
	lines := heuristics.VisibleLines(body)

	c := event.RawCandidate{
		SourcePlatform:  d.provider,
		SourceEventID:   heuristics.EventIDFromURL(page.URL),
		RawTitle:        d.title(doc),
		RawDateText:     selText(body, d.selectors.Date),
		RawLocationText: selText(body, d.selectors.Location),
		RawPriceText:    selText(body, d.selectors.Price),
		DetailURL:       page.URL,
		RegistrationURL: d.registration(doc, page.URL),
	}

	if c.RawDateText == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			c.RawDateText = strings.TrimSpace(dt)
		}
	}

	if c.RawDateText == "" || c.RawTitle == "" {
		d.fromReadability(page, &c, &lines)
	}

	fillFromLines(&c, lines)

	c.RawDistanceTexts = selTexts(body, d.selectors.Distance)
	if len(c.RawDistanceTexts) == 0 {
		c.RawDistanceTexts = distanceLines(lines)
		if len(c.RawDistanceTexts) > maxDistanceLines {
			c.RawDistanceTexts = c.RawDistanceTexts[:maxDistanceLines]
		}
	}

	if c.RawTitle == "" && c.RawDateText == "" {
		return c, errNoEventFields
	}
	return c, nil
}

func (d *DetailExtractor) title(doc *goquery.Document) string {
	if t := selText(doc.Selection, d.selectors.Title); t != "" {
		return t
	}
	if t := selText(doc.Selection, "h1"); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t = heuristics.CollapseSpace(t); t != "" {
			return t
		}
	}
	return ""
}

func (d *DetailExtractor) registration(doc *goquery.Document, pageURL string) string {
	href := selHref(doc.Selection, d.selectors.Registration)
	if href == "" {
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			h, _ := s.Attr("href")
			text := strings.ToLower(s.Text() + " " + h)
			if strings.Contains(text, "inscri") || strings.Contains(text, "inscreva") {
				href = strings.TrimSpace(h)
				return false
			}
			return true
		})
	}
	if href == "" {
		return ""
	}
	return resolveURL(pageURL, href)
}

// fromReadability fills gaps from the page's main content block. Listing
// sites wrap detail pages in heavy chrome; the article text is usually the
// event description.
func (d *DetailExtractor) fromReadability(page *Page, c *event.RawCandidate, lines *[]string) {
	pageURL, _ := url.Parse(page.URL)
	article, err := readability.FromReader(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		return
	}
	if c.RawTitle == "" {
		c.RawTitle = heuristics.CollapseSpace(article.Title)
	}
	content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return
	}
	*lines = append(heuristics.VisibleLines(content.Find("body")), *lines...)
}

// fillFromLines applies the line heuristics to any field still empty.
func fillFromLines(c *event.RawCandidate, lines []string) {
	for _, l := range lines {
		if c.RawDateText == "" {
			if date := heuristics.FindDate(l); date != "" {
				c.RawDateText = date
			}
		}
		if c.RawLocationText == "" && heuristics.LooksLikeLocation(l) {
			c.RawLocationText = l
		}
		if c.RawPriceText == "" && strings.Contains(l, "R$") {
			c.RawPriceText = l
		}
	}
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
