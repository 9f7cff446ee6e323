package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"github.com/lysyi3m/race-comb/app/providers"
	"golang.org/x/net/html/charset"
)

// parseHTML decodes the page to UTF-8 using the declared or sniffed charset;
// many provider sites still serve ISO-8859-1.
func parseHTML(page *Page) (*goquery.Document, error) {
	if len(page.Body) == 0 {
		return nil, fmt.Errorf("empty page")
	}

	r, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// selText returns the collapsed text of the first match of selector inside
// scope, or "".
func selText(scope *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return heuristics.CollapseSpace(scope.Find(selector).First().Text())
}

func selTexts(scope *goquery.Selection, selector string) []string {
	if selector == "" {
		return nil
	}
	var texts []string
	scope.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := heuristics.CollapseSpace(s.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	return texts
}

func selHref(scope *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	href, _ := scope.Find(selector).First().Attr("href")
	return strings.TrimSpace(href)
}

// distanceLines keeps the lines that mention a kilometre figure.
func distanceLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.Contains(strings.ToLower(l), "km") {
			out = append(out, l)
		}
	}
	return out
}

// pageURLs expands the {page} and {region} placeholders of every listing URL.
func pageURLs(config *providers.Config) []string {
	var urls []string
	for _, u := range config.URLs() {
		u = strings.ReplaceAll(u, "{region}", strings.ToLower(config.RegionFilter))
		if !strings.Contains(u, "{page}") {
			urls = append(urls, u)
			continue
		}
		for p := 1; p <= config.MaxPages; p++ {
			urls = append(urls, strings.ReplaceAll(u, "{page}", fmt.Sprint(p)))
		}
	}
	return urls
}

// inRegion applies the region filter to raw location text. Candidates whose
// state cannot be read pass through so the normalizer still sees them.
func inRegion(region, locationText string) bool {
	if region == "" {
		return true
	}
	_, state := heuristics.SplitLocation(locationText)
	code, ok := heuristics.StateCode(state)
	if !ok {
		return true
	}
	return code == region
}
