package providers

import (
	"time"
)

type Config struct {
	Name              string     // Derived from filename (without .yml extension)
	Enabled           bool       `yaml:"enabled"`
	Kind              string     `yaml:"kind" validate:"omitempty,oneof=text cards json feed"`
	BaseURL           string     `yaml:"base_url" validate:"omitempty,url"`
	BaseURLs          []string   `yaml:"base_urls" validate:"omitempty,dive,url"`
	RegionFilter      string     `yaml:"region_filter" validate:"omitempty,len=2,alpha"`
	RequestTimeoutMs  int        `yaml:"request_timeout_ms" validate:"gte=0"`
	RenderDelayMs     int        `yaml:"render_delay_ms" validate:"gte=0"`
	RequestsPerSecond float64    `yaml:"requests_per_second" validate:"gte=0"`
	Browser           bool       `yaml:"browser"`
	MaxPages          int        `yaml:"max_pages" validate:"gte=0"`
	MaxItems          int        `yaml:"max_items" validate:"gte=0"`
	Selectors         Selectors  `yaml:"selectors"`
	JSONFields        JSONFields `yaml:"json_fields"`
	Deny              []string   `yaml:"deny"`
}

// Selectors are CSS selectors for card and detail pages. Item scopes the
// text strategy to a container; the rest are resolved inside each item or
// detail page.
type Selectors struct {
	Item         string `yaml:"item"`
	Title        string `yaml:"title"`
	Date         string `yaml:"date"`
	Location     string `yaml:"location"`
	Price        string `yaml:"price"`
	Distance     string `yaml:"distance"`
	Link         string `yaml:"link"`
	Registration string `yaml:"registration"`
}

// JSONFields are dotted paths into a JSON listing. Items points at the
// array of events; the others are relative to one array element.
type JSONFields struct {
	Items        string `yaml:"items"`
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Date         string `yaml:"date"`
	Location     string `yaml:"location"`
	City         string `yaml:"city"`
	State        string `yaml:"state"`
	Price        string `yaml:"price"`
	Distances    string `yaml:"distances"`
	Link         string `yaml:"link"`
	Registration string `yaml:"registration"`
}

// URLs lists every listing URL of the provider, base_url first.
func (c *Config) URLs() []string {
	urls := make([]string, 0, len(c.BaseURLs)+1)
	if c.BaseURL != "" {
		urls = append(urls, c.BaseURL)
	}
	for _, u := range c.BaseURLs {
		if u != "" && u != c.BaseURL {
			urls = append(urls, u)
		}
	}
	return urls
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) RenderDelay() time.Duration {
	return time.Duration(c.RenderDelayMs) * time.Millisecond
}
