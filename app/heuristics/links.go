package heuristics

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

// MinLinkTextLength is the shortest anchor text accepted as an event link.
const MinLinkTextLength = 10

// DefaultDenylist holds substrings that mark navigation chrome rather than
// event cards. Matched case-insensitively against both href and text.
var DefaultDenylist = []string{
	"menu", "login", "logout", "entrar", "cadastr", "account", "minha-conta",
	"minha conta", "carrinho", "senha", "password",
	"politica", "privacidade", "termos", "contato", "fale conosco", "blog",
	"facebook.com", "instagram.com", "twitter.com", "//x.com", "youtube.com",
	"tiktok.com", "linkedin.com", "whatsapp", "wa.me", "t.me",
	"mailto:", "tel:", "javascript:",
}

// DenyPathSegments are whole path segments of store pages. They are matched
// per segment so "cart" does not reject "/corrida-do-cartola".
var DenyPathSegments = []string{"cart", "checkout", "basket"}

// LinkFilter decides which anchors on a listing page are event detail links.
type LinkFilter struct {
	origin  *url.URL
	minText int
	deny    []string
}

func NewLinkFilter(baseURL string, extraDeny ...string) (*LinkFilter, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", baseURL)
	}

	deny := make([]string, 0, len(DefaultDenylist)+len(extraDeny))
	for _, d := range append(append([]string{}, DefaultDenylist...), extraDeny...) {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			deny = append(deny, d)
		}
	}

	return &LinkFilter{origin: u, minText: MinLinkTextLength, deny: deny}, nil
}

// Allow reports whether an anchor with the given href and visible text is a
// candidate event link: long enough text, no denylisted substring, and an
// href on the source's own domain.
func (f *LinkFilter) Allow(href, text string) bool {
	_, ok := f.Resolve(href, text)
	return ok
}

// Resolve is Allow returning the absolute, fragment-free URL.
func (f *LinkFilter) Resolve(href, text string) (string, bool) {
	text = CollapseSpace(text)
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	if utf8.RuneCountInString(text) < f.minText {
		return "", false
	}

	lowerHref := strings.ToLower(href)
	lowerText := strings.ToLower(text)
	for _, d := range f.deny {
		if strings.Contains(lowerHref, d) || strings.Contains(lowerText, d) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := f.origin.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !sameSite(abs.Hostname(), f.origin.Hostname()) {
		return "", false
	}
	for _, seg := range strings.Split(strings.ToLower(abs.Path), "/") {
		if slices.Contains(DenyPathSegments, seg) {
			return "", false
		}
	}
	abs.Fragment = ""
	return abs.String(), true
}

func sameSite(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b || strings.HasSuffix(a, "."+b)
}
