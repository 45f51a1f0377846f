// Package pagemeta reads the metadata a native screen needs from a page: its
// title, canonical URL and how many images still wait for lazy loading.
package pagemeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const userAgent = "NewsShell/1.0"

// Meta is what the extractor found in one document.
type Meta struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Canonical   string `json:"canonical,omitempty"`
	Description string `json:"description,omitempty"`
	// AppLink is the companion-app deep link advertised by the page, if any.
	AppLink    string `json:"appLink,omitempty"`
	Images     int    `json:"images"`
	LazyImages int    `json:"lazyImages"`
	Iframes    int    `json:"iframes"`
}

// Extractor fetches pages and extracts Meta from them.
type Extractor struct {
	client  *http.Client
	headers map[string]string
}

// NewExtractor builds an extractor. headers are sent with every request, which
// lets it see the page the way an app surface does.
func NewExtractor(timeout time.Duration, headers map[string]string) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return &Extractor{
		client:  &http.Client{Timeout: timeout},
		headers: copied,
	}
}

// Fetch downloads pageURL and extracts its metadata.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (Meta, error) {
	doc, err := e.fetchDocument(ctx, pageURL)
	if err != nil {
		return Meta{}, err
	}
	return Extract(doc, pageURL), nil
}

func (e *Extractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	return Parse(resp.Body)
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Extract collects Meta from doc. Relative links resolve against pageURL.
func Extract(doc *goquery.Document, pageURL string) Meta {
	meta := Meta{URL: pageURL}
	base, _ := url.Parse(pageURL)

	meta.Title = firstNonEmpty(
		attr(doc.Find(`meta[property="og:title"]`), "content"),
		doc.Find("head > title").First().Text(),
		doc.Find("h1").First().Text(),
	)
	meta.Description = firstNonEmpty(
		attr(doc.Find(`meta[property="og:description"]`), "content"),
		attr(doc.Find(`meta[name="description"]`), "content"),
	)
	meta.Canonical = resolve(base, attr(doc.Find(`link[rel="canonical"]`), "href"))
	meta.AppLink = firstNonEmpty(
		attr(doc.Find(`meta[property="al:ios:url"]`), "content"),
		attr(doc.Find(`meta[property="al:android:url"]`), "content"),
	)

	doc.Find("img, iframe").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.DataAtom {
		case atom.Img:
			meta.Images++
			if isLazy(node) {
				meta.LazyImages++
			}
		case atom.Iframe:
			meta.Iframes++
		}
	})

	return meta
}

// isLazy reports whether the image defers its real source, either natively or
// through a data-src style attribute.
func isLazy(n *html.Node) bool {
	var src string
	deferred := false
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "loading":
			if strings.EqualFold(a.Val, "lazy") {
				return true
			}
		case "src":
			src = a.Val
		case "data-src", "data-original", "data-lazy-src":
			if strings.TrimSpace(a.Val) != "" {
				deferred = true
			}
		}
	}
	return deferred && (src == "" || strings.HasPrefix(src, "data:"))
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return v
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}
