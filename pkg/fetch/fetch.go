// Package fetch retrieves live storefront pages for offline analysis.
package fetch

import (
	"github.com/gocolly/colly/v2"

	"tracker-base/pkg/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Fetcher downloads one page per instance. Build a fresh one per request;
// colly callbacks accumulate on the collector.
type Fetcher struct {
	Collector *colly.Collector
}

// New builds a fetcher. With no domains given, any host is allowed.
func New(allowedDomains ...string) *Fetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	if len(allowedDomains) > 0 {
		c.AllowedDomains = allowedDomains
	}
	return &Fetcher{Collector: c}
}

// Page fetches url and returns the raw response body.
func (f *Fetcher) Page(url string) ([]byte, error) {
	var body []byte
	f.Collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	if err := f.Collector.Visit(url); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, models.ErrPageNotFound
	}
	return body, nil
}
