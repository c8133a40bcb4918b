// Package scrape pulls readable paragraph text out of a web page so it can
// be summarized like an inscription.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marker-finder/markersum/pkg/logger"
)

// DefaultSelector picks the elements whose text is collected.
const DefaultSelector = "p"

// Fetcher downloads pages and extracts their text.
type Fetcher struct {
	client   *http.Client
	selector string
}

// New creates a Fetcher. A nil client uses http.DefaultClient and an empty
// selector uses DefaultSelector.
func New(client *http.Client, selector string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if selector == "" {
		selector = DefaultSelector
	}
	return &Fetcher{client: client, selector: selector}
}

// FetchText GETs pageURL and returns the text of every matching element,
// trimmed and joined by single spaces.
func (f *Fetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Logger.Warnw("Failed to close response body", "url", pageURL, "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	var parts []string
	doc.Find(f.selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " "), nil
}
