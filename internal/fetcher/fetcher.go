package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Entry is one feed item, kept only for the lifetime of a request.
type Entry struct {
	Title     string
	Link      string
	Content   string
	Published time.Time
}

// Fetcher retrieves the entries of a single feed.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string, maxEntries int) ([]Entry, error)
}

// Pages retrieves raw article pages. Failures yield an empty string.
type Pages interface {
	Fetch(ctx context.Context, pageURL string) string
}

// NewHTTPClient returns the client shared by the feed and page fetchers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
