package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxPageBytes caps how much of an article page is read.
const maxPageBytes = 2 << 20

// PageFetcher downloads article pages with a single bounded GET.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

func NewPageFetcher(client *http.Client, userAgent string, logger *slog.Logger) *PageFetcher {
	if client == nil {
		client = NewHTTPClient(10 * time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageFetcher{client: client, userAgent: userAgent, logger: logger}
}

// Fetch returns the page body, or "" on any network error or non-2xx status.
func (p *PageFetcher) Fetch(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		p.logger.Warn("page request invalid", "url", pageURL, "error", err)
		return ""
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("page fetch failed", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("page fetch failed", "url", pageURL, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		p.logger.Warn("page read failed", "url", pageURL, "error", err)
		return ""
	}
	return string(body)
}
