package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedFetcher parses RSS, Atom and JSON feeds with gofeed.
type FeedFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

func NewFeedFetcher(client *http.Client, userAgent string, logger *slog.Logger) *FeedFetcher {
	if client == nil {
		client = NewHTTPClient(10 * time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedFetcher{client: client, userAgent: userAgent, logger: logger}
}

// Fetch returns at most maxEntries entries in feed order. A non-positive
// maxEntries means no cap.
func (f *FeedFetcher) Fetch(ctx context.Context, feedURL string, maxEntries int) ([]Entry, error) {
	// gofeed parsers carry per-parse state, so each call gets its own.
	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = f.userAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to fetch %s: %w", feedURL, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if maxEntries > 0 && len(entries) >= maxEntries {
			break
		}
		if item == nil {
			continue
		}
		entries = append(entries, toEntry(item))
	}

	f.logger.Debug("feed parsed", "url", feedURL, "title", feed.Title, "items", len(feed.Items), "kept", len(entries))
	return entries, nil
}

func toEntry(item *gofeed.Item) Entry {
	e := Entry{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Content: entryContent(item),
	}
	if e.Link == "" && len(item.Links) > 0 {
		e.Link = strings.TrimSpace(item.Links[0])
	}
	switch {
	case item.PublishedParsed != nil:
		e.Published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		e.Published = *item.UpdatedParsed
	}
	return e
}

// entryContent applies content > summary > description precedence. gofeed
// folds Atom summaries and RSS descriptions into Description.
func entryContent(item *gofeed.Item) string {
	for _, c := range []string{item.Content, item.Description} {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}
