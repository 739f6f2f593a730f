package publisher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
)

// LatestPublisher keeps the most recent digest in memory for the HTTP API.
type LatestPublisher struct {
	mu     sync.RWMutex
	latest *pipeline.Result
	logger *slog.Logger
}

func NewLatestPublisher(logger *slog.Logger) *LatestPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LatestPublisher{logger: logger}
}

func (p *LatestPublisher) Publish(_ context.Context, result *pipeline.Result) error {
	p.mu.Lock()
	p.latest = result
	p.mu.Unlock()
	p.logger.Info("latest digest updated", "id", result.ID, "summaries", len(result.Summaries))
	return nil
}

// Latest returns the last published result, or nil.
func (p *LatestPublisher) Latest() *pipeline.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// HTML renders the latest digest as a page.
func (p *LatestPublisher) HTML() string {
	result := p.Latest()
	if result == nil {
		return `<!DOCTYPE html><html><body><h1>Feed Digest</h1><p>No digest available yet. Check back later.</p></body></html>`
	}
	return buildHTMLBody(result)
}
