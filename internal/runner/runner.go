package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/publisher"
)

// Digester builds a digest over a list of feeds.
type Digester interface {
	SummarizeFeeds(ctx context.Context, req pipeline.FeedRequest) (*pipeline.Result, error)
}

// Runner orchestrates the scheduled fetch -> summarize -> publish run.
type Runner struct {
	feeds      []string
	digester   Digester
	publishers []publisher.Publisher
	logger     *slog.Logger
}

func New(feeds []string, d Digester, pubs []publisher.Publisher, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		feeds:      feeds,
		digester:   d,
		publishers: pubs,
		logger:     logger.With("component", "runner"),
	}
}

// Run executes the full pipeline once.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	r.logger.Info("starting digest run", "feeds", len(r.feeds), "publishers", len(r.publishers))

	result, err := r.digester.SummarizeFeeds(ctx, pipeline.FeedRequest{FeedURLs: r.feeds})
	if err != nil {
		return fmt.Errorf("runner: digest failed: %w", err)
	}
	r.logger.Info("digest generated", "id", result.ID, "summaries", len(result.Summaries))

	// Continue with other publishers even if one fails.
	var publishErrors []error
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, result); err != nil {
			publishError := fmt.Errorf("publish via %T failed: %w", pub, err)
			publishErrors = append(publishErrors, publishError)
			r.logger.Warn("publisher failed", "publisher", fmt.Sprintf("%T", pub), "error", err)
		} else {
			r.logger.Debug("published", "publisher", fmt.Sprintf("%T", pub))
		}
	}

	if len(publishErrors) == len(r.publishers) && len(r.publishers) > 0 {
		return fmt.Errorf("runner: all publishers failed: %v", publishErrors)
	}

	if len(publishErrors) > 0 {
		r.logger.Warn("digest run completed with publisher failures",
			"failed", len(publishErrors), "publishers", len(r.publishers), "elapsed", time.Since(start))
	} else {
		r.logger.Info("digest run completed", "elapsed", time.Since(start))
	}
	return nil
}
