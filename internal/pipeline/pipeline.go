// Package pipeline ties feed fetching, extraction and summarization into
// one request-scoped run.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ryosukesatoh/feed-digest/internal/extract"
	"github.com/ryosukesatoh/feed-digest/internal/fetcher"
	"github.com/ryosukesatoh/feed-digest/internal/summarizer"
)

var (
	// ErrNoFeeds is returned when a request names no usable feed URL.
	ErrNoFeeds = errors.New("pipeline: no feed urls given")
	// ErrNoArticles is returned for an empty batch.
	ErrNoArticles = errors.New("pipeline: no articles given")
)

// Limits bounds the work done for one request.
type Limits struct {
	MaxFeeds          int
	MaxEntriesPerFeed int
	MaxArticles       int
	MaxContentChars   int
	Workers           int
	// RequestTimeout bounds fetching and per-article summarization. The
	// digest gets a budget of the same length. Zero disables both deadlines.
	RequestTimeout time.Duration
}

// FeedRequest is the input of SummarizeFeeds.
type FeedRequest struct {
	FeedURLs []string
	// MaxArticles lowers the configured total cap when positive.
	MaxArticles int
	Options     summarizer.Options
}

// ArticleInput is a caller-supplied article.
type ArticleInput struct {
	Title   string
	Content string
	URL     string
}

// ArticleSummary is the per-article output.
type ArticleSummary struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Summary  string `json:"summary"`
	Movement bool   `json:"movement"`
}

// Result is the outcome of a feed or batch run.
type Result struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Digest      string           `json:"digest"`
	Summaries   []ArticleSummary `json:"summaries"`
}

// Orchestrator runs the fetch, extract, summarize and digest steps.
type Orchestrator struct {
	feeds      fetcher.Fetcher
	pages      fetcher.Pages
	summarizer summarizer.Summarizer
	limits     Limits
	logger     *slog.Logger
	now        func() time.Time
}

func New(feeds fetcher.Fetcher, pages fetcher.Pages, s summarizer.Summarizer, limits Limits, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.Workers <= 0 {
		limits.Workers = 1
	}
	return &Orchestrator{
		feeds:      feeds,
		pages:      pages,
		summarizer: s,
		limits:     limits,
		logger:     logger.With("component", "pipeline"),
		now:        time.Now,
	}
}

// Backend names the summarizer in use.
func (o *Orchestrator) Backend() string {
	return o.summarizer.Backend()
}

// Summarizer returns the configured summarizer.
func (o *Orchestrator) Summarizer() summarizer.Summarizer {
	return o.summarizer
}

// SummarizeFeeds fetches every feed, summarizes the deduplicated entries in
// feed order and builds a digest. Failing feeds are skipped.
func (o *Orchestrator) SummarizeFeeds(ctx context.Context, req FeedRequest) (*Result, error) {
	urls := cleanURLs(req.FeedURLs)
	if len(urls) == 0 {
		return nil, ErrNoFeeds
	}
	if o.limits.MaxFeeds > 0 && len(urls) > o.limits.MaxFeeds {
		o.logger.Info("feed list capped", "requested", len(urls), "max", o.limits.MaxFeeds)
		urls = urls[:o.limits.MaxFeeds]
	}

	runCtx, cancel := o.withDeadline(ctx)
	defer cancel()

	entries := dedup(o.fetchFeeds(runCtx, urls))
	if max := o.maxArticles(req.MaxArticles); max > 0 && len(entries) > max {
		entries = entries[:max]
	}
	o.logger.Info("summarizing feeds", "feeds", len(urls), "entries", len(entries))

	items := make([]ArticleInput, len(entries))
	for i, e := range entries {
		items[i] = ArticleInput{Title: e.Title, Content: e.Content, URL: e.Link}
	}
	summaries := o.summarizeAll(runCtx, items, req.Options)
	return o.result(ctx, summaries, req.Options), nil
}

// SummarizeArticle summarizes one article. The page is fetched when no
// content is supplied; an article with neither yields NoSignals.
func (o *Orchestrator) SummarizeArticle(ctx context.Context, in ArticleInput, opts summarizer.Options) (string, error) {
	runCtx, cancel := o.withDeadline(ctx)
	defer cancel()
	return o.summarizeOne(runCtx, in, opts).Summary, nil
}

// SummarizeBatch summarizes caller-supplied articles and builds a digest.
func (o *Orchestrator) SummarizeBatch(ctx context.Context, articles []ArticleInput, opts summarizer.Options) (*Result, error) {
	if len(articles) == 0 {
		return nil, ErrNoArticles
	}
	if max := o.limits.MaxArticles; max > 0 && len(articles) > max {
		articles = articles[:max]
	}

	runCtx, cancel := o.withDeadline(ctx)
	defer cancel()

	summaries := o.summarizeAll(runCtx, articles, opts)
	return o.result(ctx, summaries, opts), nil
}

func (o *Orchestrator) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.limits.RequestTimeout > 0 {
		return context.WithTimeout(ctx, o.limits.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) maxArticles(requested int) int {
	max := o.limits.MaxArticles
	if requested > 0 && (max <= 0 || requested < max) {
		return requested
	}
	return max
}

// fetchFeeds fetches feeds concurrently and returns their entries in feed
// order.
func (o *Orchestrator) fetchFeeds(ctx context.Context, urls []string) []fetcher.Entry {
	perFeed := make([][]fetcher.Entry, len(urls))

	var g errgroup.Group
	g.SetLimit(o.limits.Workers)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			entries, err := o.feeds.Fetch(ctx, u, o.limits.MaxEntriesPerFeed)
			if err != nil {
				o.logger.Warn("feed skipped", "url", u, "error", err)
				return nil
			}
			perFeed[i] = entries
			return nil
		})
	}
	g.Wait()

	var all []fetcher.Entry
	for _, entries := range perFeed {
		all = append(all, entries...)
	}
	return all
}

// summarizeAll summarizes items with bounded concurrency. Each task writes
// only its own slot, so output order matches input order.
func (o *Orchestrator) summarizeAll(ctx context.Context, items []ArticleInput, opts summarizer.Options) []ArticleSummary {
	out := make([]ArticleSummary, len(items))

	var g errgroup.Group
	g.SetLimit(o.limits.Workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			out[i] = o.summarizeOne(ctx, item, opts)
			return nil
		})
	}
	g.Wait()
	return out
}

func (o *Orchestrator) summarizeOne(ctx context.Context, in ArticleInput, opts summarizer.Options) ArticleSummary {
	title := strings.TrimSpace(in.Title)
	link := strings.TrimSpace(in.URL)
	res := ArticleSummary{Title: title, URL: link}

	if err := ctx.Err(); err != nil {
		res.Summary = summarizer.ModelError(err)
		return res
	}

	content := in.Content
	if strings.TrimSpace(content) == "" && link != "" && o.pages != nil {
		content = extract.Page(o.pages.Fetch(ctx, link), link, o.limits.MaxContentChars)
	}

	res.Summary = o.summarizer.Summarize(ctx, summarizer.Article{Title: title, Content: content}, opts)
	if res.Summary == "" {
		res.Summary = summarizer.NoSignals
	}
	res.Movement = summarizer.Movement(title + " " + res.Summary)
	if summarizer.IsModelError(res.Summary) || res.Summary == summarizer.NoSignals {
		res.Movement = false
	}
	return res
}

func (o *Orchestrator) result(ctx context.Context, summaries []ArticleSummary, opts summarizer.Options) *Result {
	texts := make([]string, len(summaries))
	for i, s := range summaries {
		texts[i] = s.Summary
	}
	if summaries == nil {
		summaries = []ArticleSummary{}
	}
	return &Result{
		ID:          uuid.NewString(),
		GeneratedAt: o.now().UTC(),
		Digest:      o.digest(ctx, texts, opts),
		Summaries:   summaries,
	}
}

// digest runs the summarizer digest under its own deadline. A digest that
// outlives it is reported as a model error.
func (o *Orchestrator) digest(ctx context.Context, texts []string, opts summarizer.Options) string {
	if o.limits.RequestTimeout <= 0 {
		return o.summarizer.Digest(ctx, texts, opts)
	}
	dctx, cancel := context.WithTimeout(ctx, o.limits.RequestTimeout)
	defer cancel()

	done := make(chan string, 1)
	go func() { done <- o.summarizer.Digest(dctx, texts, opts) }()
	select {
	case d := <-done:
		return d
	case <-dctx.Done():
		o.logger.Warn("digest timed out", "timeout", o.limits.RequestTimeout)
		return summarizer.ModelError(dctx.Err())
	}
}

func cleanURLs(urls []string) []string {
	var out []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// dedup keeps the first entry per link. Entries without a link are kept.
func dedup(entries []fetcher.Entry) []fetcher.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]fetcher.Entry, 0, len(entries))
	for _, e := range entries {
		key := strings.TrimSpace(e.Link)
		if key == "" {
			out = append(out, e)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
