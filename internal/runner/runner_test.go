package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ryosukesatoh/feed-digest/internal/logging"
	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/publisher"
)

// Mock implementations

type mockDigester struct {
	result *pipeline.Result
	err    error
	req    pipeline.FeedRequest
}

func (m *mockDigester) SummarizeFeeds(_ context.Context, req pipeline.FeedRequest) (*pipeline.Result, error) {
	m.req = req
	return m.result, m.err
}

type mockPublisher struct {
	published *pipeline.Result
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, result *pipeline.Result) error {
	m.published = result
	return m.err
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		ID:          "run-1",
		GeneratedAt: time.Now(),
		Digest:      "Test digest.",
		Summaries: []pipeline.ArticleSummary{
			{Title: "Article", URL: "http://example.com/1", Summary: "Acme hires."},
		},
	}
}

func newRunner(d Digester, pubs ...publisher.Publisher) *Runner {
	return New([]string{"https://example.com/feed.xml"}, d, pubs, logging.Discard())
}

func TestRunSuccess(t *testing.T) {
	pub := &mockPublisher{}
	d := &mockDigester{result: sampleResult()}

	if err := newRunner(d, pub).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if pub.published == nil || pub.published.ID != "run-1" {
		t.Error("Expected publisher to receive the result")
	}
	if len(d.req.FeedURLs) != 1 || d.req.FeedURLs[0] != "https://example.com/feed.xml" {
		t.Errorf("Expected configured feeds, got %v", d.req.FeedURLs)
	}
}

func TestRunDigestError(t *testing.T) {
	pub := &mockPublisher{}
	r := newRunner(&mockDigester{err: pipeline.ErrNoFeeds}, pub)

	err := r.Run(context.Background())
	if !errors.Is(err, pipeline.ErrNoFeeds) {
		t.Fatalf("Expected wrapped ErrNoFeeds, got %v", err)
	}
	if pub.published != nil {
		t.Error("Expected no publish after a failed digest")
	}
}

func TestRunPublishFailureDoesNotFail(t *testing.T) {
	failing := &mockPublisher{err: errors.New("publish failed")}
	ok := &mockPublisher{}
	r := newRunner(&mockDigester{result: sampleResult()}, failing, ok)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Expected success with one working publisher, got %v", err)
	}
	if ok.published == nil {
		t.Error("Expected the second publisher to run")
	}
}

func TestRunAllPublishersFail(t *testing.T) {
	r := newRunner(&mockDigester{result: sampleResult()},
		&mockPublisher{err: errors.New("a")},
		&mockPublisher{err: errors.New("b")},
	)

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "all publishers failed") {
		t.Fatalf("Expected all-publishers error, got %v", err)
	}
}

func TestRunNoPublishers(t *testing.T) {
	if err := newRunner(&mockDigester{result: sampleResult()}).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRunWithLatestPublisher(t *testing.T) {
	latest := publisher.NewLatestPublisher(logging.Discard())
	if err := newRunner(&mockDigester{result: sampleResult()}, latest).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if latest.Latest() == nil || latest.Latest().Digest != "Test digest." {
		t.Error("Expected latest digest to be stored")
	}
}
