package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ryosukesatoh/feed-digest/internal/config"
	"github.com/ryosukesatoh/feed-digest/internal/logging"
	"github.com/ryosukesatoh/feed-digest/internal/retry"
)

// fakeModel records prompts and replays canned replies.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
	opts    []GenerateOptions
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Generate(_ context.Context, prompt string, opts GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	if len(m.replies) > 0 {
		return m.replies[len(m.replies)-1], nil
	}
	return "", nil
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var testLimits = Limits{
	ArticleMaxTokens: 120,
	DigestMaxTokens:  350,
	Temperature:      0.1,
	MaxContentChars:  6000,
	MaxDigestInputs:  50,
}

var noRetry = retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond}

func newTestSummarizer(m Model, fallback Summarizer) *ModelSummarizer {
	return NewModelSummarizer(m, testLimits, noRetry, fallback, logging.Discard())
}

func TestModelSummarize(t *testing.T) {
	m := &fakeModel{replies: []string{"Acme is hiring 300 engineers in Berlin.\nExtra line."}}
	s := newTestSummarizer(m, nil)

	got := s.Summarize(context.Background(), Article{Title: "Acme", Content: "<p>Acme hires</p>"}, Options{})
	if got != "Acme is hiring 300 engineers in Berlin." {
		t.Errorf("Summarize() = %q", got)
	}
	if !strings.Contains(m.prompts[0], "TITLE: Acme") || !strings.Contains(m.prompts[0], "ARTICLE_CONTENT: Acme hires") {
		t.Errorf("Prompt missing title or content: %q", m.prompts[0])
	}
	if m.opts[0].MaxTokens != 120 || m.opts[0].Temperature != 0.1 {
		t.Errorf("Unexpected generate options: %+v", m.opts[0])
	}
}

func TestModelSummarizeEmptyContentSkipsModel(t *testing.T) {
	m := &fakeModel{replies: []string{"should not be used"}}
	s := newTestSummarizer(m, nil)

	got := s.Summarize(context.Background(), Article{Title: "x", Content: "<script>x()</script>"}, Options{})
	if got != NoSignals {
		t.Errorf("Summarize() = %q, want %q", got, NoSignals)
	}
	if m.calls() != 0 {
		t.Errorf("Expected no model calls, got %d", m.calls())
	}
}

func TestModelSummarizeEmptyReply(t *testing.T) {
	s := newTestSummarizer(&fakeModel{replies: []string{"  \n "}}, nil)
	if got := s.Summarize(context.Background(), Article{Content: "text"}, Options{}); got != NoSignals {
		t.Errorf("Summarize() = %q, want %q", got, NoSignals)
	}
}

func TestModelSummarizeError(t *testing.T) {
	m := &fakeModel{errs: []error{errors.New("status 400 bad request")}}
	s := newTestSummarizer(m, nil)

	got := s.Summarize(context.Background(), Article{Content: "Beta raises funding"}, Options{})
	if !IsModelError(got) {
		t.Errorf("Expected tagged model error, got %q", got)
	}
	if !strings.HasSuffix(got, "]") {
		t.Errorf("Expected closing bracket, got %q", got)
	}
}

func TestModelSummarizeFallback(t *testing.T) {
	m := &fakeModel{errs: []error{errors.New("status 400 bad request")}}
	s := newTestSummarizer(m, NewHeuristicSummarizer(6000, 50))

	got := s.Summarize(context.Background(), Article{Content: "Beta Corp raises a Series B round. More text."}, Options{})
	if got != "Beta Corp raises a Series B round." {
		t.Errorf("Summarize() = %q, want heuristic sentence", got)
	}
}

func TestModelSummarizeRetries(t *testing.T) {
	m := &fakeModel{
		errs:    []error{errors.New("status 503 unavailable")},
		replies: []string{"", "Gamma appoints a new CFO."},
	}
	s := NewModelSummarizer(m, testLimits, retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond}, nil, logging.Discard())

	got := s.Summarize(context.Background(), Article{Content: "Gamma news"}, Options{})
	if got != "Gamma appoints a new CFO." {
		t.Errorf("Summarize() = %q", got)
	}
	if m.calls() != 2 {
		t.Errorf("Expected 2 calls, got %d", m.calls())
	}
}

func TestModelSummarizeCustomPrompt(t *testing.T) {
	m := &fakeModel{replies: []string{"ok sentence here."}}
	s := newTestSummarizer(m, nil)

	s.Summarize(context.Background(), Article{Title: "T", Content: "body"}, Options{ArticlePrompt: "Summarize {title}: {content}"})
	if m.prompts[0] != "Summarize T: body" {
		t.Errorf("Prompt = %q", m.prompts[0])
	}
}

func TestModelDigest(t *testing.T) {
	m := &fakeModel{replies: []string{"  Hiring is up.\n- Acme hiring  "}}
	s := newTestSummarizer(m, nil)

	got := s.Digest(context.Background(), []string{"Acme hiring.", NoSignals, "", "[model error: boom]", "Beta layoffs."}, Options{})
	if got != "Hiring is up.\n- Acme hiring" {
		t.Errorf("Digest() = %q", got)
	}
	prompt := m.prompts[0]
	if !strings.Contains(prompt, "- Acme hiring.\n- Beta layoffs.") {
		t.Errorf("Expected filtered bullet list in prompt, got %q", prompt)
	}
	if strings.Contains(prompt, "boom") {
		t.Errorf("Expected model errors filtered from prompt")
	}
	if m.opts[0].MaxTokens != 350 {
		t.Errorf("Expected digest token budget, got %d", m.opts[0].MaxTokens)
	}
}

func TestModelDigestCapsBullets(t *testing.T) {
	reply := "Hiring is mixed.\n- a\n- b\n- c\n- d\n- e\n- f\n- g"
	s := newTestSummarizer(&fakeModel{replies: []string{reply}}, nil)

	got := s.Digest(context.Background(), []string{"Acme hiring."}, Options{})
	if got != "Hiring is mixed.\n- a\n- b\n- c\n- d\n- e" {
		t.Errorf("Digest() = %q", got)
	}
}

// blockingModel waits until its context ends.
type blockingModel struct{}

func (blockingModel) Name() string { return "blocking" }

func (blockingModel) Generate(ctx context.Context, _ string, _ GenerateOptions) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Second):
		return "too late", nil
	}
}

func TestModelCallTimeout(t *testing.T) {
	limits := testLimits
	limits.CallTimeout = 20 * time.Millisecond
	s := NewModelSummarizer(blockingModel{}, limits, retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond}, nil, logging.Discard())

	start := time.Now()
	got := s.Summarize(context.Background(), Article{Title: "t", Content: "Acme hires 300 engineers."}, Options{})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected the call timeout to end the attempt, took %v", elapsed)
	}
	if !IsModelError(got) || !strings.Contains(got, "deadline exceeded") {
		t.Errorf("Summarize() = %q, want deadline tag", got)
	}

	digest := s.Digest(context.Background(), []string{"Acme hiring."}, Options{})
	if !IsModelError(digest) || !strings.Contains(digest, "deadline exceeded") {
		t.Errorf("Digest() = %q, want deadline tag", digest)
	}
}

func TestModelDigestAllFiltered(t *testing.T) {
	m := &fakeModel{replies: []string{"unused"}}
	s := newTestSummarizer(m, nil)

	got := s.Digest(context.Background(), []string{NoSignals, " ", "[model error: x]"}, Options{})
	if got != NoSignalsDigest {
		t.Errorf("Digest() = %q, want %q", got, NoSignalsDigest)
	}
	if m.calls() != 0 {
		t.Errorf("Expected no model calls, got %d", m.calls())
	}
}

func TestModelDigestError(t *testing.T) {
	s := newTestSummarizer(&fakeModel{errs: []error{errors.New("status 401 unauthorized")}}, nil)
	if got := s.Digest(context.Background(), []string{"Acme hiring."}, Options{}); !IsModelError(got) {
		t.Errorf("Expected tagged model error, got %q", got)
	}
}

func TestModelRaw(t *testing.T) {
	m := &fakeModel{replies: []string{"raw\nreply"}}
	s := newTestSummarizer(m, nil)

	got, err := s.Raw(context.Background(), "PROMPT", "digest")
	if err != nil {
		t.Fatalf("Raw() error: %v", err)
	}
	if got != "raw\nreply" {
		t.Errorf("Raw() = %q", got)
	}
	if m.prompts[0] != "PROMPT" || m.opts[0].MaxTokens != 350 {
		t.Errorf("Unexpected call: %q %+v", m.prompts[0], m.opts[0])
	}
}

func TestBackend(t *testing.T) {
	if got := newTestSummarizer(&fakeModel{}, nil).Backend(); got != "model:fake" {
		t.Errorf("Backend() = %q", got)
	}
	if got := NewHeuristicSummarizer(0, 0).Backend(); got != "heuristic" {
		t.Errorf("Backend() = %q", got)
	}
}

func TestFilterSummaries(t *testing.T) {
	in := []string{"a", NoSignals, "", " b ", "[Model Error: x]", "c"}
	got := FilterSummaries(in, 2)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("FilterSummaries() = %q", got)
	}
	if got := FilterSummaries(in, 0); len(got) != 3 {
		t.Errorf("Expected 3 without cap, got %q", got)
	}
}

func TestNewWithoutModel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Limits.MaxContentChars = 100
	if _, ok := New(cfg, nil, logging.Discard()).(*HeuristicSummarizer); !ok {
		t.Error("Expected heuristic summarizer without a model")
	}
}

func TestNewWithModel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Model.FallbackOnError = true
	cfg.Model.Timeout = 15 * time.Second
	s, ok := New(cfg, &fakeModel{}, logging.Discard()).(*ModelSummarizer)
	if !ok {
		t.Fatal("Expected model summarizer")
	}
	if s.limits.CallTimeout != 15*time.Second {
		t.Errorf("CallTimeout = %v, want model.timeout", s.limits.CallTimeout)
	}
	if s.fallback == nil {
		t.Error("Expected heuristic fallback when fallback_on_error is set")
	}
}

func TestNewModelUnconfigured(t *testing.T) {
	m, err := NewModel(context.Background(), &config.Config{})
	if err != nil || m != nil {
		t.Errorf("NewModel() = %v, %v; want nil, nil", m, err)
	}
}

func TestNewModelAnthropic(t *testing.T) {
	cfg := &config.Config{}
	cfg.Model.Provider = "anthropic"
	cfg.Model.APIKey = "key"
	cfg.Model.Name = "claude-test"
	m, err := NewModel(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewModel() error: %v", err)
	}
	if _, ok := m.(*AnthropicModel); !ok || m.Name() != "claude-test" {
		t.Errorf("Unexpected model %T %q", m, m.Name())
	}
}

func TestNewModelUnsupported(t *testing.T) {
	cfg := &config.Config{}
	cfg.Model.Provider = "other"
	cfg.Model.APIKey = "key"
	if _, err := NewModel(context.Background(), cfg); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("Expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestCloseModel(t *testing.T) {
	if err := CloseModel(&fakeModel{}); err != nil {
		t.Errorf("CloseModel() = %v", err)
	}
}
