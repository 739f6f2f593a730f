package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ryosukesatoh/feed-digest/internal/config"
	"github.com/ryosukesatoh/feed-digest/internal/logging"
	"github.com/ryosukesatoh/feed-digest/internal/publisher"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Jobs</title>
<item><title>Acme hiring</title><link>https://example.com/acme</link>
<description><![CDATA[<p>Acme is hiring 300 engineers in Berlin. More soon.</p>]]></description></item>
<item><title>Globex funding</title><link>https://example.com/globex</link>
<description>Globex raised a Series B round.</description></item>
</channel></rss>`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GENAI_API_KEY", "GENAI_MODEL", "LOG_LEVEL", "PORT",
		"MAX_FEEDS", "MAX_ENTRIES_PER_FEED", "MAX_ARTICLES", "WORKERS",
		"DIGEST_SCHEDULE", "DIGEST_FEEDS", "MODEL_PROVIDER", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestPushDigestIntegration(t *testing.T) {
	clearEnv(t)
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer feed.Close()

	path := writeConfig(t, `
server:
  addr: "127.0.0.1:0"
digest:
  schedule: "0 8 * * *"
  feeds: ["`+feed.URL+`"]
publishers:
  - type: web
  - type: redis
    redis:
      addr: "127.0.0.1:0"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	a, err := build(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build() error: %v", err)
	}
	defer a.close(logging.Discard())

	if a.model != nil {
		t.Error("Expected no model without an API key")
	}
	if len(a.pubs) != 2 || a.latest == nil {
		t.Fatalf("Expected web and redis publishers, got %d", len(a.pubs))
	}

	if err := a.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/digest/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /digest/latest = %d", rec.Code)
	}
	var body struct {
		Digest    string `json:"digest"`
		Summaries []struct {
			Title    string `json:"title"`
			Summary  string `json:"summary"`
			Movement bool   `json:"movement"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %+v", body.Summaries)
	}
	if body.Summaries[0].Summary != "Acme is hiring 300 engineers in Berlin." || !body.Summaries[0].Movement {
		t.Errorf("Unexpected first summary: %+v", body.Summaries[0])
	}
	if !strings.HasPrefix(body.Digest, "Heuristic digest of 2 summaries") {
		t.Errorf("Unexpected digest: %q", body.Digest)
	}
}

func TestBuildUnknownPublisher(t *testing.T) {
	a := &app{}
	cfg := &config.Config{Publishers: []config.PublisherConfig{{Type: "carrier-pigeon"}}}
	if err := a.buildPublishers(cfg, logging.Discard()); err == nil {
		t.Error("Expected error for unknown publisher type")
	}
}

func TestBuildSingleLatestPublisher(t *testing.T) {
	a := &app{}
	cfg := &config.Config{Publishers: []config.PublisherConfig{{Type: "web"}, {Type: "web"}, {Type: "stdout"}}}
	if err := a.buildPublishers(cfg, logging.Discard()); err != nil {
		t.Fatalf("buildPublishers() error: %v", err)
	}
	count := 0
	for _, p := range a.pubs {
		if _, ok := p.(*publisher.LatestPublisher); ok {
			count++
		}
	}
	if count != 1 || len(a.pubs) != 2 {
		t.Errorf("Expected one latest publisher and stdout, got %d of %d", count, len(a.pubs))
	}
}
