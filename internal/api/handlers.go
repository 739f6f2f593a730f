package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/summarizer"
)

type summarizeRequest struct {
	FeedURLs      []string `json:"feedUrls"`
	MaxArticles   int      `json:"maxArticles"`
	ArticlePrompt string   `json:"articlePrompt"`
	DigestPrompt  string   `json:"digestPrompt"`
}

type articleRequest struct {
	Title    string `json:"title"`
	Headline string `json:"headline"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Link     string `json:"link"`
}

func (a articleRequest) input() pipeline.ArticleInput {
	in := pipeline.ArticleInput{Title: a.Title, Content: a.Content, URL: a.URL}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = a.Headline
	}
	if strings.TrimSpace(in.Content) == "" {
		in.Content = a.Summary
	}
	if strings.TrimSpace(in.URL) == "" {
		in.URL = a.Link
	}
	return in
}

type summarizeArticleRequest struct {
	articleRequest
	ArticlePrompt string `json:"articlePrompt"`
}

type batchRequest struct {
	Articles      []articleRequest `json:"articles"`
	ArticlePrompt string           `json:"articlePrompt"`
	DigestPrompt  string           `json:"digestPrompt"`
}

type debugPromptRequest struct {
	Prompt string `json:"prompt"`
	Which  string `json:"which"`
}

// rawPrompter is implemented by model-backed summarizers.
type rawPrompter interface {
	Raw(ctx context.Context, prompt, which string) (string, error)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"model_configured": s.modelConfigured,
		"backend":          s.orch.Backend(),
	})
}

func (s *Server) handleSummarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "feedUrls must be a non-empty list of strings")
		return
	}

	result, err := s.orch.SummarizeFeeds(c.Request.Context(), pipeline.FeedRequest{
		FeedURLs:    req.FeedURLs,
		MaxArticles: req.MaxArticles,
		Options:     summarizer.Options{ArticlePrompt: req.ArticlePrompt, DigestPrompt: req.DigestPrompt},
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummarizeArticle(c *gin.Context) {
	var req summarizeArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	summary, err := s.orch.SummarizeArticle(c.Request.Context(), req.input(), summarizer.Options{ArticlePrompt: req.ArticlePrompt})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleSummarizeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "articles must be a non-empty list of objects")
		return
	}

	inputs := make([]pipeline.ArticleInput, len(req.Articles))
	for i, a := range req.Articles {
		inputs[i] = a.input()
	}
	result, err := s.orch.SummarizeBatch(c.Request.Context(), inputs, summarizer.Options{
		ArticlePrompt: req.ArticlePrompt,
		DigestPrompt:  req.DigestPrompt,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDebugPrompt(c *gin.Context) {
	raw, ok := s.orch.Summarizer().(rawPrompter)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model backend not configured"})
		return
	}

	var req debugPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, "prompt is required")
		return
	}
	which := req.Which
	if which != "digest" {
		which = "article"
	}

	out, err := raw.Raw(c.Request.Context(), req.Prompt, which)
	if err != nil {
		s.logger.Warn("debug prompt failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"raw": out, "which": which})
}

func (s *Server) handleLatest(c *gin.Context) {
	if s.latest == nil || s.latest.Latest() == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no digest published yet"})
		return
	}
	c.JSON(http.StatusOK, s.latest.Latest())
}

func (s *Server) handleIndex(c *gin.Context) {
	if s.latest == nil {
		c.JSON(http.StatusOK, gin.H{"service": "feed-digest", "backend": s.orch.Backend()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(s.latest.HTML()))
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoFeeds):
		badRequest(c, "feedUrls must be a non-empty list of strings")
	case errors.Is(err, pipeline.ErrNoArticles):
		badRequest(c, "articles must be a non-empty list of objects")
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
