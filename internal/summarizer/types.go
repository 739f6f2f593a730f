package summarizer

import (
	"context"
	"strings"
)

const (
	// NoSignals is the per-article sentinel used when there is nothing to report.
	NoSignals = "No relevant recruiting signals found."
	// NoSignalsDigest is the digest sentinel used when no summary carries a signal.
	NoSignalsDigest = "No recruiting signals across these articles."
	// ModelErrorPrefix tags summaries whose model call failed.
	ModelErrorPrefix = "[model error: "
)

// Article is the input to a single summarization.
type Article struct {
	Title   string
	Content string
}

// Options carries per-request prompt overrides. Empty fields use the
// built-in templates.
type Options struct {
	ArticlePrompt string
	DigestPrompt  string
}

// Summarizer produces one-sentence article summaries and digests. Neither
// method fails: errors are represented inline.
type Summarizer interface {
	Summarize(ctx context.Context, a Article, opts Options) string
	Digest(ctx context.Context, summaries []string, opts Options) string
	Backend() string
}

// GenerateOptions controls a single model call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
}

// Model is a remote text-generation backend.
type Model interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Name() string
}

// IsModelError reports whether s is a tagged model failure.
func IsModelError(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), ModelErrorPrefix)
}

// ModelError tags err as a failed model call.
func ModelError(err error) string {
	return ModelErrorPrefix + err.Error() + "]"
}

// FilterSummaries drops empty, sentinel and error-tagged summaries and caps
// the remainder at max entries (non-positive means no cap).
func FilterSummaries(summaries []string, max int) []string {
	var out []string
	for _, s := range summaries {
		s = strings.TrimSpace(s)
		if s == "" || s == NoSignals || IsModelError(s) {
			continue
		}
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, s)
	}
	return out
}
