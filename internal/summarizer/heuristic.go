package summarizer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ryosukesatoh/feed-digest/internal/extract"
)

const maxTopics = 5

var wordRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'-]*`)

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {}, "being": {},
	"could": {}, "does": {}, "from": {}, "have": {}, "into": {}, "its": {},
	"just": {}, "like": {}, "many": {}, "more": {}, "most": {}, "much": {},
	"over": {}, "said": {}, "says": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "those": {}, "through": {}, "under": {}, "very": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "year": {}, "your": {},
}

// HeuristicSummarizer works without a model: first sentence per article and
// word frequency for the digest. Output is deterministic for a given input.
type HeuristicSummarizer struct {
	maxContentChars int
	maxDigestInputs int
}

var _ Summarizer = (*HeuristicSummarizer)(nil)

func NewHeuristicSummarizer(maxContentChars, maxDigestInputs int) *HeuristicSummarizer {
	return &HeuristicSummarizer{
		maxContentChars: maxContentChars,
		maxDigestInputs: maxDigestInputs,
	}
}

func (h *HeuristicSummarizer) Backend() string {
	return "heuristic"
}

func (h *HeuristicSummarizer) Summarize(_ context.Context, a Article, _ Options) string {
	text := extract.Text(a.Content, h.maxContentChars)
	sentence := extract.FirstSentence(text)
	if sentence == "" {
		return NoSignals
	}
	if utf8.RuneCountInString(sentence) > maxSummaryChars {
		sentence = extract.FirstSentence(extract.Truncate(sentence, maxSummaryChars-1))
	}
	return sentence
}

func (h *HeuristicSummarizer) Digest(_ context.Context, summaries []string, _ Options) string {
	cleaned := FilterSummaries(summaries, h.maxDigestInputs)
	if len(cleaned) == 0 {
		return NoSignalsDigest
	}

	topics := TopWords(cleaned, maxTopics)
	if len(topics) == 0 {
		return fmt.Sprintf("Heuristic digest of %d summaries: no recurring topics.", len(cleaned))
	}

	var sb strings.Builder
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Word
	}
	fmt.Fprintf(&sb, "Heuristic digest of %d summaries; top topics: %s.", len(cleaned), strings.Join(names, ", "))
	for _, t := range topics {
		fmt.Fprintf(&sb, "\n- %s (%d)", t.Word, t.Count)
	}
	return sb.String()
}

// WordCount is one entry of a word-frequency ranking.
type WordCount struct {
	Word  string
	Count int
}

// TopWords ranks words of at least four characters across texts, skipping
// stop words. Ties are broken alphabetically.
func TopWords(texts []string, n int) []WordCount {
	counts := map[string]int{}
	for _, text := range texts {
		for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
			w = strings.Trim(w, "'-")
			if utf8.RuneCountInString(w) < 4 {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	ranked := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, WordCount{Word: w, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
