package summarizer

import "strings"

const articlePromptTemplate = "You are a recruiting-market analyst. ONLY use facts contained in the ARTICLE_CONTENT block below. " +
	"Do not invent details, dates, numbers, or people. If the article contains no hiring, layoffs, funding, " +
	"acquisitions, leadership change, or org-change signals, reply exactly: " + NoSignals + "\n\n" +
	"TITLE: {title}\n\n" +
	"ARTICLE_CONTENT: {content}\n\n" +
	"INSTRUCTIONS: Produce one concise sentence focused on recruiting, hiring, leadership, funding, " +
	"or organizational signals present in the ARTICLE_CONTENT. Keep the sentence short and factual. " +
	"Do not add context or other facts not present in ARTICLE_CONTENT."

const digestPromptTemplate = "You are a recruiting-market analyst. ONLY use the one-sentence summaries provided below. " +
	"Do not invent facts. From these sentences, produce:\n" +
	"1) One 1-sentence high-level trend summary.\n" +
	"2) A short bulleted list (up to 5 bullets) of the most relevant recruiting signals, " +
	"each bullet 1-2 short phrases (for example: 'Company X hiring surge', 'Acquisition Y prompts restructuring').\n\n" +
	"If the provided summaries are all 'No relevant recruiting signals found' or empty, reply: " + NoSignalsDigest + "\n\n" +
	"SUMMARIES:\n{summaries}\n\n" +
	"OUTPUT:"

// ArticlePrompt renders the article prompt. A custom template without a
// {content} placeholder gets the title and content appended.
func ArticlePrompt(custom, title, content string) string {
	tmpl := strings.TrimSpace(custom)
	if tmpl == "" {
		tmpl = articlePromptTemplate
	}
	if !strings.Contains(tmpl, "{content}") {
		tmpl += "\n\nTITLE: {title}\n\nARTICLE_CONTENT: {content}"
	}
	return strings.NewReplacer("{title}", title, "{content}", content).Replace(tmpl)
}

// DigestPrompt renders the digest prompt over a bullet list of summaries.
func DigestPrompt(custom string, summaries []string) string {
	tmpl := strings.TrimSpace(custom)
	if tmpl == "" {
		tmpl = digestPromptTemplate
	}
	if !strings.Contains(tmpl, "{summaries}") {
		tmpl += "\n\nSUMMARIES:\n{summaries}"
	}
	lines := make([]string, len(summaries))
	for i, s := range summaries {
		lines[i] = "- " + s
	}
	return strings.Replace(tmpl, "{summaries}", strings.Join(lines, "\n"), 1)
}
