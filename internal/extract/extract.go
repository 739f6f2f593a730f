// Package extract turns feed and page markup into bounded plain text.
package extract

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var (
	tagRe           = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	sentenceSplitRe = regexp.MustCompile(`[.?!\n]`)
	markupReplacer  = strings.NewReplacer("<", " ", ">", " ")
)

// noise is removed before any text is collected.
const noise = "script, style, noscript, template, iframe, svg, head, nav, footer, form"

// minParagraphChars is how much paragraph text must exist before the
// paragraphs are preferred over the whole body.
const minParagraphChars = 80

// Clean strips tags with a regex, unescapes entities and collapses
// whitespace. It is the fallback for everything else in this package.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	text := tagRe.ReplaceAllString(s, " ")
	text = html.UnescapeString(text)
	text = tagRe.ReplaceAllString(text, " ")
	return collapse(text)
}

// Text extracts readable text from an HTML fragment or document. Content
// under article or main is preferred, then paragraph blocks, then the whole
// body. The result is truncated to maxChars runes; zero means no limit.
func Text(s string, maxChars int) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return Truncate(Clean(s), maxChars)
	}
	doc.Find(noise).Remove()
	return Truncate(primaryText(doc), maxChars)
}

// Page extracts the main content of a full article page. Readability gets
// the first go; Text is used when it finds nothing.
func Page(s, pageURL string, maxChars int) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if text := readable(s, pageURL); text != "" {
		return Truncate(text, maxChars)
	}
	return Text(s, maxChars)
}

func readable(s, pageURL string) (text string) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	article, err := readability.FromReader(strings.NewReader(s), u)
	if err != nil {
		return ""
	}
	return collapse(article.TextContent)
}

func primaryText(doc *goquery.Document) string {
	for _, sel := range []string{"article", "main", "[role=main]"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if text := textOf(node); text != "" {
				return text
			}
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := textOf(p); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if joined := strings.Join(paragraphs, " "); utf8.RuneCountInString(joined) >= minParagraphChars {
		return joined
	}

	return textOf(doc.Selection)
}

// textOf joins every descendant text node with a space so that adjacent
// blocks do not run together.
func textOf(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				parts = append(parts, c.Text())
				return
			}
			walk(c)
		})
	}
	walk(sel)
	return collapse(strings.Join(parts, " "))
}

// collapse removes stray angle brackets and squeezes whitespace.
func collapse(s string) string {
	s = markupReplacer.Replace(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most max runes. A non-positive max leaves s alone.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}

// FirstSentence returns the first sentence-like fragment of text ending in
// exactly one period. Fragments under ten characters fall back to the
// first line, capped at 200 characters.
func FirstSentence(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	first := strings.TrimSpace(sentenceSplitRe.Split(text, 2)[0])
	if utf8.RuneCountInString(first) < 10 {
		line := strings.SplitN(strings.TrimSpace(text), "\n", 2)[0]
		first = strings.TrimSpace(Truncate(line, 200))
	}
	first = strings.TrimSpace(strings.TrimRight(first, ". \t"))
	if first == "" {
		return ""
	}
	return first + "."
}
