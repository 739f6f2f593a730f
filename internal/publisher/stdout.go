package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/summarizer"
)

const (
	lineWidth     = 72
	movementLabel = "[movement]"
)

// StdoutPublisher prints the digest as fixed-width text.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{w: os.Stdout}
}

// NewWriterPublisher renders to w instead of stdout.
func NewWriterPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, result *pipeline.Result) error {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", lineWidth) + "\n")
	sb.WriteString("Feed Digest\n")
	fmt.Fprintf(&sb, "Date: %s  ID: %s\n", result.GeneratedAt.Format("2006-01-02 15:04"), result.ID)
	sb.WriteString(strings.Repeat("=", lineWidth) + "\n\n")

	trend, bullets := summarizer.ParseDigest(result.Digest)
	if trend != "" {
		for _, line := range wrap(trend, lineWidth) {
			sb.WriteString(line + "\n")
		}
	}
	for _, b := range bullets {
		for i, line := range wrap(b, lineWidth-4) {
			if i == 0 {
				sb.WriteString("  - " + line + "\n")
			} else {
				sb.WriteString("    " + line + "\n")
			}
		}
	}
	sb.WriteString("\n")

	for i, s := range result.Summaries {
		sb.WriteString(strings.Repeat("-", lineWidth) + "\n")
		sb.WriteString(headline(fmt.Sprintf("%d. %s", i+1, s.Title), s.Movement) + "\n")
		if s.URL != "" {
			sb.WriteString("   " + s.URL + "\n")
		}
		for _, line := range wrap(s.Summary, lineWidth-3) {
			sb.WriteString("   " + line + "\n")
		}
	}
	sb.WriteString(strings.Repeat("=", lineWidth) + "\n")

	if _, err := io.WriteString(p.w, sb.String()); err != nil {
		return fmt.Errorf("stdout: failed to write: %w", err)
	}
	return nil
}

// headline fits title into one line, right-aligning the movement label.
func headline(title string, movement bool) string {
	if !movement {
		return runewidth.Truncate(title, lineWidth, "…")
	}
	room := lineWidth - runewidth.StringWidth(movementLabel) - 1
	title = runewidth.Truncate(title, room, "…")
	return runewidth.FillRight(title, room) + " " + movementLabel
}

// wrap breaks text into lines no wider than width display cells.
func wrap(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	curWidth := 0
	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		if w > width {
			word = runewidth.Truncate(word, width, "…")
			w = runewidth.StringWidth(word)
		}
		if curWidth > 0 && curWidth+1+w > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curWidth = 0
		}
		if curWidth > 0 {
			cur.WriteByte(' ')
			curWidth++
		}
		cur.WriteString(word)
		curWidth += w
	}
	if curWidth > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
