package publisher

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/summarizer"
)

// EmailPublisher sends the digest as an HTML email via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (p *EmailPublisher) Publish(_ context.Context, result *pipeline.Result) error {
	subject := fmt.Sprintf("Feed Digest - %s", result.GeneratedAt.Format("2006-01-02"))
	body := buildHTMLBody(result)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		subject,
		body,
	)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := p.send(addr, auth, p.from, p.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}

	return nil
}

func buildHTMLBody(result *pipeline.Result) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; }
.overview { background: #f0f0f0; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
.article { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.article h3 { margin-top: 0; color: #0f3460; }
.movement { color: #e94560; font-size: 0.8em; font-weight: bold; margin-left: 6px; }
</style></head><body>`)

	sb.WriteString("<h1>Feed Digest</h1>")
	sb.WriteString(fmt.Sprintf("<p><em>%s</em></p>", result.GeneratedAt.Format("January 2, 2006 15:04 MST")))

	trend, bullets := summarizer.ParseDigest(result.Digest)
	sb.WriteString(`<div class="overview"><h2>Trends</h2>`)
	if trend != "" {
		sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(trend)))
	}
	if len(bullets) > 0 {
		sb.WriteString("<ul>")
		for _, b := range bullets {
			sb.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(b)))
		}
		sb.WriteString("</ul>")
	}
	sb.WriteString("</div>")

	for i, s := range result.Summaries {
		sb.WriteString(`<div class="article">`)
		title := html.EscapeString(s.Title)
		if s.URL != "" {
			title = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(s.URL), title)
		}
		sb.WriteString(fmt.Sprintf("<h3>%d. %s", i+1, title))
		if s.Movement {
			sb.WriteString(`<span class="movement">MOVEMENT</span>`)
		}
		sb.WriteString("</h3>")
		sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(s.Summary)))
		sb.WriteString("</div>")
	}

	sb.WriteString("</body></html>")
	return sb.String()
}
