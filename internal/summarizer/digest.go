package summarizer

import (
	"regexp"
	"strings"
)

// maxDigestBullets caps the signal list of a digest.
const maxDigestBullets = 5

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// ParseDigest splits digest text into its trend text and at most five
// bullet lines. Numbered section labels such as "1)" count as bullets only
// when the line carries text after them.
func ParseDigest(text string) (trend string, bullets []string) {
	var prose []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if loc := bulletRe.FindStringIndex(line); loc != nil {
			if b := strings.TrimSpace(line[loc[1]:]); b != "" && len(bullets) < maxDigestBullets {
				bullets = append(bullets, b)
			}
			continue
		}
		prose = append(prose, line)
	}
	return strings.Join(prose, " "), bullets
}

// capBullets drops bullet lines past the first max and keeps everything
// else in place.
func capBullets(text string, max int) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	n := 0
	for _, line := range lines {
		if loc := bulletRe.FindStringIndex(line); loc != nil && strings.TrimSpace(line[loc[1]:]) != "" {
			n++
			if n > max {
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
