package summarizer

import "regexp"

var movementRe = regexp.MustCompile(`(?i)\b(` +
	`hir(e|es|ed|ing)|recruit(s|ed|ing)?|job openings|headcount|` +
	`layoffs?|laid off|lay(s|ing)? off|job cuts|cuts? jobs|redundanc(y|ies)|restructur(e|es|ed|ing)|` +
	`fund(ing|ed|raise)|raise[sd]?|series [a-f]|seed round|valuation|` +
	`acqui(re|res|red|ring|sition)s?|merger|merg(e|es|ed|ing)|buyout|` +
	`appoint(s|ed|ment)?|names new|named (ceo|cto|cfo|coo|president)|steps? down|resign(s|ed|ation)?|` +
	`new (ceo|cto|cfo|coo|chief)` +
	`)\b`)

// Movement reports whether text mentions a hiring, layoff, funding,
// acquisition or leadership-change signal. Keyword based, best effort.
func Movement(text string) bool {
	if text == "" || text == NoSignals || IsModelError(text) {
		return false
	}
	return movementRe.MatchString(text)
}
