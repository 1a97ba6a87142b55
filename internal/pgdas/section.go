package pgdas

import (
	"regexp"
	"strings"
)

var (
	quoteRegex      = regexp.MustCompile(`["']`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// LocateSection returns the text strictly between the first occurrence of start
// and the first occurrence of end after it. When end is empty or does not occur
// after start, the section runs to the end of text. The boolean is false when
// start is not present at all.
//
// Anchors are matched tolerating any whitespace run (including none) between
// their words, since the PDF text layer does not preserve spacing reliably.
func LocateSection(text, start, end string) (string, bool) {
	startLoc := anchorRegex(start).FindStringIndex(text)
	if startLoc == nil {
		return "", false
	}

	rest := text[startLoc[1]:]
	if end == "" {
		return rest, true
	}

	endLoc := anchorRegex(end).FindStringIndex(rest)
	if endLoc == nil {
		return rest, true
	}
	return rest[:endLoc[0]], true
}

// SplitSection splits an isolated section into the part introduced by first and
// the part introduced by second. A missing first anchor makes the first part
// start at the beginning of the section; a missing second anchor gives the whole
// remainder to the first part and leaves the second part empty.
func SplitSection(section, first, second string) (string, string) {
	head := section
	if loc := anchorRegex(first).FindStringIndex(section); loc != nil {
		head = section[loc[1]:]
	}

	loc := anchorRegex(second).FindStringIndex(head)
	if loc == nil {
		return head, ""
	}
	return head[:loc[0]], head[loc[1]:]
}

// NormalizeBlock strips quote characters and collapses every run of line breaks
// and spaces into a single space. Apply it to an isolated block only; the whole
// document keeps its line structure for the line-anchored header labels.
func NormalizeBlock(block string) string {
	block = quoteRegex.ReplaceAllString(block, "")
	block = whitespaceRegex.ReplaceAllString(block, " ")
	return strings.TrimSpace(block)
}

func anchorRegex(anchor string) *regexp.Regexp {
	words := strings.Fields(anchor)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(strings.Join(words, `\s*`))
}
