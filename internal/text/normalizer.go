// Package text provides input text normalization for speech synthesis.
//
// The normalizer strips markup artifacts and characters the synthesis
// engine cannot speak, expands a small table of abbreviations, and
// guarantees terminal punctuation. The passes run in a fixed order;
// later passes assume the earlier ones ran.
package text

import (
	"regexp"
	"strings"
)

// Regex patterns for markup removal.
const (
	boldPattern       = `\*\*(.+?)\*\*`
	italicPattern     = `\*(.+?)\*`
	inlineCodePattern = "`(.+?)`"
	headerPattern     = `##+\s*(.+)`
	linkPattern       = `\[(.+?)\]\(.+?\)`
	urlPattern        = `https?://\S+`
)

// Patterns for character filtering and whitespace collapse. The allowed
// set is word characters, whitespace, and common spoken punctuation.
const (
	disallowedPattern = `[^\w\s.,!?;:\-'"()]`
	whitespacePattern = `\s+`
)

// expansion is one lexical rewrite applied before character filtering.
type expansion struct {
	pattern     *regexp.Regexp
	replacement string
}

// Normalizer cleans raw input text for the synthesis engine. All patterns
// are compiled once; a Normalizer is safe for concurrent use.
type Normalizer struct {
	bold       *regexp.Regexp
	italic     *regexp.Regexp
	inlineCode *regexp.Regexp
	header     *regexp.Regexp
	link       *regexp.Regexp
	url        *regexp.Regexp
	disallowed *regexp.Regexp
	whitespace *regexp.Regexp
	expansions []expansion
}

// NewNormalizer creates a normalizer with compiled patterns and the
// default abbreviation table. New expansions belong in the table, not in
// ad hoc rules.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		bold:       regexp.MustCompile(boldPattern),
		italic:     regexp.MustCompile(italicPattern),
		inlineCode: regexp.MustCompile(inlineCodePattern),
		header:     regexp.MustCompile(headerPattern),
		link:       regexp.MustCompile(linkPattern),
		url:        regexp.MustCompile(urlPattern),
		disallowed: regexp.MustCompile(disallowedPattern),
		whitespace: regexp.MustCompile(whitespacePattern),
		expansions: []expansion{
			{regexp.MustCompile(`\bDr\.`), "Doctor"},
		},
	}
}

// Normalize applies the cleaning passes in order and returns the text
// ready for synthesis. Empty or all-whitespace input yields "" without
// further processing; callers must treat that as nothing to synthesize,
// not as an error.
func (n *Normalizer) Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	// Unwrap markdown markup, keeping the inner content.
	cleaned := n.bold.ReplaceAllString(input, "$1")
	cleaned = n.italic.ReplaceAllString(cleaned, "$1")
	cleaned = n.inlineCode.ReplaceAllString(cleaned, "$1")
	cleaned = n.header.ReplaceAllString(cleaned, "$1")

	// Keep link text, discard raw URLs entirely.
	cleaned = n.link.ReplaceAllString(cleaned, "$1")
	cleaned = n.url.ReplaceAllString(cleaned, "")

	// Expand abbreviations before the character filter can touch them.
	for _, exp := range n.expansions {
		cleaned = exp.pattern.ReplaceAllString(cleaned, exp.replacement)
	}

	// Drop characters outside the allowed set, then collapse whitespace.
	cleaned = n.disallowed.ReplaceAllString(cleaned, "")
	cleaned = n.whitespace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	return ensureTerminalPunctuation(cleaned)
}

// ensureTerminalPunctuation appends a period unless the text already ends
// in sentence-ending punctuation.
func ensureTerminalPunctuation(text string) string {
	if text == "" {
		return ""
	}

	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	default:
		return text + "."
	}
}
