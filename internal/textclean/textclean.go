// Package textclean strips boilerplate from scraped post text before it is
// compared against stored posts.
package textclean

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	markdownLinkRe = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)
)

// Compile compiles a list of regex pattern strings into compiled regexps.
// Returns an error if any pattern is invalid.
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile strip pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Strip removes all matches of the compiled patterns from text.
func Strip(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// StripMarkdownLinks replaces every [label](target) with its label.
func StripMarkdownLinks(text string) string {
	return markdownLinkRe.ReplaceAllString(text, "$1")
}

// Tidy collapses runs of blank lines and trims surrounding whitespace.
func Tidy(text string) string {
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
