// Package report renders run summaries and stored posts for the CLI.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/relay"
)

const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Formatter writes run summaries and post listings to w.
type Formatter interface {
	FormatRun(w io.Writer, sum relay.Summary) error
	FormatPosts(w io.Writer, posts []post.Post) error
}

// New returns the formatter for name. Color only affects terminal output.
func New(name string, color bool) (Formatter, error) {
	switch name {
	case "", FormatTerminal:
		return NewTerminal(color), nil
	case FormatJSON:
		return NewJSON(), nil
	case FormatMarkdown:
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal, json, or markdown)", name)
	}
}

// headline returns the first non-empty line of text, cut to limit runes.
func headline(text string, limit int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > limit {
			return string(r[:limit-1]) + "…"
		}
		return line
	}
	return ""
}

func sentImages(p post.Post) int {
	n := 0
	for _, img := range p.Images {
		if img.MessageID != nil {
			n++
		}
	}
	return n
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
