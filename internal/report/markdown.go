package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/relay"
)

// MarkdownFormatter writes output suitable for issue comments and chat.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (f *MarkdownFormatter) FormatRun(w io.Writer, sum relay.Summary) error {
	fmt.Fprintf(w, "# postrelay run\n\n")
	fmt.Fprintf(w, "%d candidates from %d sources in %s\n\n",
		sum.Candidates(), len(sum.Sources), formatDuration(sum.Duration))

	if len(sum.Sources) > 0 {
		fmt.Fprintln(w, "| Source | Candidates |")
		fmt.Fprintln(w, "|---|---|")
		for _, src := range sum.Sources {
			fmt.Fprintf(w, "| %s | %d |\n", escapeCell(src.Name), src.Candidates)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "- Sent: %d\n", sum.Sent)
	fmt.Fprintf(w, "- Updated: %d\n", sum.Updated)
	fmt.Fprintf(w, "- Unchanged: %d\n", sum.Unchanged)
	if sum.EditFailures > 0 {
		fmt.Fprintf(w, "- Failed edits: %d\n", sum.EditFailures)
	}
	fmt.Fprintln(w)

	if len(sum.SentIDs) > 0 {
		fmt.Fprintf(w, "Sent posts: %s\n\n", codeList(sum.SentIDs))
	}
	if len(sum.UpdatedIDs) > 0 {
		fmt.Fprintf(w, "Updated posts: %s\n\n", codeList(sum.UpdatedIDs))
	}

	fmt.Fprintf(w, "*Run `%s`*\n", sum.RunID)
	return nil
}

func (f *MarkdownFormatter) FormatPosts(w io.Writer, posts []post.Post) error {
	fmt.Fprintf(w, "# Stored posts (%d)\n\n", len(posts))
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts stored.")
		return nil
	}

	for _, p := range posts {
		fmt.Fprintf(w, "## %s\n\n", p.ID)
		if p.MessageID != nil {
			fmt.Fprintf(w, "Message: `%s`\n\n", *p.MessageID)
		}
		if p.Text != "" {
			for _, line := range strings.Split(p.Text, "\n") {
				fmt.Fprintf(w, "> %s\n", line)
			}
			fmt.Fprintln(w)
		}
		for _, img := range p.Images {
			id := "not sent"
			if img.MessageID != nil {
				id = "`" + *img.MessageID + "`"
			}
			fmt.Fprintf(w, "- [image](%s) %s\n", img.URL, id)
		}
		if len(p.Images) > 0 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func codeList(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "`" + id + "`"
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
