package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/relay"
)

const terminalTextWidth = 60

// TerminalFormatter renders tables for interactive use.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

func (f *TerminalFormatter) FormatRun(w io.Writer, sum relay.Summary) error {
	header := fmt.Sprintf("postrelay: %d candidates from %d sources in %s",
		sum.Candidates(), len(sum.Sources), formatDuration(sum.Duration))
	fmt.Fprintln(w, f.bold(header))
	fmt.Fprintln(w)

	if len(sum.Sources) > 0 {
		t := f.newTable(w)
		t.AppendHeader(table.Row{"Source", "Candidates"})
		for _, src := range sum.Sources {
			t.AppendRow(table.Row{src.Name, src.Candidates})
		}
		t.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s  %s  %d unchanged\n",
		f.green(fmt.Sprintf("%d sent", sum.Sent)),
		f.yellow(fmt.Sprintf("%d updated", sum.Updated)),
		sum.Unchanged,
	)
	if sum.EditFailures > 0 {
		fmt.Fprintln(w, f.red(fmt.Sprintf("%d edits failed (see log)", sum.EditFailures)))
	}
	fmt.Fprintln(w, f.dim("run "+sum.RunID))
	return nil
}

func (f *TerminalFormatter) FormatPosts(w io.Writer, posts []post.Post) error {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts stored.")
		return nil
	}

	t := f.newTable(w)
	t.AppendHeader(table.Row{"ID", "Message", "Images", "Text"})
	for _, p := range posts {
		msg := post.Deref(p.MessageID)
		if msg == "" {
			msg = "-"
		}
		t.AppendRow(table.Row{
			p.ID,
			msg,
			fmt.Sprintf("%d/%d", sentImages(p), len(p.Images)),
			headline(p.Text, terminalTextWidth),
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d posts", len(posts))})
	t.Render()
	return nil
}

func (f *TerminalFormatter) newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if f.color {
		t.SetStyle(table.StyleColoredDark)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

// ANSI helpers, no-op when color=false.

func (f *TerminalFormatter) wrap(code, s string) string {
	if !f.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (f *TerminalFormatter) bold(s string) string   { return f.wrap("1", s) }
func (f *TerminalFormatter) green(s string) string  { return f.wrap("32", s) }
func (f *TerminalFormatter) yellow(s string) string { return f.wrap("33", s) }
func (f *TerminalFormatter) red(s string) string    { return f.wrap("31", s) }
func (f *TerminalFormatter) dim(s string) string    { return f.wrap("2", s) }
