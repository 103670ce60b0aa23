package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/relay"
)

type jsonRun struct {
	RunID        string              `json:"run_id"`
	StartedAt    string              `json:"started_at"`
	Duration     string              `json:"duration"`
	Sources      []relay.SourceCount `json:"sources"`
	Sent         int                 `json:"sent"`
	Updated      int                 `json:"updated"`
	Unchanged    int                 `json:"unchanged"`
	EditFailures int                 `json:"edit_failures"`
	SentIDs      []string            `json:"sent_ids,omitempty"`
	UpdatedIDs   []string            `json:"updated_ids,omitempty"`
}

type jsonPost struct {
	ID        string      `json:"id"`
	Text      string      `json:"text,omitempty"`
	MessageID *string     `json:"message_id"`
	Images    []jsonImage `json:"images,omitempty"`
}

type jsonImage struct {
	URL       string  `json:"url"`
	MessageID *string `json:"message_id"`
}

// JSONFormatter writes machine-readable output.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatRun(w io.Writer, sum relay.Summary) error {
	sources := sum.Sources
	if sources == nil {
		sources = []relay.SourceCount{}
	}
	return encode(w, jsonRun{
		RunID:        sum.RunID,
		StartedAt:    sum.StartedAt.UTC().Format(time.RFC3339),
		Duration:     sum.Duration.String(),
		Sources:      sources,
		Sent:         sum.Sent,
		Updated:      sum.Updated,
		Unchanged:    sum.Unchanged,
		EditFailures: sum.EditFailures,
		SentIDs:      sum.SentIDs,
		UpdatedIDs:   sum.UpdatedIDs,
	})
}

func (f *JSONFormatter) FormatPosts(w io.Writer, posts []post.Post) error {
	out := make([]jsonPost, 0, len(posts))
	for _, p := range posts {
		jp := jsonPost{ID: p.ID, Text: p.Text, MessageID: p.MessageID}
		for _, img := range p.Images {
			jp.Images = append(jp.Images, jsonImage{URL: img.URL, MessageID: img.MessageID})
		}
		out = append(out, jp)
	}
	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
