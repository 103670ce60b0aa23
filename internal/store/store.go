// Package store persists relayed posts keyed by post id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/postrelay/internal/post"
)

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

var errNotInitialized = errors.New("store is not initialized")

// Store is a key-value collection of posts keyed by post id.
type Store interface {
	// Get returns the stored post, or (nil, nil) when no record exists.
	Get(ctx context.Context, id string) (*post.Post, error)
	// Put inserts or fully replaces the record for p.ID.
	Put(ctx context.Context, p post.Post) error
	// Scan returns every stored post ordered by id.
	Scan(ctx context.Context) ([]post.Post, error)
	// Delete removes the record for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver string // sqlite (default) or badger
	Path   string
	Table  string
}

// Open opens the backend named by opts.Driver.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		st, err := OpenSQLite(opts.Path, opts.Table)
		if err != nil {
			return nil, err
		}
		return st, nil
	case DriverBadger:
		st, err := OpenBadger(opts.Path, opts.Table)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// record is the persisted shape of a post. Images and ImageIDs are parallel:
// ImageIDs[i] belongs to Images[i] and is null until that image is sent.
type record struct {
	ID        string    `json:"id"`
	Text      *string   `json:"text,omitempty"`
	MessageID *string   `json:"message_id,omitempty"`
	Images    []string  `json:"images"`
	ImageIDs  []*string `json:"image_ids"`
}

func toRecord(p post.Post) record {
	rec := record{
		ID:        p.ID,
		MessageID: p.MessageID,
		Images:    make([]string, len(p.Images)),
		ImageIDs:  make([]*string, len(p.Images)),
	}
	if p.Text != "" {
		rec.Text = post.StringPtr(p.Text)
	}
	for i, img := range p.Images {
		rec.Images[i] = img.URL
		rec.ImageIDs[i] = img.MessageID
	}
	return rec
}

func (r record) post() (post.Post, error) {
	if len(r.ImageIDs) > len(r.Images) {
		return post.Post{}, fmt.Errorf("post %s: %d image ids for %d images", r.ID, len(r.ImageIDs), len(r.Images))
	}
	p := post.Post{
		ID:        r.ID,
		Text:      post.Deref(r.Text),
		MessageID: r.MessageID,
	}
	if len(r.Images) > 0 {
		p.Images = make([]post.Image, len(r.Images))
		for i, url := range r.Images {
			p.Images[i].URL = url
			if i < len(r.ImageIDs) {
				p.Images[i].MessageID = r.ImageIDs[i]
			}
		}
	}
	return p, nil
}

func decodeRecord(data []byte) (post.Post, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return post.Post{}, fmt.Errorf("decode record: %w", err)
	}
	return rec.post()
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("post id is required")
	}
	return nil
}
