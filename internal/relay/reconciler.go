// Package relay reconciles candidate posts against the store and mirrors new
// and changed posts to the channel.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ppiankov/postrelay/internal/notify"
	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/source"
	"github.com/ppiankov/postrelay/internal/store"
)

// Action is the outcome of reconciling one candidate.
type Action int

const (
	ActionUnchanged Action = iota
	ActionSent
	ActionUpdated
)

func (a Action) String() string {
	switch a {
	case ActionSent:
		return "sent"
	case ActionUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Config wires a Reconciler to its collaborators.
type Config struct {
	Sources  []source.Source
	Store    store.Store
	Notifier notify.Notifier

	// Pace is the minimum delay between two candidates. Zero disables pacing.
	Pace time.Duration

	Logger *slog.Logger
}

// Reconciler runs the lookup-compare-act cycle for each candidate post.
type Reconciler struct {
	sources  []source.Source
	store    store.Store
	notifier notify.Notifier
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New validates cfg and returns a Reconciler.
func New(cfg Config) (*Reconciler, error) {
	if cfg.Store == nil {
		return nil, errors.New("relay: store is required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("relay: notifier is required")
	}
	if cfg.Pace < 0 {
		return nil, errors.New("relay: pace must not be negative")
	}

	limit := rate.Inf
	if cfg.Pace > 0 {
		limit = rate.Every(cfg.Pace)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Reconciler{
		sources:  cfg.Sources,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}, nil
}

// Run fetches every source in order, then reconciles all candidates in the
// order they were fetched. It stops at the first fetch, lookup, send or
// write error; edit failures are logged and counted in the summary.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := r.logger.With("run_id", sum.RunID)

	var candidates []post.Post
	for _, src := range r.sources {
		posts, err := src.Fetch(ctx)
		if err != nil {
			sum.Duration = time.Since(sum.StartedAt)
			return sum, &FetchError{Source: src.Name(), Err: err}
		}
		logger.Debug("fetched candidates", "source", src.Name(), "count", len(posts))
		sum.Sources = append(sum.Sources, SourceCount{Name: src.Name(), Candidates: len(posts)})
		candidates = append(candidates, posts...)
	}

	for _, candidate := range candidates {
		if err := r.limiter.Wait(ctx); err != nil {
			sum.Duration = time.Since(sum.StartedAt)
			return sum, err
		}

		action, editFailures, err := r.reconcile(ctx, logger, candidate)
		sum.EditFailures += editFailures
		if err != nil {
			sum.Duration = time.Since(sum.StartedAt)
			return sum, err
		}
		sum.record(candidate.ID, action)
	}

	sum.Duration = time.Since(sum.StartedAt)
	logger.Info("run complete",
		"sent", sum.Sent,
		"updated", sum.Updated,
		"unchanged", sum.Unchanged,
		"edit_failures", sum.EditFailures,
		"duration", sum.Duration,
	)
	return sum, nil
}

// Reconcile processes a single candidate.
func (r *Reconciler) Reconcile(ctx context.Context, candidate post.Post) (Action, error) {
	action, _, err := r.reconcile(ctx, r.logger, candidate)
	return action, err
}

func (r *Reconciler) reconcile(ctx context.Context, logger *slog.Logger, candidate post.Post) (Action, int, error) {
	logger = logger.With("post_id", candidate.ID)

	stored, err := r.store.Get(ctx, candidate.ID)
	if err != nil {
		return ActionUnchanged, 0, &LookupError{PostID: candidate.ID, Err: err}
	}
	if stored == nil {
		return r.sendNew(ctx, logger, candidate)
	}
	return r.update(ctx, logger, *stored, candidate)
}

func (r *Reconciler) sendNew(ctx context.Context, logger *slog.Logger, candidate post.Post) (Action, int, error) {
	next := candidate.Clone()
	next.MessageID = nil

	if next.Text != "" {
		id, err := r.notifier.SendText(ctx, next.Text)
		if err != nil {
			return ActionUnchanged, 0, &SendError{PostID: next.ID, Err: err}
		}
		next.MessageID = post.StringPtr(id)
	}

	for i := range next.Images {
		id, err := r.notifier.SendImage(ctx, next.Images[i].URL)
		if err != nil {
			return ActionUnchanged, 0, &SendError{PostID: next.ID, Err: err}
		}
		next.Images[i].MessageID = post.StringPtr(id)
	}

	if err := r.store.Put(ctx, next); err != nil {
		return ActionUnchanged, 0, &WriteError{PostID: next.ID, Err: err}
	}

	logger.Info("post sent", "images", len(next.Images), "message_id", post.Deref(next.MessageID))
	return ActionSent, 0, nil
}

func (r *Reconciler) update(ctx context.Context, logger *slog.Logger, stored, candidate post.Post) (Action, int, error) {
	next := candidate.Clone()
	next.MessageID = cloneID(stored.MessageID)
	changed := false
	editFailures := 0

	if stored.Text != next.Text {
		changed = true
		switch {
		case next.Text == "":
			logger.Warn("text removed upstream, keeping channel message")
		case stored.MessageID == nil:
			logger.Warn("text changed but no text message was sent, skipping edit")
		default:
			if err := r.notifier.EditText(ctx, *stored.MessageID, next.Text); err != nil {
				editFailures++
				logger.Error("edit text failed", "error", &EditError{PostID: next.ID, MessageID: *stored.MessageID, Err: err})
			} else {
				logger.Info("text edited", "message_id", *stored.MessageID)
			}
		}
	}

	overlap := min(len(stored.Images), len(next.Images))
	for i := range next.Images {
		next.Images[i].MessageID = nil
	}
	for i := 0; i < overlap; i++ {
		was := stored.Images[i]
		next.Images[i].MessageID = cloneID(was.MessageID)
		if was.URL == next.Images[i].URL {
			continue
		}

		changed = true
		if was.MessageID == nil {
			logger.Warn("image changed but was never sent, skipping edit", "index", i)
			continue
		}
		if err := r.notifier.EditImage(ctx, *was.MessageID, next.Images[i].URL); err != nil {
			editFailures++
			logger.Error("edit image failed", "index", i, "error", &EditError{PostID: next.ID, MessageID: *was.MessageID, Err: err})
			continue
		}
		logger.Info("image edited", "index", i, "message_id", *was.MessageID)
	}
	if len(stored.Images) != len(next.Images) {
		logger.Debug("image count differs, extra images are not reconciled",
			"stored", len(stored.Images), "candidate", len(next.Images))
	}

	if !changed {
		return ActionUnchanged, editFailures, nil
	}
	if err := r.store.Put(ctx, next); err != nil {
		return ActionUnchanged, editFailures, &WriteError{PostID: next.ID, Err: err}
	}
	return ActionUpdated, editFailures, nil
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	return post.StringPtr(*id)
}
