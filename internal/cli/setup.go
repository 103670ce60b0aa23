package cli

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/ppiankov/postrelay/internal/notify"
	"github.com/ppiankov/postrelay/internal/source"
	"github.com/ppiankov/postrelay/internal/store"
	"github.com/ppiankov/postrelay/internal/textclean"
)

// buildSources creates every configured source: one per page, then one for all feeds.
func buildSources(cfg *config.Config) ([]source.Source, error) {
	strip, err := textclean.Compile(cfg.Sources.StripPatterns)
	if err != nil {
		return nil, fmt.Errorf("compile strip patterns: %w", err)
	}

	var sources []source.Source
	for _, page := range cfg.Sources.Facebook.Pages {
		fb, err := source.NewFacebook(page, source.FacebookOptions{
			UserAgent:     cfg.Sources.Facebook.UserAgent,
			Timeout:       cfg.Sources.Facebook.Timeout.Duration,
			StripPatterns: strip,
		})
		if err != nil {
			return nil, fmt.Errorf("create facebook source: %w", err)
		}
		sources = append(sources, fb)
	}

	if len(cfg.Sources.RSS.Feeds) > 0 {
		rs, err := source.NewFeed(cfg.Sources.RSS.Feeds, source.FeedOptions{StripPatterns: strip})
		if err != nil {
			return nil, fmt.Errorf("create rss source: %w", err)
		}
		sources = append(sources, rs)
	}

	return sources, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	db, err := store.Open(store.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		Table:  cfg.Storage.Table,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func newTelegram(cfg *config.Config, logger *slog.Logger) (*notify.Telegram, error) {
	tg, err := notify.NewTelegram(notify.TelegramConfig{
		Token:       cfg.Telegram.Token,
		ChatID:      cfg.Telegram.ChatID,
		APIEndpoint: cfg.Telegram.APIEndpoint,
		Silent:      cfg.Telegram.Silent(),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram notifier: %w", err)
	}
	return tg, nil
}
