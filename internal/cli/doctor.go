package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/ppiankov/postrelay/internal/store"
	"github.com/spf13/cobra"
)

const doctorTimeout = 30 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config, store, Telegram token and source reachability",
	RunE:  doctorAction,
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(out, false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(out, true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(out, false, "config.yaml: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(out, true, "config.yaml (%d facebook pages, %d rss feeds)",
		len(cfg.Sources.Facebook.Pages), len(cfg.Sources.RSS.Feeds))

	ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
	defer cancel()

	// Store
	var db store.Store
	db, err = openStore(cfg)
	if err != nil {
		printCheck(out, false, "store: %v", err)
		ok = false
	} else {
		defer func() { _ = db.Close() }()
		posts, err := db.Scan(ctx)
		if err != nil {
			printCheck(out, false, "store %s %s: %v", cfg.Storage.Driver, cfg.Storage.Path, err)
			ok = false
		} else {
			printCheck(out, true, "store %s %s (table %s, %d posts)",
				cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.Table, len(posts))
		}
	}

	// Telegram
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	tg, err := newTelegram(cfg, logger)
	if err != nil {
		printCheck(out, false, "telegram: %v", err)
		ok = false
	} else if name, err := tg.Me(ctx); err != nil {
		printCheck(out, false, "telegram token: %v", err)
		ok = false
	} else {
		printCheck(out, true, "telegram bot @%s, chat %s", name, cfg.Telegram.ChatID)
	}

	// Sources
	sources, err := buildSources(cfg)
	if err != nil {
		printCheck(out, false, "sources: %v", err)
		ok = false
	}
	for _, src := range sources {
		posts, err := src.Fetch(ctx)
		if err != nil {
			printCheck(out, false, "%s: %v", src.Name(), err)
			ok = false
			continue
		}
		printCheck(out, true, "%s (%d posts)", src.Name(), len(posts))
		if len(posts) == 0 {
			printInfo(out, "%s returned no posts; the page layout may have changed", src.Name())
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return nil
}

func printCheck(w io.Writer, pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "[INFO] %s\n", fmt.Sprintf(format, args...))
}
