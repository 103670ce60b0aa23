package cli

import (
	"fmt"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/ppiankov/postrelay/internal/notify"
	"github.com/spf13/cobra"
)

var purgeDeleteMessages bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored record, optionally with its channel messages",
	RunE:  purgeAction,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeDeleteMessages, "delete-messages", false, "also delete the relayed messages from the chat")
}

func purgeAction(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var deleter notify.Deleter
	if purgeDeleteMessages {
		tg, err := newTelegram(cfg, logger)
		if err != nil {
			return err
		}
		deleter = tg
	}

	ctx := cmd.Context()
	posts, err := db.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan posts: %w", err)
	}

	purged, deleted, failed := 0, 0, 0
	for _, p := range posts {
		// A record is kept while any of its messages survive, so a later purge can retry.
		kept := false
		if deleter != nil {
			for _, id := range p.MessageIDs() {
				if err := deleter.Delete(ctx, id); err != nil {
					logger.Warn("delete message failed", "post_id", p.ID, "message_id", id, "error", err)
					failed++
					kept = true
					continue
				}
				deleted++
			}
		}
		if kept {
			continue
		}
		if err := db.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete post %s: %w", p.ID, err)
		}
		purged++
	}

	out := cmd.OutOrStdout()
	if purgeDeleteMessages {
		fmt.Fprintf(out, "Purged %d posts, deleted %d messages.\n", purged, deleted)
	} else {
		fmt.Fprintf(out, "Purged %d posts.\n", purged)
	}
	if failed > 0 {
		return fmt.Errorf("%d messages could not be deleted", failed)
	}
	return nil
}
