package cli

import (
	"fmt"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <post-id>...",
	Short: "Delete stored records so the posts are relayed again",
	Args:  cobra.MinimumNArgs(1),
	RunE:  forgetAction,
}

func forgetAction(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	forgotten := 0
	for _, id := range args {
		p, err := db.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get post %s: %w", id, err)
		}
		if p == nil {
			fmt.Fprintf(out, "  unknown: %s\n", id)
			continue
		}
		if err := db.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete post %s: %w", id, err)
		}
		fmt.Fprintf(out, "  forgot: %s\n", id)
		forgotten++
	}

	fmt.Fprintf(out, "Forgot %d of %d posts.\n", forgotten, len(args))
	return nil
}
