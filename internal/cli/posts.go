package cli

import (
	"fmt"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/ppiankov/postrelay/internal/report"
	"github.com/spf13/cobra"
)

var postsFormat string

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List posts recorded in the store",
	RunE:  postsAction,
}

func init() {
	postsCmd.Flags().StringVar(&postsFormat, "format", "", "output format: terminal, json, markdown")
	postsCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
}

func postsAction(cmd *cobra.Command, _ []string) error {
	formatter, err := report.New(postsFormat, !noColor)
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

	posts, err := db.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan posts: %w", err)
	}

	return formatter.FormatPosts(cmd.OutOrStdout(), posts)
}
