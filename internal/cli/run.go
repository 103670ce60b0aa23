package cli

import (
	"fmt"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/ppiankov/postrelay/internal/relay"
	"github.com/ppiankov/postrelay/internal/report"
	"github.com/spf13/cobra"
)

var (
	runFormat string
	noColor   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Relay new and edited posts to the Telegram channel",
	RunE:  runAction,
}

func init() {
	runCmd.Flags().StringVar(&runFormat, "format", "", "output format: terminal, json, markdown")
	runCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
}

func runAction(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	formatter, err := report.New(runFormat, !noColor)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sources, err := buildSources(cfg)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tg, err := newTelegram(cfg, logger)
	if err != nil {
		return err
	}

	reconciler, err := relay.New(relay.Config{
		Sources:  sources,
		Store:    db,
		Notifier: tg,
		Pace:     cfg.Relay.Pace.Duration,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	sum, err := reconciler.Run(cmd.Context())
	if err != nil {
		logger.Error("run failed", "run_id", sum.RunID, "sent", sum.Sent, "updated", sum.Updated, "error", err)
		return fmt.Errorf("run: %w", err)
	}

	return formatter.FormatRun(cmd.OutOrStdout(), sum)
}
