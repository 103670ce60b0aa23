package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/postrelay/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config.yaml",
	RunE:  initAction,
}

func initAction(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(out, configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}

	if !wrote {
		fmt.Fprintf(out, "Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Fprintf(out, "Initialized %s. Set %s, %s and %s before the first run.\n",
			configDir, config.DefaultTokenEnv, config.DefaultChatIDEnv, config.DefaultTableEnv)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(w io.Writer, path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# postrelay configuration

sources:
  facebook:
    pages:
      - "https://www.facebook.com/your.page/posts/"
    # user_agent: "postrelay/1.0"
    # timeout: 30s
  rss:
    feeds: []
    # - "https://example.com/feed.xml"
  # Regular expressions removed from every post text.
  strip_patterns: []

telegram:
  token_env: TG_TOKEN
  # chat_id: "@your_channel"
  chat_id_env: TG_CHAT_ID
  disable_notification: true

storage:
  driver: sqlite # or badger (path is then a directory)
  path: .postrelay/postrelay.db
  # table: posts
  table_env: TABLE_NAME

relay:
  pace: 500ms
`
