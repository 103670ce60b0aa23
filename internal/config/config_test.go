package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestYAML(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
	return path
}

// setRequiredEnv provides the three settings every valid config needs.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(DefaultTokenEnv, "123:abc")
	t.Setenv(DefaultChatIDEnv, "@relay_channel")
	t.Setenv(DefaultTableEnv, "posts-dev")
}

const minimalConfig = `
sources:
  facebook:
    pages:
      - "https://www.facebook.com/pg/kantineKliversala/posts/"
`

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_TG_TOKEN", "42:secret")
	t.Setenv("TEST_TABLE", "ignored-because-yaml-wins")

	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  facebook:
    pages:
      - "https://www.facebook.com/pg/kantineKliversala/posts/"
    user_agent: rusty
    timeout: 10s
  rss:
    feeds:
      - "https://example.com/feed.xml"
  strip_patterns:
    - "(?i)see more"
telegram:
  token_env: TEST_TG_TOKEN
  chat_id: "900963193"
  api_endpoint: "http://localhost:8081/bot%s/%s"
  disable_notification: false
storage:
  driver: badger
  path: custom.db
  table: posts
  table_env: TEST_TABLE
relay:
  pace: 2s
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Sources
	if len(cfg.Sources.Facebook.Pages) != 1 {
		t.Errorf("facebook pages = %v", cfg.Sources.Facebook.Pages)
	}
	if cfg.Sources.Facebook.UserAgent != "rusty" {
		t.Errorf("user_agent = %q, want rusty", cfg.Sources.Facebook.UserAgent)
	}
	if cfg.Sources.Facebook.Timeout.Duration != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.Sources.Facebook.Timeout.Duration)
	}
	if len(cfg.Sources.RSS.Feeds) != 1 {
		t.Errorf("rss feeds = %v", cfg.Sources.RSS.Feeds)
	}
	if len(cfg.Sources.StripPatterns) != 1 {
		t.Errorf("strip patterns = %v", cfg.Sources.StripPatterns)
	}

	// Telegram
	if cfg.Telegram.Token != "42:secret" {
		t.Errorf("token = %q, want 42:secret", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != "900963193" {
		t.Errorf("chat_id = %q", cfg.Telegram.ChatID)
	}
	if cfg.Telegram.APIEndpoint != "http://localhost:8081/bot%s/%s" {
		t.Errorf("api_endpoint = %q", cfg.Telegram.APIEndpoint)
	}
	if cfg.Telegram.Silent() {
		t.Error("Silent() = true, want false")
	}

	// Storage
	if cfg.Storage.Driver != "badger" {
		t.Errorf("driver = %q, want badger", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "custom.db" {
		t.Errorf("storage path = %q, want custom.db", cfg.Storage.Path)
	}
	if cfg.Storage.Table != "posts" {
		t.Errorf("table = %q, want posts", cfg.Storage.Table)
	}

	// Relay
	if cfg.Relay.Pace.Duration != 2*time.Second {
		t.Errorf("pace = %v, want 2s", cfg.Relay.Pace.Duration)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Storage.Driver != DefaultStorageDriver {
		t.Errorf("storage.driver = %q, want %q", cfg.Storage.Driver, DefaultStorageDriver)
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("storage.path = %q, want %q", cfg.Storage.Path, DefaultStoragePath)
	}
	if cfg.Sources.Facebook.UserAgent != DefaultUserAgent {
		t.Errorf("user_agent = %q, want %q", cfg.Sources.Facebook.UserAgent, DefaultUserAgent)
	}
	if cfg.Sources.Facebook.Timeout.Duration != DefaultFetchTimeout {
		t.Errorf("timeout = %v, want %v", cfg.Sources.Facebook.Timeout.Duration, DefaultFetchTimeout)
	}
	if cfg.Relay.Pace.Duration != DefaultPace {
		t.Errorf("pace = %v, want %v", cfg.Relay.Pace.Duration, DefaultPace)
	}
	if !cfg.Telegram.Silent() {
		t.Error("Silent() = false, want true by default")
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != "@relay_channel" {
		t.Errorf("chat_id = %q", cfg.Telegram.ChatID)
	}
	if cfg.Storage.Table != "posts-dev" {
		t.Errorf("table = %q", cfg.Storage.Table)
	}
}

func TestLoad_MissingRequiredSettings(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{"token", DefaultTokenEnv, "telegram.token"},
		{"chat id", DefaultChatIDEnv, "telegram.chat_id"},
		{"table", DefaultTableEnv, "storage.table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")
			writeTestYAML(t, dir, DefaultConfigFile, minimalConfig)

			_, err := Load(dir)
			if err == nil {
				t.Fatalf("expected error when %s is unset", tt.unset)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.unset) {
				t.Errorf("error = %q, should name env var %s", err, tt.unset)
			}
		})
	}
}

func TestLoad_NoSources(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  facebook:
    pages: []
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for no sources")
	}
	if want := "at least one source must be configured"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_RSSOnly(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  rss:
    feeds:
      - "https://example.com/feed.xml"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources.RSS.Feeds) != 1 {
		t.Errorf("rss feeds = %v, want 1 feed", cfg.Sources.RSS.Feeds)
	}
	if len(cfg.Sources.Facebook.Pages) != 0 {
		t.Errorf("facebook pages = %v, want empty", cfg.Sources.Facebook.Pages)
	}
}

func TestLoad_InvalidPageURL(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  facebook:
    pages: ["ftp://example.com/page"]
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for ftp page url")
	}
	if want := "sources.facebook.pages"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidTableName(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	t.Setenv(DefaultTableEnv, `posts"; DROP TABLE x; --`)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for invalid table name")
	}
	if want := "invalid name"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig+`
storage:
  driver: dynamodb
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if want := "unknown driver"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidAPIEndpoint(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig+`
telegram:
  api_endpoint: "http://localhost:8081/"
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for endpoint without placeholders")
	}
	if want := "telegram.api_endpoint"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_NegativePace(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig+`
relay:
  pace: -1s
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for negative pace")
	}
	if want := "relay.pace"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t)
	writeTestYAML(t, dir, DefaultConfigFile, minimalConfig+`
relay:
  pace: soon
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for unparseable duration")
	}
	if want := "parse config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if want := "read config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `{{{invalid`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	if want := "parse config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for empty dir")
	}
}
