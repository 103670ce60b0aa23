package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile    = "config.yaml"
	DefaultStorageDriver = "sqlite"
	DefaultStoragePath   = ".postrelay/postrelay.db"
	DefaultTokenEnv      = "TG_TOKEN"
	DefaultChatIDEnv     = "TG_CHAT_ID"
	DefaultTableEnv      = "TABLE_NAME"
	DefaultUserAgent     = "postrelay/1.0"
	DefaultFetchTimeout  = 30 * time.Second
	DefaultPace          = 500 * time.Millisecond
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,62}$`)

// Duration wraps time.Duration for YAML unmarshaling from strings like "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Sources  SourcesConfig  `yaml:"sources"`
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Relay    RelayConfig    `yaml:"relay"`
}

type SourcesConfig struct {
	Facebook FacebookConfig `yaml:"facebook"`
	RSS      RSSConfig      `yaml:"rss"`

	// StripPatterns are regexps removed from every candidate's text.
	StripPatterns []string `yaml:"strip_patterns"`
}

type FacebookConfig struct {
	Pages     []string `yaml:"pages"`
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
}

type RSSConfig struct {
	Feeds []string `yaml:"feeds"`
}

type TelegramConfig struct {
	TokenEnv    string `yaml:"token_env"`
	ChatID      string `yaml:"chat_id"`
	ChatIDEnv   string `yaml:"chat_id_env"`
	APIEndpoint string `yaml:"api_endpoint"`

	// DisableNotification sends messages silently. Defaults to true.
	DisableNotification *bool `yaml:"disable_notification"`

	// Resolved from env var at load time.
	Token string `yaml:"-"`
}

// Silent reports whether messages should be sent without a notification.
func (t TelegramConfig) Silent() bool {
	return t.DisableNotification == nil || *t.DisableNotification
}

type StorageConfig struct {
	Driver   string `yaml:"driver"` // sqlite or badger
	Path     string `yaml:"path"`
	Table    string `yaml:"table"`
	TableEnv string `yaml:"table_env"`
}

type RelayConfig struct {
	// Pace is the minimum delay between two reconciled posts.
	Pace Duration `yaml:"pace"`
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.TableEnv == "" {
		cfg.Storage.TableEnv = DefaultTableEnv
	}
	if cfg.Telegram.TokenEnv == "" {
		cfg.Telegram.TokenEnv = DefaultTokenEnv
	}
	if cfg.Telegram.ChatIDEnv == "" {
		cfg.Telegram.ChatIDEnv = DefaultChatIDEnv
	}
	if cfg.Sources.Facebook.UserAgent == "" {
		cfg.Sources.Facebook.UserAgent = DefaultUserAgent
	}
	if cfg.Sources.Facebook.Timeout.Duration == 0 {
		cfg.Sources.Facebook.Timeout.Duration = DefaultFetchTimeout
	}
	if cfg.Relay.Pace.Duration == 0 {
		cfg.Relay.Pace.Duration = DefaultPace
	}
}

func resolveEnv(cfg *Config) {
	cfg.Telegram.Token = os.Getenv(cfg.Telegram.TokenEnv)
	if cfg.Telegram.ChatID == "" {
		cfg.Telegram.ChatID = os.Getenv(cfg.Telegram.ChatIDEnv)
	}
	if cfg.Storage.Table == "" {
		cfg.Storage.Table = os.Getenv(cfg.Storage.TableEnv)
	}
}

func validate(cfg *Config) error {
	if len(cfg.Sources.Facebook.Pages) == 0 && len(cfg.Sources.RSS.Feeds) == 0 {
		return errors.New("sources: at least one source must be configured")
	}
	for _, page := range cfg.Sources.Facebook.Pages {
		if err := validateURL(page); err != nil {
			return fmt.Errorf("sources.facebook.pages: %w", err)
		}
	}
	for _, feed := range cfg.Sources.RSS.Feeds {
		if err := validateURL(feed); err != nil {
			return fmt.Errorf("sources.rss.feeds: %w", err)
		}
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token: missing (set %s)", cfg.Telegram.TokenEnv)
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		return fmt.Errorf("telegram.chat_id: missing (set chat_id or %s)", cfg.Telegram.ChatIDEnv)
	}
	if cfg.Telegram.APIEndpoint != "" && !strings.Contains(cfg.Telegram.APIEndpoint, "%s") {
		return fmt.Errorf("telegram.api_endpoint: %q must contain %%s placeholders for token and method", cfg.Telegram.APIEndpoint)
	}

	if strings.TrimSpace(cfg.Storage.Table) == "" {
		return fmt.Errorf("storage.table: missing (set table or %s)", cfg.Storage.TableEnv)
	}
	if !tableNameRe.MatchString(cfg.Storage.Table) {
		return fmt.Errorf("storage.table: invalid name %q (letters, digits, '_' and '-' only)", cfg.Storage.Table)
	}

	switch cfg.Storage.Driver {
	case "sqlite", "badger":
		// valid
	default:
		return fmt.Errorf("storage.driver: unknown driver %q (want sqlite or badger)", cfg.Storage.Driver)
	}

	if cfg.Relay.Pace.Duration < 0 {
		return fmt.Errorf("relay.pace: must not be negative, got %s", cfg.Relay.Pace.Duration)
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: host is required", raw)
	}
	return nil
}
