package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string            `yaml:"log_level"`
	Server     ServerConfig      `yaml:"server"`
	Limits     LimitsConfig      `yaml:"limits"`
	Fetch      FetchConfig       `yaml:"fetch"`
	Model      ModelConfig       `yaml:"model"`
	Digest     DigestConfig      `yaml:"digest"`
	Publishers []PublisherConfig `yaml:"publishers"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RequestTimeout bounds a whole /summarize call. Zero disables the deadline.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LimitsConfig struct {
	MaxFeeds          int `yaml:"max_feeds"`
	MaxEntriesPerFeed int `yaml:"max_entries_per_feed"`
	MaxArticles       int `yaml:"max_articles"`
	MaxContentChars   int `yaml:"max_content_chars"`
	MaxDigestInputs   int `yaml:"max_digest_inputs"`
	Workers           int `yaml:"workers"`
}

type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type ModelConfig struct {
	// Provider selects the backend: gemini or anthropic.
	Provider         string  `yaml:"provider"`
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Name             string  `yaml:"name"`
	ArticleMaxTokens int     `yaml:"article_max_tokens"`
	DigestMaxTokens  int     `yaml:"digest_max_tokens"`
	Temperature      float32 `yaml:"temperature"`
	FallbackOnError  bool    `yaml:"fallback_on_error"`
	Retries          int     `yaml:"retries"`
	// Timeout bounds each model call attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// DigestConfig drives the scheduled push-digest mode.
type DigestConfig struct {
	Schedule   string   `yaml:"schedule"`
	Feeds      []string `yaml:"feeds"`
	RunOnStart bool     `yaml:"run_on_start"`
}

type PublisherConfig struct {
	Type    string        `yaml:"type"`
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
	Redis   RedisConfig   `yaml:"redis"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	ListKey  string `yaml:"list_key"`
	Keep     int64  `yaml:"keep"`
}

// ModelConfigured reports whether a remote model backend can be built.
func (c *Config) ModelConfigured() bool {
	return c.Model.APIKey != "" && !envVarRegex.MatchString(c.Model.APIKey)
}

// PushEnabled reports whether the scheduled digest should run.
func (c *Config) PushEnabled() bool {
	return c.Digest.Schedule != ""
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// applyEnv lets plain environment variables override the file.
func applyEnv(cfg *Config) error {
	if v := firstEnv("GEMINI_API_KEY", "GENAI_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if cfg.Model.Provider == "anthropic" && cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if v := os.Getenv("GENAI_MODEL"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: PORT %q is not a number", v)
		}
		cfg.Server.Addr = ":" + v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_FEEDS", &cfg.Limits.MaxFeeds},
		{"MAX_ENTRIES_PER_FEED", &cfg.Limits.MaxEntriesPerFeed},
		{"MAX_ARTICLES", &cfg.Limits.MaxArticles},
		{"WORKERS", &cfg.Limits.Workers},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s %q is not a number", e.key, v)
		}
		*e.dst = n
	}
	if v := os.Getenv("DIGEST_SCHEDULE"); v != "" {
		cfg.Digest.Schedule = v
	}
	if v := os.Getenv("DIGEST_FEEDS"); v != "" {
		cfg.Digest.Feeds = splitList(v)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Limits.MaxFeeds == 0 {
		cfg.Limits.MaxFeeds = 10
	}
	if cfg.Limits.MaxEntriesPerFeed == 0 {
		cfg.Limits.MaxEntriesPerFeed = 5
	}
	if cfg.Limits.MaxArticles == 0 {
		cfg.Limits.MaxArticles = 30
	}
	if cfg.Limits.MaxContentChars == 0 {
		cfg.Limits.MaxContentChars = 6000
	}
	if cfg.Limits.MaxDigestInputs == 0 {
		cfg.Limits.MaxDigestInputs = 50
	}
	if cfg.Limits.Workers == 0 {
		cfg.Limits.Workers = 5
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 10 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "feed-digest/1.0 (+https://github.com/ryosukesatoh/feed-digest)"
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "gemini"
	}
	if cfg.Model.Name == "" {
		switch cfg.Model.Provider {
		case "anthropic":
			cfg.Model.Name = "claude-sonnet-4-20250514"
		default:
			cfg.Model.Name = "gemini-2.5-pro"
		}
	}
	if cfg.Model.ArticleMaxTokens == 0 {
		cfg.Model.ArticleMaxTokens = 120
	}
	if cfg.Model.DigestMaxTokens == 0 {
		cfg.Model.DigestMaxTokens = 350
	}
	if cfg.Model.Retries == 0 {
		cfg.Model.Retries = 2
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 30 * time.Second
	}
	for i := range cfg.Publishers {
		p := &cfg.Publishers[i]
		if p.Email.SMTPPort == 0 {
			p.Email.SMTPPort = 587
		}
		if p.Redis.Addr == "" {
			p.Redis.Addr = "localhost:6379"
		}
		if p.Redis.Channel == "" {
			p.Redis.Channel = "feed-digest:digests"
		}
		if p.Redis.ListKey == "" {
			p.Redis.ListKey = "feed-digest:history"
		}
		if p.Redis.Keep == 0 {
			p.Redis.Keep = 20
		}
	}
	if cfg.PushEnabled() && len(cfg.Publishers) == 0 {
		cfg.Publishers = []PublisherConfig{{Type: "stdout"}}
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unsupported log_level %q (supported: debug, info, warn, error)", cfg.LogLevel)
	}
	limits := []struct {
		name string
		val  int
	}{
		{"limits.max_feeds", cfg.Limits.MaxFeeds},
		{"limits.max_entries_per_feed", cfg.Limits.MaxEntriesPerFeed},
		{"limits.max_articles", cfg.Limits.MaxArticles},
		{"limits.max_content_chars", cfg.Limits.MaxContentChars},
		{"limits.max_digest_inputs", cfg.Limits.MaxDigestInputs},
		{"limits.workers", cfg.Limits.Workers},
	}
	for _, l := range limits {
		if l.val < 0 {
			return fmt.Errorf("config: %s must be positive, got %d", l.name, l.val)
		}
	}
	if cfg.Fetch.Timeout < 0 {
		return fmt.Errorf("config: fetch.timeout must be positive")
	}
	switch cfg.Model.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("config: unsupported model.provider %q (supported: gemini, anthropic)", cfg.Model.Provider)
	}
	if cfg.Model.Retries < 0 {
		return fmt.Errorf("config: model.retries must not be negative")
	}
	if cfg.Model.Timeout < 0 {
		return fmt.Errorf("config: model.timeout must be positive")
	}
	if cfg.PushEnabled() {
		if _, err := cron.ParseStandard(cfg.Digest.Schedule); err != nil {
			return fmt.Errorf("config: invalid digest.schedule %q: %w", cfg.Digest.Schedule, err)
		}
		if len(cfg.Digest.Feeds) == 0 {
			return errors.New("config: digest.feeds is required when digest.schedule is set")
		}
	}
	for i, p := range cfg.Publishers {
		if err := validatePublisher(p); err != nil {
			return fmt.Errorf("config: publishers[%d]: %w", i, err)
		}
	}
	return nil
}

func validatePublisher(p PublisherConfig) error {
	switch p.Type {
	case "stdout", "web":
	case "discord":
		if p.Discord.WebhookURL == "" {
			return errors.New("discord.webhook_url is required for discord publisher")
		}
	case "email":
		if p.Email.SMTPHost == "" {
			return errors.New("email.smtp_host is required for email publisher")
		}
		if len(p.Email.To) == 0 {
			return errors.New("email.to is required for email publisher")
		}
		if p.Email.From == "" {
			return errors.New("email.from is required for email publisher")
		}
	case "redis":
		if p.Redis.Channel == "" && p.Redis.ListKey == "" {
			return errors.New("redis.channel or redis.list_key is required for redis publisher")
		}
	default:
		return fmt.Errorf("unsupported publisher type %q (supported: stdout, web, discord, email, redis)", p.Type)
	}
	return nil
}

// Load reads the optional config file, expands environment variables,
// applies environment overrides and defaults, and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
