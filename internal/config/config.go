// Package config loads the sentinel configuration from YAML, a .env file and
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"KumoSentinel/internal/logging"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Symbol string `yaml:"symbol" validate:"required"`

	DataSource struct {
		Provider string `yaml:"provider" validate:"oneof=yahoo rest polygon"`
		BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
		APIKey   string `yaml:"api_key"`
		Days     int    `yaml:"days" validate:"gte=78"`
	} `yaml:"data_source"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Polling  bool   `yaml:"polling"`
	} `yaml:"telegram"`
	Webhook struct {
		URL string `yaml:"url" validate:"omitempty,url"`
	} `yaml:"webhook"`
	Notify struct {
		Retries int `yaml:"retries" validate:"gte=0,lte=10"`
	} `yaml:"notify"`

	State struct {
		Backend       string `yaml:"backend" validate:"oneof=file sqlite redis memory"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
		Redis         struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"gte=0"`
			Hash     string `yaml:"hash"`
		} `yaml:"redis"`
	} `yaml:"state"`

	Output struct {
		Paths         []string `yaml:"paths" validate:"min=1,dive,required"`
		HistoryWindow int      `yaml:"history_window" validate:"gte=1"`
	} `yaml:"output"`

	Schedule struct {
		Cron       string `yaml:"cron" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	Log   logging.Config `yaml:"log"`
	Proxy string         `yaml:"proxy"`
}

// Path returns the config file to read: explicit flag, then CONFIG_PATH, then
// DefaultPath.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Log = logging.DefaultConfig()
	// Zero is a valid retry count, so the default is seeded before decoding.
	cfg.Notify.Retries = 3

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(&c.Symbol, "SYMBOL")
	setString(&c.DataSource.Provider, "DATA_PROVIDER")
	setString(&c.DataSource.BaseURL, "DATA_BASE_URL")
	setString(&c.DataSource.APIKey, "DATA_API_KEY", "POLYGON_API_KEY")
	setInt(&c.DataSource.Days, "DATA_DAYS")

	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Webhook.URL, "WEBHOOK_URL")
	setInt(&c.Notify.Retries, "NOTIFY_RETRIES")

	setString(&c.State.Backend, "STATE_BACKEND")
	setString(&c.State.Path, "STATE_PATH")
	setInt(&c.State.RetentionDays, "RETENTION_DAYS")
	setString(&c.State.Redis.Addr, "REDIS_ADDR")
	setString(&c.State.Redis.Password, "REDIS_PASSWORD")

	if v := os.Getenv("OUTPUT_PATHS"); v != "" {
		c.Output.Paths = splitList(v)
	}
	setInt(&c.Output.HistoryWindow, "HISTORY_WINDOW")

	setString(&c.Schedule.Cron, "CRON_SCHEDULE")
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart, _ = strconv.ParseBool(v)
	}
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Metrics.Textfile, "METRICS_TEXTFILE")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.FilePath, "LOG_FILE")
	setString(&c.Proxy, "HTTPS_PROXY")
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = "SPY"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Days == 0 {
		c.DataSource.Days = 250
	}
	if c.State.Backend == "" {
		c.State.Backend = "file"
	}
	if c.State.Path == "" {
		switch c.State.Backend {
		case "file":
			c.State.Path = "data/alerts.json"
		case "sqlite":
			c.State.Path = "data/alerts.db"
		}
	}
	if c.State.Redis.Hash == "" {
		c.State.Redis.Hash = "kumo:alerts"
	}
	if len(c.Output.Paths) == 0 {
		c.Output.Paths = []string{"public/data.json"}
	}
	if c.Output.HistoryWindow == 0 {
		c.Output.HistoryWindow = 60
	}
	if c.Schedule.Cron == "" {
		// Weekdays after the US close, in exchange time.
		c.Schedule.Cron = "CRON_TZ=America/New_York 0 30 16 * * 1-5"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/kumo_sentinel.db"
	}
}

// Validate checks field constraints and the combinations between them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.DataSource.Provider {
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	case "polygon":
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key is required for the polygon provider")
		}
	}
	switch c.State.Backend {
	case "file", "sqlite":
		if c.State.Path == "" {
			return fmt.Errorf("state.path is required for the %s backend", c.State.Backend)
		}
	case "redis":
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr is required for the redis backend")
		}
	}
	return nil
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
