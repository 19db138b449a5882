package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "RXIVSCANNER_CONFIG"
	apiBaseEnv          = "RXIV_API_BASE"
	apiServerEnv        = "RXIV_SERVER"
	baseDirEnv          = "RXIV_BASE_DIR"
	translatorURLEnv    = "TRANSLATOR_URL"
	translatorModelEnv  = "TRANSLATOR_MODEL"
	translatorAPIKeyEnv = "TRANSLATOR_API_KEY"
	databaseDSNEnv      = "DATABASE_DSN"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	API           APIConfig          `yaml:"api"`
	Translator    TranslatorConfig   `yaml:"translator"`
	Output        OutputConfig       `yaml:"output"`
	Batch         BatchConfig        `yaml:"batch"`
	Filter        FilterConfig       `yaml:"filter"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// APIConfig describes the preprint metadata API.
type APIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Server  string `yaml:"server"`
}

// TranslatorConfig defines how to contact the completion endpoint.
type TranslatorConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// OutputConfig locates the output tree.
type OutputConfig struct {
	BaseDir string `yaml:"baseDir"`
}

// BatchConfig defines the default date span of one run. The period preset
// is resolved by the pipeline.
type BatchConfig struct {
	StartDate string `yaml:"startDate"`
	Period    string `yaml:"period"`
}

// FilterConfig carries the default license and keyword rules.
type FilterConfig struct {
	LicensePreset string `yaml:"licensePreset"`
	RequireCC     bool   `yaml:"requireCc"`
	ExcludeBy     bool   `yaml:"excludeBy"`
	ExcludeNC     bool   `yaml:"excludeNc"`
	ExcludeND     bool   `yaml:"excludeNd"`
	ExcludeSA     bool   `yaml:"excludeSa"`
	Keywords      string `yaml:"keywords"`
	KeywordMode   string `yaml:"keywordMode"`
}

// DatabaseConfig describes the optional Postgres audit store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines recurring execution of the pipeline.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval string         `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// IntervalDuration parses the interval string, defaulting to 24h.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	if d, err := time.ParseDuration(s.Interval); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads `.env`, YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiBaseEnv); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(apiServerEnv); v != "" {
		c.API.Server = v
	}
	if v := os.Getenv(baseDirEnv); v != "" {
		c.Output.BaseDir = v
	}

	if v := os.Getenv(translatorURLEnv); v != "" {
		c.Translator.Endpoint = v
	}
	if v := os.Getenv(translatorModelEnv); v != "" {
		c.Translator.Model = v
	}
	if v := os.Getenv(translatorAPIKeyEnv); v != "" {
		c.Translator.APIKey = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.API.BaseURL != "" {
		base.API.BaseURL = override.API.BaseURL
	}
	if override.API.Server != "" {
		base.API.Server = override.API.Server
	}

	if override.Translator.Endpoint != "" {
		base.Translator.Endpoint = override.Translator.Endpoint
	}
	if override.Translator.Model != "" {
		base.Translator.Model = override.Translator.Model
	}
	if override.Translator.APIKey != "" {
		base.Translator.APIKey = override.Translator.APIKey
	}

	if override.Output.BaseDir != "" {
		base.Output.BaseDir = override.Output.BaseDir
	}

	if override.Batch.StartDate != "" {
		base.Batch.StartDate = override.Batch.StartDate
	}
	if override.Batch.Period != "" {
		base.Batch.Period = override.Batch.Period
	}

	if override.Filter.LicensePreset != "" {
		base.Filter.LicensePreset = override.Filter.LicensePreset
	}
	if override.Filter.Keywords != "" {
		base.Filter.Keywords = override.Filter.Keywords
	}
	if override.Filter.KeywordMode != "" {
		base.Filter.KeywordMode = override.Filter.KeywordMode
	}
	base.Filter.RequireCC = base.Filter.RequireCC || override.Filter.RequireCC
	base.Filter.ExcludeBy = base.Filter.ExcludeBy || override.Filter.ExcludeBy
	base.Filter.ExcludeNC = base.Filter.ExcludeNC || override.Filter.ExcludeNC
	base.Filter.ExcludeND = base.Filter.ExcludeND || override.Filter.ExcludeND
	base.Filter.ExcludeSA = base.Filter.ExcludeSA || override.Filter.ExcludeSA

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	base.Scheduler.Enabled = base.Scheduler.Enabled || override.Scheduler.Enabled
	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		API: APIConfig{
			BaseURL: "https://api.biorxiv.org/details",
			Server:  "biorxiv",
		},
		Translator: TranslatorConfig{
			Endpoint: "http://127.0.0.1:1234/v1/chat/completions",
			Model:    "openai/gpt-oss-20b",
		},
		Output: OutputConfig{BaseDir: "."},
		Batch: BatchConfig{
			StartDate: time.Now().Format("2006-01-02"),
			Period:    "Day",
		},
		Filter: FilterConfig{
			LicensePreset: "Any",
			KeywordMode:   "OR",
		},
		Scheduler: SchedulerConfig{Interval: "24h", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// NormalizeKeywordMode upper-cases the mode string and falls back to OR
// for anything that is not a recognized mode.
func NormalizeKeywordMode(mode string) string {
	m := strings.ToUpper(strings.TrimSpace(mode))
	if m != "AND" && m != "OR" {
		return "OR"
	}
	return m
}
