package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Whisper   WhisperConfig   `yaml:"whisper" mapstructure:"whisper"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Sheets    SheetsConfig    `yaml:"sheets" mapstructure:"sheets"`
	Voice     VoiceConfig     `yaml:"voice" mapstructure:"voice"`
	Text      TextConfig      `yaml:"text" mapstructure:"text"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Debug     bool            `yaml:"debug" mapstructure:"debug"`
}

// TelegramConfig holds bot credentials and outbound limits.
type TelegramConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	WelcomeImage string  `yaml:"welcome_image" mapstructure:"welcome_image"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds generation model settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// WhisperConfig holds speech-to-text settings.
type WhisperConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
	Language string `yaml:"language" mapstructure:"language"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// IndexConfig configures the vector index.
type IndexConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	TopK       int    `yaml:"top_k" mapstructure:"top_k"`
}

// SheetsConfig configures the interaction log destination.
type SheetsConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	XLSXPath        string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// VoiceConfig bounds accepted voice notes.
type VoiceConfig struct {
	MaxDurationSecs int `yaml:"max_duration_secs" mapstructure:"max_duration_secs"`
	// MaxRetries is accepted for compatibility; the pipeline never retries.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// TextConfig bounds accepted text descriptions.
type TextConfig struct {
	MinLength int `yaml:"min_length" mapstructure:"min_length"`
	MaxLength int `yaml:"max_length" mapstructure:"max_length"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Whisper   WhisperPricing          `yaml:"whisper" mapstructure:"whisper"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// WhisperPricing holds transcription pricing.
type WhisperPricing struct {
	PerMinute float64 `yaml:"per_minute" mapstructure:"per_minute"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VIOLATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("telegram.welcome_image", "assets/welcome_image.jpg")
	v.SetDefault("telegram.rate_per_sec", 25.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("anthropic.temperature", 0.3)
	v.SetDefault("whisper.base_url", "https://api.openai.com/v1")
	v.SetDefault("whisper.model", "whisper-1")
	v.SetDefault("whisper.language", "ru")
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("index.path", "chroma_db/index.db")
	v.SetDefault("index.collection", "pipeline_standards")
	v.SetDefault("index.top_k", 3)
	v.SetDefault("sheets.driver", "google")
	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.xlsx_path", "interactions.xlsx")
	v.SetDefault("voice.max_duration_secs", 60)
	v.SetDefault("voice.max_retries", 3)
	v.SetDefault("text.min_length", 5)
	v.SetDefault("text.max_length", 1000)
	v.SetDefault("pricing.whisper.per_minute", 0.006)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("debug", false)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Debug {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given mode are present.
// Modes: "bot" (Telegram + analysis), "analyze" (analysis only), "ingest",
// "serve" (HTTP API + analysis).
func (c *Config) Validate(mode string) error {
	var errs []string
	requireKey := func(val, name string) {
		if val == "" {
			errs = append(errs, name+" is required")
		}
	}

	switch mode {
	case "bot":
		requireKey(c.Telegram.Token, "telegram.token")
		requireKey(c.Whisper.Key, "whisper.key")
		requireKey(c.Anthropic.Key, "anthropic.key")
		requireKey(c.Embedding.Key, "embedding.key")
	case "serve":
		// The bot is optional here, but voice notes need whisper.
		if c.Telegram.Token != "" {
			requireKey(c.Whisper.Key, "whisper.key")
		}
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		requireKey(c.Anthropic.Key, "anthropic.key")
		requireKey(c.Embedding.Key, "embedding.key")
	case "analyze":
		requireKey(c.Anthropic.Key, "anthropic.key")
		requireKey(c.Embedding.Key, "embedding.key")
	case "ingest":
		requireKey(c.Embedding.Key, "embedding.key")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Sheets.Driver {
	case "google", "xlsx", "none":
	default:
		errs = append(errs, "sheets.driver must be one of google, xlsx, none")
	}
	if c.Text.MinLength < 1 || c.Text.MaxLength < c.Text.MinLength {
		errs = append(errs, "text.min_length must be >= 1 and <= text.max_length")
	}
	if c.Voice.MaxDurationSecs < 1 {
		errs = append(errs, "voice.max_duration_secs must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
