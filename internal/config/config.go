package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/structurer"
)

type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Workers    WorkersConfig    `yaml:"workers" mapstructure:"workers"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	PDF        PDFConfig        `yaml:"pdf" mapstructure:"pdf"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Structurer StructurerConfig `yaml:"structurer" mapstructure:"structurer"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
}

type ServerConfig struct {
	Port           int    `yaml:"port" mapstructure:"port"`
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// WorkersConfig sizes the async job pool behind the HTTP API.
type WorkersConfig struct {
	Count    int           `yaml:"count" mapstructure:"count"`
	MaxQueue int           `yaml:"max_queue" mapstructure:"max_queue"`
	JobTTL   time.Duration `yaml:"job_ttl" mapstructure:"job_ttl"`
}

type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

type PDFConfig struct {
	FallbackPdftotext bool   `yaml:"fallback_pdftotext" mapstructure:"fallback_pdftotext"`
	PdftotextPath     string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// ScoringConfig sets whether conversions evaluate checklist items unless
// a request says otherwise.
type ScoringConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

type StructurerConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey            string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxPromptTokens   int    `yaml:"max_prompt_tokens" mapstructure:"max_prompt_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// StoreConfig points at the SQLite result store. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads configuration from the file at path, or from checkgest.yaml in
// the working directory or ~/.config/checkgest when path is empty, then
// from CHECKGEST_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("checkgest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "checkgest"))
		}
	}

	v.SetEnvPrefix("CHECKGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Structurer.APIKey == "" {
		cfg.Structurer.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_upload_bytes", 52428800) // 50MB
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("workers.count", 4)
	v.SetDefault("workers.max_queue", 100)
	v.SetDefault("workers.job_ttl", time.Hour)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("pdf.fallback_pdftotext", true)
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("scoring.enabled", true)
	v.SetDefault("structurer.enabled", false)
	v.SetDefault("structurer.api_key", "")
	v.SetDefault("structurer.base_url", "")
	v.SetDefault("structurer.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("structurer.max_tokens", 4096)
	v.SetDefault("structurer.max_prompt_tokens", 6000)
	v.SetDefault("structurer.requests_per_minute", 30)
	v.SetDefault("store.path", "")
}

// Validate checks rules every command relies on.
func (c *Config) Validate() error {
	if c.Workers.Count <= 0 {
		return eris.New("workers.count must be positive")
	}
	if c.Workers.MaxQueue <= 0 {
		return eris.New("workers.max_queue must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		return eris.New("batch.concurrency must be positive")
	}
	if c.Structurer.Enabled {
		if c.Structurer.APIKey == "" {
			return eris.New("structurer.api_key (or ANTHROPIC_API_KEY) is required when the structurer is enabled")
		}
		if c.Structurer.Model == "" {
			return eris.New("structurer.model is required when the structurer is enabled")
		}
	}
	return nil
}

// ValidateServer adds the rules for running the HTTP API.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.APIKey == "" {
		return eris.New("server.api_key is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return eris.New("server.max_upload_bytes must be positive")
	}
	return nil
}

func (c *Config) ParserSettings() parser.Settings {
	return parser.Settings{
		PDFFallbackPdftotext: c.PDF.FallbackPdftotext,
		PdftotextPath:        c.PDF.PdftotextPath,
	}
}

func (c *Config) LLMConfig() structurer.Config {
	return structurer.Config{
		Model:             c.Structurer.Model,
		MaxTokens:         c.Structurer.MaxTokens,
		MaxPromptTokens:   c.Structurer.MaxPromptTokens,
		RequestsPerMinute: c.Structurer.RequestsPerMinute,
	}
}

// InitLogger builds a zap logger from cfg and installs it as the global
// logger.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
