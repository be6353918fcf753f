package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	LLM      LLMConfig
	Sheets   SheetsConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// LLMConfig selects the generative model used for extraction.
type LLMConfig struct {
	Provider    string // "gemini" or "ollama"
	APIKey      string
	Model       string
	ServerURL   string // ollama only
	Temperature float64
	Timeout     time.Duration
}

type SheetsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// PipelineConfig bounds a single export run.
type PipelineConfig struct {
	BatchSize       int
	MaxConcurrency  int
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	RunTimeout      time.Duration
	// DefaultLanguage tags items whose reply carries no language.
	DefaultLanguage string
}

const (
	DefaultSheetsBaseURL  = "https://sheets.googleapis.com"
	DefaultGeminiModel    = "gemini-1.5-pro"
	DefaultOllamaModel    = "qwen3:0.6b"
	DefaultBatchSize      = 10
	DefaultMaxConcurrency = 4
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRunTimeout     = 5 * time.Minute
	DefaultLanguage       = "und"
)

func LoadConfig() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout"),
			WriteTimeout: viper.GetDuration("server.write_timeout"),
			BodyLimit:    viper.GetInt("server.body_limit"),
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		LLM: LLMConfig{
			Provider:    viper.GetString("llm.provider"),
			APIKey:      viper.GetString("llm.api_key"),
			Model:       viper.GetString("llm.model"),
			ServerURL:   viper.GetString("llm.server"),
			Temperature: viper.GetFloat64("llm.temperature"),
			Timeout:     viper.GetDuration("llm.timeout"),
		},
		Sheets: SheetsConfig{
			APIKey:  viper.GetString("sheets.api_key"),
			BaseURL: viper.GetString("sheets.base_url"),
			Timeout: viper.GetDuration("sheets.timeout"),
		},
		Pipeline: PipelineConfig{
			BatchSize:       viper.GetInt("pipeline.batch_size"),
			MaxConcurrency:  viper.GetInt("pipeline.max_concurrency"),
			MaxAttempts:     viper.GetInt("pipeline.max_attempts"),
			RetryBaseDelay:  viper.GetDuration("pipeline.retry_base_delay"),
			RunTimeout:      viper.GetDuration("pipeline.run_timeout"),
			DefaultLanguage: viper.GetString("pipeline.default_language"),
		},
	}

	// Override with the environment names the service has always used
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = viper.GetInt("SERVER_PORT")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logger.Level = level
	}
	if env := os.Getenv("ENV"); env != "" {
		config.Logger.Env = env
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if server := os.Getenv("LLM_SERVER"); server != "" {
		config.LLM.ServerURL = server
	}
	if key := os.Getenv("GOOGLE_SHEETS_API_KEY"); key != "" {
		config.Sheets.APIKey = key
	}

	if config.LLM.Model == "" {
		config.LLM.Model = DefaultGeminiModel
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = DefaultOllamaModel
		}
	}
	config.Pipeline = config.Pipeline.WithDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", "20s")
	viper.SetDefault("server.write_timeout", "6m")
	viper.SetDefault("server.body_limit", 1024*1024)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("sheets.base_url", DefaultSheetsBaseURL)
	viper.SetDefault("sheets.timeout", "30s")
	viper.SetDefault("pipeline.batch_size", DefaultBatchSize)
	viper.SetDefault("pipeline.max_concurrency", DefaultMaxConcurrency)
	viper.SetDefault("pipeline.max_attempts", DefaultMaxAttempts)
	viper.SetDefault("pipeline.retry_base_delay", DefaultRetryBaseDelay.String())
	viper.SetDefault("pipeline.run_timeout", DefaultRunTimeout.String())
	viper.SetDefault("pipeline.default_language", DefaultLanguage)
}

// Validate reports configuration that would make every run fail.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("missing GEMINI_API_KEY for llm provider %q", c.LLM.Provider)
		}
	case "ollama":
		if c.LLM.ServerURL == "" {
			return fmt.Errorf("missing LLM_SERVER for llm provider %q", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	if c.Sheets.APIKey == "" {
		return fmt.Errorf("missing GOOGLE_SHEETS_API_KEY")
	}
	return nil
}

// WithDefaults fills zero values so a partially specified config still runs.
func (p PipelineConfig) WithDefaults() PipelineConfig {
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.MaxConcurrency <= 0 {
		p.MaxConcurrency = DefaultMaxConcurrency
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RetryBaseDelay < 0 {
		p.RetryBaseDelay = 0
	}
	if strings.TrimSpace(p.DefaultLanguage) == "" {
		p.DefaultLanguage = DefaultLanguage
	}
	return p
}
