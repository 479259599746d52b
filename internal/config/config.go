package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API       APIConfig
	Scout     ScoutConfig
	Gemini    GeminiConfig
	Translate TranslateConfig
	Scraper   ScraperConfig
	Workspace WorkspaceConfig
	Review    ReviewConfig
	Pipeline  PipelineConfig
	Logging   LoggingConfig
}

// APIConfig is the primary OpenAI-compatible endpoint used for translation.
type APIConfig struct {
	Key     string
	BaseURL string
	Model   string
}

// ScoutConfig drives name scouting. Key/BaseURL/Model fall back to the
// primary API when unset; Gemini, when configured, is tried first.
type ScoutConfig struct {
	Key          string
	BaseURL      string
	Model        string
	ChunkSize    int
	JSONRetries  int
	RequestDelay time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type TranslateConfig struct {
	ChunkSize     int
	MaxRetries    int
	HistoryLength int
	RequestDelay  time.Duration
}

type ScraperConfig struct {
	Delay      time.Duration
	CookiesDir string
}

type WorkspaceConfig struct {
	OutputDir string
	NamesDir  string
}

type ReviewConfig struct {
	EditorCommand string
}

type PipelineConfig struct {
	Concurrency int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			Key:     getEnv("API_KEY", ""),
			BaseURL: getEnv("API_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("API_MODEL", "gpt-4o-mini"),
		},
		Scout: ScoutConfig{
			Key:          getEnv("SCOUT_API_KEY", ""),
			BaseURL:      getEnv("SCOUT_API_BASE_URL", ""),
			Model:        getEnv("SCOUT_API_MODEL", ""),
			ChunkSize:    getEnvInt("SCOUT_CHUNK_SIZE_CHARS", 2500),
			JSONRetries:  getEnvInt("JSON_RETRIES", 3),
			RequestDelay: time.Duration(getEnvInt("REQUEST_DELAY_MS", 1000)) * time.Millisecond,
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Translate: TranslateConfig{
			ChunkSize:     getEnvInt("CHUNK_SIZE_CHARS", 4000),
			MaxRetries:    getEnvInt("MAX_RETRIES", 3),
			HistoryLength: getEnvInt("HISTORY_LENGTH", 5),
			RequestDelay:  time.Duration(getEnvInt("REQUEST_DELAY_MS", 1000)) * time.Millisecond,
		},
		Scraper: ScraperConfig{
			Delay:      time.Duration(getEnvInt("SCRAPE_DELAY_MS", 1000)) * time.Millisecond,
			CookiesDir: getEnv("COOKIES_DIR", ""),
		},
		Workspace: WorkspaceConfig{
			OutputDir: getEnv("OUTPUT_DIR", "output"),
			NamesDir:  getEnv("NAMES_DIR", "names"),
		},
		Review: ReviewConfig{
			EditorCommand: getEnv("EDITOR_COMMAND", ""),
		},
		Pipeline: PipelineConfig{
			Concurrency: getEnvInt("WORK_CONCURRENCY", 2),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if cfg.Scout.Key == "" {
		cfg.Scout.Key = cfg.API.Key
	}
	if cfg.Scout.BaseURL == "" {
		cfg.Scout.BaseURL = cfg.API.BaseURL
	}
	if cfg.Scout.Model == "" {
		cfg.Scout.Model = cfg.API.Model
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.Key == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Translate.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE_CHARS must be positive")
	}
	if c.Scout.ChunkSize <= 0 {
		return fmt.Errorf("SCOUT_CHUNK_SIZE_CHARS must be positive")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("WORK_CONCURRENCY must be positive")
	}
	if c.Workspace.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
