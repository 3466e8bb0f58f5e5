package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	defaultAIModel       = "gpt-4o-mini"
	defaultAITemperature = 0.3
	defaultPageLimit     = 50
)

// Config holds runtime settings for the app. The backend serves both the
// article API and the AI endpoints, so one base URL and token cover both.
type Config struct {
	APIBaseURL    string
	APIToken      string
	DBPath        string
	AIModel       string
	AITemperature float64
	PageLimit     int
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIBaseURL: os.Getenv("LUMEN_API_BASE_URL"),
		APIToken:   os.Getenv("LUMEN_API_TOKEN"),
		DBPath:     os.Getenv("LUMEN_DB_PATH"),
		AIModel:    os.Getenv("LUMEN_AI_MODEL"),
	}

	if cfg.DBPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DBPath = filepath.Join(home, ".lumen", "lumen.db")
		} else {
			cfg.DBPath = "lumen.db"
		}
	}
	if cfg.AIModel == "" {
		cfg.AIModel = defaultAIModel
	}

	cfg.AITemperature = defaultAITemperature
	if raw := os.Getenv("LUMEN_AI_TEMPERATURE"); raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("LUMEN_AI_TEMPERATURE must be a number: %q", raw)
		}
		cfg.AITemperature = temp
	}

	cfg.PageLimit = defaultPageLimit
	if raw := os.Getenv("LUMEN_PAGE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return Config{}, fmt.Errorf("LUMEN_PAGE_LIMIT must be a positive integer: %q", raw)
		}
		cfg.PageLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("LUMEN_API_BASE_URL is required")
	}
	if c.APIToken == "" {
		return errors.New("LUMEN_API_TOKEN is required")
	}
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	if c.APIBaseURL[len(c.APIBaseURL)-1] == '/' {
		return fmt.Errorf("LUMEN_API_BASE_URL must not end with '/': %s", c.APIBaseURL)
	}
	if c.AITemperature < 0 || c.AITemperature > 2 {
		return fmt.Errorf("AITemperature must be between 0 and 2: %v", c.AITemperature)
	}
	return nil
}
