// Package config loads settings from defaults, an optional YAML file and the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
	EnvTest        Env = "test"
)

type Config struct {
	Env           Env    `yaml:"env"`
	Port          int    `yaml:"port"`
	DatabasePath  string `yaml:"database_path"`
	ImageStoreURL string `yaml:"image_store_url"`
	PublicBaseURL string `yaml:"public_base_url"`
	AllowedOrigin string `yaml:"allowed_origin"`

	OpenRouter OpenRouter `yaml:"openrouter"`
	Stylist    Stylist    `yaml:"stylist"`
}

type OpenRouter struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`
}

type Stylist struct {
	MaxRounds     int    `yaml:"max_rounds"`
	TranscriptDir string `yaml:"transcript_dir"`
}

func Default() *Config {
	return &Config{
		Env:           EnvDevelopment,
		Port:          4000,
		DatabasePath:  "closet.db",
		ImageStoreURL: "file:///tmp/closet-whisperer/images",
		AllowedOrigin: "https://closet.loopylab.app",
		OpenRouter: OpenRouter{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-4o",
			Referer: "https://github.com/javicasper/closet-whisperer",
			Title:   "Closet Whisperer",
		},
		Stylist: Stylist{MaxRounds: 4},
	}
}

func GetEnv(name, fallback string) string {
	value, ok := os.LookupEnv(name)
	if ok {
		return value
	} else {
		return fallback
	}
}

// Load reads file (if not empty) over the defaults and applies environment overrides.
func Load(file string) (*Config, error) {
	cfg := Default()

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", file, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = Env(GetEnv("APP_ENV", string(c.Env)))
	c.DatabasePath = GetEnv("DATABASE_PATH", c.DatabasePath)
	c.ImageStoreURL = GetEnv("IMAGE_STORE_URL", c.ImageStoreURL)
	c.PublicBaseURL = GetEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.AllowedOrigin = GetEnv("ALLOWED_ORIGIN", c.AllowedOrigin)
	c.OpenRouter.APIKey = GetEnv("OPENROUTER_API_KEY", c.OpenRouter.APIKey)
	c.OpenRouter.BaseURL = GetEnv("OPENROUTER_BASE_URL", c.OpenRouter.BaseURL)
	c.OpenRouter.Model = GetEnv("OPENROUTER_MODEL", c.OpenRouter.Model)
	c.Stylist.TranscriptDir = GetEnv("TRANSCRIPT_DIR", c.Stylist.TranscriptDir)

	var err error
	if c.Port, err = intEnv("PORT", c.Port); err != nil {
		return err
	}
	if c.Stylist.MaxRounds, err = intEnv("STYLIST_MAX_ROUNDS", c.Stylist.MaxRounds); err != nil {
		return err
	}
	return nil
}

func intEnv(name string, fallback int) (int, error) {
	value := GetEnv(name, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// Validate reports every problem at once. The API key is only needed when the model is used.
func (c *Config) Validate(needModel bool) error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("env: must be one of development, production, test, got %q", c.Env))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port: out of range: %d", c.Port))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("database_path: required"))
	}
	if strings.TrimSpace(c.ImageStoreURL) == "" {
		errs = append(errs, errors.New("image_store_url: required"))
	}
	if c.Stylist.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("stylist.max_rounds: must be positive, got %d", c.Stylist.MaxRounds))
	}
	if needModel {
		if c.OpenRouter.APIKey == "" {
			errs = append(errs, errors.New("openrouter.api_key: required (OPENROUTER_API_KEY)"))
		}
		if c.OpenRouter.Model == "" {
			errs = append(errs, errors.New("openrouter.model: required"))
		}
	}
	return errors.Join(errs...)
}
