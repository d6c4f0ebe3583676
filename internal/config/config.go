// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	RasterizerChrome = "chrome"
	RasterizerNative = "native"
)

// Config is the service configuration.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Instruction string  `yaml:"instruction"`

	Rasterizer string `yaml:"rasterizer"`
	Chrome     Chrome `yaml:"chrome"`

	// PublicURL is how the rasterizer reaches this server. Defaults to
	// http://localhost:<port>.
	PublicURL string `yaml:"public_url"`

	// AllowPrivateURLs lets URL uploads reach loopback and private networks.
	AllowPrivateURLs bool `yaml:"allow_private_urls"`

	UploadLimitMB int           `yaml:"upload_limit_mb"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	LogLevel      string        `yaml:"log_level"`
}

// Chrome configures the headless browser rasterizer.
type Chrome struct {
	Bin         string   `yaml:"bin"`
	DebuggerURL string   `yaml:"debugger_url"`
	Headless    bool     `yaml:"headless"`
	NoSandbox   bool     `yaml:"no_sandbox"`
	Flags       []string `yaml:"flags"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider:      ProviderGemini,
		Rasterizer:    RasterizerChrome,
		Chrome:        Chrome{Headless: true},
		UploadLimitMB: 10,
		SessionTTL:    2 * time.Hour,
		LogLevel:      "info",
	}
}

// Load reads path on top of the defaults. An empty path skips the file.
// Environment variables are applied last. The result is not validated;
// callers apply their flags first and then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		slog.Debug("Loaded config file", "path", path)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PASSPORT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("PASSPORT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("PASSPORT_RASTERIZER"); v != "" {
		c.Rasterizer = v
	}
	if v := os.Getenv("PASSPORT_PUBLIC_URL"); v != "" {
		c.PublicURL = v
	}
	if v := os.Getenv("PASSPORT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PASSPORT_ALLOW_PRIVATE_URLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowPrivateURLs = b
		}
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		c.Chrome.Bin = v
	}
	if v := os.Getenv("CHROME_NO_SANDBOX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Chrome.NoSandbox = b
		}
	}
}

// Validate checks enumerated values and limits.
func (c Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unsupported provider: %s", c.Provider))
	}

	switch c.Rasterizer {
	case RasterizerChrome, RasterizerNative:
	default:
		errs = append(errs, fmt.Errorf("unsupported rasterizer: %s", c.Rasterizer))
	}

	if c.UploadLimitMB <= 0 {
		errs = append(errs, fmt.Errorf("upload_limit_mb must be positive"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("session_ttl must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// UploadLimit is the maximum upload size in bytes.
func (c Config) UploadLimit() int64 {
	return int64(c.UploadLimitMB) * 1024 * 1024
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
}
