package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the file-backed configuration values. Timing values are
// stored in the file as integer seconds.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration
	HTTPTimeout          time.Duration
	ReconnectionInterval time.Duration
}

// ValidKeys lists the allowed config keys.
var ValidKeys = []string{
	"api-key", "model", "base-url",
	"heartbeat-interval", "heartbeat-timeout", "http-timeout", "reconnection-interval",
}

// Built-in defaults, the lowest-priority configuration source.
const (
	DefaultModel   = "gpt-3.5-turbo"
	DefaultBaseURL = "https://api.openai.com"

	DefaultHeartbeatInterval    = 60 * time.Second
	DefaultHeartbeatTimeout     = 180 * time.Second
	DefaultHTTPTimeout          = 10 * time.Second
	DefaultReconnectionInterval = 60 * time.Second
)

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mcpgen"), nil
}

func defaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return defaultPath()
}

// Load reads the config file. An empty path means the default
// ~/.config/mcpgen/config.yaml; an explicit path may be .yaml, .toml, or
// .json and is parsed by extension. A missing file yields an empty Config.
// A local .env file is loaded first so environment lookups can see it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	p, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(p)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &Config{
		APIKey:               v.GetString("api-key"),
		Model:                v.GetString("model"),
		BaseURL:              v.GetString("base-url"),
		HeartbeatInterval:    fileSeconds(v, "heartbeat-interval"),
		HeartbeatTimeout:     fileSeconds(v, "heartbeat-timeout"),
		HTTPTimeout:          fileSeconds(v, "http-timeout"),
		ReconnectionInterval: fileSeconds(v, "reconnection-interval"),
	}, nil
}

func fileSeconds(v *viper.Viper, key string) time.Duration {
	if !v.IsSet(key) {
		return 0
	}
	return time.Duration(v.GetInt(key)) * time.Second
}

// Save writes the config. Zero-valued fields are omitted from the file.
func Save(cfg *Config, path string) error {
	p, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(p)
	if cfg.APIKey != "" {
		v.Set("api-key", cfg.APIKey)
	}
	if cfg.Model != "" {
		v.Set("model", cfg.Model)
	}
	if cfg.BaseURL != "" {
		v.Set("base-url", cfg.BaseURL)
	}
	setSeconds(v, "heartbeat-interval", cfg.HeartbeatInterval)
	setSeconds(v, "heartbeat-timeout", cfg.HeartbeatTimeout)
	setSeconds(v, "http-timeout", cfg.HTTPTimeout)
	setSeconds(v, "reconnection-interval", cfg.ReconnectionInterval)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func setSeconds(v *viper.Viper, key string, d time.Duration) {
	if d > 0 {
		v.Set(key, int(d/time.Second))
	}
}

// Set updates a single key in the config file.
func Set(key, value, path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	switch key {
	case "api-key":
		cfg.APIKey = value
	case "model":
		cfg.Model = value
	case "base-url":
		cfg.BaseURL = value
	case "heartbeat-interval":
		cfg.HeartbeatInterval, err = parseSeconds(value)
	case "heartbeat-timeout":
		cfg.HeartbeatTimeout, err = parseSeconds(value)
	case "http-timeout":
		cfg.HTTPTimeout, err = parseSeconds(value)
	case "reconnection-interval":
		cfg.ReconnectionInterval, err = parseSeconds(value)
	default:
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(ValidKeys, ", "))
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return Save(cfg, path)
}

func parseSeconds(value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("value %q must be a positive number of seconds", value)
	}
	return time.Duration(n) * time.Second, nil
}

// List returns the effective settings for display, masking the API key.
func List(path string) (map[string]string, error) {
	r, err := Resolve(path, "", "", "")
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"api-key":               maskKey(r.APIKey),
		"model":                 r.Model,
		"base-url":              r.BaseURL,
		"heartbeat-interval":    r.HeartbeatInterval.String(),
		"heartbeat-timeout":     r.HeartbeatTimeout.String(),
		"http-timeout":          r.HTTPTimeout.String(),
		"reconnection-interval": r.ReconnectionInterval.String(),
	}, nil
}

// Reset removes the config file.
func Reset(path string) error {
	p, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing config: %w", err)
	}
	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Resolved holds the final settings after merging all sources. It is the
// value object handed to component constructors.
type Resolved struct {
	APIKey  string
	Model   string
	BaseURL string

	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration
	HTTPTimeout          time.Duration
	ReconnectionInterval time.Duration
}

// Resolve merges settings in priority order:
// explicit arguments > config file > environment variables > built-in defaults.
// Environment lookups try the MCPGEN_ name first, then the OPENAI_ name.
// Timing values come from the file or the defaults only.
func Resolve(path, cliAPIKey, cliModel, cliBaseURL string) (*Resolved, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	r := &Resolved{
		APIKey:  envOr("MCPGEN_API_KEY", "OPENAI_API_KEY"),
		Model:   envOr("MCPGEN_MODEL", "OPENAI_MODEL"),
		BaseURL: envOr("MCPGEN_BASE_URL", "OPENAI_BASE_URL"),
	}

	// Config file overrides environment
	if cfg.APIKey != "" {
		r.APIKey = cfg.APIKey
	}
	if cfg.Model != "" {
		r.Model = cfg.Model
	}
	if cfg.BaseURL != "" {
		r.BaseURL = cfg.BaseURL
	}

	// Explicit arguments override everything
	if cliAPIKey != "" {
		r.APIKey = cliAPIKey
	}
	if cliModel != "" {
		r.Model = cliModel
	}
	if cliBaseURL != "" {
		r.BaseURL = cliBaseURL
	}

	// Built-in defaults fill whatever is still unset
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.BaseURL == "" {
		r.BaseURL = DefaultBaseURL
	}

	r.HeartbeatInterval = durationOr(cfg.HeartbeatInterval, DefaultHeartbeatInterval)
	r.HeartbeatTimeout = durationOr(cfg.HeartbeatTimeout, DefaultHeartbeatTimeout)
	r.HTTPTimeout = durationOr(cfg.HTTPTimeout, DefaultHTTPTimeout)
	r.ReconnectionInterval = durationOr(cfg.ReconnectionInterval, DefaultReconnectionInterval)

	return r, nil
}

func envOr(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
