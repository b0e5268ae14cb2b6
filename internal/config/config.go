package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable mapped onto the configuration.
// Sections are separated by a double underscore: HABIT_APP__PORT sets app.port.
const EnvPrefix = "HABIT_"

// Config holds the application configuration
type Config struct {
	App     AppConfig     `koanf:"app"`
	Service ServiceConfig `koanf:"service"`
	Heatmap HeatmapConfig `koanf:"heatmap"`
	Auth    AuthConfig    `koanf:"auth"`
	OAuth   *OAuthConfig  `koanf:"-"` // From environment
}

// AppConfig holds the HTTP listener configuration
type AppConfig struct {
	Port   int    `koanf:"port"`
	AppURL string `koanf:"app_url"`
}

// ServiceConfig holds the service configuration
type ServiceConfig struct {
	StateFile              string        `koanf:"state_file"`
	LogLevel               string        `koanf:"log_level"`
	LogFile                string        `koanf:"log_file"`
	SessionCleanupInterval time.Duration `koanf:"session_cleanup_interval"`
}

// HeatmapConfig holds the heatmap rendering configuration
type HeatmapConfig struct {
	// Timezone is the reference timezone every entry date is normalized in
	Timezone    string             `koanf:"timezone"`
	DefaultView constants.ViewMode `koanf:"default_view"`
}

// AuthConfig holds the session configuration
type AuthConfig struct {
	SessionTTL   time.Duration `koanf:"session_ttl"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

// OAuthConfig holds the Google OAuth configuration from environment
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Location resolves the reference timezone
func (h HeatmapConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid heatmap timezone %q: %w", h.Timezone, err)
	}
	return loc, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.port":                         8080,
		"app.app_url":                      "http://localhost:8080",
		"service.state_file":               "data/state.db",
		"service.log_level":                "info",
		"service.log_file":                 "",
		"service.session_cleanup_interval": "1h",
		"heatmap.timezone":                 "UTC",
		"heatmap.default_view":             string(constants.DefaultViewMode),
		"auth.session_ttl":                 "720h",
		"auth.cookie_secure":               false,
	}
}

// LoadDotEnv loads .env style files into the process environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// envKey maps HABIT_SERVICE__LOG_LEVEL to service.log_level
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

// Load reads the defaults, the optional TOML file at path and the environment, in
// that order of precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// PORT is honoured for platforms that inject it
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT environment variable %q: %w", port, err)
		}
		if err := k.Set("app.port", p); err != nil {
			return nil, fmt.Errorf("failed to apply PORT: %w", err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Ensure the state file path is absolute, relative paths are resolved against
	// the config file's directory
	if !filepath.IsAbs(cfg.Service.StateFile) {
		base := "."
		if path != "" {
			base = filepath.Dir(path)
		}
		abs, err := filepath.Abs(filepath.Join(base, cfg.Service.StateFile))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve state file path: %w", err)
		}
		cfg.Service.StateFile = abs
	}

	cfg.App.AppURL = strings.TrimRight(cfg.App.AppURL, "/")
	cfg.OAuth = &OAuthConfig{
		ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
		RedirectURL:  cfg.App.AppURL + "/auth/callback",
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate reports every configuration problem at once
func validate(cfg *Config) error {
	var result *multierror.Error

	if cfg.App.Port < 1 || cfg.App.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("app port must be between 1 and 65535, got %d", cfg.App.Port))
	}
	if u, err := url.Parse(cfg.App.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("app_url must be an absolute URL, got %q", cfg.App.AppURL))
	}
	if cfg.Service.StateFile == "" {
		result = multierror.Append(result, fmt.Errorf("state_file is required"))
	}
	if cfg.Service.SessionCleanupInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_cleanup_interval must be positive"))
	}
	if _, err := cfg.Heatmap.Location(); err != nil {
		result = multierror.Append(result, err)
	}
	if !cfg.Heatmap.DefaultView.IsValid() {
		result = multierror.Append(result, fmt.Errorf("invalid default_view: %s", cfg.Heatmap.DefaultView))
	}
	if cfg.Auth.SessionTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_ttl must be positive"))
	}

	// Validate OAuth configuration
	if cfg.OAuth.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("GOOGLE_OAUTH_CLIENT_ID environment variable is required"))
	}
	if cfg.OAuth.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("GOOGLE_OAUTH_CLIENT_SECRET environment variable is required"))
	}

	return result.ErrorOrNil()
}
