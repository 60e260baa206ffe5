package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"taskbot/pkg/logging"
)

const (
	userConfigDir  = ".config/taskbot"
	configFileName = "config.yaml"
)

// Environment variables read by Load.
const (
	EnvAppID          = "OauthAppId"
	EnvAppSecret      = "OauthAppSecret"
	EnvCallbackURL    = "OauthCallbackURL"
	EnvAllowedDomains = "TASKBOT_ALLOWED_DOMAINS"
	EnvWorkItemsToken = "TASKBOT_WORKITEMS_TOKEN"
	EnvRedisAddr      = "TASKBOT_REDIS_ADDR"
	EnvNATSURL        = "TASKBOT_NATS_URL"
)

// DefaultPath returns ~/.config/taskbot/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// Load reads the file at path on top of the defaults, applies the
// environment and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the file at path on top of the defaults without looking
// at the environment or validating.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config file found at %s, using defaults", path)
			return cfg, nil
		}
		return Config{}, &ConfigurationError{FilePath: path, ErrorType: "io", Message: err.Error()}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, newParseError(path, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return cfg, nil
}

// ApplyEnv overlays environment values onto cfg. lookup is os.LookupEnv
// outside tests.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAppID); ok {
		cfg.OAuth.AppID = v
	}
	if v, ok := lookup(EnvAppSecret); ok {
		cfg.OAuth.AppSecret = v
	}
	if v, ok := lookup(EnvCallbackURL); ok {
		cfg.OAuth.CallbackURL = v
	}
	if v, ok := lookup(EnvAllowedDomains); ok {
		cfg.OAuth.AllowedDomains = splitList(v)
	}
	if v, ok := lookup(EnvWorkItemsToken); ok {
		cfg.WorkItems.Token = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Store.Backend = StoreRedis
		cfg.Store.Redis.Addr = v
	}
	if v, ok := lookup(EnvNATSURL); ok && v != "" {
		cfg.NATS.Enabled = true
		cfg.NATS.URL = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
