package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Initialize is the primary entry point: it loads a .env file (if present),
// parses config.yaml from configDir, merges it over the built-in Defaults,
// applies environment-variable overrides for the fields spec.md §6
// enumerates, and validates the result. Grounded on
// codeready-toolchain/tarsy's pkg/config/loader.go + cmd/tarsy/main.go's
// godotenv.Load call.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("no .env file loaded", "path", envPath, "error", err)
	}

	cfg := Defaults()
	cfg.configPath = configDir

	yamlPath := filepath.Join(configDir, "config.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		expanded := ExpandEnv(data)
		var fileCfg Config
		if err := yaml.Unmarshal(expanded, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
		}
		if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging %s over defaults: %w", yamlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
	}

	applyEnvOverrides(cfg)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies the environment variables spec.md §6
// enumerates directly, taking precedence over both defaults and the YAML
// file — mirroring the teacher's pattern of env vars as the final
// override layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECORD_STORE_URL"); v != "" {
		cfg.Store.RecordStoreURL = v
	}
	if v := os.Getenv("RECORD_STORE_KEY"); v != "" {
		cfg.Store.RecordStoreKey = v
	}
	if v := os.Getenv("RECORD_STORE_BASE_ID"); v != "" {
		cfg.Store.RecordStoreBaseID = v
	}
	if v := os.Getenv("CACHE_URL"); v != "" {
		cfg.Cache.URL = v
	}
	if v := os.Getenv("ALLOWED_HOSTS"); v != "" {
		cfg.Fetcher.AllowedHosts = strings.Split(v, ",")
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.System.Port = port
		}
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		cfg.Monitoring.SMTPServer = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.SMTPPort = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Monitoring.SMTPUser = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Monitoring.SMTPPassword = v
	}
	if v := os.Getenv("FROM_EMAIL"); v != "" {
		cfg.Monitoring.FromEmail = v
	}
	if v := os.Getenv("ALERT_EMAILS"); v != "" {
		cfg.Monitoring.AlertEmails = strings.Split(v, ",")
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Monitoring.SlackWebhookURL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Monitoring.WebhookURL = v
	}
}
