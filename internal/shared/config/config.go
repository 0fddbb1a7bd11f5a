package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// DefaultMessageTemplate is used when a channel does not define its own template.
const DefaultMessageTemplate = "*[Sentry]* {project_name} {tag[level]}: *{title}*\n```\n{message}```\n{url}"

type Config struct {
	APIOrigin              string `koanf:"api_origin"`
	DefaultMessageTemplate string `koanf:"default_message_template"`
	ChannelsConfigJSON     string `koanf:"channels_config_json"`
	ChannelsConfigFile     string `koanf:"channels_config_file"`
	HTTPPort               string `koanf:"http_port"`
	AppEnv                 AppEnv `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("api_origin") {
		k.Set("api_origin", "https://api.telegram.org")
	}
	if !k.Exists("default_message_template") {
		k.Set("default_message_template", DefaultMessageTemplate)
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("app_env") {
		k.Set("app_env", "production")
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Parse AppEnv from string if needed
	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		if env, err := ParseAppEnv(appEnvStr); err == nil {
			cfg.AppEnv = env
		} else {
			cfg.AppEnv = AppEnvProduction
		}
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	// Channels config may live in a separate file next to the service
	if cfg.ChannelsConfigJSON == "" && cfg.ChannelsConfigFile != "" {
		data, err := os.ReadFile(cfg.ChannelsConfigFile)
		if err != nil {
			return nil, oops.With("channels_config_file", cfg.ChannelsConfigFile).Wrap(err)
		}
		cfg.ChannelsConfigJSON = string(data)
	}

	// Validate required fields
	if !strings.HasPrefix(cfg.APIOrigin, "http://") && !strings.HasPrefix(cfg.APIOrigin, "https://") {
		return nil, errors.ErrInvalidAPIOrigin
	}
	if cfg.DefaultMessageTemplate == "" {
		return nil, errors.ErrMissingDefaultTemplate
	}

	return &cfg, nil
}

// ConfiguredError reports which setting blocks delivery, nil when the
// notifier has everything it needs to send.
func (c *Config) ConfiguredError() error {
	if c.APIOrigin == "" {
		return errors.ErrMissingAPIOrigin
	}
	if c.ChannelsConfigJSON == "" {
		return errors.ErrMissingChannelsConfig
	}
	return nil
}

// IsConfigured reports whether the notifier has everything it needs to send.
func (c *Config) IsConfigured() bool {
	return c.ConfiguredError() == nil
}
