package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps CLI flag names to configuration keys. Flags that were not
// set on the command line leave the lower layers in effect.
var flagKeys = map[string]string{
	"host":                  "server.host",
	"port":                  "server.port",
	"metrics-addr":          "server.metrics_addr",
	"db-url":                "database.url",
	"locale":                "locale",
	"hide-initially":        "engine.hide_initially_default",
	"clear-on-initial-hide": "engine.clear_on_initial_hide",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence. flags may be
// nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("server.editor_session_ttl", d.Server.EditorSessionTTL.String())
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("engine.hide_initially_default", d.Engine.HideInitiallyDefault)
	v.SetDefault("engine.required_markup", d.Engine.RequiredMarkup)
	v.SetDefault("engine.clear_on_initial_hide", d.Engine.ClearOnInitialHide)
	v.SetDefault("locale", d.Locale)

	// CF_SERVER_PORT, CF_DATABASE_URL, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxConnections: v.GetInt("server.max_connections"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MetricsAddr:    v.GetString("server.metrics_addr"),

			EditorSessionTTL: v.GetDuration("server.editor_session_ttl"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Engine: EngineConfig{
			HideInitiallyDefault: v.GetBool("engine.hide_initially_default"),
			RequiredMarkup:       v.GetString("engine.required_markup"),
			ClearOnInitialHide:   v.GetBool("engine.clear_on_initial_hide"),
		},
		Locale: v.GetString("locale"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive limits.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.EditorSessionTTL <= 0 {
		return fmt.Errorf("editor_session_ttl must be positive, got %v", cfg.Server.EditorSessionTTL)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url must be set")
	}
	if cfg.Locale == "" {
		return fmt.Errorf("locale must be set")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range []string{"hmac_secret", "server.hmac_secret"} {
		if v.InConfig(key) {
			return fmt.Errorf("HMAC secrets not allowed in config files (use %s_HMAC_SECRET environment variable)", EnvPrefix)
		}
	}
	return nil
}
