// Package config provides configuration management for condfield services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by condfield.
const EnvPrefix = "CF"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	// Locale is the fallback locale for messages when a request names none.
	Locale string
}

// ServerConfig holds configuration for the gRPC authoring service.
type ServerConfig struct {
	Host           string
	Port           int
	MaxConnections int
	RequestTimeout time.Duration
	// MetricsAddr is the listen address of the Prometheus endpoint. Empty
	// disables it.
	MetricsAddr string
	// EditorSessionTTL is how long an idle condition editing session keeps
	// its other-fields lookups.
	EditorSessionTTL time.Duration
}

// DatabaseConfig selects the field definition store.
type DatabaseConfig struct {
	URL string
}

// EngineConfig holds rendering defaults for controlling fields.
type EngineConfig struct {
	// HideInitiallyDefault applies to forms that do not state the flag.
	HideInitiallyDefault bool
	// RequiredMarkup is the indicator inserted on conditionally required
	// fields when the form supplies none.
	RequiredMarkup string
	// ClearOnInitialHide also clears hidden-and-cleared fields when they are
	// hidden at first render.
	ClearOnInitialHide bool
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			MaxConnections: 1000,
			RequestTimeout: 30 * time.Second,
			MetricsAddr:    "",

			EditorSessionTTL: 30 * time.Minute,
		},
		Database: DatabaseConfig{
			URL: "sqlite://./data/condfield.db",
		},
		Engine: EngineConfig{
			HideInitiallyDefault: false,
			RequiredMarkup:       "",
			ClearOnInitialHide:   false,
		},
		Locale: "en",
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports CF_HMAC_SECRET (single) and CF_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are 32 hex chars (a UUID without hyphens) matching the API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	single := EnvPrefix + "_HMAC_SECRET"
	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s and %s_* for conflicts)", secretID, single, single)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv(single); val != "" {
		if err := add(single, val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets allow rotation: old and new keys stay valid during
	// the switch. Numbering stops at the first gap.
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s_%d", single, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecret decodes base64-encoded HMAC secret from environment variable.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUID without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
