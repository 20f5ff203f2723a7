package config

import (
	"encoding/json"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

// AuthConfig carries the JSON-valued credential seeds. The raw strings are
// decoded once by the accessor methods; malformed values are logged and
// treated as empty rather than failing startup.
type AuthConfig struct {
	ValidationKeysJSON string `env:"IONIA_VALIDATION_KEYS"`
	APIKeysJSON        string `env:"IONIA_API_KEYS"`
	KeyExpiresJSON     string `env:"IONIA_VALIDATION_KEYS_EXPIRES"`
	RevokedKeysJSON    string `env:"IONIA_VALIDATION_KEYS_REVOKED"`
}

func LoadAuth() (AuthConfig, error) {
	var cfg AuthConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// ValidationKeys is the activation key -> team id seed.
func (c AuthConfig) ValidationKeys() map[string]string {
	return decodeStringMap("IONIA_VALIDATION_KEYS", c.ValidationKeysJSON)
}

// APIKeys is the bearer token -> team id seed.
func (c AuthConfig) APIKeys() map[string]string {
	return decodeStringMap("IONIA_API_KEYS", c.APIKeysJSON)
}

// KeyExpires maps activation keys to absolute expiry epoch seconds.
func (c AuthConfig) KeyExpires() map[string]int64 {
	raw := strings.TrimSpace(c.KeyExpiresJSON)
	if raw == "" {
		return map[string]int64{}
	}
	var data map[string]json.Number
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Error().Str("env", "IONIA_VALIDATION_KEYS_EXPIRES").Msg("not a JSON object mapping to ints; ignoring")
		return map[string]int64{}
	}
	out := make(map[string]int64, len(data))
	for key, value := range data {
		n, err := value.Int64()
		if err != nil {
			log.Warn().Str("env", "IONIA_VALIDATION_KEYS_EXPIRES").Str("key", key).Msg("non-int entry; skipping")
			continue
		}
		out[key] = n
	}
	return out
}

// RevokedKeys is the set of revoked activation keys.
func (c AuthConfig) RevokedKeys() []string {
	raw := strings.TrimSpace(c.RevokedKeysJSON)
	if raw == "" {
		return nil
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Error().Str("env", "IONIA_VALIDATION_KEYS_REVOKED").Msg("not a JSON array of strings; ignoring")
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeStringMap(name, raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]string{}
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Error().Str("env", name).Msg("not a JSON object mapping strings; ignoring")
		return map[string]string{}
	}
	out := make(map[string]string, len(data))
	for key, value := range data {
		s, ok := value.(string)
		if !ok {
			log.Warn().Str("env", name).Str("key", key).Msg("non-string entry; skipping")
			continue
		}
		out[key] = s
	}
	return out
}
