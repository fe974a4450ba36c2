// Package config holds operator-level configuration for an anonymizer
// installation: data directory, audit signing key, NER sidecar endpoint,
// server limits, and compliance policy switches. Set via env vars
// (ANONYMIZER_*) or a YAML config file (anonymizer.config.yaml).
//
// Request text and per-request recognizer overrides never pass through this
// package; they arrive on the API only.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/cryptoutil"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/policy"
)

// Viper keys. Each maps to an env var with the ANONYMIZER_ prefix
// (e.g. "signing_key" → ANONYMIZER_SIGNING_KEY) and to a YAML field in
// anonymizer.config.yaml.
const (
	KeyDataDir           = "data_dir"
	KeySigningKey        = "signing_key"
	KeyListenAddr        = "listen_addr"
	KeyAPIKey            = "api_key"
	KeyNERBaseURL        = "ner_base_url"
	KeyNERModel          = "ner_model"
	KeyNEREnabled        = "ner_enabled"
	KeyLanguage          = "language"
	KeyRecognizerFile    = "recognizer_file"
	KeyRateLimitRPS      = "rate_limit_rps"
	KeyRateLimitBurst    = "rate_limit_burst"
	KeyCORSOrigins       = "cors_origins"
	KeyRequestTimeout    = "request_timeout"
	KeyRetentionDays     = "retention_days"
	KeyRetentionSchedule = "retention_schedule"

	KeyPolicyDenyOnDegraded        = "policy_deny_on_degraded"
	KeyPolicyDenyCredsWhenDegraded = "policy_deny_credentials_when_degraded"
	KeyPolicyForbiddenCategories   = "policy_forbidden_categories"
	KeyPolicyMaxDetections         = "policy_max_detections"
)

// Defaults that do not involve crypto material. The signing key has no
// baked-in default; when unset we derive a deterministic per-machine
// fallback and warn loudly.
const (
	DefaultListenAddr     = ":8080"
	DefaultNERBaseURL     = "http://localhost:5000"
	DefaultNERModel       = "en_core_web_lg"
	DefaultLanguage       = "en"
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetentionDays  = 90
)

// Config is the resolved operator configuration for one process.
type Config struct {
	DataDir           string        // base directory for all state (~/.anonymizer)
	SigningKey        string        // HMAC-SHA256 key for audit signing (>=32 bytes)
	ListenAddr        string        // HTTP listen address
	APIKey            string        // optional API key; empty disables auth
	NERBaseURL        string        // NLP sidecar endpoint
	NERModel          string        // model identifier the sidecar serves
	NEREnabled        bool          // false skips the model layer entirely
	Language          string        // default detection language
	RecognizerFile    string        // operator recognizer YAML overriding embedded defaults
	RateLimitRPS      float64       // token bucket refill rate
	RateLimitBurst    int           // token bucket burst
	CORSOrigins       []string      // allowed CORS origins
	RequestTimeout    time.Duration // per-request server timeout
	RetentionDays     int           // audit retention window; <=0 keeps forever
	RetentionSchedule string        // cron expression for the purge

	Policy policy.Config

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true when the signing key was derived
// rather than set explicitly. Commands should warn when this is the case.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKey logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKey() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default ANONYMIZER_SIGNING_KEY — set via env var or config file for production")
	}
}

func init() {
	viper.SetEnvPrefix("ANONYMIZER")
	viper.AutomaticEnv()
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyNERBaseURL, DefaultNERBaseURL)
	viper.SetDefault(KeyNERModel, DefaultNERModel)
	viper.SetDefault(KeyNEREnabled, true)
	viper.SetDefault(KeyLanguage, DefaultLanguage)
	viper.SetDefault(KeyRateLimitRPS, DefaultRateLimitRPS)
	viper.SetDefault(KeyRateLimitBurst, DefaultRateLimitBurst)
	viper.SetDefault(KeyCORSOrigins, []string{"*"})
	viper.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
	viper.SetDefault(KeyPolicyDenyCredsWhenDegraded, true)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:           resolveDataDir(),
		SigningKey:        viper.GetString(KeySigningKey),
		ListenAddr:        viper.GetString(KeyListenAddr),
		APIKey:            viper.GetString(KeyAPIKey),
		NERBaseURL:        viper.GetString(KeyNERBaseURL),
		NERModel:          viper.GetString(KeyNERModel),
		NEREnabled:        viper.GetBool(KeyNEREnabled),
		Language:          viper.GetString(KeyLanguage),
		RecognizerFile:    viper.GetString(KeyRecognizerFile),
		RateLimitRPS:      viper.GetFloat64(KeyRateLimitRPS),
		RateLimitBurst:    viper.GetInt(KeyRateLimitBurst),
		CORSOrigins:       viper.GetStringSlice(KeyCORSOrigins),
		RequestTimeout:    viper.GetDuration(KeyRequestTimeout),
		RetentionDays:     viper.GetInt(KeyRetentionDays),
		RetentionSchedule: viper.GetString(KeyRetentionSchedule),
		Policy: policy.Config{
			DenyOnDegraded:              viper.GetBool(KeyPolicyDenyOnDegraded),
			DenyCredentialsWhenDegraded: viper.GetBool(KeyPolicyDenyCredsWhenDegraded),
			ForbiddenCategories:         viper.GetStringSlice(KeyPolicyForbiddenCategories),
			MaxDetections:               viper.GetInt(KeyPolicyMaxDetections),
		},
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anonymizer"
	}
	return filepath.Join(home, ".anonymizer")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Not cryptographically strong; it exists so
// `anonymizer serve` works out of the box while still signing audit records
// with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("anonymizer:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if _, err := cryptoutil.ResolveKey(c.SigningKey, 32); err != nil {
		return fmt.Errorf("signing_key: %w; set ANONYMIZER_SIGNING_KEY", err)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_burst must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.NEREnabled && c.NERBaseURL == "" {
		return fmt.Errorf("ner_base_url must be set when the NER layer is enabled")
	}
	return nil
}
