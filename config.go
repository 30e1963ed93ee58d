package tokenkit

import (
	"fmt"
	"time"

	"github.com/MrEthical07/tokenkit/jwt"
)

// Config defines every setting the engine honors.
//
// Config instances are intended to be configured during initialization and then treated as
// immutable. Field tags drive LoadConfig (yaml file plus environment overlay).
type Config struct {
	Lifetimes LifetimeConfig `yaml:"lifetimes"`
	Signing   SigningConfig  `yaml:"signing"`
	Claims    ClaimConfig    `yaml:"claims"`
	Refresh   RefreshConfig  `yaml:"refresh"`
	Audit     AuditConfig    `yaml:"audit"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}

/*
====================================
LIFETIME CONFIG
====================================
*/

// LifetimeConfig holds the four independently configurable token lifetimes.
//
// Sliding is how far each issuance or extension pushes exp. SlidingRefresh fixes the
// absolute cutoff, counted from first issuance, after which a sliding token can no longer
// be extended.
type LifetimeConfig struct {
	Access         time.Duration `yaml:"access" env:"ACCESS_LIFETIME" env-default:"5m"`
	Refresh        time.Duration `yaml:"refresh" env:"REFRESH_LIFETIME" env-default:"24h"`
	Sliding        time.Duration `yaml:"sliding" env:"SLIDING_LIFETIME" env-default:"5m"`
	SlidingRefresh time.Duration `yaml:"sliding_refresh" env:"SLIDING_REFRESH_LIFETIME" env-default:"24h"`
}

/*
====================================
SIGNING CONFIG
====================================
*/

// SigningConfig is the key source. Keys are PEM text for RSA and EdDSA and the raw secret
// for HMAC. VerifyKeys maps kid to verifying key for rotation and is only set in code.
type SigningConfig struct {
	Algorithm    string            `yaml:"algorithm" env:"SIGNING_ALGORITHM" env-default:"HS256"`
	SigningKey   string            `yaml:"signing_key" env:"SIGNING_KEY"`
	VerifyingKey string            `yaml:"verifying_key" env:"VERIFYING_KEY"`
	KeyID        string            `yaml:"key_id" env:"KEY_ID"`
	VerifyKeys   map[string][]byte `yaml:"-"`
}

/*
====================================
CLAIM CONFIG
====================================
*/

// ClaimConfig names the engine-managed claims.
type ClaimConfig struct {
	TokenType         string `yaml:"token_type" env:"TOKEN_TYPE_CLAIM_NAME" env-default:"token_type"`
	SlidingRefreshExp string `yaml:"sliding_refresh_exp" env:"SLIDING_REFRESH_EXP_CLAIM_NAME" env-default:"refresh_exp"`
	TokenID           string `yaml:"token_id" env:"JTI_CLAIM_NAME" env-default:"jti"`
	UserID            string `yaml:"user_id" env:"USER_ID_CLAIM_NAME" env-default:"user_id"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls refresh-token rotation. Both flags default to off, in which case
// refreshing yields only a new access token.
type RefreshConfig struct {
	Rotate              bool `yaml:"rotate" env:"ROTATE_REFRESH_TOKENS"`
	RevokeAfterRotation bool `yaml:"revoke_after_rotation" env:"REVOKE_AFTER_ROTATION"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"AUDIT_ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE" env-default:"1024"`
	DropIfFull bool `yaml:"drop_if_full" env:"AUDIT_DROP_IF_FULL" env-default:"true"`
}

// MetricsConfig toggles in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"METRICS_ENABLED"`
	EnableLatencyHistograms bool `yaml:"latency_histograms" env:"METRICS_LATENCY_HISTOGRAMS"`
}

// DefaultConfig returns the defaults. The signing key is left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Lifetimes: LifetimeConfig{
			Access:         5 * time.Minute,
			Refresh:        24 * time.Hour,
			Sliding:        5 * time.Minute,
			SlidingRefresh: 24 * time.Hour,
		},
		Signing: SigningConfig{
			Algorithm: string(jwt.AlgHS256),
		},
		Claims: ClaimConfig{
			TokenType:         "token_type",
			SlidingRefreshExp: "refresh_exp",
			TokenID:           "jti",
			UserID:            "user_id",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Signing.VerifyKeys != nil {
		out.Signing.VerifyKeys = make(map[string][]byte, len(cfg.Signing.VerifyKeys))
		for kid, key := range cfg.Signing.VerifyKeys {
			out.Signing.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting. Key material is parsed by Build, not here.
func (c *Config) Validate() error {
	if c.Lifetimes.Access <= 0 {
		return configError("Lifetimes.Access must be > 0")
	}
	if c.Lifetimes.Refresh <= 0 {
		return configError("Lifetimes.Refresh must be > 0")
	}
	if c.Lifetimes.Sliding <= 0 {
		return configError("Lifetimes.Sliding must be > 0")
	}
	if c.Lifetimes.SlidingRefresh <= 0 {
		return configError("Lifetimes.SlidingRefresh must be > 0")
	}
	if c.Lifetimes.SlidingRefresh < c.Lifetimes.Sliding {
		return configError("Lifetimes.SlidingRefresh must be >= Lifetimes.Sliding")
	}

	supported := false
	for _, alg := range jwt.SupportedAlgorithms {
		if string(alg) == c.Signing.Algorithm {
			supported = true
			break
		}
	}
	if !supported {
		return configError(fmt.Sprintf("Signing.Algorithm %q is not supported", c.Signing.Algorithm))
	}
	if c.Signing.SigningKey == "" && c.Signing.VerifyingKey == "" && len(c.Signing.VerifyKeys) == 0 {
		return configError("Signing requires a signing key or verifying key")
	}

	names := map[string]string{
		"Claims.TokenType":         c.Claims.TokenType,
		"Claims.SlidingRefreshExp": c.Claims.SlidingRefreshExp,
		"Claims.TokenID":           c.Claims.TokenID,
		"Claims.UserID":            c.Claims.UserID,
	}
	seen := make(map[string]string, len(names))
	for field, name := range names {
		if name == "" {
			return configError(field + " must not be empty")
		}
		if name == "exp" || name == "iat" {
			return configError(field + " must not reuse exp or iat")
		}
		if other, dup := seen[name]; dup {
			return configError(fmt.Sprintf("%s and %s share claim name %q", other, field, name))
		}
		seen[name] = field
	}

	if c.Refresh.RevokeAfterRotation && !c.Refresh.Rotate {
		return configError("Refresh.RevokeAfterRotation requires Refresh.Rotate")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit.BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return configError("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	return nil
}

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

func (c *Config) codecConfig() jwt.Config {
	cfg := jwt.Config{
		Algorithm: jwt.Algorithm(c.Signing.Algorithm),
		KeyID:     c.Signing.KeyID,
	}
	if c.Signing.SigningKey != "" {
		cfg.SigningKey = []byte(c.Signing.SigningKey)
	}
	if c.Signing.VerifyingKey != "" {
		cfg.VerifyingKey = []byte(c.Signing.VerifyingKey)
	}
	if len(c.Signing.VerifyKeys) > 0 {
		cfg.VerifyKeys = c.Signing.VerifyKeys
	}
	return cfg
}
