package tokenkit

import (
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/tokenkit/jwt"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config     Config
	clock      Clock
	revocation RevocationHook
	logger     logrus.FieldLogger
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithClock replaces the system clock. Tests use it to pin "now".
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithRevocation enables the revocation state of the verifier. A hook that also implements
// RevocationStore enables Engine.Revoke and revoke-after-rotation. A hook that implements
// ClockSetter is switched to the engine clock by Build.
func (b *Builder) WithRevocation(hook RevocationHook) *Builder {
	b.revocation = hook
	return b
}

// WithLogger sets the logger used for rejection and store-failure lines. The default
// discards everything.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. Audit.Enabled must also be set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram. It needs metrics enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithVerifyKeys adds verify-only keys selected by the kid header, for key rotation.
func (b *Builder) WithVerifyKeys(keys map[string][]byte) *Builder {
	if b.config.Signing.VerifyKeys == nil {
		b.config.Signing.VerifyKeys = make(map[string][]byte, len(keys))
	}
	for kid, key := range keys {
		b.config.Signing.VerifyKeys[kid] = cloneBytes(key)
	}
	return b
}

// Build validates the configuration, parses key material and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Refresh.RevokeAfterRotation {
		if _, ok := b.revocation.(RevocationStore); !ok {
			return nil, configError("Refresh.RevokeAfterRotation requires a revocation store")
		}
	}

	codec, err := jwt.NewCodec(cfg.codecConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := b.logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	policy := NewLifetimePolicy(cfg.Lifetimes, b.clock)
	if cs, ok := b.revocation.(ClockSetter); ok {
		cs.SetClock(policy.Now)
	}

	engine := &Engine{
		cfg:        cfg,
		codec:      codec,
		policy:     policy,
		revocation: b.revocation,
		logger:     logger.WithField("component", "tokenkit"),
		metrics:    NewMetrics(cfg.Metrics),
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	b.built = true
	return engine, nil
}
