package jwt

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned by Decode when the token is not a well-formed compact token:
	// wrong segment count, invalid base64url, or a header or payload that is not a JSON object.
	ErrMalformed = errors.New("token malformed")
	// ErrSignature is returned by Decode when the signature does not verify under the
	// configured key, or the header names a key the codec does not know.
	ErrSignature = errors.New("token signature invalid")
	// ErrUnsupportedAlgorithm is returned by Decode when the header declares an algorithm
	// outside the codec's allow-list.
	ErrUnsupportedAlgorithm = errors.New("token algorithm not allowed")
)

// Algorithm names a JWS signing algorithm.
type Algorithm string

const (
	AlgHS256 Algorithm = "HS256"
	AlgHS384 Algorithm = "HS384"
	AlgHS512 Algorithm = "HS512"
	AlgRS256 Algorithm = "RS256"
	AlgRS384 Algorithm = "RS384"
	AlgRS512 Algorithm = "RS512"
	AlgEdDSA Algorithm = "EdDSA"
)

const minHMACKeyBytes = 32

// SupportedAlgorithms lists every algorithm a Codec can be configured with.
var SupportedAlgorithms = []Algorithm{AlgHS256, AlgHS384, AlgHS512, AlgRS256, AlgRS384, AlgRS512, AlgEdDSA}

// Config defines the key material of a Codec.
//
// For HMAC algorithms SigningKey is the shared secret and VerifyingKey is ignored. For RSA and
// EdDSA, SigningKey is a PEM private key (raw 64-byte seed+key is also accepted for EdDSA) and
// VerifyingKey the matching public key; when VerifyingKey is empty the public half is derived
// from SigningKey. A Codec with only a VerifyingKey can decode but not encode.
type Config struct {
	Algorithm    Algorithm
	SigningKey   []byte
	VerifyingKey []byte
	KeyID        string
	VerifyKeys   map[string][]byte
}

// Codec signs claim sets into compact tokens and reverses the operation.
//
// A Codec is immutable after NewCodec and safe for concurrent use.
type Codec struct {
	method     jwt.SigningMethod
	keyID      string
	signKey    any
	verifyKey  any
	verifyKeys map[string]any
}

// NewCodec validates cfg and parses its keys once.
func NewCodec(cfg Config) (*Codec, error) {
	method := signingMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	c := &Codec{method: method, keyID: strings.TrimSpace(cfg.KeyID)}

	var err error
	if isHMAC(cfg.Algorithm) {
		if len(cfg.SigningKey) < minHMACKeyBytes {
			return nil, fmt.Errorf("%s requires a signing key of at least %d bytes", cfg.Algorithm, minHMACKeyBytes)
		}
		c.signKey = cloneBytes(cfg.SigningKey)
		c.verifyKey = c.signKey
	} else {
		if len(cfg.SigningKey) > 0 {
			if c.signKey, err = parsePrivateKey(cfg.Algorithm, cfg.SigningKey); err != nil {
				return nil, err
			}
		}
		switch {
		case len(cfg.VerifyingKey) > 0:
			if c.verifyKey, err = parsePublicKey(cfg.Algorithm, cfg.VerifyingKey); err != nil {
				return nil, err
			}
		case c.signKey != nil:
			c.verifyKey = c.signKey.(crypto.Signer).Public()
		case len(cfg.VerifyKeys) == 0:
			return nil, fmt.Errorf("%s requires a signing key, verifying key, or verify key set", cfg.Algorithm)
		}
	}

	if len(cfg.VerifyKeys) > 0 {
		c.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			var parsed any
			if isHMAC(cfg.Algorithm) {
				if len(key) < minHMACKeyBytes {
					return nil, fmt.Errorf("verify key for kid %q is shorter than %d bytes", kid, minHMACKeyBytes)
				}
				parsed = cloneBytes(key)
			} else if parsed, err = parsePublicKey(cfg.Algorithm, key); err != nil {
				return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
			}
			c.verifyKeys[kid] = parsed
		}
		if c.keyID != "" {
			if _, ok := c.verifyKeys[c.keyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
	}

	return c, nil
}

// Algorithm returns the algorithm the codec signs with and the only one it accepts.
func (c *Codec) Algorithm() Algorithm {
	return Algorithm(c.method.Alg())
}

// KeyID returns the kid stamped into encoded headers, if any.
func (c *Codec) KeyID() string {
	return c.keyID
}

// PublicKey returns the verifying public key for asymmetric algorithms and nil for HMAC.
func (c *Codec) PublicKey() crypto.PublicKey {
	if isHMAC(c.Algorithm()) {
		return nil
	}
	return c.verifyKey
}

// CanSign reports whether the codec holds signing key material.
func (c *Codec) CanSign() bool {
	return c.signKey != nil
}

// Encode signs claims and returns the compact token. The same claims and key always
// produce the same string.
func (c *Codec) Encode(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("nil claims")
	}
	if c.signKey == nil {
		return "", errors.New("codec has no signing key")
	}

	token := jwt.NewWithClaims(c.method, claims)
	if c.keyID != "" {
		token.Header["kid"] = c.keyID
	}
	return token.SignedString(c.signKey)
}

// Decode verifies tokenStr and returns its claims. Registered claims such as exp are not
// validated here; that is the caller's job.
//
// Errors wrap exactly one of ErrMalformed, ErrSignature, or ErrUnsupportedAlgorithm.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithStrictDecoding())

	claims := NewClaims()
	_, err := parser.ParseWithClaims(tokenStr, claims, c.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && onlySignatureUndecodable(tokenStr) {
			return nil, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		return nil, classify(err)
	}
	return claims, nil
}

// onlySignatureUndecodable reports whether header and payload are canonical base64url but
// the signature segment is not. Non-zero trailing bits in the last signature character are
// a signature defect, not a structural one.
func onlySignatureUndecodable(tokenStr string) bool {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, seg := range parts[:2] {
		if _, err := enc.DecodeString(seg); err != nil {
			return false
		}
	}
	_, err := enc.DecodeString(parts[2])
	return err != nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method == nil || t.Method.Alg() != c.method.Alg() {
		return nil, ErrUnsupportedAlgorithm
	}

	kid, _ := t.Header["kid"].(string)
	if len(c.verifyKeys) > 0 {
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrSignature)
		}
		key, ok := c.verifyKeys[kid]
		if !ok {
			return nil, fmt.Errorf("%w: unknown kid", ErrSignature)
		}
		return key, nil
	}
	if c.keyID != "" && kid != c.keyID {
		return nil, fmt.Errorf("%w: unknown kid", ErrSignature)
	}
	if c.verifyKey == nil {
		return nil, fmt.Errorf("%w: no verifying key", ErrSignature)
	}
	return c.verifyKey, nil
}

// classify maps golang-jwt errors onto the codec taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
	case errors.Is(err, ErrSignature):
		return fmt.Errorf("%w: %v", ErrSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// golang-jwt reports an unregistered alg as unverifiable before the key func runs.
		return fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func signingMethod(alg Algorithm) jwt.SigningMethod {
	switch alg {
	case AlgHS256:
		return jwt.SigningMethodHS256
	case AlgHS384:
		return jwt.SigningMethodHS384
	case AlgHS512:
		return jwt.SigningMethodHS512
	case AlgRS256:
		return jwt.SigningMethodRS256
	case AlgRS384:
		return jwt.SigningMethodRS384
	case AlgRS512:
		return jwt.SigningMethodRS512
	case AlgEdDSA:
		return jwt.SigningMethodEdDSA
	default:
		return nil
	}
}

func isHMAC(alg Algorithm) bool {
	return alg == AlgHS256 || alg == AlgHS384 || alg == AlgHS512
}

func parsePrivateKey(alg Algorithm, key []byte) (any, error) {
	if alg == AlgEdDSA {
		return parseEdPrivateKey(key)
	}
	k, err := jwt.ParseRSAPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid rsa private key")
	}
	return k, nil
}

func parsePublicKey(alg Algorithm, key []byte) (any, error) {
	if alg == AlgEdDSA {
		return parseEdPublicKey(key)
	}
	k, err := jwt.ParseRSAPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid rsa public key")
	}
	return k, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(cloneBytes(key)), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(cloneBytes(key)), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
