package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is an ordered mapping of claim name to JSON-compatible value.
//
// Claims keeps insertion order so that encoding the same claim set always yields the
// same payload bytes. Decoding preserves the order found on the wire. A Claims value is
// not safe for concurrent mutation; each decode produces a fresh, independently owned value.
type Claims struct {
	keys   []string
	values map[string]any
}

// NewClaims returns an empty claim container.
func NewClaims() *Claims {
	return &Claims{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (c *Claims) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Claims) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key. A new key is appended to the encoding order; an existing
// key keeps its position.
func (c *Claims) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *Claims) Delete(key string) {
	if c == nil {
		return
	}
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns claim names in encoding order.
func (c *Claims) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of claims.
func (c *Claims) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Clone returns a deep copy; nested maps and slices are copied too.
func (c *Claims) Clone() *Claims {
	out := NewClaims()
	if c == nil {
		return out
	}
	for _, k := range c.keys {
		out.Set(k, cloneValue(c.values[k]))
	}
	return out
}

// Map returns the claims as a plain map. The map is a deep copy.
func (c *Claims) Map() map[string]any {
	out := make(map[string]any, c.Len())
	if c == nil {
		return out
	}
	for _, k := range c.keys {
		out[k] = cloneValue(c.values[k])
	}
	return out
}

// String returns the claim as a string when it holds one.
func (c *Claims) String(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 returns a numeric claim as an integer. Fractional values are truncated.
func (c *Claims) Int64(key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

// Time interprets a numeric claim as seconds since the Unix epoch.
func (c *Claims) Time(key string) (time.Time, bool) {
	sec, ok := c.Int64(key)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}

// MarshalJSON encodes the claims as a JSON object in insertion order.
func (c *Claims) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c != nil {
		for i, k := range c.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(c.values[k])
			if err != nil {
				return nil, fmt.Errorf("claim %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the receiver's content with the JSON object in data.
// Integral numbers decode to int64 and other numbers to float64, at every depth.
func (c *Claims) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("claims must be a JSON object")
	}

	c.keys = c.keys[:0]
	c.values = make(map[string]any)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("claim name must be a string")
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("claim %q: %w", key, err)
		}
		c.Set(key, normalizeNumbers(raw))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// The methods below satisfy jwt.Claims. Registered-claim validation is not performed by
// the codec; they exist so golang-jwt can carry a Claims value.

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.numericDate("exp") }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.numericDate("iat") }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return c.numericDate("nbf") }

func (c *Claims) GetIssuer() (string, error) {
	s, _ := c.String("iss")
	return s, nil
}

func (c *Claims) GetSubject() (string, error) {
	s, _ := c.String("sub")
	return s, nil
}

func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	v, ok := c.Get("aud")
	if !ok {
		return nil, nil
	}
	switch aud := v.(type) {
	case string:
		return jwt.ClaimStrings{aud}, nil
	case []any:
		out := make(jwt.ClaimStrings, 0, len(aud))
		for _, a := range aud {
			s, ok := a.(string)
			if !ok {
				return nil, jwt.ErrInvalidType
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return jwt.ClaimStrings(aud), nil
	default:
		return nil, jwt.ErrInvalidType
	}
}

func (c *Claims) numericDate(key string) (*jwt.NumericDate, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, nil
	}
	sec, ok := toInt64(v)
	if !ok {
		return nil, jwt.ErrInvalidType
	}
	return jwt.NewNumericDate(time.Unix(sec, 0)), nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeNumbers(inner)
		}
		return t
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
