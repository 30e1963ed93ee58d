package httpapi

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/tokenkit"
	"github.com/MrEthical07/tokenkit/credentials"
	"github.com/MrEthical07/tokenkit/revocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testHost struct {
	handler http.Handler
	engine  *tokenkit.Engine
	now     *time.Time
}

func newTestCredentials(t *testing.T) *credentials.Store {
	t.Helper()
	hasher, err := credentials.NewHasher(credentials.HashConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	store, err := credentials.NewStore(hasher)
	require.NoError(t, err)
	require.NoError(t, store.Add("alice", "user-1", "alice-password", true))
	require.NoError(t, store.Add("bob", "user-2", "bob-password", false))
	return store
}

func newTestHost(t *testing.T, mutate func(*tokenkit.Config), withStore bool) *testHost {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	clock := tokenkit.ClockFunc(func() time.Time { return now })

	cfg := tokenkit.DefaultConfig()
	cfg.Signing.SigningKey = testSecret
	if mutate != nil {
		mutate(&cfg)
	}

	b := tokenkit.New().WithConfig(cfg).WithClock(clock)
	if withStore {
		b.WithRevocation(revocation.NewMemoryStore())
	}
	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := New(engine, newTestCredentials(t), nil)
	return &testHost{handler: srv.Handler(), engine: engine, now: &now}
}

func (h *testHost) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestObtainPairAndRefresh(t *testing.T) {
	h := newTestHost(t, nil, false)

	rec := h.do(t, http.MethodPost, "/token/", map[string]string{"username": "alice", "password": "alice-password"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decodeBody(t, rec)
	require.NotEmpty(t, pair["access"])
	require.NotEmpty(t, pair["refresh"])

	rec = h.do(t, http.MethodPost, "/token/refresh/", map[string]any{"refresh": pair["refresh"]}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decodeBody(t, rec)
	require.NotEmpty(t, refreshed["access"])
	_, rotated := refreshed["refresh"]
	assert.False(t, rotated, "refresh must be absent without rotation")

	claims, err := h.engine.Verify(context.Background(), refreshed["access"].(string))
	require.NoError(t, err)
	sub, _ := claims.String("user_id")
	assert.Equal(t, "user-1", sub)
}

func TestObtainPairMissingFields(t *testing.T) {
	h := newTestHost(t, nil, false)

	rec := h.do(t, http.MethodPost, "/token/", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "username")
	assert.Contains(t, body, "password")

	rec = h.do(t, http.MethodPost, "/token/", map[string]string{"username": "alice"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decodeBody(t, rec)
	assert.NotContains(t, body, "username")
	assert.Contains(t, body, "password")
}

func TestObtainPairRejectsBadCredentials(t *testing.T) {
	h := newTestHost(t, nil, false)

	cases := []map[string]string{
		{"username": "alice", "password": "wrong-password"},
		{"username": "nobody", "password": "alice-password"},
		{"username": "bob", "password": "bob-password"},
	}
	for _, c := range cases {
		rec := h.do(t, http.MethodPost, "/token/", c, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, c["username"])
		assert.Equal(t, detailNoAccount, decodeBody(t, rec)["detail"])
	}
}

func TestMalformedBody(t *testing.T) {
	h := newTestHost(t, nil, false)
	rec := h.do(t, http.MethodPost, "/token/verify/", "{not json", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyRoute(t *testing.T) {
	h := newTestHost(t, nil, false)
	pair, err := h.engine.IssuePair(context.Background(), "user-1", nil)
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/token/verify/", map[string]string{"token": pair.Access}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/token/verify/", map[string]string{"token": "garbage"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, tokenkit.CodeTokenNotValid, body["code"])
	assert.Equal(t, detailTokenInvalid, body["detail"])
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	h := newTestHost(t, nil, false)
	pair, err := h.engine.IssuePair(context.Background(), "user-1", nil)
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/token/refresh/", map[string]string{"refresh": pair.Access}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, tokenkit.CodeTokenNotValid, decodeBody(t, rec)["code"])
}

func TestRefreshRotation(t *testing.T) {
	h := newTestHost(t, func(cfg *tokenkit.Config) {
		cfg.Refresh.Rotate = true
		cfg.Refresh.RevokeAfterRotation = true
	}, true)
	pair, err := h.engine.IssuePair(context.Background(), "user-1", nil)
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/token/refresh/", map[string]string{"refresh": pair.Refresh}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.NotEmpty(t, body["refresh"])
	assert.NotEqual(t, pair.Refresh, body["refresh"])

	rec = h.do(t, http.MethodPost, "/token/refresh/", map[string]string{"refresh": pair.Refresh}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "old refresh token must be revoked")
}

func TestSlidingObtainAndRefresh(t *testing.T) {
	h := newTestHost(t, nil, false)

	rec := h.do(t, http.MethodPost, "/token/sliding/", map[string]string{"username": "alice", "password": "alice-password"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeBody(t, rec)["token"].(string)

	*h.now = h.now.Add(time.Minute)
	rec = h.do(t, http.MethodPost, "/token/sliding/refresh/", map[string]string{"token": first}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeBody(t, rec)["token"].(string)
	assert.NotEqual(t, first, second)

	*h.now = h.now.Add(48 * time.Hour)
	rec = h.do(t, http.MethodPost, "/token/sliding/refresh/", map[string]string{"token": second}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRevokeRoute(t *testing.T) {
	h := newTestHost(t, nil, true)
	pair, err := h.engine.IssuePair(context.Background(), "user-1", nil)
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/token/revoke/", map[string]string{"token": pair.Access}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/token/verify/", map[string]string{"token": pair.Access}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/token/verify/", map[string]string{"token": pair.Refresh}, nil)
	require.Equal(t, http.StatusOK, rec.Code, "revoking one jti must not affect another")
}

func TestRevokeRouteWithoutStore(t *testing.T) {
	h := newTestHost(t, nil, false)
	pair, err := h.engine.IssuePair(context.Background(), "user-1", nil)
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/token/revoke/", map[string]string{"token": pair.Access}, nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestIntrospectRequiresBearer(t *testing.T) {
	h := newTestHost(t, nil, false)
	pair, err := h.engine.IssuePair(context.Background(), "user-1", map[string]any{"scope": "read"})
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/token/introspect/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/token/introspect/", nil, http.Header{"Authorization": {"Bearer " + pair.Refresh}})
	require.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens do not authenticate requests")

	rec = h.do(t, http.MethodGet, "/token/introspect/", nil, http.Header{"Authorization": {"Bearer " + pair.Access}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, "read", body["scope"])
	assert.Equal(t, "access", body["token_type"])
}

func TestJWKSNotPublishedForHMAC(t *testing.T) {
	h := newTestHost(t, nil, false)
	rec := h.do(t, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJWKSPublishesEd25519Key(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	h := newTestHost(t, func(cfg *tokenkit.Config) {
		cfg.Signing.Algorithm = "EdDSA"
		cfg.Signing.SigningKey = string(priv)
		cfg.Signing.KeyID = "k1"
		cfg.Signing.VerifyKeys = map[string][]byte{"k1": priv.Public().(ed25519.PublicKey)}
	}, false)

	rec := h.do(t, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "OKP", set.Keys[0]["kty"])
	assert.Equal(t, "EdDSA", set.Keys[0]["alg"])
	assert.Equal(t, "k1", set.Keys[0]["kid"])
	assert.Equal(t, "sig", set.Keys[0]["use"])
	_, hasPrivate := set.Keys[0]["d"]
	assert.False(t, hasPrivate)
}

func TestUnknownMethodNotRouted(t *testing.T) {
	h := newTestHost(t, nil, false)
	rec := h.do(t, http.MethodGet, "/token/", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
