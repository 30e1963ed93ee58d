package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenkit"
)

type tokenContextKey struct{}

// TokenFromContext returns the token Guard verified for this request.
func TokenFromContext(ctx context.Context) (*tokenkit.Token, bool) {
	tok, ok := ctx.Value(tokenContextKey{}).(*tokenkit.Token)
	return tok, ok
}

// Guard accepts requests whose bearer token passes Engine.Authenticate.
func Guard(engine *tokenkit.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(ctx context.Context, raw string) (*tokenkit.Token, error) {
		return engine.Authenticate(ctx, raw)
	})
}

// RequireKind accepts only bearer tokens of kind. For sliding tokens the refresh cutoff
// is enforced as well.
func RequireKind(engine *tokenkit.Engine, kind tokenkit.Kind) func(http.Handler) http.Handler {
	return guard(engine, func(ctx context.Context, raw string) (*tokenkit.Token, error) {
		return engine.Parse(ctx, raw, kind)
	})
}

type verifyFunc func(ctx context.Context, raw string) (*tokenkit.Token, error)

func guard(engine *tokenkit.Engine, verify verifyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w, "Authentication is not configured.")
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "Authentication credentials were not provided.")
				return
			}

			tok, err := verify(r.Context(), raw)
			if err != nil {
				unauthorized(w, "Given token not valid for any token type.")
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey{}, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": detail,
		"code":   tokenkit.CodeTokenNotValid,
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
