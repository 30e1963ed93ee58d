// Package tokenkit issues, verifies and renews signed JSON Web Tokens.
//
// Three token variants are supported: short-lived access tokens, refresh tokens that are
// exchanged for new access tokens, and sliding tokens that are renewed in place until a
// hard refresh cutoff. Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokenkit is the public surface. It exposes [Engine], [Builder], [Config], [Token] and
// the revocation hook. Signing and claim encoding live in the jwt sub-package; concrete
// revocation stores live in revocation; HTTP transport lives in httpapi and middleware.
//
// # Verification
//
// Verification is a fixed sequence of gates: decode and signature, token type, required
// claims, expiration, and finally revocation. Every failure is a [*TokenInvalid] whose
// outward code is always "token_not_valid"; the [Reason] is for logs and metrics only.
//
// # What this package must NOT do
//
//   - Read time.Now directly for an expiration decision (use the configured Clock).
//   - Store or look up credentials.
//   - Import httpapi, middleware or revocation (no import cycles).
package tokenkit
