// Package jwt owns the claim container and the compact signed-token codec.
//
// # Token format
//
// Three base64url segments joined by dots: a header carrying alg, typ and an optional kid,
// the [Claims] payload as JSON in insertion order, and the signature over both.
//
// # Architecture boundaries
//
// This package signs, parses and verifies signatures. It never reads the clock and never
// interprets exp, token types or revocation; those belong to the tokenkit engine.
//
// # What this package must NOT do
//
//   - Validate registered claims (exp, nbf, iat) during Decode.
//   - Accept any algorithm other than the one the Codec was built with.
//   - Import tokenkit or perform I/O.
package jwt
