// Package middleware exposes HTTP guards that verify bearer tokens through a
// tokenkit.Engine.
//
// # Guards
//
//   - [Guard] accepts access and sliding tokens via Engine.Authenticate.
//   - [RequireKind] accepts a single token kind via Engine.Parse.
//
// Each guard reads the Authorization header and injects the verified token into the
// request context, where handlers retrieve it with [TokenFromContext].
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Make authorization decisions beyond pass/reject.
//   - Echo the rejection reason to the client.
package middleware
