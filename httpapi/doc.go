// Package httpapi is the reference HTTP host for a tokenkit.Engine.
//
// # Routes
//
//	POST /token/                  username, password  -> access, refresh
//	POST /token/refresh/          refresh             -> access [, refresh]
//	POST /token/sliding/          username, password  -> token
//	POST /token/sliding/refresh/  token               -> token
//	POST /token/verify/           token               -> {}
//	POST /token/revoke/           token               -> {}
//	GET  /token/introspect/       bearer token        -> claims
//	GET  /.well-known/jwks.json                       -> JWK set (asymmetric keys only)
//
// Missing request fields answer 400 with the offending field names. Every rejected token
// answers 401 with code "token_not_valid"; the internal rejection reason is logged, never
// returned.
package httpapi
