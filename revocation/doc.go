// Package revocation provides denylist stores that satisfy tokenkit.RevocationStore.
//
// Entries are keyed by the token identifier and live exactly as long as the token they
// revoke would have been valid; once the token has expired on its own the entry is no
// longer needed and is dropped.
//
// # Stores
//
//   - [RedisStore] keeps entries in Redis with a TTL, for deployments with more than one
//     process.
//   - [MemoryStore] keeps entries in a mutex-guarded map, for tests and single-process hosts.
package revocation
