// Package store persists the client's access credential and cached user
// profile across process restarts.
//
// # Backends
//
//   - [MemoryStore] keeps values for the life of the process (the default).
//   - [FileStore] writes a single 0600 JSON file, suited to CLIs.
//   - [RedisStore] shares the credential between processes through Redis.
//
// Every backend implements the hrclient CredentialStore contract: a missing or
// expired value is reported as [ErrNotFound], and Clear is idempotent.
//
// # Architecture boundaries
//
// This package owns storage only. It does NOT decide when a credential changes
// or interpret token contents; the Client computes TTLs and drives every write.
//
// # What this package must NOT do
//
//   - Import hrclient (no upward imports).
//   - Store the refresh token. It lives in an HttpOnly cookie the client never reads.
package store
