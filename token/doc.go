// Package token reads and issues the HR portal's JWT access and refresh tokens.
//
// # Client side
//
// [Inspect] decodes an access token WITHOUT verifying its signature. The client
// never holds the backend's signing key; it only needs the expiry to decide
// whether to refresh ahead of a request and how long a persisted credential
// stays useful. Opaque tokens yield [ErrNotJWT] and callers treat their expiry
// as unknown.
//
// # Server side
//
// [Signer] issues and verifies HS256 tokens shaped like the backend's
// (sub, type, iat, exp). It backs the in-process fake API used by tests and
// the load test.
//
// # What this package must NOT do
//
//   - Treat an inspected (unverified) token as trusted identity.
//   - Import hrclient or store (no upward imports).
//   - Perform I/O.
package token
