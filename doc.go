// Package hrclient provides an authenticated HTTP client for the HR portal API
// with a single-flight credential refresh.
//
// The client holds one bearer access token. Requests are sent with a snapshot
// of it; when the backend answers 401, exactly one refresh call is made no
// matter how many concurrent requests observed the expiry, every waiter shares
// its outcome, and each request is replayed at most once. A failed refresh
// clears the credential, emits the reauth_required event and invokes the
// handler registered with [Builder.WithReauthHandler].
//
// # Architecture boundaries
//
// hrclient is the public surface. It exposes [Client], [Builder], [Config],
// [RequestError] and value types. Resource clients (auth, employees) build on
// [Client.Do] and live in their own packages. Event buffering lives under
// internal/ and is never exported.
//
// The request pipeline is a stack of sender decorators:
//
//	refreshBeforeExpiry(retryOnUnauthorized(attachCredential(baseTransport)))
//
// The refresh call uses baseTransport directly, so it can never trigger the
// refresh protocol itself.
//
// # What this package must NOT do
//
//   - Read or store the refresh token. It stays in the HttpOnly cookie.
//   - Perform I/O in Builder.Build. Persisted credentials are loaded by [Client.Restore].
//   - Import any sub-package that re-imports hrclient (no import cycles).
//
// # Concurrency contract
//
// The credential, its epoch and the in-flight refresh handle share one mutex.
// Checking for an in-flight refresh and publishing a new one happen in the same
// critical section, before any I/O. The refresh runs on a context detached from
// the request that triggered it and bounded by Config.Refresh.Timeout.
package hrclient
