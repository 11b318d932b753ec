// Package auth wraps the HR portal's /api/auth endpoints on top of an
// [hrclient.Client].
//
// # Architecture boundaries
//
// Sign-in goes through [hrclient.Client.DoAnonymous] so a rejected ID token is
// reported as a client error instead of starting a credential refresh. Every
// other call uses the authenticated pipeline. The access token returned by the
// backend is handed to the client; the refresh token stays in its cookie jar.
//
// # What this package must NOT do
//
//   - Hold credential state of its own.
//   - Verify Google ID tokens. The backend owns that.
package auth
