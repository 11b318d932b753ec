// Package mockapi is an in-process fake of the HR portal backend.
//
// It serves the /api/auth and /api/employees routes with real HS256 access
// tokens, a rotating refresh token in an HttpOnly cookie and an in-memory
// employee table. Tests, the load generator and `hrctl mock-server` drive it
// to exercise the client's refresh protocol end to end.
//
// Sign-in accepts ID tokens of the form "mock:<email>". Unknown emails are
// registered as non-admin users on first sign-in.
//
// # Knobs
//
//   - ExpireAccessTokens invalidates every access token issued so far.
//   - SetFailRefresh makes the refresh route answer 401.
//   - SetRefreshDelay holds refresh responses to widen concurrency windows.
//   - RefreshCalls counts refresh requests, successful or not.
package mockapi
