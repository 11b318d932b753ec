// Package rate provides Redis-backed fixed-window counters that the mock
// backend uses to throttle sign-in failures and refresh bursts.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:login:<client>    sign-in failures per client address
//   - <prefix>:refresh:<account> refresh calls per account
//
// # What this package must NOT do
//
//   - Decide HTTP status codes or response bodies (mockapi does).
//   - Be imported outside this module.
package rate
