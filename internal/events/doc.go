// Package events implements async delivery of client lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, request id, method, path, status, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That responsibility belongs to the Client and its transport decorators.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on protocol state.
//   - Import hrclient or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package events
