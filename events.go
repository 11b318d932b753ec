package hrclient

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/hrclient/internal/events"
	"github.com/google/uuid"
)

// Event is a structured client lifecycle record.
type Event = events.Event

// EventSink receives events from the client's asynchronous dispatcher.
type EventSink = events.Sink

// NoOpSink discards events.
type NoOpSink = events.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = events.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = events.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = events.SlogSink

// NewChannelSink returns a sink with the given channel capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return events.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return events.NewJSONWriterSink(w)
}

// NewSlogSink returns a sink logging to logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return events.NewSlogSink(logger)
}

const (
	// EventCredentialSet is emitted when a credential is installed by sign-in or SetCredential.
	EventCredentialSet = "credential_set"
	// EventCredentialCleared is emitted when the credential is removed by the caller.
	EventCredentialCleared = "credential_cleared"
	// EventRefreshStarted is emitted when a refresh call is sent.
	EventRefreshStarted = "refresh_started"
	// EventRefreshSucceeded is emitted when a refresh installed a new credential.
	EventRefreshSucceeded = "refresh_succeeded"
	// EventRefreshFailed is emitted when a refresh failed and the credential was cleared.
	EventRefreshFailed = "refresh_failed"
	// EventReauthRequired is the re-authentication signal. Consumers should
	// route the user to sign-in when they see it.
	EventReauthRequired = "reauth_required"
	// EventRetryRejected is emitted when a replayed request received a second 401.
	EventRetryRejected = "retry_rejected"
)

var eventTypes = []string{
	EventCredentialSet,
	EventCredentialCleared,
	EventRefreshStarted,
	EventRefreshSucceeded,
	EventRefreshFailed,
	EventReauthRequired,
	EventRetryRejected,
}

type eventFields struct {
	typ       string
	requestID string
	method    string
	path      string
	status    int
	success   bool
	err       error
	metadata  map[string]string
}

func (c *Client) emit(ctx context.Context, f eventFields) {
	if !c.events.Wants(f.typ) {
		return
	}

	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      f.typ,
		RequestID: f.requestID,
		Method:    f.method,
		Path:      f.path,
		Status:    f.status,
		Success:   f.success,
		Metadata:  f.metadata,
	}
	if f.err != nil {
		ev.Error = f.err.Error()
	}

	c.events.Emit(ctx, ev)
}

func refreshMetadata(reason string, epoch uint64) map[string]string {
	return map[string]string{
		"reason": reason,
		"epoch":  formatEpoch(epoch),
	}
}

func formatEpoch(epoch uint64) string {
	return strconv.FormatUint(epoch, 10)
}
