package hrclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	reasonUnauthorized = "unauthorized"
	reasonExpiring     = "expiring"
	reasonManual       = "manual"
)

// errCredentialCleared is the cause reported when a 401 arrives for a
// credential that was cleared while the request was in flight.
var errCredentialCleared = errors.New("credential cleared")

// refreshCall is the shared handle for one in-flight refresh. token and err
// are written once, before done is closed.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Refresh exchanges the refresh cookie for a new credential. It joins a
// refresh already in flight instead of starting another one.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	requestID := requestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	o := &outbound{
		method:    http.MethodPost,
		path:      c.config.Refresh.Path,
		requestID: requestID,
	}

	c.mu.Lock()
	call := c.inflight
	if call == nil {
		call = c.startRefreshLocked(ctx, requestID, reasonManual)
	} else {
		c.metrics.Inc(MetricRefreshJoined)
	}
	c.mu.Unlock()

	if err := c.wait(ctx, o, call); err != nil {
		return "", err
	}
	return call.token, nil
}

// awaitCredential runs after the first 401 of a logical request and returns
// once a credential worth replaying with is installed.
//
// The epoch recorded at send time separates a genuine expiry from a late 401
// for a token that has already been replaced: a newer credential is used
// directly, a cleared one fails without contacting the backend.
func (c *Client) awaitCredential(ctx context.Context, o *outbound) error {
	c.mu.Lock()
	call := c.inflight
	switch {
	case call != nil:
		c.mu.Unlock()
		c.metrics.Inc(MetricRefreshJoined)
	case c.epoch != o.epoch && c.token != "":
		c.mu.Unlock()
		return nil
	case c.epoch != o.epoch:
		c.mu.Unlock()
		return &RequestError{
			Kind:   KindAuthExpired,
			Status: http.StatusUnauthorized,
			Method: o.method,
			Path:   o.path,
			Err:    errCredentialCleared,
		}
	default:
		call = c.startRefreshLocked(ctx, o.requestID, reasonUnauthorized)
		c.mu.Unlock()
	}

	return c.wait(ctx, o, call)
}

// startRefreshLocked publishes a new in-flight refresh and launches it. The
// caller must hold c.mu and must have observed c.inflight == nil.
//
// The refresh runs detached from ctx: a caller giving up must not fail the
// refresh for everyone else waiting on it.
func (c *Client) startRefreshLocked(ctx context.Context, requestID, reason string) *refreshCall {
	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	go c.runRefresh(context.WithoutCancel(ctx), call, requestID, reason, c.epoch)
	return call
}

func (c *Client) runRefresh(parent context.Context, call *refreshCall, requestID, reason string, fromEpoch uint64) {
	ctx, cancel := context.WithTimeout(parent, c.config.Refresh.Timeout)
	defer cancel()

	c.metrics.Inc(MetricRefreshStarted)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "credential refresh started",
		slog.String("request_id", requestID),
		slog.String("reason", reason),
	)
	c.emit(ctx, eventFields{
		typ:       EventRefreshStarted,
		requestID: requestID,
		method:    http.MethodPost,
		path:      c.config.Refresh.Path,
		success:   true,
		metadata:  refreshMetadata(reason, fromEpoch),
	})

	start := time.Now()
	newToken, err := c.callRefresh(ctx, requestID)
	elapsed := time.Since(start)
	c.metrics.Observe(MetricRefreshLatency, elapsed)

	// The credential changes first, while the call is still published, so
	// no request can slip in between with the old token.
	c.mu.Lock()
	var ttl time.Duration
	if err == nil {
		ttl = c.installLocked(newToken)
	} else {
		c.clearLocked()
	}
	epoch := c.epoch
	c.mu.Unlock()

	if err == nil {
		c.metrics.Inc(MetricRefreshSuccess)
		c.persistCredential(newToken, ttl)
		c.logger.LogAttrs(ctx, slog.LevelInfo, "credential refreshed",
			slog.String("request_id", requestID),
			slog.Duration("elapsed", elapsed),
		)
		c.emit(ctx, eventFields{
			typ:       EventRefreshSucceeded,
			requestID: requestID,
			method:    http.MethodPost,
			path:      c.config.Refresh.Path,
			status:    http.StatusOK,
			success:   true,
			metadata:  refreshMetadata(reason, epoch),
		})
	} else {
		c.metrics.Inc(MetricRefreshFailure)
		c.clearStore()
		c.logger.LogAttrs(ctx, slog.LevelWarn, "credential refresh failed",
			slog.String("request_id", requestID),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		fields := eventFields{
			typ:       EventRefreshFailed,
			requestID: requestID,
			method:    http.MethodPost,
			path:      c.config.Refresh.Path,
			status:    refreshStatus(err),
			err:       err,
			metadata:  refreshMetadata(reason, epoch),
		}
		c.emit(ctx, fields)
		fields.typ = EventReauthRequired
		c.emit(ctx, fields)
	}

	c.mu.Lock()
	call.token, call.err = newToken, err
	c.inflight = nil
	c.mu.Unlock()
	close(call.done)

	// After close so the handler may issue requests through this client.
	if err != nil && c.onReauth != nil {
		c.onReauth(err)
	}
}

// callRefresh posts an empty JSON object to the refresh endpoint over the
// bare transport. The refresh cookie rides along in the jar; no bearer
// credential is attached.
func (c *Client) callRefresh(ctx context.Context, requestID string) (string, error) {
	o := &outbound{
		method:    http.MethodPost,
		path:      c.config.Refresh.Path,
		body:      []byte("{}"),
		requestID: requestID,
	}

	resp, err := c.baseTransport(ctx, o)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Err != nil {
			err = reqErr.Err
		}
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	if !isSuccess(resp.Status) {
		return "", &refreshRejectedError{
			status:  resp.Status,
			message: extractMessage(resp.Body),
		}
	}

	newToken, err := AccessTokenFrom(resp.Body)
	if err != nil {
		return "", err
	}
	return newToken, nil
}

// refreshRejectedError is the cause when the backend answered the refresh
// call with a non-2xx status.
type refreshRejectedError struct {
	status  int
	message string
}

func (e *refreshRejectedError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("refresh rejected: %s: %s", statusLabel(e.status), e.message)
	}
	return fmt.Sprintf("refresh rejected: %s", statusLabel(e.status))
}

func refreshStatus(err error) int {
	var rejected *refreshRejectedError
	if errors.As(err, &rejected) {
		return rejected.status
	}
	return 0
}

// wait blocks until call settles or ctx ends. A refresh failure is reported
// as KindAuthExpired with the failure as cause.
func (c *Client) wait(ctx context.Context, o *outbound, call *refreshCall) error {
	select {
	case <-call.done:
	case <-ctx.Done():
		return &RequestError{
			Kind:   KindNetwork,
			Method: o.method,
			Path:   o.path,
			Err:    ctx.Err(),
		}
	}

	if call.err != nil {
		return &RequestError{
			Kind:   KindAuthExpired,
			Method: o.method,
			Path:   o.path,
			Err:    call.err,
		}
	}
	return nil
}
