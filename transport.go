package hrclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// sender is one layer of the request pipeline. Layers wrap each other:
//
//	refreshBeforeExpiry(retryOnUnauthorized(attachCredential(baseTransport)))
//
// The refresh call itself goes straight to baseTransport, so it can never
// re-enter the retry layer.
type sender func(ctx context.Context, o *outbound) (*Response, error)

// baseTransport performs exactly one HTTP exchange. It attaches o.token when
// set and never inspects the status code.
func (c *Client) baseTransport(ctx context.Context, o *outbound) (*Response, error) {
	target, err := c.resolve(o.path, o.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var body io.Reader
	if o.body != nil {
		body = bytes.NewReader(o.body)
	}

	req, err := http.NewRequestWithContext(ctx, o.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	for k, vs := range o.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if o.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ua := c.config.Transport.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set(RequestIDHeader, o.requestID)
	req.Header.Del("Authorization")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{
			Kind:   KindNetwork,
			Method: o.method,
			Path:   o.path,
			Err:    err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{
			Kind:   KindNetwork,
			Status: resp.StatusCode,
			Method: o.method,
			Path:   o.path,
			Err:    fmt.Errorf("failed to read response body: %w", err),
		}
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "http exchange",
		slog.String("request_id", o.requestID),
		slog.String("method", o.method),
		slog.String("path", o.path),
		slog.Int("status", resp.StatusCode),
		slog.Bool("authorized", o.token != ""),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      data,
		RequestID: o.requestID,
	}, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	u := c.baseURL.JoinPath(ref.Path)
	q := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// attachCredential stamps the current credential and its epoch on o. A
// request arriving while a refresh is in flight waits for it instead of
// sending the token that is being replaced. The inflight check and the read
// share one lock hold, so a refresh started in between is waited for too.
func (c *Client) attachCredential(next sender) sender {
	return func(ctx context.Context, o *outbound) (*Response, error) {
		for {
			c.mu.Lock()
			call := c.inflight
			if call == nil {
				o.token, o.epoch = c.token, c.epoch
				c.mu.Unlock()
				break
			}
			c.mu.Unlock()

			c.metrics.Inc(MetricRefreshJoined)
			if err := c.wait(ctx, o, call); err != nil {
				return nil, err
			}
		}
		return next(ctx, o)
	}
}

// retryOnUnauthorized handles 401 responses: the first one waits for a fresh
// credential and replays once, a second one is final.
func (c *Client) retryOnUnauthorized(next sender) sender {
	var self sender
	self = func(ctx context.Context, o *outbound) (*Response, error) {
		resp, err := next(ctx, o)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusUnauthorized {
			if o.retried {
				c.metrics.Inc(MetricRetrySuccess)
			}
			return resp, nil
		}

		c.metrics.Inc(MetricUnauthorized)
		if o.retried {
			return nil, c.rejectReplay(ctx, o, resp)
		}

		o.retried = true
		if err := c.awaitCredential(ctx, o); err != nil {
			return nil, err
		}
		return self(ctx, o)
	}
	return self
}

// refreshBeforeExpiry starts a refresh when the held token is a JWT about to
// expire. Opaque tokens are left to the 401 path.
func (c *Client) refreshBeforeExpiry(next sender) sender {
	leeway := c.config.Refresh.ExpiryLeeway
	if leeway <= 0 {
		return next
	}

	return func(ctx context.Context, o *outbound) (*Response, error) {
		c.mu.Lock()
		var call *refreshCall
		if c.inflight == nil && c.token != "" && !c.expiresAt.IsZero() && !c.expiresAt.After(c.now().Add(leeway)) {
			c.metrics.Inc(MetricProactiveRefresh)
			call = c.startRefreshLocked(ctx, o.requestID, reasonExpiring)
		}
		c.mu.Unlock()

		if call != nil {
			if err := c.wait(ctx, o, call); err != nil {
				return nil, err
			}
		}
		return next(ctx, o)
	}
}

func (c *Client) rejectReplay(ctx context.Context, o *outbound, resp *Response) error {
	c.metrics.Inc(MetricRetryRejected)
	c.logger.LogAttrs(ctx, slog.LevelWarn, "replay rejected after refresh",
		slog.String("request_id", o.requestID),
		slog.String("method", o.method),
		slog.String("path", o.path),
	)
	c.emit(ctx, eventFields{
		typ:       EventRetryRejected,
		requestID: o.requestID,
		method:    o.method,
		path:      o.path,
		status:    resp.Status,
	})

	return &RequestError{
		Kind:    KindAuthExpired,
		Status:  resp.Status,
		Body:    resp.Body,
		Message: extractMessage(resp.Body),
		Method:  o.method,
		Path:    o.path,
	}
}
