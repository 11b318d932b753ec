package hrclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Request describes one logical API call. Path is relative to the client's
// base URL ("/api/employees"). Body, when non-nil, is sent as JSON; []byte and
// json.RawMessage bodies are sent verbatim.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || v == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// outbound is the mutable per-attempt state threaded through the sender chain.
type outbound struct {
	method    string
	path      string
	query     url.Values
	body      []byte
	header    http.Header
	requestID string

	// token and epoch are the credential snapshot used for this attempt.
	token   string
	epoch   uint64
	retried bool
}

func newOutbound(ctx context.Context, req *Request) (*outbound, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	requestID := requestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return &outbound{
		method:    method,
		path:      req.Path,
		query:     req.Query,
		body:      body,
		header:    req.Header,
		requestID: requestID,
	}, nil
}

// encodeBody marshals once so a replay after refresh sends identical bytes.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return data, nil
}

/*
====================================
PUBLIC REQUEST API
====================================
*/

// Do sends req through the authenticated transport.
//
// A 2xx response is returned as is. Any other outcome is a *RequestError:
// KindNetwork when no response arrived, KindAuthExpired when the credential
// could not be refreshed or the replay was rejected, KindServerError for 5xx
// and KindClientError for the rest.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}

	o, err := newOutbound(ctx, req)
	if err != nil {
		return nil, err
	}

	return c.finish(ctx, o, c.send)
}

// DoAnonymous sends req without a credential and outside the refresh
// protocol. It is meant for sign-in endpoints, where a 401 means the
// presented proof was rejected rather than that a token expired.
func (c *Client) DoAnonymous(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}

	o, err := newOutbound(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.finish(ctx, o, c.baseTransport)
}

func (c *Client) finish(ctx context.Context, o *outbound, send sender) (*Response, error) {
	start := time.Now()
	resp, err := send(ctx, o)
	c.metrics.Observe(MetricRequestLatency, time.Since(start))

	if err == nil && !isSuccess(resp.Status) {
		err = classifyResponse(o, resp)
		resp = nil
	}
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	c.metrics.Inc(MetricRequestSuccess)
	return resp, nil
}

// Request is the positional form of Do.
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
	})
}

// Get sends a GET and decodes the JSON response into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, out)
}

// Delete sends a DELETE and decodes any response body into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.Request(ctx, method, path, body, query)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) recordFailure(err error) {
	c.metrics.Inc(MetricRequestFailure)

	kind, _ := KindOf(err)
	switch kind {
	case KindNetwork:
		c.metrics.Inc(MetricNetworkError)
	case KindAuthExpired:
		c.metrics.Inc(MetricAuthExpired)
	}
}
