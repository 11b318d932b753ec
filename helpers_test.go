package hrclient

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testRefreshCookie = "refresh-cookie-value"

type seenRequest struct {
	Method    string
	Path      string
	Token     string
	RequestID string
	Body      string
	Cookie    string
}

// fakeBackend mimics the HR API: protected routes accept only tokens in
// valid, the refresh route consults refreshFn.
type fakeBackend struct {
	srv *httptest.Server

	mu        sync.Mutex
	valid     map[string]bool
	seen      []seenRequest
	refreshFn func(w http.ResponseWriter, r *http.Request)

	refreshCalls atomic.Int32
	unauthorized atomic.Int32

	// hold, when set, blocks requests for path until released.
	holdPath string
	holdSeen chan struct{}
	holdGate chan struct{}
}

func newFakeBackend(t testing.TB, valid ...string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{valid: map[string]bool{}}
	for _, v := range valid {
		b.valid[v] = true
	}
	b.refreshFn = b.issue("T2")
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) accept(token string) {
	b.mu.Lock()
	b.valid[token] = true
	b.mu.Unlock()
}

func (b *fakeBackend) revoke(token string) {
	b.mu.Lock()
	delete(b.valid, token)
	b.mu.Unlock()
}

func (b *fakeBackend) setRefresh(fn func(w http.ResponseWriter, r *http.Request)) {
	b.mu.Lock()
	b.refreshFn = fn
	b.mu.Unlock()
}

// issue returns a refresh handler that rotates to tok and accepts it.
func (b *fakeBackend) issue(tok string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		b.accept(tok)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": tok,
			"token_type":   "bearer",
			"expires_in":   900,
		})
	}
}

func (b *fakeBackend) requests(path string) []seenRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []seenRequest
	for _, r := range b.seen {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	cookie := ""
	if c, err := r.Cookie("refresh_token"); err == nil {
		cookie = c.Value
	}
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	b.mu.Lock()
	b.seen = append(b.seen, seenRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Token:     tok,
		RequestID: r.Header.Get(RequestIDHeader),
		Body:      string(body),
		Cookie:    cookie,
	})
	refreshFn := b.refreshFn
	ok := b.valid[tok]
	hold := b.holdPath != "" && b.holdPath == r.URL.Path
	b.mu.Unlock()

	if r.URL.Path == "/api/auth/refresh" {
		b.refreshCalls.Add(1)
		refreshFn(w, r)
		return
	}

	if hold {
		b.holdSeen <- struct{}{}
		<-b.holdGate
		b.mu.Lock()
		ok = b.valid[tok]
		b.mu.Unlock()
	}

	if !ok {
		b.unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}

	switch r.URL.Path {
	case "/api/missing":
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Employee not found"})
	case "/api/boom":
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "boom"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"path":  r.URL.Path,
			"query": r.URL.RawQuery,
			"token": tok,
			"body":  string(body),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type echoed struct {
	Path  string `json:"path"`
	Query string `json:"query"`
	Token string `json:"token"`
	Body  string `json:"body"`
}

func newTestClient(t *testing.T, b *fakeBackend, mutate func(*Builder)) *Client {
	t.Helper()

	builder := New().
		WithBaseURL(b.srv.URL).
		WithMetricsEnabled(true)
	if mutate != nil {
		mutate(builder)
	}

	c, err := builder.Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(c.Close)

	u, _ := url.Parse(b.srv.URL)
	c.http.Jar.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: testRefreshCookie, Path: "/api/auth"}})
	return c
}

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(&lockedWriter{w: buf}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// collectUntil reads events until one of type last arrives.
func collectUntil(t *testing.T, sink *ChannelSink, last string) []string {
	t.Helper()
	var types []string
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			types = append(types, ev.Type)
			if ev.Type == last {
				return types
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event, got %v", last, types)
		}
	}
}

func containsType(types []string, want string) bool {
	for _, typ := range types {
		if typ == want {
			return true
		}
	}
	return false
}
