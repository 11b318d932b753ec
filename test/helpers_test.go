package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/hrclient"
	"github.com/MrEthical07/hrclient/auth"
	"github.com/MrEthical07/hrclient/internal/mockapi"
)

const (
	adminEmail = "admin@example.com"
	staffEmail = "staff@example.com"
)

// backend wraps the mock API with a switch that drops the refresh
// connection, which the client sees as a network failure.
type backend struct {
	api *mockapi.Server
	srv *httptest.Server

	dropRefresh atomic.Bool
}

func newBackend(t *testing.T, cfg mockapi.Config) *backend {
	t.Helper()

	api, err := mockapi.New(cfg)
	if err != nil {
		t.Fatalf("mockapi.New failed: %v", err)
	}

	b := &backend{api: api}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" && b.dropRefresh.Load() {
			panic(http.ErrAbortHandler)
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func newClient(t *testing.T, b *backend, mutate func(*hrclient.Builder)) *hrclient.Client {
	t.Helper()

	builder := hrclient.New().
		WithBaseURL(b.srv.URL).
		WithMetricsEnabled(true)
	if mutate != nil {
		mutate(builder)
	}

	c, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func signIn(t *testing.T, c *hrclient.Client, email string) *auth.LoginResult {
	t.Helper()

	res, err := auth.NewService(c).GoogleLogin(context.Background(), mockapi.IDToken(email))
	if err != nil {
		t.Fatalf("GoogleLogin(%s) failed: %v", email, err)
	}
	return res
}

func credential(t *testing.T, c *hrclient.Client) string {
	t.Helper()

	tok, ok := c.Credential()
	if !ok {
		t.Fatal("expected a credential")
	}
	return tok
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
