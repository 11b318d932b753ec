package hrclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/hrclient/token"
)

// holdUntil makes the backend park n requests for path, then release them
// together, so all of them are sent with the same credential.
func holdUntil(t *testing.T, b *fakeBackend, path string, n int) {
	t.Helper()
	b.mu.Lock()
	b.holdPath = path
	b.holdSeen = make(chan struct{}, n)
	b.holdGate = make(chan struct{})
	b.mu.Unlock()

	go func() {
		for i := 0; i < n; i++ {
			select {
			case <-b.holdSeen:
			case <-time.After(3 * time.Second):
				close(b.holdGate)
				return
			}
		}
		close(b.holdGate)
	}()
}

// manualHold parks requests for path until release is called. Each arrival
// is signalled on the returned channel.
func manualHold(b *fakeBackend, path string) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holdPath = path
	b.holdSeen = make(chan struct{}, 8)
	b.holdGate = make(chan struct{})
	gate := b.holdGate
	return b.holdSeen, func() { close(gate) }
}

func TestConcurrentUnauthorizedSingleRefresh(t *testing.T) {
	b := newFakeBackend(t)
	refreshStarted := make(chan struct{})
	releaseRefresh := make(chan struct{})
	var once sync.Once
	b.setRefresh(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(refreshStarted) })
		<-releaseRefresh
		b.accept("T2")
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2"})
	})
	c := newTestClient(t, b, nil)
	c.SetCredential("T1")

	const n = 5
	holdUntil(t, b, "/api/employees", n)

	var wg sync.WaitGroup
	results := make(chan echoed, n)
	errs := make(chan error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			var out echoed
			if err := c.Get(context.Background(), "/api/employees", nil, &out); err != nil {
				errs <- err
				return
			}
			results <- out
		}()
	}

	<-refreshStarted
	waitFor(t, "all requests to observe 401", func() bool { return b.unauthorized.Load() == n })
	close(releaseRefresh)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for out := range results {
		count++
		if out.Token != "T2" {
			t.Fatalf("expected replay with T2, got %q", out.Token)
		}
	}
	if count != n {
		t.Fatalf("expected %d results, got %d", n, count)
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	if got := c.MetricsSnapshot().Counters[MetricRefreshStarted]; got != 1 {
		t.Fatalf("expected one refresh started, got %d", got)
	}
}

func TestConcurrentRefreshFailureSharedOutcome(t *testing.T) {
	b := newFakeBackend(t)
	b.setRefresh(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token expired"})
	})

	var reauthCalls sync.WaitGroup
	reauthCalls.Add(1)
	c := newTestClient(t, b, func(bl *Builder) {
		bl.WithReauthHandler(func(error) { reauthCalls.Done() })
	})
	c.SetCredential("T1")

	const n = 3
	holdUntil(t, b, "/api/employees", n)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			errs <- c.Get(context.Background(), "/api/employees", nil, nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrAuthExpired) {
			t.Fatalf("expected every waiter to get ErrAuthExpired, got %v", err)
		}
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	if c.IsAuthenticated() {
		t.Fatal("credential must be absent after a failed refresh")
	}
	reauthCalls.Wait()
}

func TestRequestDuringRefreshWaitsForNewCredential(t *testing.T) {
	b := newFakeBackend(t)
	releaseRefresh := make(chan struct{})
	b.setRefresh(func(w http.ResponseWriter, r *http.Request) {
		<-releaseRefresh
		b.accept("T2")
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2"})
	})
	c := newTestClient(t, b, nil)
	c.SetCredential("T1")

	first := make(chan error, 1)
	go func() { first <- c.Get(context.Background(), "/api/employees", nil, nil) }()
	waitFor(t, "refresh to start", func() bool { return b.refreshCalls.Load() == 1 })

	second := make(chan error, 1)
	go func() { second <- c.Get(context.Background(), "/api/auth/me", nil, nil) }()
	waitFor(t, "second request to join", func() bool {
		return c.MetricsSnapshot().Counters[MetricRefreshJoined] >= 1
	})
	close(releaseRefresh)

	if err := <-first; err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second request: %v", err)
	}

	seen := b.requests("/api/auth/me")
	if len(seen) != 1 || seen[0].Token != "T2" {
		t.Fatalf("request issued during refresh must be sent once with T2, got %+v", seen)
	}
}

func TestRequestWaitsThroughChainedRefreshes(t *testing.T) {
	b := newFakeBackend(t, "T1", "T3")
	c := newTestClient(t, b, nil)
	c.SetCredential("T1")

	first := &refreshCall{done: make(chan struct{})}
	c.mu.Lock()
	c.inflight = first
	c.mu.Unlock()

	done := make(chan error, 1)
	var out echoed
	go func() { done <- c.Get(context.Background(), "/api/auth/me", nil, &out) }()
	waitFor(t, "request to join the first refresh", func() bool {
		return c.MetricsSnapshot().Counters[MetricRefreshJoined] == 1
	})

	// a second refresh is already running by the time the first one settles
	second := &refreshCall{done: make(chan struct{})}
	c.mu.Lock()
	c.inflight = second
	close(first.done)
	c.mu.Unlock()
	waitFor(t, "request to join the second refresh", func() bool {
		return c.MetricsSnapshot().Counters[MetricRefreshJoined] == 2
	})

	c.mu.Lock()
	c.token, c.epoch, c.inflight = "T3", c.epoch+1, nil
	second.token = "T3"
	close(second.done)
	c.mu.Unlock()

	if err := <-done; err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Token != "T3" {
		t.Fatalf("expected the credential from the last refresh, got %q", out.Token)
	}
	if seen := b.requests("/api/auth/me"); len(seen) != 1 {
		t.Fatalf("expected a single send, got %+v", seen)
	}
}

func TestLateUnauthorizedUsesNewerCredential(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, nil)
	c.SetCredential("T1")
	arrived, release := manualHold(b, "/api/employees")

	done := make(chan error, 1)
	var out echoed
	go func() { done <- c.Get(context.Background(), "/api/employees", nil, &out) }()

	// the request is parked at the backend holding T1; swap credentials under it
	<-arrived
	b.accept("T3")
	c.SetCredential("T3")
	release()

	if err := <-done; err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Token != "T3" {
		t.Fatalf("expected replay with the newer credential, got %q", out.Token)
	}
	if got := b.refreshCalls.Load(); got != 0 {
		t.Fatalf("a stale 401 must not refresh, got %d calls", got)
	}
}

func TestLateUnauthorizedAfterClearFails(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, nil)
	c.SetCredential("T1")
	arrived, release := manualHold(b, "/api/employees")

	done := make(chan error, 1)
	go func() { done <- c.Get(context.Background(), "/api/employees", nil, nil) }()

	<-arrived
	c.ClearCredential()
	release()

	err := <-done
	if !errors.Is(err, ErrAuthExpired) || !errors.Is(err, errCredentialCleared) {
		t.Fatalf("expected auth expired after clear, got %v", err)
	}
	if got := b.refreshCalls.Load(); got != 0 {
		t.Fatalf("expected no refresh after sign-out, got %d", got)
	}
}

func TestRefreshTimeoutCountsAsFailure(t *testing.T) {
	b := newFakeBackend(t)
	b.setRefresh(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := newTestClient(t, b, func(bl *Builder) {
		cfg := DefaultConfig()
		cfg.BaseURL = b.srv.URL
		cfg.Refresh.Timeout = 50 * time.Millisecond
		bl.WithConfig(cfg)
	})
	c.SetCredential("T1")

	err := c.Get(context.Background(), "/api/employees", nil, nil)
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded as cause, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("credential must be cleared after refresh timeout")
	}
}

func TestWaiterCancellationDoesNotCancelRefresh(t *testing.T) {
	b := newFakeBackend(t)
	releaseRefresh := make(chan struct{})
	b.setRefresh(func(w http.ResponseWriter, r *http.Request) {
		<-releaseRefresh
		b.accept("T2")
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2"})
	})
	c := newTestClient(t, b, nil)
	c.SetCredential("T1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Get(ctx, "/api/employees", nil, nil) }()

	waitFor(t, "refresh to start", func() bool { return b.refreshCalls.Load() == 1 })
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected cancelled waiter, got %v", err)
	}

	close(releaseRefresh)
	waitFor(t, "refresh to complete", func() bool {
		tok, _ := c.Credential()
		return tok == "T2"
	})
}

func TestProactiveRefreshBeforeExpiry(t *testing.T) {
	signer, err := token.NewSigner(token.Config{
		AccessTTL:  30 * time.Second,
		RefreshTTL: time.Hour,
		Key:        []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	expiring, _, err := signer.IssueAccess("a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	b := newFakeBackend(t, expiring)
	c := newTestClient(t, b, func(bl *Builder) {
		cfg := DefaultConfig()
		cfg.BaseURL = b.srv.URL
		cfg.Metrics.Enabled = true
		cfg.Refresh.ExpiryLeeway = time.Minute
		bl.WithConfig(cfg)
	})
	c.SetCredential(expiring)

	var out echoed
	if err := c.Get(context.Background(), "/api/employees", nil, &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Token != "T2" {
		t.Fatalf("expected request sent with refreshed token, got %q", out.Token)
	}
	if seen := b.requests("/api/employees"); len(seen) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(seen))
	}
	if got := c.MetricsSnapshot().Counters[MetricProactiveRefresh]; got != 1 {
		t.Fatalf("expected proactive refresh metric 1, got %d", got)
	}

	// T2 is opaque, so no further proactive refresh happens
	if err := c.Get(context.Background(), "/api/employees", nil, nil); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected one refresh call, got %d", got)
	}
}

func TestManualRefreshJoinsInFlight(t *testing.T) {
	b := newFakeBackend(t)
	releaseRefresh := make(chan struct{})
	b.setRefresh(func(w http.ResponseWriter, r *http.Request) {
		<-releaseRefresh
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "T5"})
	})
	c := newTestClient(t, b, nil)

	const n = 4
	var wg sync.WaitGroup
	tokens := make(chan string, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			tok, err := c.Refresh(context.Background())
			if err != nil {
				t.Errorf("refresh: %v", err)
				return
			}
			tokens <- tok
		}()
	}

	waitFor(t, "refresh to start", func() bool { return b.refreshCalls.Load() == 1 })
	waitFor(t, "callers to join", func() bool {
		return c.MetricsSnapshot().Counters[MetricRefreshJoined] == n-1
	})
	close(releaseRefresh)
	wg.Wait()
	close(tokens)

	for tok := range tokens {
		if tok != "T5" {
			t.Fatalf("expected T5, got %q", tok)
		}
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected one refresh call, got %d", got)
	}
}
