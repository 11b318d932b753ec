package hrclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MrEthical07/hrclient/internal/events"
	"github.com/MrEthical07/hrclient/store"
	"github.com/MrEthical07/hrclient/token"
)

// CredentialStore persists the access credential and the cached user profile.
// Implementations must be safe for concurrent use and return store.ErrNotFound
// for missing values. A zero ttl means the value does not expire; a negative
// ttl means it is already expired and must be dropped, not stored.
type CredentialStore interface {
	LoadCredential(ctx context.Context) (string, error)
	SaveCredential(ctx context.Context, token string, ttl time.Duration) error
	LoadProfile(ctx context.Context) ([]byte, error)
	SaveProfile(ctx context.Context, profile []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Client is an authenticated HTTP client for the HR portal API.
//
// A Client owns exactly one credential. Every request is sent with a snapshot
// of it; a 401 triggers at most one shared refresh no matter how many
// requests observe it, and each request is replayed at most once.
//
// Client methods are safe for concurrent use after Build.
type Client struct {
	config   Config
	baseURL  *url.URL
	http     *http.Client
	store    CredentialStore
	logger   *slog.Logger
	metrics  *Metrics
	events   *events.Dispatcher
	onReauth func(error)
	send     sender
	now      func() time.Time

	// mu guards the credential, its epoch and the in-flight refresh together,
	// so that a refresh is published in the same critical section that
	// observed there was none.
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	epoch     uint64
	inflight  *refreshCall
	profile   []byte
}

// Close flushes pending events and stops the event dispatcher.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.events != nil {
		c.events.Close()
	}
}

// EventsDropped reports events discarded because the buffer was full.
func (c *Client) EventsDropped() uint64 {
	if c == nil || c.events == nil {
		return 0
	}
	return c.events.Dropped()
}

// EventsDroppedByType breaks EventsDropped down by event type.
func (c *Client) EventsDroppedByType() map[string]uint64 {
	if c == nil {
		return map[string]uint64{}
	}
	return c.events.DroppedByType()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

/*
====================================
CREDENTIAL
====================================
*/

// SetCredential installs token as the credential for subsequent requests and
// persists it. An empty token is equivalent to ClearCredential.
func (c *Client) SetCredential(token string) {
	if token == "" {
		c.ClearCredential()
		return
	}

	c.mu.Lock()
	ttl := c.installLocked(token)
	epoch := c.epoch
	c.mu.Unlock()

	c.metrics.Inc(MetricCredentialSet)
	c.persistCredential(token, ttl)
	c.emit(context.Background(), eventFields{
		typ:      EventCredentialSet,
		success:  true,
		metadata: map[string]string{"epoch": formatEpoch(epoch)},
	})
}

// ClearCredential removes the credential and any cached profile.
func (c *Client) ClearCredential() {
	c.mu.Lock()
	c.clearLocked()
	epoch := c.epoch
	c.mu.Unlock()

	c.metrics.Inc(MetricCredentialCleared)
	c.clearStore()
	c.emit(context.Background(), eventFields{
		typ:      EventCredentialCleared,
		success:  true,
		metadata: map[string]string{"epoch": formatEpoch(epoch)},
	})
}

// Credential returns the current credential and whether one is held.
func (c *Client) Credential() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token != ""
}

// IsAuthenticated reports whether a credential is currently held.
func (c *Client) IsAuthenticated() bool {
	_, ok := c.Credential()
	return ok
}

// Restore loads a persisted credential into memory. It reports whether one
// was found. A stored credential never replaces one already held.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Store.Timeout)
	defer cancel()

	stored, err := c.store.LoadCredential(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	c.mu.Lock()
	if c.token != "" {
		c.mu.Unlock()
		return true, nil
	}
	ttl := c.installLocked(stored)
	c.mu.Unlock()

	// The expired token stays in memory so the first request goes through
	// the refresh protocol, but the store must not keep handing it out.
	if ttl < 0 {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn("credential store clear failed", slog.String("error", err.Error()))
		}
	}
	return true, nil
}

// installLocked sets the credential and returns its remaining lifetime: 0
// when the token is opaque or has no exp, negative when exp has passed.
func (c *Client) installLocked(raw string) time.Duration {
	c.token = raw
	c.epoch++
	c.expiresAt = time.Time{}

	claims, err := token.Inspect(raw)
	if err != nil {
		return 0
	}
	if exp, err := claims.ExpiresAt(); err == nil {
		c.expiresAt = exp
	}
	return claims.TTL(c.now())
}

func (c *Client) clearLocked() {
	c.token = ""
	c.expiresAt = time.Time{}
	c.profile = nil
	c.epoch++
}

func (c *Client) snapshot() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.epoch
}

/*
====================================
PROFILE CACHE
====================================
*/

// SaveProfile caches the signed-in user's profile document. It lives as long
// as the current credential and is dropped whenever the credential is cleared.
func (c *Client) SaveProfile(ctx context.Context, profile []byte) error {
	c.mu.Lock()
	c.profile = append([]byte(nil), profile...)
	ttl := remaining(c.expiresAt, c.now())
	c.mu.Unlock()

	if !c.config.Store.PersistProfile {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Store.Timeout)
	defer cancel()
	return c.store.SaveProfile(ctx, profile, ttl)
}

// LoadProfile returns the cached profile, falling back to the store.
func (c *Client) LoadProfile(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	cached := append([]byte(nil), c.profile...)
	c.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	if !c.config.Store.PersistProfile {
		return nil, ErrNoProfile
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Store.Timeout)
	defer cancel()

	data, err := c.store.LoadProfile(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoProfile
		}
		return nil, err
	}
	return data, nil
}

// remaining mirrors token.Claims.TTL for a stored deadline: 0 for none,
// negative (at most -1ms) once it has passed.
func remaining(deadline, now time.Time) time.Duration {
	if deadline.IsZero() {
		return 0
	}
	d := deadline.Sub(now)
	if d <= 0 {
		return min(d, -time.Millisecond)
	}
	return d
}

// persistCredential and clearStore are best effort. A failing store is
// logged and never fails the request that changed the credential.
func (c *Client) persistCredential(raw string, ttl time.Duration) {
	if ttl < 0 {
		c.logger.Debug("credential already expired, dropping it from the store")
		c.clearStore()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Store.Timeout)
	defer cancel()

	if err := c.store.SaveCredential(ctx, raw, ttl); err != nil {
		c.logger.Warn("credential persist failed", slog.String("error", err.Error()))
	}
}

func (c *Client) clearStore() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Store.Timeout)
	defer cancel()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("credential store clear failed", slog.String("error", err.Error()))
	}
}
