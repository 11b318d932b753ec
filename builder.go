package hrclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/MrEthical07/hrclient/internal/events"
	"github.com/MrEthical07/hrclient/store"
	"golang.org/x/net/publicsuffix"
)

// Builder defines a public type used by hrclient APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	httpClient *http.Client
	store      CredentialStore
	eventSink  EventSink
	logger     *slog.Logger
	onReauth   func(error)

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the backend origin, e.g. "https://hr.example.com".
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithHTTPClient supplies the underlying HTTP client. Build copies it; when
// cookies are enabled and hc has no jar, the copy gets one.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithCredentialStore persists the credential. Defaults to an in-memory store.
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.store = s
	return b
}

// WithEventSink routes lifecycle events to sink and enables event delivery.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	b.config.Events.Enabled = sink != nil
	return b
}

// WithLogger sets the structured logger. Defaults to discarding output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithReauthHandler registers fn to run once per failed refresh, after the
// credential has been cleared and waiters have been released. fn receives the
// refresh failure cause.
func (b *Builder) WithReauthHandler(fn func(error)) *Builder {
	b.onReauth = fn
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles a Client. Build performs no
// network or store I/O; call Client.Restore to load a persisted credential.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	// -------- HTTP CLIENT --------
	var hc http.Client
	if b.httpClient != nil {
		hc = *b.httpClient
	} else {
		hc.Timeout = cfg.Transport.Timeout
	}
	if cfg.Transport.EnableCookies && hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	// -------- STORE --------
	credStore := b.store
	if credStore == nil {
		credStore = store.NewMemoryStore()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		config:   cfg,
		baseURL:  baseURL,
		http:     &hc,
		store:    credStore,
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		onReauth: b.onReauth,
		now:      time.Now,
	}

	// -------- EVENTS --------
	c.events = events.NewDispatcher(events.Config{
		Enabled:    cfg.Events.Enabled,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
		Types:      cfg.Events.Types,
		Critical:   []string{EventReauthRequired},
	}, b.eventSink)

	// -------- TRANSPORT CHAIN --------
	c.send = c.refreshBeforeExpiry(c.retryOnUnauthorized(c.attachCredential(c.baseTransport)))

	b.built = true
	return c, nil
}

var (
	_ CredentialStore = (*store.MemoryStore)(nil)
	_ CredentialStore = (*store.FileStore)(nil)
	_ CredentialStore = (*store.RedisStore)(nil)
)
