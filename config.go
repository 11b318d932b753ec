package hrclient

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultBaseURL matches the backend's local development address.
const DefaultBaseURL = "http://localhost:8001"

// Config defines a public type used by hrclient APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	BaseURL   string
	Transport TransportConfig
	Refresh   RefreshConfig
	Store     StoreConfig
	Events    EventsConfig
	Metrics   MetricsConfig
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig controls the underlying HTTP transport.
type TransportConfig struct {
	// Timeout bounds a single HTTP exchange. Zero disables the bound.
	Timeout   time.Duration
	UserAgent string
	// EnableCookies installs a cookie jar so the HttpOnly refresh cookie set at
	// sign-in is replayed on the refresh call.
	EnableCookies bool
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the single-flight credential refresh.
type RefreshConfig struct {
	Path string
	// Timeout bounds the shared refresh call. Hitting it counts as a refresh failure.
	Timeout time.Duration
	// ExpiryLeeway refreshes ahead of time when the held access token is a JWT
	// expiring within this window. Zero disables proactive refresh.
	ExpiryLeeway time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls credential persistence.
type StoreConfig struct {
	Timeout        time.Duration
	PersistProfile bool
}

/*
====================================
EVENTS / METRICS CONFIG
====================================
*/

// EventsConfig controls asynchronous event delivery.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull never applies to EventReauthRequired, which always waits
	// for buffer space.
	DropIfFull bool
	// Types limits delivery to the listed event types. Empty delivers all.
	Types []string
}

// MetricsConfig defines a public type used by hrclient APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Transport: TransportConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "hrclient/1",
			EnableCookies: true,
		},
		Refresh: RefreshConfig{
			Path:         "/api/auth/refresh",
			Timeout:      10 * time.Second,
			ExpiryLeeway: 0,
		},
		Store: StoreConfig{
			Timeout:        2 * time.Second,
			PersistProfile: true,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	out.Events.Types = slices.Clone(cfg.Events.Types)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the client cannot operate with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL must be set")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.New("BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("BaseURL must include a host")
	}

	// Transport
	if c.Transport.Timeout < 0 {
		return errors.New("Transport Timeout must be >= 0")
	}

	// Refresh
	if !strings.HasPrefix(c.Refresh.Path, "/") {
		return errors.New("Refresh Path must start with '/'")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.ExpiryLeeway < 0 {
		return errors.New("Refresh ExpiryLeeway must be >= 0")
	}
	if c.Refresh.ExpiryLeeway > time.Hour {
		return errors.New("Refresh ExpiryLeeway must be <= 1h")
	}

	// Store
	if c.Store.Timeout <= 0 {
		return errors.New("Store Timeout must be > 0")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}
	for _, typ := range c.Events.Types {
		if !slices.Contains(eventTypes, typ) {
			return fmt.Errorf("Events Types: unknown event type %q", typ)
		}
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
