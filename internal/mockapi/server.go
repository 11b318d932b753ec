package mockapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hrclient/internal/rate"
	"github.com/MrEthical07/hrclient/token"
)

const (
	// RefreshCookie is the name of the HttpOnly refresh-token cookie.
	RefreshCookie = "refresh_token"

	// Wider than the backend's /api/auth/refresh so logout can revoke.
	refreshCookiePath = "/api/auth"

	// IDTokenPrefix marks the fake Google ID tokens accepted by sign-in.
	IDTokenPrefix = "mock:"
)

// Config configures a Server. Zero values get usable defaults.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Key        []byte
	Logger     *slog.Logger
	// Empty skips the two seeded accounts and their employee records.
	Empty bool

	// Redis, when set, enables sign-in and refresh throttling with Limits.
	// A zero Limits uses rate.DefaultConfig.
	Redis       redis.UniversalClient
	Limits      rate.Config
	LimitPrefix string
}

func (c Config) withDefaults() Config {
	if c.AccessTTL <= 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if len(c.Key) == 0 {
		c.Key = []byte("mockapi-signing-key-0123456789abcdef")
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Limits == (rate.Config{}) {
		c.Limits = rate.DefaultConfig()
	}
	return c
}

// Server is the fake backend. It implements http.Handler.
type Server struct {
	echo   *echo.Echo
	signer  *token.Signer
	logger  *slog.Logger
	limiter *rate.Limiter

	mu   sync.Mutex
	data *directory
	// access holds the jti of every access token that is still honored.
	access       map[string]string
	failRefresh  bool
	refreshDelay time.Duration

	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
	rejected     atomic.Int64
	throttled    atomic.Int64
}

// New builds a Server.
func New(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()

	signer, err := token.NewSigner(token.Config{
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Key:        cfg.Key,
		Issuer:     "hr-portal-mock",
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		signer: signer,
		logger: cfg.Logger,
		data:   newDirectory(),
		access: map[string]string{},
	}
	if cfg.Redis != nil {
		s.limiter = rate.New(cfg.Redis, cfg.LimitPrefix, cfg.Limits)
	}
	if !cfg.Empty {
		s.data.seed(time.Now().UTC())
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(io.Discard)
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("mockapi request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", c.Request().Header.Get("X-Request-ID"),
			)
			return nil
		},
	}))
	s.routes(e)
	s.echo = e
	return s, nil
}

func (s *Server) routes(e *echo.Echo) {
	a := e.Group("/api/auth")
	a.POST("/google-login", s.googleLogin)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", s.logout)
	a.GET("/me", s.me, s.requireAccess)

	g := e.Group("/api/employees", s.requireAccess)
	g.GET("", s.listEmployees)
	g.GET("/", s.listEmployees)
	g.POST("", s.createEmployee)
	g.POST("/", s.createEmployee)
	g.GET("/user/:user_id", s.employeeByUser)
	g.GET("/:id", s.getEmployee)
	g.PUT("/:id", s.updateEmployee)
	g.DELETE("/:id", s.deleteEmployee)
	g.GET("/:id/documents", s.documents)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// IDToken returns the fake Google ID token that signs email in.
func IDToken(email string) string {
	return IDTokenPrefix + email
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid, so the next refresh succeeds.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = map[string]string{}
	s.mu.Unlock()
}

// SetFailRefresh makes the refresh route reject every call while on.
func (s *Server) SetFailRefresh(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// SetRefreshDelay delays every refresh response by d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// RefreshCalls reports how many refresh requests were received.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// LoginCalls reports how many sign-in requests were received.
func (s *Server) LoginCalls() int64 { return s.loginCalls.Load() }

// Rejected reports how many protected requests were answered 401.
func (s *Server) Rejected() int64 { return s.rejected.Load() }

// Throttled reports how many requests were answered 429.
func (s *Server) Throttled() int64 { return s.throttled.Load() }

// Signer exposes the token signer, for tests that mint their own tokens.
func (s *Server) Signer() *token.Signer { return s.signer }

// handleError renders errors in the backend's {"detail": ...} shape.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	var detail any = "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		detail = he.Message
	} else {
		s.logger.Error("mockapi handler failed", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]any{"detail": detail})
}

func detail(status int, msg any) *echo.HTTPError {
	return echo.NewHTTPError(status, msg)
}
