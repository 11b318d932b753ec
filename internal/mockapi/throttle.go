package mockapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MrEthical07/hrclient/internal/rate"
)

// Limiter failures other than ErrRateLimited are logged and let through, so
// a Redis outage never locks everyone out of the fake backend.
func (s *Server) throttle(ctx context.Context, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		s.throttled.Add(1)
		if op == "login" {
			return detail(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		}
		return detail(http.StatusTooManyRequests, "Too many refresh attempts")
	default:
		s.logger.WarnContext(ctx, "rate limiter unavailable", "op", op, "error", err)
		return nil
	}
}

func (s *Server) checkLogin(c echo.Context) error {
	if s.limiter == nil {
		return nil
	}
	ctx := c.Request().Context()
	return s.throttle(ctx, "login", s.limiter.CheckLogin(ctx, c.RealIP()))
}

func (s *Server) failLogin(c echo.Context) {
	if s.limiter == nil {
		return
	}
	ctx := c.Request().Context()
	if err := s.limiter.FailLogin(ctx, c.RealIP()); err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable", "op", "login", "error", err)
	}
}

func (s *Server) resetLogin(c echo.Context) {
	if s.limiter == nil {
		return
	}
	ctx := c.Request().Context()
	if err := s.limiter.ResetLogin(ctx, c.RealIP()); err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable", "op", "login", "error", err)
	}
}

func (s *Server) allowRefresh(c echo.Context, account string) error {
	if s.limiter == nil {
		return nil
	}
	ctx := c.Request().Context()
	return s.throttle(ctx, "refresh", s.limiter.AllowRefresh(ctx, account))
}
