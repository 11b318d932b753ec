package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/MrEthical07/hrclient/auth"
	"github.com/MrEthical07/hrclient/token"
)

const ctxAccount = "mockapi.account"

type loginRequest struct {
	Token string `json:"token"`
}

func (s *Server) googleLogin(c echo.Context) error {
	s.loginCalls.Add(1)

	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return detail(http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body", "token"},
			"msg":  "field required",
			"type": "value_error.missing",
		}})
	}
	if err := s.checkLogin(c); err != nil {
		return err
	}
	email, ok := strings.CutPrefix(req.Token, IDTokenPrefix)
	if !ok || !strings.Contains(email, "@") {
		s.failLogin(c)
		return detail(http.StatusUnauthorized, "Invalid Google token")
	}
	s.resetLogin(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.data.account(email)
	if acct == nil {
		acct = s.data.addAccount(email, strings.SplitN(email, "@", 2)[0], false)
	}
	if !acct.IsActive {
		return detail(http.StatusForbidden, "User account is inactive")
	}

	access, err := s.issueAccessLocked(acct)
	if err != nil {
		return err
	}
	if err := s.rotateRefreshLocked(c, acct); err != nil {
		return err
	}
	acct.LastLogin = time.Now().UTC()

	return c.JSON(http.StatusOK, auth.LoginResult{
		User: ptr(acct.view()),
		Tokens: auth.Tokens{
			AccessToken: access,
			TokenType:   "bearer",
			ExpiresIn:   int(s.signer.AccessTTL().Seconds()),
		},
	})
}

func (s *Server) refresh(c echo.Context) error {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	delay := s.refreshDelay
	fail := s.failRefresh
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
	if fail {
		return detail(http.StatusUnauthorized, "Invalid or revoked refresh token")
	}

	cookie, err := c.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		return detail(http.StatusUnauthorized, "No refresh token provided")
	}
	claims, err := s.signer.Verify(cookie.Value, token.TypeRefresh)
	if err != nil {
		s.clearRefreshCookie(c)
		return detail(http.StatusUnauthorized, "Invalid or revoked refresh token")
	}

	if err := s.allowRefresh(c, claims.Subject()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.data.account(claims.Subject())
	if acct == nil || acct.refresh != cookie.Value {
		s.clearRefreshCookie(c)
		return detail(http.StatusUnauthorized, "Invalid or revoked refresh token")
	}

	access, err := s.issueAccessLocked(acct)
	if err != nil {
		return err
	}
	if err := s.rotateRefreshLocked(c, acct); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, auth.Tokens{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int(s.signer.AccessTTL().Seconds()),
	})
}

func (s *Server) logout(c echo.Context) error {
	if cookie, err := c.Cookie(RefreshCookie); err == nil {
		if claims, err := s.signer.Verify(cookie.Value, token.TypeRefresh); err == nil {
			s.mu.Lock()
			if acct := s.data.account(claims.Subject()); acct != nil && acct.refresh == cookie.Value {
				acct.refresh = ""
			}
			s.mu.Unlock()
		}
	}
	s.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) me(c echo.Context) error {
	acct := c.Get(ctxAccount).(*account)
	s.mu.Lock()
	u := acct.view()
	s.mu.Unlock()
	return c.JSON(http.StatusOK, u)
}

// requireAccess admits requests carrying an honored access token.
func (s *Server) requireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			s.rejected.Add(1)
			return detail(http.StatusUnauthorized, "Not authenticated")
		}

		claims, err := s.signer.Verify(raw, token.TypeAccess)
		if err != nil {
			s.rejected.Add(1)
			return detail(http.StatusUnauthorized, "Could not validate credentials")
		}

		s.mu.Lock()
		_, honored := s.access[claims.ID]
		acct := s.data.account(claims.Subject())
		s.mu.Unlock()
		if !honored || acct == nil {
			s.rejected.Add(1)
			return detail(http.StatusUnauthorized, "Could not validate credentials")
		}
		if !acct.IsActive {
			return detail(http.StatusForbidden, "User account is inactive")
		}

		c.Set(ctxAccount, acct)
		return next(c)
	}
}

func (s *Server) issueAccessLocked(acct *account) (string, error) {
	raw, _, err := s.signer.IssueAccess(acct.Email)
	if err != nil {
		return "", err
	}
	claims, err := token.Inspect(raw)
	if err != nil {
		return "", err
	}
	s.access[claims.ID] = acct.Email
	return raw, nil
}

func (s *Server) rotateRefreshLocked(c echo.Context, acct *account) error {
	raw, exp, err := s.signer.IssueRefresh(acct.Email)
	if err != nil {
		return err
	}
	acct.refresh = raw
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    raw,
		Path:     refreshCookiePath,
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ptr[T any](v T) *T { return &v }
