package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/hrclient"
)

const (
	pathGoogleLogin = "/api/auth/google-login"
	pathMe          = "/api/auth/me"
	pathLogout      = "/api/auth/logout"
)

// ErrEmptyIDToken is returned by GoogleLogin when no ID token is given.
var ErrEmptyIDToken = errors.New("auth: empty id token")

// User is the signed-in account as returned by /api/auth/me.
type User struct {
	Email     string         `json:"email"`
	Name      string         `json:"name,omitempty"`
	Picture   string         `json:"picture,omitempty"`
	IsAdmin   bool           `json:"is_admin"`
	LastLogin *hrclient.Time `json:"last_login,omitempty"`
}

// Tokens is the token block of a login response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LoginResult is the decoded google-login response. User is nil when the
// backend answered with a bare token.
type LoginResult struct {
	User   *User  `json:"user,omitempty"`
	Tokens Tokens `json:"tokens"`
}

// Service exposes the authentication endpoints.
type Service struct {
	client *hrclient.Client
}

// NewService returns a Service bound to c.
func NewService(c *hrclient.Client) *Service {
	return &Service{client: c}
}

// GoogleLogin exchanges a Google ID token for an access token, installs it on
// the client and caches the returned profile.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	if idToken == "" {
		return nil, ErrEmptyIDToken
	}

	resp, err := s.client.DoAnonymous(ctx, &hrclient.Request{
		Method: http.MethodPost,
		Path:   pathGoogleLogin,
		Body:   map[string]string{"token": idToken},
	})
	if err != nil {
		return nil, err
	}

	access, err := hrclient.AccessTokenFrom(resp.Body)
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if result.Tokens.AccessToken == "" {
		// Flat {access_token, token_type, expires_in} form.
		if err := resp.Decode(&result.Tokens); err != nil {
			return nil, err
		}
	}
	result.Tokens.AccessToken = access

	s.client.SetCredential(access)
	if result.User != nil {
		if err := s.cacheUser(ctx, result.User); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// Me fetches the current user and refreshes the cached profile.
func (s *Service) Me(ctx context.Context) (*User, error) {
	var u User
	if err := s.client.Get(ctx, pathMe, nil, &u); err != nil {
		return nil, err
	}
	if err := s.cacheUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CachedUser returns the profile cached by the last GoogleLogin or Me call.
// It returns hrclient.ErrNoProfile when nothing is cached.
func (s *Service) CachedUser(ctx context.Context) (*User, error) {
	data, err := s.client.LoadProfile(ctx)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("auth: decode cached profile: %w", err)
	}
	return &u, nil
}

// Refresh forces a credential refresh. Concurrent callers, and requests that
// hit a 401 meanwhile, share the same refresh call.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	return s.client.Refresh(ctx)
}

// Logout revokes the session on the backend. The local credential and profile
// are cleared even when the call fails; the error is still returned.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.client.Do(ctx, &hrclient.Request{
		Method: http.MethodPost,
		Path:   pathLogout,
		Body:   json.RawMessage(`{}`),
	})
	s.client.ClearCredential()
	return err
}

// IsAuthenticated reports whether the client holds a credential.
func (s *Service) IsAuthenticated() bool {
	return s.client.IsAuthenticated()
}

func (s *Service) cacheUser(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("auth: encode profile: %w", err)
	}
	if err := s.client.SaveProfile(ctx, data); err != nil {
		return fmt.Errorf("auth: cache profile: %w", err)
	}
	return nil
}
