package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/hrclient/auth"
	"github.com/MrEthical07/hrclient/token"
)

func newLoginCmd(v *viper.Viper) *cobra.Command {
	var idToken string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google ID token",
		Long: `Exchange a Google ID token for an access token and store it.

The ID token may also be given in the HRCTL_ID_TOKEN environment variable.
Against "hrctl mock-server", use an ID token of the form mock:<email>.`,
		Args: cobra.NoArgs,
		RunE: run(v, func(ctx context.Context, s *session, _ []string) error {
			if idToken == "" {
				idToken = os.Getenv("HRCTL_ID_TOKEN")
			}
			if idToken == "" {
				return errors.New("an ID token is required (--id-token or HRCTL_ID_TOKEN)")
			}

			res, err := auth.NewService(s.client).GoogleLogin(ctx, idToken)
			if err != nil {
				return err
			}
			s.logger.Info("signed in", "expires_in", res.Tokens.ExpiresIn)
			if res.User == nil {
				return s.print(map[string]any{"authenticated": true})
			}
			return s.print(res.User)
		}),
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token")
	return cmd
}

func newMeCmd(v *viper.Viper) *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: run(v, func(ctx context.Context, s *session, _ []string) error {
			svc := auth.NewService(s.client)
			if cached {
				u, err := svc.CachedUser(ctx)
				if err != nil {
					return err
				}
				return s.print(u)
			}
			u, err := svc.Me(ctx)
			if err != nil {
				return err
			}
			return s.print(u)
		}),
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "Print the cached profile without calling the API")
	return cmd
}

func newRefreshCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token",
		Long:  "Refresh the access token using the refresh cookie held by this process",
		Args:  cobra.NoArgs,
		RunE: run(v, func(ctx context.Context, s *session, _ []string) error {
			if _, err := auth.NewService(s.client).Refresh(ctx); err != nil {
				return err
			}
			return describeCredential(s)
		}),
	}
}

func newLogoutCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: run(v, func(ctx context.Context, s *session, _ []string) error {
			err := auth.NewService(s.client).Logout(ctx)
			if err != nil {
				s.logger.Warn("logout request failed, local credential cleared anyway", "error", err)
				return nil
			}
			fmt.Fprintln(s.out, "signed out")
			return nil
		}),
	}
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Inspect the stored access token",
		Args:  cobra.NoArgs,
		RunE: run(v, func(_ context.Context, s *session, _ []string) error {
			return describeCredential(s)
		}),
	}
}

type credentialInfo struct {
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	Type          string     `json:"type,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ExpiresIn     string     `json:"expires_in,omitempty"`
	Opaque        bool       `json:"opaque,omitempty"`
}

func describeCredential(s *session) error {
	raw, ok := s.client.Credential()
	if !ok {
		return s.print(credentialInfo{})
	}

	info := credentialInfo{Authenticated: true}
	claims, err := token.Inspect(raw)
	if err != nil {
		info.Opaque = true
		return s.print(info)
	}
	info.Subject = claims.Subject()
	info.Type = claims.Type
	if exp, err := claims.ExpiresAt(); err == nil {
		info.ExpiresAt = &exp
		info.ExpiresIn = claims.TTL(time.Now()).Round(time.Second).String()
	}
	return s.print(info)
}
