package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/hrclient/internal/mockapi"
)

func newMockServerCmd(v *viper.Viper) *cobra.Command {
	var (
		addr      string
		accessTTL time.Duration
		empty     bool
		throttle  bool
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory fake of the HR portal API",
		Long: `Run an in-memory fake of the HR portal API for local development.

Sign in with ID tokens of the form mock:<email>. admin@example.com is an
admin and staff@example.com a regular user; other emails are registered on
first sign-in. A short --access-ttl makes the refresh path easy to observe.
--throttle answers 429 to repeated bad sign-ins and refresh bursts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(v, cmd.ErrOrStderr())
			cfg := mockapi.Config{
				AccessTTL: accessTTL,
				Logger:    logger,
				Empty:     empty,
			}
			if throttle {
				rdb := redis.NewClient(&redis.Options{Addr: v.GetString("redis-addr")})
				defer rdb.Close()
				cfg.Redis = rdb
				cfg.LimitPrefix = "hrmock"
			}
			api, err := mockapi.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("mock HR API listening", "addr", addr, "access_ttl", accessTTL)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down mock HR API")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8001", "Listen address")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "Access token lifetime")
	cmd.Flags().BoolVar(&empty, "empty", false, "Start without seeded accounts and employees")
	cmd.Flags().BoolVar(&throttle, "throttle", false, "Throttle sign-in failures and refresh bursts using Redis at --redis-addr")
	return cmd
}
