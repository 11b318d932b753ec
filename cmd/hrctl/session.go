package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/hrclient"
	"github.com/MrEthical07/hrclient/store"
)

// session is one command's client plus whatever its store holds open.
type session struct {
	client *hrclient.Client
	logger *slog.Logger
	cmd    *cobra.Command
	in     io.Reader
	out    io.Writer
	close  func()
}

func openSession(ctx context.Context, cmd *cobra.Command, v *viper.Viper) (*session, error) {
	logger := newLogger(v, cmd.ErrOrStderr())

	credStore, closeStore, err := openStore(v)
	if err != nil {
		return nil, err
	}

	cfg := hrclient.DefaultConfig()
	cfg.BaseURL = v.GetString("api-url")
	cfg.Transport.Timeout = v.GetDuration("timeout")
	cfg.Transport.UserAgent = "hrctl/1"

	client, err := hrclient.New().
		WithConfig(cfg).
		WithCredentialStore(credStore).
		WithLogger(logger).
		WithReauthHandler(func(err error) {
			logger.Warn("session expired, run `hrctl login` again", "error", err)
		}).
		Build()
	if err != nil {
		closeStore()
		return nil, err
	}

	if _, err := client.Restore(ctx); err != nil {
		logger.Warn("failed to restore credential", "error", err)
	}

	return &session{
		client: client,
		logger: logger,
		cmd:    cmd,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		close: func() {
			client.Close()
			closeStore()
		},
	}, nil
}

func openStore(v *viper.Viper) (hrclient.CredentialStore, func(), error) {
	switch kind := v.GetString("store"); kind {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "file", "":
		path := v.GetString("store-path")
		if path == "" {
			def, err := store.DefaultFilePath()
			if err != nil {
				return nil, nil, err
			}
			path = def
		}
		return store.NewFileStore(path), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: v.GetString("redis-addr")})
		return store.NewRedisStore(rdb, v.GetString("redis-prefix")), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want file, redis or memory)", kind)
	}
}

// run wraps a command body that needs an open session.
func run(v *viper.Viper, fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx, cmd, v)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(ctx, s, args)
	}
}

func (s *session) print(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
