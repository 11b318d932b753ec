// Command hrctl talks to the HR portal API from a terminal.
//
// The access token is persisted between runs in a file (default) or Redis.
// The refresh cookie only lives for one process, so a token that expired
// between runs needs a new `hrctl login`.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/hrclient"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "hrctl",
		Short:         "HR portal API client",
		Long:          "Command line client for the HR portal API with automatic access-token refresh",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Configuration file path (yaml, json or toml)")
	flags.String("api-url", hrclient.DefaultBaseURL, "HR portal API base URL (env API_URL)")
	flags.String("store", "file", "Credential store: file, redis or memory")
	flags.String("store-path", "", "Credential file path (default: user config dir)")
	flags.String("redis-addr", "localhost:6379", "Redis address for --store=redis (env REDIS_ADDR)")
	flags.String("redis-prefix", "hrctl", "Redis key prefix for --store=redis")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.String("log-format", "text", "Log format: text or json")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("HRCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The web frontend and backend read these unprefixed.
	if err := v.BindEnv("api-url", "HRCTL_API_URL", "API_URL"); err != nil {
		panic(err)
	}
	if err := v.BindEnv("redis-addr", "HRCTL_REDIS_ADDR", "REDIS_ADDR"); err != nil {
		panic(err)
	}

	root.AddCommand(
		newLoginCmd(v),
		newMeCmd(v),
		newRefreshCmd(v),
		newLogoutCmd(v),
		newTokenCmd(v),
		newEmployeesCmd(v),
		newMockServerCmd(v),
	)
	return root
}

func loadConfig(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func newLogger(v *viper.Viper, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(v.GetString("log-format"), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// exitCode maps failures to distinct codes so scripts can tell an expired
// session from other errors.
func exitCode(err error) int {
	switch {
	case hrclient.IsAuthExpired(err):
		return 3
	default:
		if kind, ok := hrclient.KindOf(err); ok && kind == hrclient.KindNetwork {
			return 4
		}
		return 1
	}
}
