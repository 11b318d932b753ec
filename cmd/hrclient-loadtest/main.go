// Command hrclient-loadtest hammers an in-process fake HR API while access
// tokens keep expiring, and reports how many refresh calls each expiry cost.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/hrclient"
	"github.com/MrEthical07/hrclient/auth"
	"github.com/MrEthical07/hrclient/employees"
	"github.com/MrEthical07/hrclient/internal/mockapi"
	"github.com/MrEthical07/hrclient/internal/rate"
	"github.com/MrEthical07/hrclient/metrics/export/prometheus"
	"github.com/MrEthical07/hrclient/store"
)

type options struct {
	clients      int
	concurrency  int
	ops          int
	expireEvery  time.Duration
	refreshDelay time.Duration
	redisAddr    string
	metrics      bool
	throttle     bool
}

func main() {
	var opts options
	flag.IntVar(&opts.clients, "clients", 8, "number of independent clients, each signed in as its own user")
	flag.IntVar(&opts.concurrency, "concurrency", 64, "concurrent workers per client")
	flag.IntVar(&opts.ops, "ops", 20000, "total requests across all clients")
	flag.DurationVar(&opts.expireEvery, "expire-every", 50*time.Millisecond, "interval at which every access token is invalidated")
	flag.DurationVar(&opts.refreshDelay, "refresh-delay", 5*time.Millisecond, "artificial refresh latency on the fake API")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for credential stores; if empty, REDIS_ADDR env or miniredis is used")
	flag.BoolVar(&opts.metrics, "metrics", false, "print client metrics in Prometheus format after the run")
	flag.BoolVar(&opts.throttle, "throttle", false, "have the fake API answer 429 to more than two refreshes per account per expiry interval")
	flag.Parse()

	if opts.clients <= 0 || opts.concurrency <= 0 || opts.ops <= 0 || opts.expireEvery <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, ops and expire-every must be > 0")
		os.Exit(2)
	}

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	rdb, cleanup, err := openRedis(opts.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := mockapi.Config{}
	if opts.throttle {
		cfg.Redis = rdb
		cfg.LimitPrefix = "loadtest:limits"
		cfg.Limits = rate.Config{MaxRefreshAttempts: 2, RefreshWindow: opts.expireEvery}
	}
	api, err := mockapi.New(cfg)
	if err != nil {
		return err
	}
	api.SetRefreshDelay(opts.refreshDelay)
	srv := httptest.NewServer(api)
	defer srv.Close()

	clients := make([]*hrclient.Client, opts.clients)
	for i := range clients {
		c, err := hrclient.New().
			WithBaseURL(srv.URL).
			WithCredentialStore(store.NewRedisStore(rdb, fmt.Sprintf("loadtest:%d", i))).
			WithMetricsEnabled(true).
			WithLatencyHistograms(true).
			Build()
		if err != nil {
			return err
		}
		defer c.Close()
		if _, err := auth.NewService(c).GoogleLogin(ctx, mockapi.IDToken(fmt.Sprintf("load%d@example.com", i))); err != nil {
			return fmt.Errorf("client %d login: %w", i, err)
		}
		clients[i] = c
	}
	fmt.Printf("signed in %d clients against %s\n", len(clients), srv.URL)

	var expiries atomic.Int64
	stopExpiry := make(chan struct{})
	expiryDone := make(chan struct{})
	go func() {
		defer close(expiryDone)
		ticker := time.NewTicker(opts.expireEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				api.ExpireAccessTokens()
				expiries.Add(1)
			case <-stopExpiry:
				return
			}
		}
	}()

	baseRefresh := api.RefreshCalls()
	stats, err := runPhase(ctx, clients, opts)
	close(stopExpiry)
	<-expiryDone
	if err != nil {
		return err
	}

	fmt.Println("---- results ----")
	printStats("requests", stats)

	refreshCalls := api.RefreshCalls() - baseRefresh
	events := expiries.Load()
	var started, joined, authExpired uint64
	for _, c := range clients {
		snap := c.MetricsSnapshot()
		started += snap.Counters[hrclient.MetricRefreshStarted]
		joined += snap.Counters[hrclient.MetricRefreshJoined]
		authExpired += snap.Counters[hrclient.MetricAuthExpired]
	}
	fmt.Printf("expiry events=%d refresh calls=%d (max allowed %d) client refreshes=%d joined=%d auth_expired=%d throttled=%d\n",
		events, refreshCalls, (events+1)*int64(len(clients)), started, joined, authExpired, api.Throttled())
	if refreshCalls > (events+1)*int64(len(clients)) {
		return errors.New("more refresh calls than expiry events: single-flight violated")
	}

	if opts.metrics {
		fmt.Println("---- client 0 metrics ----")
		fmt.Print(prometheus.NewPrometheusExporter(clients[0]).Render())
	}
	return nil
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runPhase(ctx context.Context, clients []*hrclient.Client, opts options) (phaseStats, error) {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for ci, c := range clients {
		emp := employees.New(c)
		svc := auth.NewService(c)
		for w := 0; w < opts.concurrency; w++ {
			worker := ci*opts.concurrency + w
			g.Go(func() error {
				r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
				for {
					i := int(atomic.AddInt64(&cursor, 1)) - 1
					if i >= opts.ops {
						return nil
					}
					if err := ctx.Err(); err != nil {
						return err
					}

					t0 := time.Now()
					var err error
					if r.Intn(2) == 0 {
						_, err = emp.List(ctx, employees.ListParams{Limit: 10})
					} else {
						_, err = svc.Me(ctx)
					}
					d := time.Since(t0)

					if err != nil {
						atomic.AddInt64(&failures, 1)
						// An expired session cannot recover without a new sign-in.
						if hrclient.IsAuthExpired(err) && !c.IsAuthenticated() {
							return fmt.Errorf("worker %d: %w", worker, err)
						}
					}
					mu.Lock()
					latencies = append(latencies, d)
					mu.Unlock()
				}
			})
		}
	}
	err := g.Wait()
	return computeStats(time.Since(start), latencies, failures), err
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
