// Command guardgate-loadtest hammers Guard.CheckAccess against a local stub
// verify backend and reports latency percentiles. It is a development tool
// for spotting regressions in the check hot path, not a benchmark of the
// real marketplace backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	sessionguard "github.com/kovrenik/sessionguard"
	"github.com/kovrenik/sessionguard/session"
	"github.com/kovrenik/sessionguard/verify"
)

func main() {
	var (
		checks      = flag.Int("checks", 200000, "total access checks to run")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sg", "session key prefix")
		lenient     = flag.Bool("lenient", false, "keep sessions alive on network errors")
	)
	flag.Parse()

	if *checks <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "checks and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	backend, backendAddr, err := startStubBackend()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start stub backend: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()
	fmt.Printf("stub verify backend at %s\n", backendAddr)

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
	}
	defer cleanup()

	cfg := sessionguard.DefaultConfig()
	cfg.Verify.BaseURL = "http://" + backendAddr
	cfg.Verify.Timeout = 2 * time.Second
	cfg.Verify.MaxAttempts = 1
	cfg.Store.RedisPrefix = *prefix
	cfg.Revalidate.Enabled = false
	cfg.LenientOnNetworkError = *lenient
	cfg.Metrics.EnableLatencyHistograms = true

	guard, err := sessionguard.New().
		WithConfig(cfg).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build guard: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	seed := &session.UserSession{
		ID:    "load-1",
		Name:  "Load Tester",
		Email: "load@example.com",
		Role:  session.RoleViewer,
	}
	if err := guard.Store().Set(ctx, seed, "load-token", true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed session: %v\n", err)
		os.Exit(1)
	}

	paths := []string{
		"/viewer/dashboard.html",
		"/viewer/library.html",
		"/admin/dashboard.html", // role mismatch path
		"/index.html",           // public path
		"/auth/login.html",      // auth bounce path
	}

	latencies := make([]time.Duration, *checks)
	var idx int
	var mu sync.Mutex
	var wg sync.WaitGroup

	perWorker := *checks / *concurrency
	extra := *checks % *concurrency

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		n := perWorker
		if w < extra {
			n++
		}
		wg.Add(1)
		go func(worker, n int) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				path := paths[(worker+i)%len(paths)]
				t0 := time.Now()
				if _, err := guard.CheckAccess(ctx, path); err != nil {
					fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
					continue
				}
				d := time.Since(t0)
				mu.Lock()
				if idx < len(latencies) {
					latencies[idx] = d
					idx++
				}
				mu.Unlock()
			}
		}(w, n)
	}
	wg.Wait()
	elapsed := time.Since(start)

	latencies = latencies[:idx]
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("\nchecks:      %d in %s (%.0f/s)\n", idx, elapsed.Round(time.Millisecond), float64(idx)/elapsed.Seconds())
	fmt.Printf("p50:         %s\n", percentile(latencies, 0.50))
	fmt.Printf("p95:         %s\n", percentile(latencies, 0.95))
	fmt.Printf("p99:         %s\n", percentile(latencies, 0.99))

	snap := guard.MetricsSnapshot()
	fmt.Printf("granted:     %d\n", snap.Counters[sessionguard.MetricCheckGranted])
	fmt.Printf("denied role: %d\n", snap.Counters[sessionguard.MetricCheckDeniedRole])
	fmt.Printf("auth bounce: %d\n", snap.Counters[sessionguard.MetricCheckAuthBounce])
	fmt.Printf("verify ok:   %d\n", snap.Counters[sessionguard.MetricVerifyOK])
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(p * float64(len(sorted)-1))
	return sorted[i]
}

// startStubBackend serves the verify contract for any bearer token,
// answering as a fixed viewer identity.
func startStubBackend() (*http.Server, string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(verify.VerifyPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"user": map[string]any{
					"id":    "load-1",
					"name":  "Load Tester",
					"email": "load@example.com",
					"role":  "viewer",
				},
			},
		})
	})
	mux.HandleFunc(verify.LogoutPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	return srv, ln.Addr().String(), nil
}
