package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/hrdesk"
	"github.com/MrEthical07/hrdesk/internal/fakebackend"
	"github.com/MrEthical07/hrdesk/internal/logging"
	"github.com/MrEthical07/hrdesk/persist"
	"github.com/MrEthical07/hrdesk/refresh"
)

func main() {
	var (
		concurrency  = flag.Int("concurrency", 64, "number of concurrent workers")
		ops          = flag.Int("ops", 20000, "requests in the steady phase")
		storms       = flag.Int("storms", 20, "token expiry rounds in the storm phase")
		refreshDelay = flag.Duration("refresh-delay", 20*time.Millisecond, "artificial latency of the refresh endpoint")
		mode         = refresh.Shared
	)
	flag.TextVar(&mode, "mode", refresh.Shared, "refresh mode: shared or per-request")
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *storms < 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0, storms >= 0")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := logging.NewLogger(slog.LevelWarn, "text")

	backend := fakebackend.New(fakebackend.Options{Logger: logger})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	srv := &http.Server{Handler: backend, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()
	fmt.Printf("backend at http://%s, refresh mode %s\n", ln.Addr(), mode)

	cfg := hrdesk.DefaultConfig()
	cfg.BaseURL = "http://" + ln.Addr().String()
	cfg.Persistence.Backend = hrdesk.BackendMemory
	cfg.Persistence.MirrorSession = false
	cfg.Metrics.EnableLatencyHistograms = true

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = *concurrency
	client, err := hrdesk.New().
		WithConfig(cfg).
		WithKV(persist.NewMemory()).
		WithLogger(logger).
		WithRefreshMode(mode).
		WithHTTPClient(&http.Client{Transport: transport}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := client.Login(ctx, "E2", "Passw0rd!"); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	steady := runPhase(*ops, *concurrency, func() error {
		_, err := client.Departments(ctx)
		return err
	})

	backend.DelayRefresh(*refreshDelay)
	var stormStats []phaseStats
	var maxRefreshes int64
	for i := 0; i < *storms; i++ {
		before := backend.RefreshCalls()
		backend.ExpireAccessTokens()
		s := runPhase(*concurrency, *concurrency, func() error {
			_, err := client.Roles(ctx)
			return err
		})
		stormStats = append(stormStats, s)
		maxRefreshes = max(maxRefreshes, backend.RefreshCalls()-before)
	}

	started, joined := client.RefreshStats()
	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("storm", mergeStats(stormStats))
	fmt.Printf("refresh: calls=%d started=%d joined=%d max-per-storm=%d\n",
		backend.RefreshCalls(), started, joined, maxRefreshes)
	fmt.Printf("session: logged-in=%t\n", client.Session().LoggedIn)
}

// runPhase issues ops calls of fn across concurrency workers.
func runPhase(ops, concurrency int, fn func() error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := fn()
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	samples  []time.Duration
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		samples:  samples,
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func mergeStats(phases []phaseStats) phaseStats {
	var (
		total    time.Duration
		samples  []time.Duration
		failures int64
	)
	for _, p := range phases {
		total += p.total
		samples = append(samples, p.samples...)
		failures += p.failures
	}
	return computeStats(total, samples, failures)
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
		len(s.samples),
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
