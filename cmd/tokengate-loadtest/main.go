// Command tokengate-loadtest measures in-process verification and login throughput
// against a throwaway engine.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/credential"
	tgotel "github.com/MrEthical07/tokengate/metrics/export/otel"
	"github.com/MrEthical07/tokengate/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const loadtestPassword = "loadtest-password-1"

func main() {
	var (
		tokens      = flag.Int("tokens", 10000, "number of tokens to issue before the verify phases")
		accounts    = flag.Int("accounts", 200, "number of accounts to register for the login phase")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per verify phase")
		loginOps    = flag.Int("login-ops", 2000, "operations in the login phase")
		tamperPct   = flag.Int("tamper-pct", 10, "percent of verify operations using a tampered token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *tokens <= 0 || *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *loginOps <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, accounts, concurrency, ops, and login-ops must be > 0")
		os.Exit(2)
	}
	if *tamperPct < 0 || *tamperPct > 100 {
		fmt.Fprintln(os.Stderr, "tamper-pct must be within 0..100")
		os.Exit(2)
	}

	ctx := context.Background()

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
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	exporter, err := tgotel.NewExporter(provider.Meter("tokengate-loadtest"), engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel exporter: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = exporter.Close() }()

	fmt.Printf("issuing %d tokens...\n", *tokens)
	startIssue := time.Now()
	issued := make([]string, *tokens)
	for i := range issued {
		role := token.Role("user")
		if i%10 == 0 {
			role = "admin"
		}
		it, err := engine.IssueToken(ctx, fmt.Sprintf("subject-%d", i), role)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		issued[i] = it.Token
	}
	fmt.Printf("issued in %s\n", time.Since(startIssue).Round(time.Millisecond))

	fmt.Printf("registering %d accounts...\n", *accounts)
	usernames := make([]string, *accounts)
	for i := range usernames {
		usernames[i] = fmt.Sprintf("load-%d", i)
		reg := credential.Registration{Username: usernames[i], Password: loadtestPassword}
		if _, err := engine.Register(ctx, reg); err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}

	authenticateStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		tok := issued[r.Intn(len(issued))]
		if r.Intn(100) < *tamperPct {
			tok = tamper(tok)
		}
		_, err := engine.Authenticate(ctx, tok)
		return err
	})
	authorizeStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		_, err := engine.Authorize(ctx, issued[r.Intn(len(issued))], "admin")
		return err
	})
	loginStats := runPhase(*loginOps, *concurrency, func(r *mrand.Rand) error {
		loginCtx := tokengate.WithClientIP(ctx, fmt.Sprintf("198.51.100.%d", r.Intn(250)+1))
		_, err := engine.Login(loginCtx, usernames[r.Intn(len(usernames))], loadtestPassword)
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authenticateStats)
	printStats("authorize", authorizeStats)
	printStats("login", loginStats)

	outcomes, err := collectOutcomes(ctx, reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "collect metrics: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("---- outcomes ----")
	for _, line := range outcomes {
		fmt.Println(line)
	}
}

// collectOutcomes reads every counter the OTel exporter publishes and renders one line
// per attribute set, for example "tokengate.verify result=invalid_signature 1234".
func collectOutcomes(ctx context.Context, reader *sdkmetric.ManualReader) ([]string, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				var attrs []string
				for _, kv := range dp.Attributes.ToSlice() {
					attrs = append(attrs, string(kv.Key)+"="+kv.Value.Emit())
				}
				lines = append(lines, strings.TrimSpace(m.Name+" "+strings.Join(attrs, " "))+" "+strconv.FormatInt(dp.Value, 10))
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func buildEngine(client redis.UniversalClient) (*tokengate.Engine, error) {
	raw := make([]byte, token.MinSecretLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	secret, err := token.NewSecret(raw)
	if err != nil {
		return nil, err
	}

	cfg := tokengate.DefaultConfig()
	cfg.Token.Secret = secret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics = tokengate.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}
	// Every login in the run succeeds, so the throttle only adds its Redis round trips.
	cfg.Security.MaxLoginAttempts = 1000

	return tokengate.New().
		WithConfig(cfg).
		WithRepository(credential.NewMemoryRepository()).
		WithRedis(client).
		Build()
}

// tamper flips one character of the signature segment.
func tamper(tok string) string {
	b := []byte(tok)
	last := len(b) - 2
	if b[last] == 'A' {
		b[last] = 'B'
	} else {
		b[last] = 'A'
	}
	return string(b)
}

func runPhase(ops, concurrency int, op func(r *mrand.Rand) error) phaseStats {
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
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
		return phaseStats{total: total}
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
