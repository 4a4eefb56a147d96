// Command refresh-race hammers a single credential with concurrent refreshes
// of the same token and checks that at most one caller wins each round.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/directory"
)

const racePassword = "race-harness-password"

type outcome int

const (
	outcomeWon outcome = iota
	outcomeReuse
	outcomeStale
	outcomeMissing
	outcomeOther
	outcomeCount
)

var outcomeNames = [outcomeCount]string{"won", "reuse", "stale", "missing", "other"}

type roundResult struct {
	counts    [outcomeCount]int64
	latencies []time.Duration
}

func main() {
	var (
		workers   = flag.Int("workers", 32, "concurrent refreshes per round")
		rounds    = flag.Int("rounds", 50, "number of rounds")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "race", "key prefix for credentials, users and throttles")
	)
	flag.Parse()

	if *workers < 2 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "workers must be >= 2 and rounds > 0")
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	client, cleanup, err := openRedis(*redisAddr, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer cleanup()

	cfg := goSession.DefaultConfig()
	cfg.Credential.RedisPrefix = *prefix + ":cred"
	cfg.Account.UserPrefix = *prefix + ":user"
	cfg.Security.RateLimitPrefix = *prefix + ":rl"
	cfg.Security.EnableRefreshThrottle = false
	cfg.Metrics.Enabled = true

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(directory.NewStore(client, cfg.Account.UserPrefix)).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("engine build", zap.Error(err))
	}
	defer engine.Close()

	email := fmt.Sprintf("race-%d@example.com", time.Now().UnixNano())
	signed, err := engine.SignUp(ctx, goSession.SignUpInput{Email: email, Password: racePassword})
	if err != nil {
		logger.Fatal("signup", zap.Error(err))
	}
	userID := signed.User.ID

	samples := *workers * *rounds
	var (
		totals     [outcomeCount]int64
		latencies  = make([]time.Duration, 0, samples)
		violations int
	)
	start := time.Now()
	for round := 0; round < *rounds; round++ {
		// Losing racers revoke the credential, so each round starts from a
		// fresh login.
		login, err := engine.Login(ctx, email, racePassword)
		if err != nil {
			logger.Fatal("login", zap.Int("round", round), zap.Error(err))
		}

		res := runRound(ctx, engine, userID, email, login.Tokens.RefreshToken, *workers)
		for i := range totals {
			totals[i] += res.counts[i]
		}
		latencies = append(latencies, res.latencies...)

		if res.counts[outcomeWon] > 1 {
			violations++
			logger.Error("more than one refresh won",
				zap.Int("round", round),
				zap.Int64("winners", res.counts[outcomeWon]),
			)
		}
	}
	total := time.Since(start)

	fmt.Println("---- results ----")
	for i, name := range outcomeNames {
		fmt.Printf("%-8s %d\n", name, totals[i])
	}
	printStats("refresh", computeStats(total, latencies, totals[outcomeOther]))
	snap := engine.MetricsSnapshot()
	fmt.Printf("revoked=%d reuse_detected=%d conflicts=%d\n",
		snap.Counters[goSession.MetricSessionRevoked],
		snap.Counters[goSession.MetricRefreshReuseDetected],
		snap.Counters[goSession.MetricRefreshConflict],
	)

	if violations > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d rounds had more than one winner\n", violations, *rounds)
		os.Exit(1)
	}
}

func runRound(ctx context.Context, engine *goSession.Engine, userID, email, token string, workers int) roundResult {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
		res   = roundResult{latencies: make([]time.Duration, 0, workers)}
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			t0 := time.Now()
			_, err := engine.Refresh(ctx, userID, email, token)
			d := time.Since(t0)

			atomic.AddInt64(&res.counts[classify(err)], 1)
			mu.Lock()
			res.latencies = append(res.latencies, d)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()
	return res
}

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeWon
	case errors.Is(err, goSession.ErrRefreshReuse):
		return outcomeReuse
	case errors.Is(err, goSession.ErrRefreshStale):
		return outcomeStale
	case errors.Is(err, goSession.ErrCredentialNotFound):
		return outcomeMissing
	default:
		return outcomeOther
	}
}

func openRedis(addr string, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info("using redis", zap.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info("using miniredis", zap.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
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
	fmt.Printf("%s: ops=%d unexpected=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
