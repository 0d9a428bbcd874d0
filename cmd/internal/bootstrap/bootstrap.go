// Package bootstrap holds the process-wiring helpers shared by every
// cmd/* entrypoint: Postgres pool, Redis client, OpenTelemetry providers,
// and signal-driven graceful shutdown. None of it is domain logic — it
// exists so each worker's main.go stays a thin composition of the
// packages that do the real work.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/infrastructure/observability"
	"github.com/motocabz/dispatch-core/redis"
)

// Context returns a context cancelled on SIGINT/SIGTERM. Workers stop
// claiming new messages on cancellation and drain in-flight work before
// exit.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ConnectPostgres opens a pgxpool against the DB_* environment variables
// env exposes, failing fast: a missing database at boot exits non-zero and
// the process manager restarts the worker.
func ConnectPostgres(ctx context.Context, env config.IEnv) *pgxpool.Pool {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		env.GetDBUsername(), env.GetDBPassword(), env.GetDBHost(), env.GetDBPort(), env.GetDBName(), env.GetDBSSLMODE())

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("❌ bootstrap: connect postgres: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		log.Fatalf("❌ bootstrap: ping postgres: %v", err)
	}
	log.Println("✅ postgres pool ready")
	return pool
}

// ConnectRedis dials a single *goredis.Client off REDIS_* env vars. The
// raw client backs both redis.IRedisService (cache/event log) and
// redis.IGeoLocationManager (candidate search); one dial serves both.
func ConnectRedis(ctx context.Context) *goredis.Client {
	cfg := redis.LoadFromEnv()
	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdle,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("❌ bootstrap: ping redis: %v", err)
	}
	log.Println("✅ redis client ready")
	return client
}

// InitObservability starts the tracer and meter providers for serviceName,
// returning a combined shutdown func to defer in main. Either provider
// failing to initialize is logged, not fatal — tracing is ambient, not
// load-bearing (Fatal category is reserved for DB/config).
func InitObservability(serviceName string) func(context.Context) {
	tp, err := observability.InitTracer(serviceName, "1.0.0")
	if err != nil {
		log.Printf("⚠️ bootstrap: tracer init failed: %v", err)
	}
	mp, err := observability.InitMeter(serviceName, "1.0.0")
	if err != nil {
		log.Printf("⚠️ bootstrap: meter init failed: %v", err)
	}
	return func(ctx context.Context) {
		if tp != nil {
			_ = tp.Shutdown(ctx)
		}
		if mp != nil {
			_ = mp.Shutdown(ctx)
		}
	}
}

// ServeHealth starts a bare net/http server exposing common.Healthz,
// reporting Postgres and Redis connectivity for this worker process so a
// process manager or k8s probe has something to poll. Listens on
// HEALTH_PORT, defaulting to defaultPort; failures to bind are logged,
// not fatal, since a worker's health endpoint is an operational aid,
// not load-bearing for the work it does.
func ServeHealth(ctx context.Context, defaultPort string, pool *pgxpool.Pool, redisClient *goredis.Client) {
	port := getEnvOrDefault(common.EnvHealthPort, defaultPort)
	mux := http.NewServeMux()
	mux.HandleFunc(common.Healthz, func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		dbOK := pool.Ping(checkCtx) == nil
		redisOK := redisClient.Ping(checkCtx).Err() == nil

		status := http.StatusOK
		if !dbOK || !redisOK {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]bool{"db": dbOK, "redis": redisOK})
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Printf("🩺 health endpoint listening on :%s%s", port, common.Healthz)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ bootstrap: health server: %v", err)
		}
	}()
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
