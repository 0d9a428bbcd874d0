// Command availability-worker runs one partition of the Availability
// Synchronizer alongside the driver heartbeat monitor
//. AVAILABILITY_SYNC_WORKER_ID/AVAILABILITY_SYNC_TOTAL_WORKERS
// select which partition this instance owns; run one process per worker
// id to cover every partition.
package main

import (
	"context"
	"log"
	"time"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/availability"
	"github.com/motocabz/dispatch-core/cmd/internal/bootstrap"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	infracache "github.com/motocabz/dispatch-core/infrastructure/cache"
	"github.com/motocabz/dispatch-core/mission"
	"github.com/motocabz/dispatch-core/push"
	"github.com/motocabz/dispatch-core/redis"
	"github.com/motocabz/dispatch-core/store"
)

func main() {
	ctx, stop := bootstrap.Context()
	defer stop()

	env := config.NewEnv()
	cfg := config.LoadDispatchConfig()
	shutdownObservability := bootstrap.InitObservability("availability-worker")
	defer shutdownObservability(context.Background())

	pool := bootstrap.ConnectPostgres(ctx, env)
	defer pool.Close()

	redisClient := bootstrap.ConnectRedis(ctx)
	defer redisClient.Close()

	bootstrap.ServeHealth(ctx, "8082", pool, redisClient)

	cache := redis.NewRedisServiceWithClient(redisClient)
	geo := redis.NewGeoLocationManager(redisClient)

	db := store.New(pool, geo, cache, mission.CryptoRng{})
	checker := availability.NewChecker(db)
	notifyLog := eventlog.New(cache, common.StreamNotification)
	notifier := push.NewNotifier(db, notifyLog)

	syncCfg := availability.Config{
		WorkerID:     cfg.AvailabilitySyncWorkerID(),
		TotalWorkers: cfg.AvailabilitySyncTotalWorkers(),
		BatchSize:    cfg.AvailabilitySyncBatchSize(),
		CacheTTL:     cfg.CacheTTL(),
		Interval:     cfg.AvailabilitySyncInterval(),
	}
	availCache := infracache.NewRedisCache(redisClient)
	synchronizer := availability.NewSynchronizer(syncCfg, db, checker, availCache, notifier, domain.SystemClock{})
	heartbeat := availability.NewHeartbeatMonitor(db, cache, domain.SystemClock{}, 60*time.Second, cfg.AvailabilitySyncBatchSize(), common.RedisKeyDriverHeartbeat)

	log.Printf("🚀 availability-worker partition %d/%d starting", syncCfg.WorkerID, syncCfg.TotalWorkers)

	go heartbeat.Run(ctx)
	synchronizer.Run(ctx)

	log.Println("🛑 availability-worker stopped")
}
