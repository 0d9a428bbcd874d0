// Command push-worker runs the Push Pipeline: the
// notification_workers_group consumer that claims, reads, and delivers
// FCM notifications with retry and dead-letter handling, plus the offer
// bridge that republishes NEW_OFFER_PROPOSED from the assignment event
// log onto the notification stream, and the flag-gated dead-consumer
// reaper.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/cmd/internal/bootstrap"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/eventlog"
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
	shutdownObservability := bootstrap.InitObservability("push-worker")
	defer shutdownObservability(context.Background())

	pool := bootstrap.ConnectPostgres(ctx, env)
	defer pool.Close()

	redisClient := bootstrap.ConnectRedis(ctx)
	defer redisClient.Close()

	bootstrap.ServeHealth(ctx, "8084", pool, redisClient)

	cache := redis.NewRedisServiceWithClient(redisClient)
	geo := redis.NewGeoLocationManager(redisClient)

	db := store.New(pool, geo, cache, mission.CryptoRng{})
	notifyLog := eventlog.New(cache, common.StreamNotification)
	deadLog := eventlog.New(cache, common.StreamNotification+"_dead")
	assignmentLog := eventlog.New(cache, common.StreamAssignmentEvents)

	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		log.Fatalf("❌ push-worker: firebase app init: %v", err)
	}
	sink, err := push.NewFCMSink(ctx, app)
	if err != nil {
		log.Fatalf("❌ push-worker: fcm sink init: %v", err)
	}

	workerCfg := push.Config{
		MaxPerPoll:                cfg.NotificationMaxPerPoll(),
		BlockTimeout:              cfg.NotificationPollBlock(),
		ClaimCheckFrequency:       cfg.NotificationClaimCheckFrequency(),
		IdleTimeoutBeforeClaim:    cfg.NotificationIdleTimeoutBeforeClaim(),
		MaxRetryBeforeDeadLetter:  cfg.NotificationMaxRetryBeforeDeadLetter(),
		DeadConsumerIdleThreshold: cfg.NotificationDeadConsumerIdleThreshold(),
	}
	consumerName := fmt.Sprintf("push-%d", os.Getpid())
	worker := push.NewWorker(workerCfg, notifyLog, sink, push.NewStreamDeadLetterSink(deadLog, notifyLog), db, consumerName)
	bridge := push.NewOfferBridge(assignmentLog, db, notifyLog, consumerName)

	reapEnabled := os.Getenv("NOTIFICATION_WORKER_REAP_DEAD_CONSUMERS") == "true"
	if reapEnabled {
		go runReaper(ctx, worker, cfg.NotificationDeadConsumerIdleThreshold())
	}

	go bridge.Run(ctx, workerCfg.BlockTimeout, cfg.NotificationMaxPerPoll())

	log.Printf("🚀 push-worker %s starting", consumerName)
	worker.Run(ctx)
	log.Println("🛑 push-worker stopped")
}

// runReaper periodically removes dead consumers from the notification
// group, gated behind NOTIFICATION_WORKER_REAP_DEAD_CONSUMERS
// since it's an operational command, not part of the normal delivery loop.
func runReaper(ctx context.Context, worker *push.Worker, idleThreshold time.Duration) {
	interval := idleThreshold
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := worker.ReapDeadConsumers(ctx); err != nil {
				log.Printf("⚠️ push-worker: reap dead consumers: %v", err)
			}
		}
	}
}
