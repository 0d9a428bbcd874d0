// Command assignment-worker runs the Assignment Engine: the
// assignment_workers consumer-group loop that selects candidate drivers,
// opens time-bounded offers, and handles accept/refuse/expire/retry, plus
// its sibling offer-expiration scan.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/assignment"
	"github.com/motocabz/dispatch-core/availability"
	"github.com/motocabz/dispatch-core/cmd/internal/bootstrap"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/mission"
	"github.com/motocabz/dispatch-core/redis"
	"github.com/motocabz/dispatch-core/store"
)

func main() {
	ctx, stop := bootstrap.Context()
	defer stop()

	env := config.NewEnv()
	cfg := config.LoadDispatchConfig()
	shutdownObservability := bootstrap.InitObservability("assignment-worker")
	defer shutdownObservability(context.Background())

	pool := bootstrap.ConnectPostgres(ctx, env)
	defer pool.Close()

	redisClient := bootstrap.ConnectRedis(ctx)
	defer redisClient.Close()

	bootstrap.ServeHealth(ctx, "8081", pool, redisClient)

	cache := redis.NewRedisServiceWithClient(redisClient)
	geo := redis.NewGeoLocationManager(redisClient)

	db := store.New(pool, geo, cache, mission.CryptoRng{})
	assignmentLog := eventlog.New(cache, common.StreamAssignmentEvents)
	finder := assignment.NewGeoCandidateFinder(geo)
	checker := availability.NewChecker(db)

	engineCfg := assignment.Config{
		SearchRadiusKM:      cfg.DriverSearchRadiusKM(),
		MaxAttempts:         cfg.MaxAssignmentAttempts(),
		OfferDuration:       cfg.DriverOfferDuration(),
		RetryBackoff:        cfg.RetryBackoff(),
		ExpirerScanInterval: cfg.OfferExpirationScanInterval(),
	}

	consumer := consumerName("assignment")
	retryQueue := assignment.NewDelayedRetryQueue(cache, assignmentLog, domain.SystemClock{})
	engine := assignment.NewEngine(engineCfg, assignmentLog, db, finder, checker, retryQueue, domain.SystemClock{}, consumer)
	expirer := assignment.NewExpirer(db, assignmentLog, cfg.OfferExpirationScanInterval(), domain.SystemClock{})

	go expirer.Run(ctx)
	go retryQueue.Run(ctx, cfg.RetryBackoff())

	log.Printf("🚀 assignment-worker %s starting", consumer)
	engine.Run(ctx, cfg.AssignmentScanInterval(), 10)
	log.Println("🛑 assignment-worker stopped")
}

func consumerName(role string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%d", role, host, os.Getpid())
}
