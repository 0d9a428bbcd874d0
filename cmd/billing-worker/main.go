// Command billing-worker runs the Billing Worker: the
// billing_workers consumer of COMPLETED events that creates an idempotent
// driver payout transaction and hands it to the configured PaymentGateway.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/billing"
	"github.com/motocabz/dispatch-core/cmd/internal/bootstrap"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/dapr"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/infrastructure/messaging"
	"github.com/motocabz/dispatch-core/mission"
	"github.com/motocabz/dispatch-core/redis"
	"github.com/motocabz/dispatch-core/store"
)

func main() {
	ctx, stop := bootstrap.Context()
	defer stop()

	env := config.NewEnv()
	cfg := config.LoadDispatchConfig()
	shutdownObservability := bootstrap.InitObservability("billing-worker")
	defer shutdownObservability(context.Background())

	pool := bootstrap.ConnectPostgres(ctx, env)
	defer pool.Close()

	redisClient := bootstrap.ConnectRedis(ctx)
	defer redisClient.Close()

	bootstrap.ServeHealth(ctx, "8083", pool, redisClient)

	cache := redis.NewRedisServiceWithClient(redisClient)
	geo := redis.NewGeoLocationManager(redisClient)

	db := store.New(pool, geo, cache, mission.CryptoRng{})
	assignmentLog := eventlog.New(cache, common.StreamAssignmentEvents)

	stripeKey := os.Getenv("STRIPE_API_KEY")
	gateway := billing.NewStripeGateway(stripeKey)

	consumerName := fmt.Sprintf("billing-%d", os.Getpid())
	worker := billing.NewWorker(assignmentLog, db, gateway, func() string { return uuid.New().String() }, domain.SystemClock{}, consumerName, cfg.Currency())

	daprClient, err := dapr.NewDaprClient()
	if err != nil {
		log.Printf("⚠️ dapr client unavailable, payout events stay internal-only: %v", err)
	}
	worker.SetEventPublisher(messaging.NewDaprPublisher(daprClient))

	log.Printf("🚀 billing-worker %s starting", consumerName)
	worker.Run(ctx, cfg.BillingPollBlock(), cfg.BillingMaxPerPoll())
	log.Println("🛑 billing-worker stopped")
}
