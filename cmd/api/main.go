// Command api runs the thin Gin HTTP boundary:
// order/offer/waypoint endpoints, driver telemetry, admin manual
// assignment, and the server-sent-event tracking stream. It never runs
// assignment/billing/push logic itself — those are separate workers
// (cmd/assignment-worker, cmd/billing-worker, cmd/push-worker,
// cmd/availability-worker) consuming the same event log and database.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/api"
	"github.com/motocabz/dispatch-core/cmd/internal/bootstrap"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/dapr"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/eventlog"
	grpchealth "github.com/motocabz/dispatch-core/infrastructure/grpc"
	apihttp "github.com/motocabz/dispatch-core/http"
	"github.com/motocabz/dispatch-core/mission"
	"github.com/motocabz/dispatch-core/realtime"
	"github.com/motocabz/dispatch-core/redis"
	"github.com/motocabz/dispatch-core/routing"
	"github.com/motocabz/dispatch-core/store"
)

func main() {
	ctx, stop := bootstrap.Context()
	defer stop()

	env := config.NewEnv()
	shutdownObservability := bootstrap.InitObservability(common.ServiceClient)
	defer shutdownObservability(context.Background())

	pool := bootstrap.ConnectPostgres(ctx, env)
	defer pool.Close()

	redisClient := bootstrap.ConnectRedis(ctx)
	defer redisClient.Close()

	cache := redis.NewRedisServiceWithClient(redisClient)
	geo := redis.NewGeoLocationManager(redisClient)

	daprClient, err := dapr.NewDaprClient()
	if err != nil {
		log.Printf("⚠️ dapr client unavailable, routing calls will fail: %v", err)
	}

	healthChecker := grpchealth.NewHealthChecker(map[string]string{
		common.ServiceRouting: env.GetRoutingServiceGRPCAddr(),
	})
	go healthChecker.Run(ctx, 30*time.Second)
	routingClient := routing.New(daprClient, healthChecker)

	assignmentLog := eventlog.New(cache, common.StreamAssignmentEvents)
	db := store.New(pool, geo, cache, mission.CryptoRng{})
	sm := mission.NewStateMachine(db, assignmentLog, mission.CryptoRng{}, domain.SystemClock{})
	publish := events.PublishFunc(assignmentLog)

	hub := realtime.NewHub()

	gin.SetMode(env.GetGinMode())
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(apihttp.TracingMiddleware(common.ServiceClient))

	router.GET(common.Healthz, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api.NewRouter(db, routingClient, sm, publish).Register(router)
	api.NewAdminRouter(db, publish).Register(router)
	api.NewDriverRouter(db, hub).Register(router)
	api.NewTrackRouter(hub).Register(router)

	srv := &http.Server{
		Addr:    ":" + env.GetServerPort(),
		Handler: router,
	}

	go func() {
		log.Printf("🚀 api server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ api server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ api server: graceful shutdown: %v", err)
	}
}
