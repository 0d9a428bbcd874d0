// Command admin-cli is the operator-facing entry point for two
// admin-plane operations: manual order assignment (also served over HTTP
// by api.AdminRouter.assign) and pending-transaction reconciliation (no
// HTTP surface in this core). Both subcommands are thin wrappers calling
// the same service methods — the store.ManuallyAssign + MANUALLY_ASSIGNED
// sequence api.AdminRouter.assign runs for "assign",
// billing.Worker.CheckAndUpdatePendingTransaction for "reconcile" — so the
// business rule lives in one place regardless of which surface invokes it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/billing"
	"github.com/motocabz/dispatch-core/cmd/internal/bootstrap"
	"github.com/motocabz/dispatch-core/config"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/mission"
	"github.com/motocabz/dispatch-core/redis"
	"github.com/motocabz/dispatch-core/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := bootstrap.Context()
	defer stop()

	env := config.NewEnv()
	pool := bootstrap.ConnectPostgres(ctx, env)
	defer pool.Close()

	redisClient := bootstrap.ConnectRedis(ctx)
	defer redisClient.Close()

	cache := redis.NewRedisServiceWithClient(redisClient)
	geo := redis.NewGeoLocationManager(redisClient)
	db := store.New(pool, geo, cache, mission.CryptoRng{})

	switch os.Args[1] {
	case "assign":
		runAssign(ctx, db, cache, os.Args[2:])
	case "reconcile":
		runReconcile(ctx, db, cache, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  admin-cli assign -order=<id> -driver=<id>")
	fmt.Fprintln(os.Stderr, "  admin-cli reconcile -txn=<id>")
}

// runAssign assigns the order, voiding any live offer, then publishes
// MANUALLY_ASSIGNED exactly as api.AdminRouter.assign does.
func runAssign(ctx context.Context, db *store.Store, cache redis.IRedisService, args []string) {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	orderID := fs.String("order", "", "order id to assign")
	driverID := fs.String("driver", "", "driver id to assign the order to")
	_ = fs.Parse(args)
	if *orderID == "" || *driverID == "" {
		usage()
		os.Exit(2)
	}

	if err := db.ManuallyAssign(ctx, *orderID, *driverID); err != nil {
		log.Fatalf("❌ admin-cli assign: %v", err)
	}

	assignmentLog := eventlog.New(cache, common.StreamAssignmentEvents)
	ev, err := events.NewBaseEvent(events.ManuallyAssigned, *orderID, nil)
	if err != nil {
		log.Fatalf("❌ admin-cli assign: build event: %v", err)
	}
	ev.DriverID = *driverID
	if _, err := assignmentLog.Append(ctx, *ev); err != nil {
		log.Fatalf("❌ admin-cli assign: publish MANUALLY_ASSIGNED: %v", err)
	}

	log.Printf("✅ order %s manually assigned to driver %s", *orderID, *driverID)
}

// runReconcile reconciles a transaction stuck in `pending` by calling
// billing.Worker.CheckAndUpdatePendingTransaction against the configured
// PaymentGateway. The billing worker's Run loop does not call it; outside
// tests this command is its only caller.
func runReconcile(ctx context.Context, db *store.Store, cache redis.IRedisService, args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	txnID := fs.String("txn", "", "transaction id to reconcile")
	_ = fs.Parse(args)
	if *txnID == "" {
		usage()
		os.Exit(2)
	}

	stripeKey := os.Getenv("STRIPE_API_KEY")
	gateway := billing.NewStripeGateway(stripeKey)
	worker := billing.NewWorker(nil, db, gateway, func() string { return uuid.New().String() }, domain.SystemClock{}, "admin-cli", common.DefaultCurrency)

	if err := worker.CheckAndUpdatePendingTransaction(ctx, *txnID); err != nil {
		log.Fatalf("❌ admin-cli reconcile: %v", err)
	}
	log.Printf("✅ transaction %s reconciled", *txnID)
}
