package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

// IEnv provides environment variable access
type IEnv interface {
	Get(key string) string
	GetServerPort() string
	GetDBPort() string
	GetDBUsername() string
	GetDBPassword() string
	GetDBHost() string
	GetDBName() string
	GetDBSSLMODE() string
	GetGinMode() string
	GetMigrationDir() string
	GetDaprHTTPPort() string
	GetDaprGRPCPort() string
	GetDaprAppID() string
	GetDaprAppPort() string
	GetDaprPubsubName() string
	GetNameSpace() string
	GetJWTSecret() string
	GetRoutingServiceGRPCAddr() string
}

// IBaseConfig provides standard configuration interface
// All services should implement this minimum interface
type IBaseConfig interface {
	Env() IEnv
	DB() interface{} // Service-specific DB client (ent.Client, sql.DB, etc.)
	GRPCClient(serviceName string) *grpc.ClientConn
	GRPCClientWithContext(ctx context.Context, serviceName string) (*grpc.ClientConn, error)
	PubsubName() string
	Close()
}

// IRedisConfig extends base config with Redis support
type IRedisConfig interface {
	IBaseConfig
	Redis() *redis.Client
}

// IWebSocketConfig extends base config with WebSocket support
type IWebSocketConfig interface {
	IBaseConfig
	WSManager() IWSManager
}

// IFullConfig includes every infrastructure component a worker may need.
type IFullConfig interface {
	IRedisConfig
	IWebSocketConfig
}

// IDispatchConfig is the tuning-knob surface the core's workers consume
// (DRIVER_OFFER_DURATION_SECONDS, NOTIFICATION_WORKER_*,
// AVAILABILITY_SYNC_*, BILLING_WORKER_*, ...). Concrete loading lives in
// DispatchConfig (package config, env.go), parsed once at process start.
type IDispatchConfig interface {
	DriverOfferDuration() time.Duration
	DriverSearchRadiusKM() float64
	MaxAssignmentAttempts() int
	RetryBackoff() time.Duration
	OfferExpirationScanInterval() time.Duration
	AssignmentScanInterval() time.Duration
	CacheTTL() time.Duration

	NotificationPollBlock() time.Duration
	NotificationMaxPerPoll() int64
	NotificationClaimCheckFrequency() int
	NotificationIdleTimeoutBeforeClaim() time.Duration
	NotificationMaxRetryBeforeDeadLetter() int64
	NotificationDeadConsumerIdleThreshold() time.Duration

	AvailabilitySyncInterval() time.Duration
	AvailabilitySyncBatchSize() int
	AvailabilitySyncTotalWorkers() int
	AvailabilitySyncWorkerID() int

	BillingPollBlock() time.Duration
	BillingMaxPerPoll() int64
	Currency() string
}

// IWSManager provides WebSocket connection management
// Services should implement this interface with their WebSocket manager.
// websocket.Manager in this module does not implement it: it keys
// connections by driver id alone (Add/Remove/Send).
type IWSManager interface {
	// AddConnection adds a new WebSocket connection
	AddConnection(userID, userType string, conn interface{})
	// RemoveConnection removes a WebSocket connection
	RemoveConnection(userID, userType string)
	// SendMessage sends a message to a specific user
	SendMessage(userID, userType string, message interface{}) error
}
