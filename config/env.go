package config

import (
	"os"
	"strconv"
	"time"

	common "github.com/motocabz/dispatch-core"
)

// Env is the concrete os.Getenv-backed IEnv.
type Env struct{}

func NewEnv() *Env { return &Env{} }

func (Env) Get(key string) string { return os.Getenv(key) }

func (e Env) GetServerPort() string    { return getString(common.EnvServerPort, "8080") }
func (e Env) GetDBPort() string        { return getString(common.EnvDBPort, "5432") }
func (e Env) GetDBUsername() string    { return getString(common.EnvDBUsername, "postgres") }
func (e Env) GetDBPassword() string    { return getString(common.EnvDBPassword, "") }
func (e Env) GetDBHost() string        { return getString(common.EnvDBHost, "localhost") }
func (e Env) GetDBName() string        { return getString(common.EnvDBName, "dispatch") }
func (e Env) GetDBSSLMODE() string     { return getString(common.EnvDBSSLMODE, "disable") }
func (e Env) GetGinMode() string       { return getString(common.EnvGinMode, "release") }
func (e Env) GetMigrationDir() string  { return getString("MIGRATION_DIR", "./migrations") }
func (e Env) GetDaprHTTPPort() string  { return getString(common.EnvDaprHTTPPort, "3500") }
func (e Env) GetDaprGRPCPort() string  { return getString(common.EnvDaprGRPCPort, "50001") }
func (e Env) GetDaprAppID() string     { return getString(common.EnvDaprAppID, "dispatch-core") }
func (e Env) GetDaprAppPort() string   { return getString(common.EnvDaprAppPort, "8080") }
func (e Env) GetDaprPubsubName() string { return getString(common.EnvDaprPubsubName, common.DaprPubsubName) }
func (e Env) GetNameSpace() string     { return getString("NAMESPACE", "default") }
func (e Env) GetJWTSecret() string     { return getString(common.EnvJWTSecret, "") }
func (e Env) GetRoutingServiceGRPCAddr() string {
	return getString(common.EnvRoutingServiceGRPCAddr, "routing-service:50051")
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getMillis(key string, def time.Duration) time.Duration {
	return time.Duration(getInt(key, int(def/time.Millisecond))) * time.Millisecond
}

func getSeconds(key string, def time.Duration) time.Duration {
	return time.Duration(getInt(key, int(def/time.Second))) * time.Second
}

// DispatchConfig implements IDispatchConfig by reading the
// environment-variable surface once at process start; workers never read
// a knob from the environment at call time.
type DispatchConfig struct {
	driverOfferDuration      time.Duration
	driverSearchRadiusKM     float64
	maxAssignmentAttempts    int
	retryBackoff             time.Duration
	offerExpirationScan      time.Duration
	assignmentScan           time.Duration
	cacheTTL                 time.Duration
	notifyBlock              time.Duration
	notifyMaxPerPoll         int64
	notifyClaimCheckFreq     int
	notifyIdleBeforeClaim    time.Duration
	notifyMaxRetryDeadLetter int64
	notifyDeadConsumerIdle   time.Duration
	availSyncInterval        time.Duration
	availSyncBatchSize       int
	availSyncTotalWorkers    int
	availSyncWorkerID        int
	billingBlock             time.Duration
	billingMaxPerPoll        int64
	currency                 string
}

// LoadDispatchConfig reads every dispatch tuning knob from the
// environment, with production defaults.
func LoadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		driverOfferDuration:   getSeconds(common.EnvDriverOfferDurationSeconds, 60*time.Second),
		driverSearchRadiusKM:  getFloat(common.EnvDriverSearchRadiusKM, 5.0),
		maxAssignmentAttempts: getInt(common.EnvMaxAssignmentAttempts, 5),
		retryBackoff:          getSeconds(common.EnvRetryBackoffSeconds, 10*time.Second),
		offerExpirationScan:   getMillis(common.EnvOfferExpirationScanIntervalMs, 5*time.Second),
		assignmentScan:        getMillis(common.EnvAssignmentScanIntervalMs, 5*time.Second),
		cacheTTL:              getSeconds(common.EnvCacheTTLSeconds, 300*time.Second),

		notifyBlock:              getMillis(common.EnvNotificationWorkerBlockMs, 5*time.Second),
		notifyMaxPerPoll:         int64(getInt(common.EnvNotificationWorkerMaxPerPoll, 10)),
		notifyClaimCheckFreq:     getInt(common.EnvNotificationWorkerCheckFreq, 20),
		notifyIdleBeforeClaim:    getMillis(common.EnvNotificationWorkerClaimIdleMs, 30*time.Second),
		notifyMaxRetryDeadLetter: int64(getInt(common.EnvNotificationWorkerMaxRetry, 5)),
		notifyDeadConsumerIdle:   getMillis(common.EnvNotificationWorkerDeadIdleMs, 5*time.Minute),

		availSyncInterval:     getMillis(common.EnvAvailabilitySyncIntervalMs, 30*time.Second),
		availSyncBatchSize:    getInt(common.EnvAvailabilitySyncBatchSize, 200),
		availSyncTotalWorkers: getInt(common.EnvAvailabilitySyncTotalWorkers, 1),
		availSyncWorkerID:     getInt(common.EnvAvailabilitySyncWorkerID, 0),

		billingBlock:      getMillis(common.EnvBillingWorkerBlockMs, 5*time.Second),
		billingMaxPerPoll: int64(getInt(common.EnvBillingWorkerMaxPerPoll, 10)),
		currency:          getString("DEFAULT_CURRENCY", common.DefaultCurrency),
	}
}

func (c *DispatchConfig) DriverOfferDuration() time.Duration         { return c.driverOfferDuration }
func (c *DispatchConfig) DriverSearchRadiusKM() float64               { return c.driverSearchRadiusKM }
func (c *DispatchConfig) MaxAssignmentAttempts() int                  { return c.maxAssignmentAttempts }
func (c *DispatchConfig) RetryBackoff() time.Duration                 { return c.retryBackoff }
func (c *DispatchConfig) OfferExpirationScanInterval() time.Duration  { return c.offerExpirationScan }
func (c *DispatchConfig) AssignmentScanInterval() time.Duration       { return c.assignmentScan }
func (c *DispatchConfig) CacheTTL() time.Duration                     { return c.cacheTTL }

func (c *DispatchConfig) NotificationPollBlock() time.Duration                 { return c.notifyBlock }
func (c *DispatchConfig) NotificationMaxPerPoll() int64                        { return c.notifyMaxPerPoll }
func (c *DispatchConfig) NotificationClaimCheckFrequency() int                 { return c.notifyClaimCheckFreq }
func (c *DispatchConfig) NotificationIdleTimeoutBeforeClaim() time.Duration    { return c.notifyIdleBeforeClaim }
func (c *DispatchConfig) NotificationMaxRetryBeforeDeadLetter() int64          { return c.notifyMaxRetryDeadLetter }
func (c *DispatchConfig) NotificationDeadConsumerIdleThreshold() time.Duration { return c.notifyDeadConsumerIdle }

func (c *DispatchConfig) AvailabilitySyncInterval() time.Duration { return c.availSyncInterval }
func (c *DispatchConfig) AvailabilitySyncBatchSize() int          { return c.availSyncBatchSize }
func (c *DispatchConfig) AvailabilitySyncTotalWorkers() int       { return c.availSyncTotalWorkers }
func (c *DispatchConfig) AvailabilitySyncWorkerID() int           { return c.availSyncWorkerID }

func (c *DispatchConfig) BillingPollBlock() time.Duration { return c.billingBlock }
func (c *DispatchConfig) BillingMaxPerPoll() int64        { return c.billingMaxPerPoll }
func (c *DispatchConfig) Currency() string                { return c.currency }
