// Package common holds cross-cutting constants shared by every worker and
// the HTTP boundary: service names, environment variable keys, event/topic
// names, and the enumerations backing the dispatch data model.
package common

// Service Names
const (
	ServiceRouting      = "routing-service"
	ServiceIdentity     = "identity-service"
	ServiceDriver       = "driver-service"
	ServiceClient       = "client-service"
	ServicePayment      = "payment-service"
	ServiceAdmin        = "admin-service"
	ServiceNotification = "notification-service"
)

// HTTP Methods
const (
	HTTPMethodGET    = "GET"
	HTTPMethodPOST   = "POST"
	HTTPMethodPUT    = "PUT"
	HTTPMethodDELETE = "DELETE"
	HTTPMethodPATCH  = "PATCH"
)

// API Routes
const (
	APIVersionV1 = "/v1"
	HealthCheck  = "/health"
	Healthz      = "/healthz"
	API          = "/api"
	Auth         = "/auth"
	Driver       = "/driver"
	Orders       = "/orders"
	TrackStream  = "/track-stream"
	Admin        = "/admin"
)

// Database Field Names
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
)

// Domain Names
const (
	DomainOrder        = "order"
	DomainDriver       = "driver"
	DomainMission      = "mission"
	DomainAvailability = "availability"
	DomainBilling      = "billing"
	DomainIdentity     = "identity"
)

// Environment Variables
const (
	EnvDBPort     = "DB_PORT"
	EnvDBUsername = "DB_USERNAME"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBHost     = "DB_HOST"
	EnvDBName     = "DB_NAME"
	EnvServerPort = "PORT"
	EnvGRPCPort   = "GRPC_PORT"
	EnvHealthPort = "HEALTH_PORT"
	EnvDBSSLMODE  = "DB_SSLMODE"
	EnvGinMode    = "GIN_MODE"
	EnvJWTSecret  = "JWT_SECRET"

	// Dapr Configuration
	EnvDaprHTTPPort   = "DAPR_HTTP_PORT"
	EnvDaprGRPCPort   = "DAPR_GRPC_PORT"
	EnvDaprAppID      = "DAPR_APP_ID"
	EnvDaprAppPort    = "DAPR_APP_PORT"
	EnvDaprPubsubName = "DAPR_PUBSUB_NAME"

	// Sibling gRPC health-check targets (infrastructure/grpc.HealthChecker)
	EnvRoutingServiceGRPCAddr = "ROUTING_SERVICE_GRPC_ADDR"

	// Redis Configuration
	EnvRedisHost     = "REDIS_HOST"
	EnvRedisPort     = "REDIS_PORT"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	// Dispatch tuning knobs (configuration surface)
	EnvDriverOfferDurationSeconds    = "DRIVER_OFFER_DURATION_SECONDS"
	EnvDriverSearchRadiusKM          = "DRIVER_SEARCH_RADIUS_KM"
	EnvMaxAssignmentAttempts         = "MAX_ASSIGNMENT_ATTEMPTS"
	EnvRetryBackoffSeconds           = "RETRY_BACKOFF_S"
	EnvOfferExpirationScanIntervalMs = "OFFER_EXPIRATION_SCAN_INTERVAL_MS"
	EnvAssignmentScanIntervalMs      = "ASSIGNMENT_EXPIRATION_SCAN_INTERVAL_MS"
	EnvCacheTTLSeconds               = "CACHE_TTL_SECONDS"
	EnvNotificationWorkerPollMs      = "NOTIFICATION_WORKER_POLL_MS"
	EnvNotificationWorkerBlockMs     = "NOTIFICATION_WORKER_BLOCK_MS"
	EnvNotificationWorkerMaxPerPoll  = "NOTIFICATION_WORKER_MAX_PER_POLL"
	EnvNotificationWorkerClaimIdleMs = "NOTIFICATION_WORKER_CLAIM_IDLE_MS"
	EnvNotificationWorkerMaxRetry    = "NOTIFICATION_WORKER_MAX_RETRY"
	EnvNotificationWorkerDeadIdleMs  = "NOTIFICATION_WORKER_DEAD_CONSUMER_IDLE_MS"
	EnvNotificationWorkerCheckFreq   = "NOTIFICATION_WORKER_CHECK_FREQUENCY"
	EnvAvailabilitySyncIntervalMs    = "AVAILABILITY_SYNC_INTERVAL_MS"
	EnvAvailabilitySyncBatchSize     = "AVAILABILITY_SYNC_BATCH_SIZE"
	EnvAvailabilitySyncTotalWorkers  = "AVAILABILITY_SYNC_TOTAL_WORKERS"
	EnvAvailabilitySyncWorkerID      = "AVAILABILITY_SYNC_WORKER_ID"
	EnvAvailabilitySyncCacheTTL      = "AVAILABILITY_SYNC_CACHE_TTL"
	EnvBillingWorkerPollMs           = "BILLING_WORKER_POLL_MS"
	EnvBillingWorkerBlockMs          = "BILLING_WORKER_BLOCK_MS"
	EnvBillingWorkerMaxPerPoll       = "BILLING_WORKER_MAX_PER_POLL"
)

// Event Types — the canonical MissionLifecycleEvent set.
const (
	EventNewOrderReadyForAssignment = "mission_new_order_ready_for_assignment"
	EventNewOfferProposed           = "mission_new_offer_proposed"
	EventOfferAcceptedByDriver      = "mission_offer_accepted_by_driver"
	EventOfferRefusedByDriver       = "mission_offer_refused_by_driver"
	EventOfferExpiredForDriver      = "mission_offer_expired_for_driver"
	EventManuallyAssigned           = "mission_manually_assigned"
	EventCompleted                  = "mission_completed"
	EventCancelledByAdmin           = "mission_cancelled_by_admin"
	EventCancelledBySystem          = "mission_cancelled_by_system"
	EventFailed                     = "mission_failed"
)

// Pub/Sub Topics / streams
const (
	TopicAssignmentEvents   = "assignment_events"
	TopicNotificationStream = "notifications"
	StreamAssignmentEvents  = "assignment_events"
	StreamNotification      = "notification_stream"
	ConsumerGroupAssignment = "assignment_workers"
	ConsumerGroupNotify     = "notification_workers_group"
	ConsumerGroupBilling    = "billing_workers"

	// Outward Dapr pub/sub topics (infrastructure/messaging), distinct from
	// the internal streams above — these fan out to sibling services
	// outside this core rather than to other dispatch-core workers.
	TopicPaymentEvents = "payment.events"
)

// Dapr Components
const (
	DaprPubsubName  = "pubsub"
	DaprStateStore  = "statestore"
	DaprSecretStore = "secretstore"
)

// Redis key prefixes
const (
	RedisKeyAvailabilityCache = "availability"
	RedisKeyDriverHeartbeat   = "driver:heartbeat:"
	RedisKeyOrderBlacklist    = "order:blacklist:"
	RedisKeyDriverGeo         = "drivers:geo"
	RedisKeyAssignmentRetry   = "assignment:retry"
)

// Error Messages
const (
	ErrMsgOrderIDRequired     = "order ID is required"
	ErrMsgDriverIDRequired    = "driver ID is required"
	ErrMsgInvalidLatitude     = "invalid latitude: must be between -90 and 90"
	ErrMsgInvalidLongitude    = "invalid longitude: must be between -180 and 180"
	ErrMsgServiceNotAvailable = "service not available"
	ErrMsgInvalidRequest      = "invalid request"
	ErrMsgUnauthorized        = "unauthorized access"
	ErrMsgForbidden           = "access forbidden"
	ErrMsgNotFound            = "not found"
	ErrMsgInternalError       = "internal server error"
)

// ==================== DRIVER STATUS ====================
// Driver operational status.
const (
	DriverStatusInactive = "INACTIVE"
	DriverStatusActive   = "ACTIVE"
	DriverStatusOffering = "OFFERING"
	DriverStatusInWork   = "IN_WORK"
	DriverStatusOnBreak  = "ON_BREAK"
	DriverStatusPending  = "PENDING"
)

// ==================== ORDER STATUS ====================
// Derived order lifecycle status.
const (
	OrderStatusPending            = "PENDING"
	OrderStatusOffered            = "OFFERED"
	OrderStatusAccepted           = "ACCEPTED"
	OrderStatusSuccess            = "SUCCESS"
	OrderStatusPartiallyCompleted = "PARTIALLY_COMPLETED"
	OrderStatusFailed             = "FAILED"
	OrderStatusCancelled          = "CANCELLED"
)

// ==================== ORDER STATUS LOG EVENT NAMES ====================
const (
	OrderLogAccepted          = "ACCEPTED"
	OrderLogAtPickup          = "AT_PICKUP"
	OrderLogAtDeliveryLoc     = "AT_DELIVERY_LOCATION"
	OrderLogEnRouteToDelivery = "EN_ROUTE_TO_DELIVERY"
)

// ==================== WAYPOINT TYPE / STATUS ====================
const (
	WaypointTypePickup   = "pickup"
	WaypointTypeDelivery = "delivery"

	WaypointStatusPending    = "pending"
	WaypointStatusArrived    = "arrived"
	WaypointStatusProcessing = "processing"
	WaypointStatusCompleted  = "completed"
	WaypointStatusSkipped    = "skipped"
	WaypointStatusFailed     = "failed"
)

// ==================== CANCELLATION / FAILURE REASON CODES ====================
const (
	CancellationReasonNoDriverAvailable = "no_driver_available"
)

// ==================== PAYMENT METHODS (mobile money) ====================
const (
	PaymentMethodTelebirr     = "TELEBIRR"
	PaymentMethodMPesa        = "MPESA"
	PaymentMethodOrangeMoney  = "ORANGE_MONEY"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

// ==================== ORDER TRANSACTION TYPE / STATUS ====================
const (
	TransactionTypeDriverPayment = "driver_payment"
	TransactionTypeWithdrawal    = "withdrawal"
	TransactionTypePenalty       = "penalty"
	TransactionTypeBonus         = "bonus"

	TransactionStatusPending = "pending"
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

// ==================== MOBILE MONEY ACCOUNT STATUS ====================
const (
	MobileMoneyAccountActive   = "active"
	MobileMoneyAccountInactive = "inactive"
)

// ==================== ORDER PRIORITY ====================
const (
	OrderPriorityLow    = "low"
	OrderPriorityMedium = "med"
	OrderPriorityHigh   = "high"
)

// ==================== PACKAGE WARNING ====================
const (
	PackageWarningFragile = "fragile"
)

// ==================== ADMIN ROLES ====================
const (
	AdminRoleSuperAdmin = "super_admin"
	AdminRoleAdmin      = "admin"
	AdminRoleOps        = "ops"
	AdminRoleSupport    = "support"
)

// ==================== USER TYPES / ROLES ====================
const (
	UserTypeDriver = "driver"
	UserTypeClient = "client"
	UserTypeAdmin  = "admin"
)

// ==================== LOCATION VALIDATION ====================
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// ==================== CURRENCY ====================
const (
	DefaultCurrency = "ETB"
	CurrencySymbol  = "Br"
)

// ==================== OPEN TELEMETRY ENVIRONMENT VARIABLES ====================
const (
	EnvOTELExporterEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTELSamplingRate     = "OTEL_SAMPLING_RATE"
	EnvEnvironment          = "ENVIRONMENT"
)
