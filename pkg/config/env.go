package config

const (
	EnvAppEnv = "APP_ENV"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvApplicationValidityWindow = "APPLICATION_VALIDITY_WINDOW"
	EnvSlotLockTTL               = "SLOT_LOCK_TTL"
	EnvSlotLockWaitTimeout       = "SLOT_LOCK_WAIT_TIMEOUT"
	EnvLockBackend               = "LOCK_BACKEND"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvMigrationStartTimeTolerance = "MIGRATION_START_TIME_TOLERANCE"
	EnvMaxSessionLookaheadDays     = "MAX_SESSION_LOOKAHEAD_DAYS"

	EnvPrisonerServiceURL     = "PRISONER_SERVICE_URL"
	EnvPrisonerServiceTimeout = "PRISONER_SERVICE_TIMEOUT"

	EnvKafkaEnabled = "KAFKA_ENABLED"

	EnvSweepSchedule = "SWEEP_SCHEDULE"
)
