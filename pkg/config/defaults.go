package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "visitscheduler"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultApplicationValidityWindow = 10 * time.Minute
	DefaultSlotLockTTL               = 10 * time.Second
	DefaultSlotLockWaitTimeout       = 3 * time.Second
	DefaultLockBackend               = LockBackendMongo

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultMigrationStartTimeTolerance = 60 * time.Minute
	DefaultMaxSessionLookaheadDays     = 28

	DefaultPrisonerServiceURL     = "http://localhost:8090"
	DefaultPrisonerServiceTimeout = 5 * time.Second

	DefaultSweepSchedule = "@every 1m"

	DefaultPaginationLimit = 10
	MaxPaginationLimit     = 100
)

const (
	LockBackendMongo = "mongo"
	LockBackendRedis = "redis"
)
