package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"visitscheduler/pkg/client"
	"visitscheduler/pkg/logger"
)

type Config struct {
	AppEnv string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ApplicationValidityWindow time.Duration
	SlotLockTTL               time.Duration
	SlotLockWaitTimeout       time.Duration
	LockBackend               string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MigrationStartTimeTolerance time.Duration
	MaxSessionLookaheadDays     int

	PrisonerServiceURL     string
	PrisonerServiceTimeout time.Duration

	KafkaEnabled bool

	SweepSchedule string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads configuration from the environment. Outside production a .env
// file in the working directory is loaded first; variables already set in the
// environment win.
func Load(serviceName string) *Config {
	appEnv := getEnvStr(EnvAppEnv, "development")
	dotenvErr := loadDotEnv(appEnv)

	cfg := FromEnv(serviceName)
	cfg.AppEnv = appEnv
	if dotenvErr != nil {
		cfg.Log.Debug(".env file not loaded", "error", dotenvErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config without validating or logging it.
func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ApplicationValidityWindow: getEnvDuration(EnvApplicationValidityWindow, DefaultApplicationValidityWindow),
		SlotLockTTL:               getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),
		SlotLockWaitTimeout:       getEnvDuration(EnvSlotLockWaitTimeout, DefaultSlotLockWaitTimeout),
		LockBackend:               strings.ToLower(getEnvStr(EnvLockBackend, DefaultLockBackend)),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		MigrationStartTimeTolerance: getEnvDuration(EnvMigrationStartTimeTolerance, DefaultMigrationStartTimeTolerance),
		MaxSessionLookaheadDays:     getEnvNum(EnvMaxSessionLookaheadDays, DefaultMaxSessionLookaheadDays),

		PrisonerServiceURL:     getEnvStr(EnvPrisonerServiceURL, DefaultPrisonerServiceURL),
		PrisonerServiceTimeout: getEnvDuration(EnvPrisonerServiceTimeout, DefaultPrisonerServiceTimeout),

		KafkaEnabled: getEnvBool(EnvKafkaEnabled, false),

		SweepSchedule: getEnvStr(EnvSweepSchedule, DefaultSweepSchedule),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func loadDotEnv(appEnv string) error {
	if appEnv == "production" {
		return nil
	}
	return godotenv.Load()
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"ApplicationValidityWindow", cfg.ApplicationValidityWindow},
		{"SlotLockTTL", cfg.SlotLockTTL},
		{"SlotLockWaitTimeout", cfg.SlotLockWaitTimeout},
		{"PrisonerServiceTimeout", cfg.PrisonerServiceTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.MigrationStartTimeTolerance < 0 {
		errors = append(errors, fmt.Sprintf("MigrationStartTimeTolerance cannot be negative, got: %s", cfg.MigrationStartTimeTolerance))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxSessionLookaheadDays <= 0 {
		errors = append(errors, fmt.Sprintf("MaxSessionLookaheadDays must be positive, got: %d", cfg.MaxSessionLookaheadDays))
	}

	switch cfg.LockBackend {
	case LockBackendMongo:
	case LockBackendRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when LockBackend is redis")
		}
		if cfg.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
	default:
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [%s %s], got: %s", LockBackendMongo, LockBackendRedis, cfg.LockBackend))
	}

	if !regexp.MustCompile(`^https?://`).MatchString(cfg.PrisonerServiceURL) {
		errors = append(errors, fmt.Sprintf("PrisonerServiceURL must start with 'http://' or 'https://', got: %s", cfg.PrisonerServiceURL))
	}
	if strings.TrimSpace(cfg.SweepSchedule) == "" {
		errors = append(errors, "SweepSchedule cannot be empty")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"app_env", cfg.AppEnv,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"application_validity_window", cfg.ApplicationValidityWindow,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"slot_lock_wait_timeout", cfg.SlotLockWaitTimeout,
		"lock_backend", cfg.LockBackend,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"migration_start_time_tolerance", cfg.MigrationStartTimeTolerance,
		"max_session_lookahead_days", cfg.MaxSessionLookaheadDays,
		"prisoner_service_url", cfg.PrisonerServiceURL,
		"prisoner_service_timeout", cfg.PrisonerServiceTimeout,
		"kafka_enabled", cfg.KafkaEnabled,
		"sweep_schedule", cfg.SweepSchedule,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}
