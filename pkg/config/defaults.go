package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "convene"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultFreeBusyBaseURL = "http://localhost:9090"
	DefaultFetchTimeout    = 5 * time.Second
	DefaultFetchPoolSize   = 8
	DefaultSuggestTimeout  = 15 * time.Second

	DefaultSlotIncrementMin = 30
	DefaultMaxSuggestions   = 10
	DefaultMaxPollOptions   = 20
	DefaultBookingLockTTL   = 10 * time.Second

	// No default brokers: with KAFKA_BROKERS unset the service runs with
	// event publishing disabled.
	DefaultKafkaBrokers = ""
	DefaultKafkaTopic   = "convene.scheduler.events"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
