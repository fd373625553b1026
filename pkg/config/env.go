package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvFreeBusyBaseURL = "FREEBUSY_BASE_URL"
	EnvFetchTimeout    = "FREEBUSY_FETCH_TIMEOUT"
	EnvFetchPoolSize   = "FREEBUSY_FETCH_POOL_SIZE"
	EnvSuggestTimeout  = "SUGGEST_TIMEOUT"

	EnvSlotIncrementMin = "DEFAULT_SLOT_INCREMENT_MIN"
	EnvMaxSuggestions   = "DEFAULT_MAX_SUGGESTIONS"
	EnvMaxPollOptions   = "MAX_POLL_OPTIONS"
	EnvBookingLockTTL   = "BOOKING_LOCK_TTL"

	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvKafkaTopic   = "KAFKA_TOPIC"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
