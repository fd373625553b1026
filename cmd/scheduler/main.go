package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	availabilityhandler "convene/internal/availability/handler"
	availabilityservice "convene/internal/availability/service"
	"convene/internal/availability/source"
	meetingshandler "convene/internal/meetings/handler"
	meetingsrepository "convene/internal/meetings/repository"
	meetingsservice "convene/internal/meetings/service"
	meetingsvalidator "convene/internal/meetings/validator"
	migrations "convene/internal/migrations/mongo"
	pollshandler "convene/internal/polls/handler"
	pollsrepository "convene/internal/polls/repository"
	pollsservice "convene/internal/polls/service"
	pollsvalidator "convene/internal/polls/validator"
	"convene/internal/rooms"
	roomshandler "convene/internal/rooms/handler"
	roomsrepository "convene/internal/rooms/repository"
	roomsservice "convene/internal/rooms/service"
	roomsvalidator "convene/internal/rooms/validator"
	"convene/pkg/config"
	"convene/pkg/contracts"
	"convene/pkg/events"
	"convene/pkg/middleware"
)

func main() {
	cfg := config.Load("scheduler")
	cfg.SetMongo()
	cfg.SetFreeBusy()
	defer cfg.Client.GracefulShutdown()

	migrate(cfg)

	publisher := initPublisher(cfg)
	defer publisher.Close()

	handlers := initHandlers(cfg, publisher)

	server, stop := setupHTTPServer(cfg, handlers)

	run(cfg, server, stop)
}

func migrate(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()

	if err := migrations.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName); err != nil {
		cfg.Log.Fatal("Migrations failed", "error", err)
	}

	roomRepo := roomsrepository.NewMongoRoomRepository(cfg)
	if err := roomRepo.Seed(ctx, rooms.Catalog); err != nil {
		cfg.Log.Fatal("Room catalog seeding failed", "error", err)
	}
	cfg.Log.Info("Room catalog seeded", "rooms", len(rooms.Catalog))
}

func initPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Warn("No Kafka brokers configured, event publishing disabled")
		return events.Noop{}
	}

	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	}, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
	}

	cfg.Log.Info("Kafka publisher initialized",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
	)
	return publisher
}

func initHandlers(cfg *config.Config, publisher events.Publisher) []contracts.Handler {
	meetingRepo := meetingsrepository.NewMongoMeetingRepository(cfg)
	meetingService := meetingsservice.NewMeetingService(
		meetingRepo,
		meetingsvalidator.NewMeetingValidator(cfg.Log),
		publisher,
		cfg,
	)

	pollRepo := pollsrepository.NewMongoPollRepository(cfg)
	pollService := pollsservice.NewPollService(
		pollRepo,
		meetingService,
		pollsvalidator.NewPollValidator(cfg.MaxPollOptions, cfg.Log),
		publisher,
		cfg,
	)

	roomService := roomsservice.NewRoomService(
		roomsrepository.NewMongoRoomRepository(cfg),
		roomsrepository.NewMongoBookingRepository(cfg),
		roomsrepository.NewSlotLockRepository(cfg),
		meetingService,
		roomsvalidator.NewRoomValidator(cfg.Log),
		publisher,
		cfg,
	)

	busySource := source.NewFreeBusySource(cfg.Client.FreeBusy, cfg.FetchTimeout)
	fetcher := source.NewFetcher(busySource, cfg.FetchPoolSize, cfg.Log)
	availabilityService := availabilityservice.NewAvailabilityService(fetcher, cfg)

	cfg.Log.Info("Scheduling services initialized")

	return []contracts.Handler{
		meetingshandler.NewMeetingHandler(meetingService, cfg.Log),
		pollshandler.NewPollHandler(pollService, cfg.Log),
		roomshandler.NewRoomHandler(roomService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
	}
}

func setupHTTPServer(cfg *config.Config, handlers []contracts.Handler) (*http.Server, func()) {
	healthRouter := httprouter.New()
	healthHandler := meetingshandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log)
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(cfg.Log)(healthHTTPHandler)
	cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")

	apiRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(apiRouter)
	}

	idempotencyStore := middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)
	rateLimiter := middleware.NewCallerRateLimiter(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		middleware.DefaultCallerExtractor,
		cfg.Log,
	)

	// Middleware order: Recovery → Logging → MaxSize → ContentType → RateLimit → Timeout → Idempotency → Router
	var apiHTTPHandler http.Handler = apiRouter
	apiHTTPHandler = middleware.Idempotency(idempotencyStore, "Idempotency-Key")(apiHTTPHandler)
	apiHTTPHandler = middleware.RequestTimeout(cfg.RequestTimeout)(apiHTTPHandler)
	apiHTTPHandler = middleware.CallerRateLimit(rateLimiter)(apiHTTPHandler)
	apiHTTPHandler = middleware.ContentTypeValidation(cfg.Log)(apiHTTPHandler)
	apiHTTPHandler = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(apiHTTPHandler)
	apiHTTPHandler = middleware.RequestLogging(cfg.Log)(apiHTTPHandler)
	apiHTTPHandler = middleware.Recovery(cfg.Log)(apiHTTPHandler)
	cfg.Log.Info("API endpoints configured with full middleware stack")

	mux := http.NewServeMux()
	mux.Handle("/health", healthHTTPHandler)
	mux.Handle("/ready", healthHTTPHandler)
	mux.Handle("/", apiHTTPHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	stop := func() {
		idempotencyStore.Stop()
		rateLimiter.Stop()
	}

	cfg.Log.Info("HTTP server configured", "port", cfg.Port)
	return server, stop
}

func run(cfg *config.Config, server *http.Server, stop func()) {
	serverErrors := make(chan error, 1)

	go func() {
		cfg.Log.Info("Starting HTTP server", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		gracefulShutdown(cfg, server, stop)
	}
}

func gracefulShutdown(cfg *config.Config, server *http.Server, stop func()) {
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		cfg.Log.Error("Server shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	cfg.Log.Info("Server stopped gracefully")
}
