package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"eventhub/internal/actions"
	"eventhub/internal/api"
	"eventhub/internal/api/handlers"
	"eventhub/internal/config"
	"eventhub/internal/consumer"
	"eventhub/internal/database"
	"eventhub/internal/logger"
	"eventhub/internal/monitoring"
	"eventhub/internal/rules"
	"eventhub/internal/rulesfile"
	"eventhub/internal/services"
	"eventhub/internal/stream"
	"eventhub/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the stream transport
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	st := stream.New(rdb, cfg.StreamKey, cfg.StreamGroup, cfg.StreamConsumer, cfg.StreamMaxLen)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db, st)
	ruleService := services.NewRuleService(db)
	executionService := services.NewExecutionService(db)

	// Set up the rules engine and action dispatcher
	dispatcher := actions.NewDispatcher(eventService, executionService, actions.LoggingTracker{}, actions.LoggingPusher{})
	engine := rules.NewEngine(ruleService, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reload the rule cache synchronously after every CRUD mutation so an
	// operator sees edits apply to the very next matching event.
	ruleService.OnMutate(func() {
		if _, err := engine.Load(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to reload rule cache after mutation")
		}
	})
	if _, err := engine.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load rules")
	}

	// Seed static rules from disk, if configured
	var staticCount func() int
	if cfg.RulesFile != "" {
		loader := rulesfile.NewLoader(cfg.RulesFile, ruleService, func() {
			if _, err := engine.Load(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to reload rule cache after file sync")
			}
		})
		if _, err := loader.Sync(ctx); err != nil {
			log.Fatal().Err(err).Str("path", cfg.RulesFile).Msg("Failed to seed static rules")
		}
		stopWatch, err := loader.Watch(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Rules file watcher unavailable, hot-reload disabled")
		} else {
			defer stopWatch()
		}
		staticCount = loader.Count
	}

	// Start the consumer loop
	cons := consumer.New(st, engine, hub)
	if err := cons.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start consumer loop")
	}

	// Set up and start the maintenance schedule
	maintenance, err := monitoring.NewMaintenance(cfg.MaintenanceCron, engine, st)
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.MaintenanceCron).Msg("Invalid maintenance schedule")
	}
	maintenance.Start()

	// Set up router
	eventHandler := handlers.NewEventHandler(eventService)
	ruleHandler := handlers.NewRuleHandler(ruleService, executionService)
	statusHandler := handlers.NewStatusHandler(eventService, engine, staticCount, db, st)
	wsHandler := handlers.NewWebSocketHandler(hub)
	router := api.NewRouter(eventHandler, ruleHandler, statusHandler, wsHandler)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	cons.Stop() // stop accepting new batches, let the in-flight ack complete
	maintenance.Stop()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
