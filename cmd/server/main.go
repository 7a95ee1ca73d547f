package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/config"
	"github.com/funlifew/push-notify-api/internal/dispatch"
	"github.com/funlifew/push-notify-api/internal/gateway"
	"github.com/funlifew/push-notify-api/internal/handlers"
	"github.com/funlifew/push-notify-api/internal/middleware"
	"github.com/funlifew/push-notify-api/internal/migration"
	"github.com/funlifew/push-notify-api/internal/repository"
	"github.com/funlifew/push-notify-api/internal/routes"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config     *config.Config
	db         *sql.DB
	logger     zerolog.Logger
	dispatcher *dispatch.Dispatcher
}

func main() {
	generateToken := flag.Bool("generate-token", false, "request an admin token from the relay and exit")
	flag.Parse()

	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	icons := gateway.NewIconStore(cfg.Relay.IconDir)
	relay := gateway.NewClient(cfg.Relay, icons, logger)

	// One-shot install-time bootstrap; not part of the delivery hot path.
	if *generateToken {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		token, err := relay.GenerateToken(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to generate relay token")
		}
		logger.Info().Str("name", token.Name).Msg("Token generated successfully")
		logger.Info().Msgf("Add this to your config.yml under relay.token: %s", token.Token)
		return
	}

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Repositories
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// Dispatch pipeline
	resolver := dispatch.NewResolver(subscriptionRepo, topicRepo, templateRepo)
	dispatcher := dispatch.NewDispatcher(scheduleRepo, ledgerRepo, resolver, relay, logger)

	app := &application{
		config:     cfg,
		db:         db,
		logger:     logger,
		dispatcher: dispatcher,
	}

	// Start the due scan on its fixed cadence.
	scanner := app.startScanner()

	// Initialize the HTTP router and middleware.
	router := app.initRouter(subscriptionRepo, topicRepo, templateRepo, scheduleRepo, ledgerRepo)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, scanner)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(
	subscriptionRepo repository.SubscriptionRepository,
	topicRepo repository.TopicRepository,
	templateRepo repository.TemplateRepository,
	scheduleRepo repository.ScheduleRepository,
	ledgerRepo repository.LedgerRepository,
) http.Handler {
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, app.dispatcher, app.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionRepo, app.logger)
	topicHandler := handlers.NewTopicHandler(topicRepo, app.logger)
	templateHandler := handlers.NewTemplateHandler(templateRepo, app.logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerRepo, app.logger)

	return routes.NewRouter(scheduleHandler, subscriptionHandler, topicHandler, templateHandler, ledgerHandler)
}

// startScanner runs the due scan on the configured cadence (nominally once
// per minute). Overlapping scans are tolerated: the claim update keeps two
// scans from acting on the same row.
func (app *application) startScanner() *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@every "+app.config.Dispatch.ScanInterval.String(), func() {
		app.dispatcher.RunScan(context.Background())
	})
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Failed to schedule dispatch scan")
	}

	c.Start()
	app.logger.Info().Dur("interval", app.config.Dispatch.ScanInterval).Msg("Dispatch scan scheduled")
	return c
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, scanner *cron.Cron) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		app.logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		app.logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		app.logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		app.logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		app.logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the scan loop and wait for a running scan to finish.
	stopCtx := scanner.Stop()
	<-stopCtx.Done()
	app.logger.Info().Msg("Dispatch scan stopped.")
}
