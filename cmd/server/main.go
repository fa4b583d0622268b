package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/opexhub/be-opex-initiatives/internal/client"
	"github.com/opexhub/be-opex-initiatives/internal/config"
	"github.com/opexhub/be-opex-initiatives/internal/database"
	"github.com/opexhub/be-opex-initiatives/internal/handler"
	"github.com/opexhub/be-opex-initiatives/internal/logger"
	"github.com/opexhub/be-opex-initiatives/internal/middleware"
	"github.com/opexhub/be-opex-initiatives/internal/repository"
	"github.com/opexhub/be-opex-initiatives/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Initiative Workflow Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	initiativeRepo := repository.NewInitiativeRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	kpiRepo := repository.NewKPIRepository(db)

	// Seed site and discipline reference data
	if err := referenceRepo.SeedDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed reference data")
	}

	// Connect to NATS for workflow notifications (optional)
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable, notifications disabled")
		} else {
			defer natsConn.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}
	publisher := client.NewNotificationPublisher(natsConn, log.Logger)

	// Initialize services
	initiativeService := service.NewInitiativeService(initiativeRepo, referenceRepo, publisher, log)
	workflowService := service.NewWorkflowService(initiativeRepo, transactionRepo, publisher, log)
	kpiService := service.NewKPIService(kpiRepo, referenceRepo, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(initiativeService, workflowService, kpiService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Reference data routes
	mux.HandleFunc("/api/v1/sites", httpHandler.ListSites)
	mux.HandleFunc("/api/v1/disciplines", httpHandler.ListDisciplines)

	// Initiative routes
	mux.HandleFunc("/api/v1/initiatives", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListInitiatives(w, r)
		case http.MethodPost:
			httpHandler.CreateInitiative(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/initiatives/get", httpHandler.GetInitiative)

	// Workflow routes
	mux.HandleFunc("/api/v1/workflow/pending-stage", httpHandler.PendingStage)
	mux.HandleFunc("/api/v1/workflow/approve", httpHandler.ApproveStage)
	mux.HandleFunc("/api/v1/workflow/reject", httpHandler.RejectStage)
	mux.HandleFunc("/api/v1/workflow/transactions", httpHandler.ListTransactions)
	mux.HandleFunc("/api/v1/workflow/pending", httpHandler.ListPending)

	// KPI routes
	mux.HandleFunc("/api/v1/kpis", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListKPIs(w, r)
		case http.MethodPost:
			httpHandler.RecordKPI(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Apply middleware
	var httpChain http.Handler = mux
	httpChain = middleware.Timeout(cfg.Server.WriteTimeout)(httpChain)
	httpChain = middleware.CORS([]string{"*"})(httpChain)
	httpChain = middleware.Recovery(&log.Logger)(httpChain)
	httpChain = middleware.Logger(&log.Logger)(httpChain)
	httpChain = middleware.RequestID(httpChain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpChain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
