package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	api "teamseat-backend/internal/api/http"
	"teamseat-backend/internal/config"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/provider"
	"teamseat-backend/internal/ratelimit"
	"teamseat-backend/internal/repository/postgres"
	"teamseat-backend/internal/security"
	"teamseat-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Teamseat Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Provider configuration", "base_url", cfg.Provider.BaseURL)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize credential vault
	vault, err := security.NewVault(cfg.Vault.Key)
	if err != nil {
		logger.Error("Failed to initialize vault", "error", err)
		log.Fatalf("Failed to initialize vault: %v", err)
	}

	// Initialize provider client
	providerClient := provider.NewClient(cfg.Provider.BaseURL, time.Duration(cfg.Provider.TimeoutSeconds)*time.Second)

	// Initialize confirmation email service (optional)
	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey != "" {
		emailSvc = service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Warn("SendGrid not configured, confirmation emails disabled")
	}

	// Initialize Services
	healthSync := service.NewTeamHealthSyncer(store, vault, providerClient)
	limiter := ratelimit.New(time.Duration(cfg.RateLimit.IntervalSeconds) * time.Second)

	redemptionSvc := service.NewRedemptionService(store, vault, providerClient, emailSvc)
	warrantySvc := service.NewWarrantyService(store, healthSync, limiter)

	// Set up HTTP server
	router := api.NewRouter(redemptionSvc, warrantySvc)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("Failed to serve HTTP", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
