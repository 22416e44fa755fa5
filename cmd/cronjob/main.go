package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"teamseat-backend/internal/config"
	"teamseat-backend/internal/jobs"
	"teamseat-backend/internal/logger"
	"teamseat-backend/internal/provider"
	"teamseat-backend/internal/repository/postgres"
	"teamseat-backend/internal/scheduler"
	"teamseat-backend/internal/security"
	"teamseat-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'sync-team-health')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Teamseat Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize credential vault and provider client
	vault, err := security.NewVault(cfg.Vault.Key)
	if err != nil {
		logger.Error("Failed to initialize vault", "error", err)
		log.Fatalf("Failed to initialize vault: %v", err)
	}
	providerClient := provider.NewClient(cfg.Provider.BaseURL, time.Duration(cfg.Provider.TimeoutSeconds)*time.Second)

	healthSync := service.NewTeamHealthSyncer(store, vault, providerClient)
	jobRunner := jobs.NewJobRunner(store, healthSync, cfg)

	// Run a single job and exit when asked
	if *runOnce != "" {
		switch *runOnce {
		case "sync-team-health":
			jobRunner.SyncTeamHealth()
		case "release-full-teams":
			jobRunner.ReleaseFullTeams()
		default:
			logger.Error("Unknown job", "job", *runOnce)
			os.Exit(1)
		}
		return
	}

	// Otherwise run the scheduler until interrupted
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	sched.Stop()
	logger.Info("Cronjob runner stopped")
}
