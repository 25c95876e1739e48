package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/loadpoint/broker-outreach/internal/api"
	"github.com/loadpoint/broker-outreach/internal/auth"
	"github.com/loadpoint/broker-outreach/internal/config"
	"github.com/loadpoint/broker-outreach/internal/delivery"
	"github.com/loadpoint/broker-outreach/internal/repository/postgres"
	"github.com/loadpoint/broker-outreach/internal/service/broker"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
	"github.com/loadpoint/broker-outreach/internal/templates"
	"github.com/loadpoint/broker-outreach/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("Starting Loadpoint broker outreach server...")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	// Database connection
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database at %s: %v", extractHost(cfg.Database.URL), err)
	}
	log.Printf("Connected to database at %s", extractHost(cfg.Database.URL))

	// Redis is optional; it only backs the sweep lock.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unreachable (%v), sweep lock falls back to Postgres", err)
			redisClient = nil
		} else {
			log.Printf("Connected to Redis at %s", cfg.Redis.Addr)
		}
	}

	// Repositories
	brokerRepo := postgres.NewBrokerRepo(db)
	stepRepo := postgres.NewStepRepo(db)
	leadRepo := postgres.NewLeadRepo(db)
	carrierRepo := postgres.NewCarrierRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)

	// Delivery providers
	emailSender := delivery.NewSESSender(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	if emailSender.DryRun() {
		log.Println("SES credentials missing: email delivery in dry-run mode")
	}
	voiceClient := delivery.NewVoiceClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, cfg.Voice.Timeout())

	// Services
	brokerSvc := broker.NewService(brokerRepo, leadRepo, carrierRepo)
	outreachSvc := outreach.NewService(stepRepo, brokerRepo, carrierRepo, templateRepo,
		templates.NewRenderer(), emailSender, voiceClient)

	// Background sweeper shares the process with the API by default; the
	// dedicated cmd/worker binary exists for split deployments.
	sweeper := worker.NewSweeper(outreachSvc, redisClient, db)
	sweeper.SetInterval(cfg.Sweep.Interval())
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}

	// HTTP server
	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	} else {
		log.Println("WARNING: no JWT secret configured, API is unauthenticated")
	}

	handlers := api.NewHandlers(brokerSvc, outreachSvc, api.NewHealthChecker(db, redisClient))
	server := api.NewServer(cfg.Server, handlers, verifier)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("API listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}
