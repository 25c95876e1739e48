package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/loadpoint/broker-outreach/internal/config"
	"github.com/loadpoint/broker-outreach/internal/delivery"
	"github.com/loadpoint/broker-outreach/internal/repository/postgres"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
	"github.com/loadpoint/broker-outreach/internal/templates"
	"github.com/loadpoint/broker-outreach/internal/worker"
)

// Standalone sweep worker for deployments that split the API and the
// background dispatcher. The server binary runs its own sweeper, so run
// this alongside it only with the distributed lock backing store in place.
func main() {
	log.Println("Starting outreach sweep worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

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
		}
	}

	emailSender := delivery.NewSESSender(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	if emailSender.DryRun() {
		log.Println("SES credentials missing: email delivery in dry-run mode")
	}
	voiceClient := delivery.NewVoiceClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, cfg.Voice.Timeout())

	outreachSvc := outreach.NewService(
		postgres.NewStepRepo(db),
		postgres.NewBrokerRepo(db),
		postgres.NewCarrierRepo(db),
		postgres.NewTemplateRepo(db),
		templates.NewRenderer(),
		emailSender,
		voiceClient,
	)

	sweeper := worker.NewSweeper(outreachSvc, redisClient, db)
	sweeper.SetInterval(cfg.Sweep.Interval())
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}
	log.Printf("Sweeper running (interval %s)", cfg.Sweep.Interval())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sweeper.Stop()
	log.Println("Shutdown complete")
}
