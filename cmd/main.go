/**
 * @description
 * This is the main entry point for the payments-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * the payment processor client, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3: Schedules the stale pending-capture reaper.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/processorclient: Client for the card processor API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jamii/payments-service/internal/api"
	"github.com/jamii/payments-service/internal/app"
	"github.com/jamii/payments-service/internal/config"
	"github.com/jamii/payments-service/internal/store"
	"github.com/jamii/payments-service/pkg/processorclient"
	jmrabbit "github.com/jamii/payments-service/pkg/rabbitmq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting payments-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish payment events. A broker
	// outage must not keep the checkout path down, so we fall back to a no-op
	// publisher instead of failing to boot.
	var publisher jmrabbit.Publisher
	rabbitProducer, err := jmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		publisher = &jmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		publisher = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the card processor API.
	processorClient := processorclient.NewClient(cfg.ProcessorAPIBaseURL, cfg.ProcessorAPIKey, 0)

	// Redis backs the per-customer charge rate limiter. Missing or unreachable
	// Redis degrades to no rate limiting rather than blocking boot.
	var redisClient *redis.Client
	if cfg.ChargeRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; charge rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; charge rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; charge rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	paymentService := app.NewService(repository, processorClient, publisher)
	if redisClient != nil {
		paymentService.SetChargeRateLimiter(
			app.NewRedisChargeRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.ChargeRateLimitPerMinute,
		)
	}

	// Wire up the escrow consumer: bind to job lifecycle events from the
	// booking service so held funds release or refund when jobs settle.
	escrowConsumer := paymentService.EscrowConsumer()

	rabbitConsumer, err := jmrabbit.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer init failed\" err=%v", err)
	}
	defer rabbitConsumer.Close()

	jobBindings := map[string]func([]byte) bool{
		"job.completed": escrowConsumer.HandleMessage,
		"job.disputed":  escrowConsumer.HandleMessage,
		"job.cancelled": escrowConsumer.HandleMessage,
	}

	if err := rabbitConsumer.ConsumeWithBindings(app.EventsExchange, cfg.JobEventQueue, jobBindings); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"job event consumer start failed\" err=%v", err)
	}

	// Schedule the reaper that fails captures stuck in pending.
	reaper := app.NewPendingCaptureReaper(paymentService, time.Duration(cfg.PendingCaptureTimeoutSeconds)*time.Second)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PendingCaptureReaperSchedule, reaper.Run); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"reaper schedule invalid\" schedule=%q err=%v", cfg.PendingCaptureReaperSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Set up the HTTP router and start the server.
	router := api.NewRouter(cfg, paymentService)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
