package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-ticket-otp/internal/application/delivery"
	"github.com/go-ticket-otp/internal/config"
	"github.com/go-ticket-otp/internal/domain"
	redisstore "github.com/go-ticket-otp/internal/infrastructure/redis"
	"github.com/go-ticket-otp/internal/wiring"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, rdb, err := wiring.Cache(ctx, cfg)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	if cfg.QueueBackend == "memory" {
		log.Fatalf("a standalone worker needs QUEUE_BACKEND=rabbitmq")
	}
	broker, err := wiring.Broker(cfg)
	if err != nil {
		log.Fatalf("queue broker: %v", err)
	}
	defer broker.Close()

	// Without Redis there is nobody to relay statuses to.
	var notifier domain.StatusNotifier = noopNotifier{}
	if rdb != nil {
		notifier = redisstore.NewStatusRelay(rdb, cfg.StatusChannel)
	}

	pool := delivery.NewPool(broker, wiring.Worker(ctx, cfg, kv, notifier), cfg.WorkerConcurrency)
	log.Printf("Worker starting (concurrency=%d, max_attempts=%d)", cfg.WorkerConcurrency, cfg.DeliveryMaxAttempts)
	if err := pool.Run(ctx); err != nil {
		log.Fatalf("worker pool: %v", err)
	}
	log.Println("Worker stopped")
}

type noopNotifier struct{}

func (noopNotifier) SendTaskStatus(context.Context, string, string) {}
