package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-ticket-otp/internal/application/account"
	"github.com/go-ticket-otp/internal/application/delivery"
	"github.com/go-ticket-otp/internal/application/dispatch"
	"github.com/go-ticket-otp/internal/application/registration"
	"github.com/go-ticket-otp/internal/config"
	"github.com/go-ticket-otp/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-ticket-otp/internal/infrastructure/jwt"
	redisstore "github.com/go-ticket-otp/internal/infrastructure/redis"
	transporthttp "github.com/go-ticket-otp/internal/transport/http"
	"github.com/go-ticket-otp/internal/transport/ws"
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
	broker, err := wiring.Broker(cfg)
	if err != nil {
		log.Fatalf("queue broker: %v", err)
	}
	defer broker.Close()

	hub := ws.NewHub()

	// Statuses from standalone workers arrive over Redis pub/sub.
	if !cfg.WorkerInProcess {
		if rdb == nil {
			log.Fatalf("WORKER_INPROCESS=false requires CACHE_BACKEND=redis")
		}
		relay := redisstore.NewStatusRelay(rdb, cfg.StatusChannel)
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				log.Printf("ERROR: status relay stopped: %v", err)
			}
		}()
	}

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherDeps{
		Publisher: broker,
		Queues:    wiring.ChannelQueues(cfg),
		Retries:   dispatch.NewRetryTracker(kv, cfg.RegistrationTTL),
		Notifier:  hub,
	})
	regSvc := registration.NewService(registration.ServiceDeps{
		Store:       registration.NewPendingStore(kv),
		Dispatcher:  dispatcher,
		TTL:         cfg.RegistrationTTL,
		OTPLength:   cfg.OTPLength,
		CountryCode: cfg.CountryCode,
	})

	// JWT provider (optional, graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Verified users are persisted only when a users table is configured.
	var accounts account.Service
	if cfg.UsersTable != "" {
		dynamoClient := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, dynamoClient, cfg.UsersTable)
		deps := account.ServiceDeps{UserRepo: dynamo.NewUserRepo(dynamoClient, cfg.UsersTable)}
		if jwtProvider != nil {
			deps.Signer = jwtProvider
		}
		accounts = account.NewService(deps)
	}

	if cfg.WorkerInProcess {
		pool := delivery.NewPool(broker, wiring.Worker(ctx, cfg, kv, hub), cfg.WorkerConcurrency)
		go func() {
			if err := pool.Run(ctx); err != nil {
				log.Printf("ERROR: worker pool stopped: %v", err)
				stop()
			}
		}()
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Registration: regSvc,
		Accounts:     accounts,
		Sessions:     kv,
		Hub:          hub,
		JWTProvider:  jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, worker_inprocess=%t)", cfg.AppPort, cfg.AppEnv, cfg.WorkerInProcess)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}
