package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admission-seat-allocation/internal/config"
	"github.com/iliyamo/admission-seat-allocation/internal/database"
	"github.com/iliyamo/admission-seat-allocation/internal/engine"
	"github.com/iliyamo/admission-seat-allocation/internal/handler"
	"github.com/iliyamo/admission-seat-allocation/internal/middleware"
	"github.com/iliyamo/admission-seat-allocation/internal/queue"
	"github.com/iliyamo/admission-seat-allocation/internal/repository"
	"github.com/iliyamo/admission-seat-allocation/internal/router"
	queue_publisher "github.com/iliyamo/admission-seat-allocation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	capacities, err := repository.NewCapacityRepo(db).LoadAll(ctx)
	if err != nil {
		log.Fatalf("load capacities: %v", err)
	}
	candidates, err := repository.NewCandidateRepo(db).LoadAll(ctx)
	if err != nil {
		log.Fatalf("load candidates: %v", err)
	}
	eng := engine.New(capacities, candidates)
	log.Printf("engine ready: %d branches, %d candidates", len(capacities), len(candidates))

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and snapshot cache disabled")
	}
	cache := middleware.NewSnapshotCache(config.LoadCacheConfig(), rdb)

	admins := repository.NewAdminRepo(db)
	bootstrapAdmin(ctx, admins, cfg)

	assignments := repository.NewAssignmentRepo(db)
	publish := func(ctx context.Context, ev queue.AllocationChangedEvent) {
		_ = queue_publisher.PublishAllocationChanged(ctx, ev) // already logged inside
	}

	h := handler.NewAllocationHandler(eng)
	h.Assignments = assignments
	h.Cache = cache
	h.OnChange = publish

	// Async event intake shares the persist/invalidate/notify side effects
	// with the HTTP mutation path.
	go func() {
		err := queue.StartAdmissionConsumer(eng, func(ctx context.Context, ev queue.AllocationChangedEvent) {
			if err := assignments.ReplaceAll(ctx, eng.Snapshot()); err != nil {
				log.Printf("consumer: persist snapshot failed: %v", err)
			}
			cache.Bump(ctx)
			publish(ctx, ev)
		})
		if err != nil {
			log.Printf("admission consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, admins), cfg.JWTSecret)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterAllocation(e, h, cfg.JWTSecret, limiter, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// bootstrapAdmin seeds the first operator account from ADMIN_EMAIL and
// ADMIN_PASSWORD when both are set. An existing account is left untouched.
func bootstrapAdmin(ctx context.Context, admins *repository.AdminRepo, cfg config.Config) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	_, err := admins.Create(ctx, email, password, "ADMIN", cfg.BcryptCost)
	if err != nil && !errors.Is(err, repository.ErrEmailExists) {
		log.Fatalf("bootstrap admin: %v", err)
	}
}
