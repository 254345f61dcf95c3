package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TazaQala/app/controllers"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/accounts"
	"github.com/ManuelReschke/TazaQala/internal/pkg/cache"
	"github.com/ManuelReschke/TazaQala/internal/pkg/config"
	"github.com/ManuelReschke/TazaQala/internal/pkg/database"
	"github.com/ManuelReschke/TazaQala/internal/pkg/env"
	"github.com/ManuelReschke/TazaQala/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/TazaQala/internal/pkg/jobqueue"
	"github.com/ManuelReschke/TazaQala/internal/pkg/lifecycle"
	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics"
	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/TazaQala/internal/pkg/moderation"
	"github.com/ManuelReschke/TazaQala/internal/pkg/rewards"
	"github.com/ManuelReschke/TazaQala/internal/pkg/router"
	"github.com/ManuelReschke/TazaQala/internal/pkg/statistics"
	"github.com/ManuelReschke/TazaQala/internal/pkg/upload"
)

func main() {
	app := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		jobqueue.GetManager().Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cfg := config.Load()
	m := metrics.New()
	db := database.GetDB()
	repository.InitializeFactory(db)
	factory := repository.GetGlobalFactory()
	uow := factory.UnitOfWork()
	repos := factory.GetRepositories()

	gateway := moderation.NewGuarded(moderation.NewGateway(cfg, nil), cfg.Moderation.Timeout, m)
	log.Printf("Moderation backend: %s", cfg.Moderation.Backend)

	rdb := cache.GetClient()
	cacheUp := rdb.Ping(context.Background()).Err() == nil

	var statsCache redis.Cmdable
	if cacheUp {
		statsCache = rdb
	}
	stats := statistics.NewService(repos.Stats, statsCache, cfg.StatsTTL)
	api := &controllers.API{
		Reports:       lifecycle.NewService(uow, gateway, cfg, m),
		Rewards:       rewards.NewService(uow, m),
		Stats:         stats,
		Accounts:      accounts.NewService(uow),
		Notifications: repos.Notification,
		Uploads:       upload.NewStore(cfg.UploadDir),
	}

	var limiterStorage fiber.Storage
	if cacheUp {
		api.Views = rdb
		limiterStorage = cache.NewLimiterStorage()
	} else {
		log.Println("Warning: cache unavailable, view counting disabled and rate limits kept in memory")
	}

	startJobs(stats, cacheUp)

	app := fiber.New(fiber.Config{
		BodyLimit: 3 * upload.MaxFileSize,
	})
	app.Use(recover.New(), logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Captcha-Token",
	}))

	router.InstallRouter(app,
		router.NewHttpRouter(m, cfg.UploadDir, env.GetEnv("OPENAPI_FILE", "./public/docs/v1/openapi.yml")),
		router.NewApiRouter(api, factory.GetUserRepository(), hcaptcha.FromEnv(), limiterStorage, env.GetEnvInt("RATE_LIMIT_PER_MINUTE", 120)),
	)

	return app
}

func startJobs(stats *statistics.Service, cacheUp bool) {
	manager := jobqueue.GetManager()
	if cacheUp {
		manager.Register(jobqueue.Job{
			Name:     "flush-view-counters",
			Interval: env.GetEnvDuration("VIEW_FLUSH_INTERVAL", time.Minute),
			Run: func(ctx context.Context) error {
				return counter.Flush(ctx, cache.GetClient(), database.GetDB())
			},
		})
	}
	manager.Register(jobqueue.Job{
		Name:     "refresh-statistics",
		Interval: env.GetEnvDuration("STATS_REFRESH_INTERVAL", 5*time.Minute),
		Run:      stats.Refresh,
	})
	manager.Start()
}
