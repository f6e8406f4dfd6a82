// Package main provides the main entry point for the nightpulse API
//
// @title nightpulse API
// @version 1.0
// @description Crowd-sourced nightlife votes, live tallies, predictions and houseparty listings.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/nightpulse/app/handlers"
	"github.com/amirphl/nightpulse/app/middleware"
	"github.com/amirphl/nightpulse/app/router"
	"github.com/amirphl/nightpulse/app/scheduler"
	"github.com/amirphl/nightpulse/app/services"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/amirphl/nightpulse/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting nightpulse application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApplication(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers after the server stops accepting writes
	cancel()
	for _, fn := range app.stopFuncs {
		fn()
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to stdout, a rotating file or both
func initializeLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	if cfg.Output != "file" && cfg.Output != "both" {
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	var out io.Writer = rotator
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)
	log.Printf("Logging to %s (max %d MB, %d backups)", cfg.FilePath, cfg.MaxSize, cfg.MaxBackups)
	return func() { _ = rotator.Close() }
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = logger.New(log.Default(), logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// A disabled cache returns a nil client; every component then falls back to
// in-process behaviour.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity
// issues. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

func componentLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix+" ", log.Flags())
}

// initializeApplication wires every component
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig) (*Application, error) {
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	var stopFuncs []func()
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(ctx, rc, 30*time.Second))
	}

	venues, err := services.LoadVenueDirectory(cfg.Venues.DirectoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue directory: %w", err)
	}
	log.Printf("Venue directory loaded with %d venues", venues.Len())

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Repositories
	voteRepo := repository.NewVoteRepository(db)
	housepartyRepo := repository.NewHousepartyRepository(db)
	nightLockRepo := repository.NewNightLockRepository(db)
	quotaRepo := repository.NewSubmissionQuotaRepository(db)
	profileRepo := repository.NewUserProfileRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	summaryRepo := repository.NewPredictionSummaryRepository(db)
	reportRepo := repository.NewReportRepository(db)
	venueFlagRepo := repository.NewVenueFlagRepository(db)

	// Engine
	nights, err := utils.NewNightKeyResolver(cfg.Engine.Timezone, cfg.Engine.RolloverHour)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize night key resolver: %w", err)
	}
	calculator, err := businessflow.NewVoteWeightCalculator(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vote weights: %w", err)
	}
	clock := utils.Clock(utils.UTCNow)
	tally := businessflow.NewTallyAggregator(voteRepo, venues, calculator, cfg.Engine.FanOutLimit, clock)
	blender := businessflow.NewPredictionBlender(cfg.Engine, nights, tally)

	changeFeed := services.NewChangeFeed(rc, cfg.Cache.RedisPrefix+cfg.Cache.ChangeFeedChannel, componentLogger("changefeed"))

	// Business flows
	voteFlow := businessflow.NewVoteFlow(voteRepo, venueFlagRepo, auditRepo, tally, nights, venues, changeFeed, rc, cfg.Cache, cfg.Engine, clock)
	summaryFlow := businessflow.NewSummaryFlow(summaryRepo, venueFlagRepo, auditRepo, blender, nights, venues, rc, cfg.Cache, cfg.Scheduler.BackfillMaxNights, clock)
	housepartyFlow := businessflow.NewHousepartyFlow(housepartyRepo, nightLockRepo, quotaRepo, profileRepo, auditRepo, nights, cfg.Houseparty, db, clock)
	reportFlow := businessflow.NewReportFlow(reportRepo, housepartyRepo, venueFlagRepo, auditRepo, venues, nights, cfg.Reports, clock)

	// Live recompute pipeline
	queue := scheduler.NewRecomputeQueue(cfg.Scheduler.QueueSize)
	worker := scheduler.NewRecomputeWorker(queue, voteFlow, cfg.Scheduler.RecomputeDebounce, cfg.Scheduler.JobTimeout, componentLogger("recompute"))
	changeFeed.Subscribe(worker.HandleChange)
	stopFuncs = append(stopFuncs, worker.Start(ctx))

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := changeFeed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Change feed stopped: %v", err)
		}
	}()
	stopFuncs = append(stopFuncs, func() { <-feedDone })

	if cfg.Scheduler.Enabled {
		jobs, err := scheduler.NewJobScheduler(summaryFlow, reportFlow, nights, rc, cfg.Cache, cfg.Scheduler, clock, componentLogger("scheduler"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		stopFuncs = append(stopFuncs, jobs.Start())
	}

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(tokenService, cfg.Admin, cfg.Cron)
	appRouter := router.NewFiberRouter(cfg, router.Handlers{
		Votes:        handlers.NewVoteHandler(voteFlow),
		Predictions:  handlers.NewPredictionHandler(summaryFlow),
		Cron:         handlers.NewCronHandler(summaryFlow, reportFlow),
		Houseparties: handlers.NewHousepartyHandler(housepartyFlow),
		Reports:      handlers.NewReportHandler(reportFlow),
		Admin:        handlers.NewAdminHandler(housepartyFlow, reportFlow),
	}, authMiddleware)

	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	fiberRouter := appRouter.(*router.FiberRouter)
	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
