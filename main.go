// Package main provides the main entry point for the Orochi outreach service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amirphl/orochi-outreach/app/handlers"
	"github.com/amirphl/orochi-outreach/app/middleware"
	"github.com/amirphl/orochi-outreach/app/router"
	"github.com/amirphl/orochi-outreach/app/services"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/config"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting outreach service",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash),
	)

	// Initialize application
	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}

	// Stop background workers and release connections after in-flight requests finish
	for _, fn := range app.stopFuncs {
		fn()
	}

	logger.Info("server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(zap.NewStdLog(logger), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// A nil client means the in-memory fallbacks are used.
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
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
					logger.Warn("redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// startMemoryCacheCleanup evicts expired in-memory entries until stopped
func startMemoryCacheCleanup(cache *services.MemoryCache, interval time.Duration) func() {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				cache.Cleanup()
			}
		}
	}()
	return func() { close(done) }
}

// initializeEventPublisher dials the broker when events are enabled
func initializeEventPublisher(cfg config.EventsConfig, logger *zap.Logger) services.EventPublisher {
	if !cfg.Enabled {
		return services.NoopPublisher{}
	}
	publisher, err := services.NewRabbitMQPublisher(cfg)
	if err != nil {
		logger.Warn("event bus unavailable, events will be dropped", zap.Error(err))
		return services.NoopPublisher{}
	}
	logger.Info("event publisher connected", zap.String("exchange", cfg.Exchange))
	return publisher
}

// initializeMailer builds the SMTP relay used by the smtp provider
func initializeMailer(cfg *config.SMTPConfig) (services.Mailer, error) {
	accounts, err := services.ParseSenderAccounts(cfg.Accounts)
	if err != nil {
		return nil, err
	}
	selector, err := services.NewAccountSelector(cfg.AccountPolicy)
	if err != nil {
		return nil, err
	}
	return services.NewSMTPMailer(cfg, accounts, selector), nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		stopFuncs = append(stopFuncs, func() { _ = sqlDB.Close() })
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	var (
		cache      services.Cache
		tokenStore services.TokenStore
		sendLocker businessflow.SendLocker
	)
	if rc != nil {
		cache = services.NewRedisCache(rc)
		tokenStore = services.NewRedisTokenStore(rc, cfg.Cache.RedisPrefix)
		sendLocker = businessflow.NewRedisSendLocker(rc, cfg.Cache.RedisPrefix)
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	} else {
		memCache := services.NewMemoryCache()
		cache = memCache
		tokenStore = services.NewMemoryTokenStore()
		sendLocker = businessflow.NewLocalSendLocker()
		stopFuncs = append(stopFuncs, startMemoryCacheCleanup(memCache, cfg.Cache.CleanupInterval))
		logger.Info("redis disabled, using in-process cache, token store and send locks")
	}

	publisher := initializeEventPublisher(cfg.Events, logger)
	stopFuncs = append(stopFuncs, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	})

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	campaignLeadRepo := repository.NewCampaignLeadRepository(db)
	trackingRepo := repository.NewEmailTrackingRepository(db)
	linkRepo := repository.NewLinkTrackingRepository(db)

	// Initialize services
	tokenService, err := services.NewTokenService(
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		tokenStore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	gateway := services.NewSmartLeadClient(&cfg.SmartLead)
	mailer, err := initializeMailer(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	personalizer := services.NewTemplatePersonalizer()
	injector := services.NewHTMLTrackingInjector(cfg.Outreach.SiteURL)

	// Initialize business flows
	sendFlow := businessflow.NewCampaignSendFlow(
		campaignRepo,
		campaignLeadRepo,
		trackingRepo,
		gateway,
		mailer,
		personalizer,
		injector,
		sendLocker,
		publisher,
		cache,
		cfg.Outreach,
		cfg.Cache,
		logger,
		db,
	)
	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		campaignLeadRepo,
		leadRepo,
		profileRepo,
		trackingRepo,
		linkRepo,
		gateway,
		cache,
		publisher,
		cfg.Cache,
		cfg.Outreach,
		logger,
		db,
	)
	leadFlow := businessflow.NewLeadFlow(leadRepo, profileRepo, campaignLeadRepo, trackingRepo, linkRepo, logger, db)
	importFlow := businessflow.NewLeadImportFlow(leadRepo, profileRepo, logger)
	var notifier services.NotificationService = services.NoopNotificationService{}
	if cfg.Outreach.NotifyOnReply {
		notifier = services.NewEmailNotificationService(mailer, cfg.Outreach.SiteURL)
	}
	trackingFlow := businessflow.NewTrackingFlow(
		campaignRepo,
		leadRepo,
		campaignLeadRepo,
		trackingRepo,
		linkRepo,
		profileRepo,
		cache,
		publisher,
		notifier,
		cfg.Cache,
		logger,
		db,
	)
	dashboardFlow := businessflow.NewDashboardFlow(leadRepo, campaignRepo, logger)
	authFlow := businessflow.NewAuthFlow(tokenService, logger)
	profileFlow := businessflow.NewProfileFlow(profileRepo)

	// Initialize handlers
	h := router.Handlers{
		Auth:      handlers.NewAuthHandler(authFlow, logger),
		Campaign:  handlers.NewCampaignHandler(campaignFlow, sendFlow, logger),
		Lead:      handlers.NewLeadHandler(leadFlow, importFlow, logger),
		Tracking:  handlers.NewTrackingHandler(trackingFlow, logger),
		Dashboard: handlers.NewDashboardHandler(dashboardFlow, logger),
		Profile:   handlers.NewProfileHandler(profileFlow, logger),
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	r := router.NewFiberRouter(cfg, logger, h, authMiddleware)

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
