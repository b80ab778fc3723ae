package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakustack/backend/chat"
	"bakustack/backend/config"
	"bakustack/backend/controllers"
	"bakustack/backend/gateway"
	"bakustack/backend/inflight"
	"bakustack/backend/middleware"
	"bakustack/backend/routes"
	"bakustack/backend/session"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const guardTTL = 30 * time.Second

type redisPinger struct{ client *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{
		Format:       cfg.LogFormat,
		Level:        cfg.LogLevel,
		EnableColors: !cfg.IsProduction(),
	})
	defer func() { _ = logger.Sync() }()

	// Initialize database
	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	if cfg.AutoMigrate {
		if err := gateway.Migrate(db); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
	}
	if cfg.SeedCatalog {
		if err := gateway.SeedCatalog(context.Background(), db, cfg.InstructorEmail, logger); err != nil {
			logger.Fatal("catalog seed failed", zap.Error(err))
		}
	}
	store := gateway.New(db, logger)
	checks := map[string]controllers.Pinger{"database": store}

	// Redis is optional: without it guards and revocations live in this process
	var guard inflight.Guard = inflight.NewMemory()
	var revoker session.Revoker = session.NewMemoryRevoker()
	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		client := goredis.NewClient(opts)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, using in-process guards", zap.Error(err))
		} else {
			guard = inflight.NewRedis(client, guardTTL, logger)
			revoker = session.NewRedisRevoker(client)
			checks["redis"] = redisPinger{client: client}
			logger.Info("redis connected")
		}
	}

	accessor := session.NewAccessor(store, session.Options{
		Secret:  cfg.JWTSecret,
		TTL:     cfg.JWTTTL,
		Revoker: revoker,
		Log:     logger,
	})

	chatClient := chat.NewClient(cfg.Chat, logger)
	if !chatClient.Configured() {
		logger.Warn("ANTHROPIC_API_KEY not set, /api/chat will answer 500")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "bakustack",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Chat.Timeout + 5*time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Dependencies{
		Store:     store,
		Session:   accessor,
		Guard:     guard,
		Assistant: chat.NewAssistant(chatClient, logger),
		Checks:    checks,
		Log:       logger,
	})

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.ServerPort), zap.String("env", cfg.AppEnv))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
