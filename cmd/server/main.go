package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"vitalsense/internal/config"
	"vitalsense/internal/database"
	"vitalsense/internal/datasets"
	"vitalsense/internal/handlers"
	"vitalsense/internal/jobs"
	"vitalsense/internal/logging"
	"vitalsense/internal/middleware"
	"vitalsense/internal/preflight"
	"vitalsense/internal/services"
	"vitalsense/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting VitalSense Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// MongoDB is the system of record; without it there is nothing to serve
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	if err := mongoDB.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}
	log.Println("✅ MongoDB connected successfully")

	// Reference datasets are required: the insight engine cannot ground its
	// prompts without them
	datasetStore, err := datasets.Load(cfg.DatasetDir)
	if err != nil {
		log.Fatalf("❌ Failed to load reference datasets from %s: %v", cfg.DatasetDir, err)
	}
	log.Printf("📦 Reference datasets loaded: %v", datasetStore.Keys())

	// Redis is optional; the insight cache degrades to in-process storage
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (using in-process cache only)", err)
			redisService = nil
		} else {
			defer redisService.Close()
			log.Println("✅ Redis connected successfully")
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - insight cache is in-process only")
	}

	// Prometheus metrics
	services.InitMetrics()

	// Run preflight checks
	checker := preflight.NewChecker(cfg, mongoDB, datasetStore)
	results := checker.RunAll(context.Background())
	if preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed, aborting startup")
	}

	// JWT auth (nil means dev-mode bypass, rejected in production by the
	// middleware)
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("🔐 Local JWT authentication enabled")
	}

	// Services
	userService := services.NewUserService(mongoDB)
	vitalsService := services.NewVitalsService(mongoDB)
	analyticsService := services.NewAnalyticsService(vitalsService)
	insightCache := services.NewInsightCache(redisService, cfg.InsightCacheTTL)

	modelClient := services.NewModelClient(services.ModelClientConfig{
		BaseURL: cfg.ModelBaseURL,
		APIKey:  cfg.ModelAPIKey,
		Model:   cfg.ModelName,
		Timeout: cfg.ModelTimeout,
		RateRPS: cfg.ModelRateRPS,
	})

	insightService, err := services.NewInsightService(datasetStore, modelClient, services.InsightPolicy{
		ColdStartScore: cfg.ColdStartScore,
		DegradedScore:  cfg.DegradedScore,
		ScoringRecords: cfg.ScoringRecords,
		NudgeRecords:   cfg.NudgeRecords,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize insight service: %v", err)
	}
	log.Println("✅ Services initialized")

	// Background jobs
	jobScheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	modelHealthChecker := jobs.NewModelHealthChecker(modelClient)
	if err := jobScheduler.Register("model_health_check", cfg.HealthCheckCron, modelHealthChecker); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := jobScheduler.Register("retention_cleanup", cfg.RetentionCron, jobs.NewRetentionCleanupJob(vitalsService, cfg.RetentionDays)); err != nil {
		log.Fatalf("❌ %v", err)
	}
	jobScheduler.Start()
	log.Printf("🕐 Background jobs: model health (%s), retention cleanup (%s, %d days)",
		cfg.HealthCheckCron, cfg.RetentionCron, cfg.RetentionDays)

	// Prime the provider status so /health reports it before the first tick
	go func() {
		if err := jobScheduler.RunNow("model_health_check"); err != nil {
			log.Printf("⚠️ Initial model health probe: %v", err)
		}
	}()

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "VitalSense v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second, // insight requests wait on the model provider
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // vitals payloads are small
	})

	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("vitalsense")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Rate limiting
	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Printf("🛡️  [RATE-LIMIT] Global=%d/min, Authenticated=%d/min, Insights=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.AuthenticatedMax, rateLimitConfig.InsightMax)

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService, modelClient, modelHealthChecker, datasetStore)
	authHandler := handlers.NewLocalAuthHandler(jwtAuth, userService)
	userHandler := handlers.NewUserHandler(userService, insightCache)
	vitalsHandler := handlers.NewVitalsHandler(vitalsService, insightCache, cfg.DefaultWindowDays)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, cfg.DefaultWindowDays)
	insightsHandler := handlers.NewInsightsHandler(handlers.InsightsHandlerConfig{
		UserService:    userService,
		VitalsService:  vitalsService,
		InsightService: insightService,
		InsightCache:   insightCache,
		WindowDays:     cfg.DefaultWindowDays,
		ScoringRecords: cfg.ScoringRecords,
		NudgeRecords:   cfg.NudgeRecords,
	})
	dashboardHandler := handlers.NewDashboardHandler(userService, vitalsService, analyticsService, insightsHandler, cfg.DefaultWindowDays)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/refresh", authHandler.Refresh)

	protected := api.Group("", middleware.LocalAuthMiddleware(jwtAuth), middleware.AuthenticatedRateLimiter(rateLimitConfig))
	protected.Get("/profile", userHandler.GetProfile)
	protected.Put("/profile", userHandler.UpdateProfile)

	protected.Post("/vitals", vitalsHandler.Create)
	protected.Get("/vitals", vitalsHandler.List)
	protected.Delete("/vitals/:id", vitalsHandler.Delete)

	protected.Get("/analytics/statistics", analyticsHandler.GetStatistics)
	protected.Get("/analytics/trends", analyticsHandler.GetTrends)
	protected.Get("/analytics/quality", analyticsHandler.GetDataQuality)

	insightLimiter := middleware.InsightRateLimiter(rateLimitConfig)
	protected.Get("/insights/stability", insightLimiter, insightsHandler.GetStability)
	protected.Get("/insights/nudges", insightLimiter, insightsHandler.GetNudges)
	protected.Post("/insights/refresh", insightLimiter, insightsHandler.Refresh)

	protected.Get("/dashboard", dashboardHandler.Get)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := jobScheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping job scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
