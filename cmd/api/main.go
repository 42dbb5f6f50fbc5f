package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"verifymc/internal/adapter"
	"verifymc/internal/adapter/scoring"
	"verifymc/internal/cache"
	"verifymc/internal/config"
	"verifymc/internal/database"
	"verifymc/internal/handler"
	"verifymc/internal/logger"
	"verifymc/internal/middleware"
	"verifymc/internal/repository"
	"verifymc/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)

		return err
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Database
	db, err := database.NewDB(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)

	// Questionnaire definition
	def, err := service.LoadDefinition(cfg.Questionnaire.QuestionsFile)
	if err != nil {
		appLogger.Warn("Failed to load questionnaire definition, continuing with empty questionnaire",
			zap.String("file", cfg.Questionnaire.QuestionsFile),
			zap.Error(err))
		def = nil
	}

	// Remote scoring gateway: one instance per provider configuration, so the
	// concurrency slots and breaker state are shared process-wide.
	provider := scoring.SelectProvider(cfg.Scoring.Provider)
	gateway := scoring.NewGateway(cfg.Scoring, provider)
	appLogger.Info("Scoring gateway initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Scoring.Model),
		zap.Bool("ready", cfg.Scoring.IsReady()),
		zap.Int("max_concurrency", cfg.Scoring.MaxConcurrency))

	// Services
	questionnaireService := service.NewQuestionnaireService(cfg.Questionnaire, def, gateway, cfg.Scoring.InputMaxLength)
	verificationService := service.NewVerificationService(cacheAdapter, adapter.NewLogCodeSender(), cfg.Verification)
	userRepo := repository.NewUserDatabaseAdapter(db)
	auditRepo := repository.NewAuditDatabaseAdapter(db)
	registrationService := service.NewRegistrationService(userRepo, auditRepo, verificationService, questionnaireService)

	// Handlers
	systemHandler := handler.NewSystemHandler(questionnaireService)
	questionnaireHandler := handler.NewQuestionnaireHandler(questionnaireService)
	registerHandler := handler.NewRegisterHandler(registrationService, verificationService)
	adminHandler := handler.NewAdminHandler(registrationService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger())

	submitLimit := middleware.RateLimit(cacheAdapter, "submit", cfg.Questionnaire.RateLimitMax, cfg.Questionnaire.RateLimitWindow)

	api := app.Group("/api")
	api.Get("/ping", systemHandler.Ping)
	api.Get("/config", systemHandler.PublicConfig)
	api.Get("/questionnaire", questionnaireHandler.GetQuestionnaire)
	api.Post("/questionnaire/submit", submitLimit, questionnaireHandler.SubmitQuestionnaire)
	api.Post("/send-code", submitLimit, registerHandler.SendCode)
	api.Post("/register", submitLimit, registerHandler.Register)
	api.Get("/check-whitelist", registerHandler.CheckWhitelist)

	admin := api.Group("/admin", middleware.AdminAuth(cfg.AdminToken))
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/review", adminHandler.Review)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("Server forced to shutdown", zap.Error(err))
		}
	}()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	appLogger.Info("Starting server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		appLogger.Fatal("Server stopped unexpectedly", zap.Error(err))
	}
}
