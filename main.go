package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"recruitreach/config"
	controller "recruitreach/controllers"
	"recruitreach/llm"
	"recruitreach/middleware"
	"recruitreach/models"
	"recruitreach/repository"
	"recruitreach/routes"
	"recruitreach/services"
	"recruitreach/utils"
	"recruitreach/worker"
)

const fileWorkerConcurrency = 2

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	log := logger.WithField("service", "recruitreach")
	cfg.LogConfig(log)

	if err := utils.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		log.WithError(err).Warn("Sentry disabled")
	}
	defer sentry.Flush(2 * time.Second)

	// Initialize database connection
	db, err := config.ConnectDB(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sequenceRepo := repository.NewSequenceRepository(db)
	emailRepo := repository.NewEmailQueueRepository(db)
	chatRepo := repository.NewChatRepository(db)
	fileRepo := repository.NewFileRepository(db)

	mailer := utils.NewSMTPMailer(utils.SMTPSettings{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		FromName: cfg.SMTP.FromName,
	}, log)

	roster, err := services.LoadRoster(cfg.RosterPath, log)
	if err != nil {
		log.WithError(err).Warn("Recipient roster unavailable, activations will queue nothing")
		roster = services.NewStaticRoster([]models.Recipient{})
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}, log)

	storage, err := utils.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	// Redis backs the ingestion queue and the rate limiter when enabled
	var (
		tasks        services.TaskQueue
		taskSource   worker.TaskSource
		limitStorage fiber.Storage
		redisClient  *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		queue := worker.NewRedisTaskQueue(redisClient, worker.DefaultIngestQueueKey)
		tasks, taskSource = queue, queue
		limitStorage = middleware.NewRedisStorage(redisClient)
	} else {
		log.Warn("Redis disabled, using in-process ingestion queue")
		queue := worker.NewMemoryTaskQueue(0)
		tasks, taskSource = queue, queue
	}

	queueService := services.NewQueueService(emailRepo, mailer, log)
	sequenceManager := services.NewSequenceManager(sequenceRepo, emailRepo, queueService, mailer, roster, log)
	orchestrator := services.NewOrchestrator(chatRepo, sequenceManager, llmClient, log)
	ingestService := services.NewIngestService(fileRepo, storage, tasks, llmClient, log)

	processor := worker.NewQueueProcessor(emailRepo, mailer, cfg.QueueInterval, log)
	processor.Start()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	fileWorker := worker.NewFileWorker(taskSource, ingestService, fileWorkerConcurrency, log)
	fileWorker.Start(workerCtx)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "recruitreach",
		BodyLimit:             12 * 1024 * 1024,
		DisableStartupMessage: cfg.Environment == "production",
	})
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   middleware.DefaultCORSConfig().AllowedMethods,
		AllowedHeaders:   middleware.DefaultCORSConfig().AllowedHeaders,
		ExposedHeaders:   middleware.DefaultCORSConfig().ExposedHeaders,
		MaxAge:           3600,
	}))

	routes.SetupRoutes(app, routes.Controllers{
		Sequences:        controller.NewSequenceController(sequenceManager, queueService, orchestrator, log),
		Chat:             controller.NewChatController(orchestrator, log),
		Files:            controller.NewFileController(ingestService, log),
		Queue:            controller.NewQueueController(processor, log),
		Health:           controller.NewHealthController(db),
		AssistantLimiter: middleware.AssistantRateLimiter(cfg.RateLimitChat, limitStorage),
	}, log)

	go func() {
		log.Infof("🚀 Server starting on port %s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	processor.Stop()
	sequenceManager.Wait()
	cancelWorkers()
	fileWorker.Wait()

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Shutdown complete")
}
