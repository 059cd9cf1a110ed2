package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codegrade/codegrade-api/internal/config"
	"github.com/codegrade/codegrade-api/internal/database"
	"github.com/codegrade/codegrade-api/internal/handler"
	"github.com/codegrade/codegrade-api/internal/middleware"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/queue"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/internal/router"
	"github.com/codegrade/codegrade-api/internal/service"
	"github.com/codegrade/codegrade-api/pkg/ai"
	cloud "github.com/codegrade/codegrade-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Institution{},
		&models.Teacher{},
		&models.Student{},
		&models.Course{},
		&models.CourseEnrollment{},
		&models.Assessment{},
		&models.Quiz{},
		&models.Submission{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, score caching and dispatch dedupe disabled")
	}

	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NatsURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats not configured, grading jobs run in process")
	}

	grader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.GradingMaxTokens,
		Timeout:   cfg.GradingTimeout,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create grading client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService := service.NewNotificationService(notificationRepo, redisClient, natsConn, validate, logger)
	notificationService.Start(rootCtx)

	dispatcher := service.NewGradingDispatcher(submissionRepo, grader, redisClient, notificationService, logger)
	dispatch := func(ctx context.Context, submissionID uint) {
		dispatcher.Dispatch(ctx, submissionID)
	}

	var gradeQueue queue.Enqueuer
	if natsConn != nil {
		natsQueue := queue.NewNATSQueue(natsConn, "codegrade.grading.jobs", logger)
		if err := natsQueue.StartWorker(rootCtx, dispatch); err != nil {
			log.Fatalf("failed to start grading worker: %v", err)
		}
		gradeQueue = natsQueue
	} else {
		gradeQueue = queue.NewInProcessQueue(dispatch, logger)
	}

	var uploader service.Uploader
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	} else {
		logger.Warn().Msg("cloudinary not configured, course image uploads disabled")
	}

	submissionService := service.NewSubmissionService(submissionRepo, assessmentRepo, gradeQueue, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, grader, validate, notificationService, logger)
	scoreService := service.NewScoreService(submissionRepo, courseRepo, redisClient, cfg.ScoreCacheTTL, logger)
	courseService := service.NewCourseService(courseRepo, uploader, validate, logger)
	assessmentService := service.NewAssessmentService(assessmentRepo, courseRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		GradingHandler:      handler.NewGradingHandler(gradingService, logger),
		ScoreHandler:        handler.NewScoreHandler(scoreService, logger),
		CourseHandler:       handler.NewCourseHandler(courseService, logger),
		AssessmentHandler:   handler.NewAssessmentHandler(assessmentService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		SubmissionLimiter:   middleware.RateLimit("submissions", cfg.SubmissionRateLimit, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-rootCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
