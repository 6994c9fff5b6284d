package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/yashrajoria/catalog-import/common/auth"
	apperrors "github.com/yashrajoria/catalog-import/common/errors"
	"github.com/yashrajoria/catalog-import/common/logger"
	"github.com/yashrajoria/catalog-import/common/middleware"
	"github.com/yashrajoria/catalog-import/controllers"
	"github.com/yashrajoria/catalog-import/database"
	"github.com/yashrajoria/catalog-import/events"
	aws_pkg "github.com/yashrajoria/catalog-import/pkg/aws"
	ddb "github.com/yashrajoria/catalog-import/pkg/dynamodb"
	"github.com/yashrajoria/catalog-import/repository"
	"github.com/yashrajoria/catalog-import/routes"
	"github.com/yashrajoria/catalog-import/services"
	"github.com/yashrajoria/catalog-import/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const serviceName = "catalog-import"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize(os.Getenv("ENV"), serviceName).Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var awsCfg sdkaws.Config
	if cfg.usesAWS() {
		awsCfg, err = aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			logger.Initialize(cfg.Env, serviceName).Fatal("Failed to load AWS config", zap.Error(err))
		}
	}

	log := initLogger(ctx, cfg, awsCfg)
	defer log.Sync()

	// --- 1. Infrastructure ---

	var migrate []interface{}
	if cfg.AutoMigrate {
		migrate = database.ImportModels()
	}
	db, err := database.ConnectPostgres(cfg.Postgres, log, migrate...)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Close(db)

	metrics := aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)

	tokens, err := buildTokenStore(ctx, cfg, awsCfg, db)
	if err != nil {
		log.Fatal("Failed to initialize token store", zap.Error(err))
	}

	storageManager, err := buildStorage(cfg, awsCfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	publisher, closePublisher := buildPublisher(cfg, awsCfg)
	defer closePublisher()

	var rdb *redis.Client
	var jobQueue services.JobQueue
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
			redisOpts = &redis.Options{Addr: "redis:6379", DB: 0}
		}
		rdb = redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis is not reachable yet", zap.Error(err))
		}
		jobQueue = services.NewRedisJobQueue(rdb)
	} else {
		log.Warn("REDIS_URL not set; background import jobs are disabled")
	}

	// --- 2. Services ---

	statsRepo := repository.NewGormImportStatisticRepository(db)
	factory := services.NewServiceFactory(services.Dependencies{
		Tokens:     tokens,
		UnitOfWork: repository.NewGormUnitOfWork(db),
		Stats:      statsRepo,
		Images:     services.NewImageRehoster(storageManager, nil, log),
		Publisher:  publisher,
		EventTopic: eventTopic(cfg),
		Metrics:    metrics,
		Logger:     log,
	})
	reports := services.NewReportService(statsRepo)

	var wg sync.WaitGroup
	if jobQueue != nil {
		for i := 0; i < cfg.Workers; i++ {
			worker := services.NewImportWorker(jobQueue, factory, metrics, log.With(zap.Int("worker", i)))
			wg.Add(1)
			go func() {
				defer wg.Done()
				worker.Run(ctx)
			}()
		}
	}

	if cfg.SQSQueueURL != "" {
		handler := services.NewImportRequestHandler(jobQueue, factory, log)
		consumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.SQSQueueURL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.StartPolling(ctx, handler.Handle); err != nil && ctx.Err() == nil {
				log.Error("SQS consumer stopped", zap.Error(err))
			}
		}()
	}

	// --- 3. HTTP Server & Middleware ---

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	limiter := middleware.NewRateLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx)

	validator := controllers.NewRequestValidator()
	routes.RegisterRoutes(r, routes.Controllers{
		Import: controllers.NewImportController(factory, validator),
		Jobs:   controllers.NewJobController(jobQueue, validator),
		Stats:  controllers.NewStatsController(statsRepo, reports, validator),
	}, auth.NewTokenValidator(cfg.JWTSecret), limiter)

	// --- 4. Graceful Shutdown ---

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Catalog import service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down catalog import service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	wg.Wait()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}

	log.Info("Catalog import service stopped gracefully")
}

// initLogger tees logs into CloudWatch when a log group is configured.
func initLogger(ctx context.Context, cfg *Config, awsCfg sdkaws.Config) *zap.Logger {
	if cfg.CloudWatchLogGroup == "" {
		return logger.Initialize(cfg.Env, serviceName)
	}
	cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
	if err != nil {
		log := logger.Initialize(cfg.Env, serviceName)
		log.Warn("CloudWatch logging disabled", zap.Error(err))
		return log
	}
	return logger.InitializeWithWriter(cfg.Env, serviceName, cw)
}

func buildTokenStore(ctx context.Context, cfg *Config, awsCfg sdkaws.Config, db *gorm.DB) (repository.TokenStore, error) {
	if cfg.TokenStore != "dynamodb" {
		return repository.NewGormTokenStore(db), nil
	}
	client := ddb.NewClientFromConfig(awsCfg)
	if err := ddb.EnsureTable(ctx, client, cfg.DDBTokensTable, "store_id"); err != nil {
		return nil, err
	}
	return repository.NewDynamoTokenStore(client, cfg.DDBTokensTable), nil
}

// buildStorage registers every configured backend; STORAGE_PROVIDER picks the default.
func buildStorage(cfg *Config, awsCfg sdkaws.Config) (*storage.Manager, error) {
	var providers []storage.Provider
	if cfg.StorageProvider == "s3" || (cfg.S3Bucket != "" && cfg.usesAWS()) {
		s3Client := aws_pkg.NewS3Client(awsCfg, aws_pkg.S3Options{
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			CDNDomain: cfg.CloudFrontDomain,
		})
		providers = append(providers, storage.NewS3Provider(s3Client, cfg.S3Prefix))
	}
	if cfg.CloudinaryURL != "" {
		cld, err := storage.NewCloudinaryFromURL(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, err
		}
		providers = append(providers, cld)
	}

	m := storage.NewManager(providers...)
	if err := m.SetDefault(cfg.StorageProvider); err != nil {
		return nil, err
	}
	return m, nil
}

// buildPublisher returns nil when no event bus is configured.
func buildPublisher(cfg *Config, awsCfg sdkaws.Config) (events.Publisher, func()) {
	switch cfg.EventBus {
	case "sns":
		return aws_pkg.NewSNSClient(awsCfg, events.ImportCompletedType), func() {}
	case "kafka":
		p := events.NewKafkaPublisher(cfg.KafkaBrokers)
		return p, func() {
			if err := p.Close(); err != nil {
				zap.L().Error("Failed to close Kafka publisher", zap.Error(err))
			}
		}
	default:
		return nil, func() {}
	}
}

// eventTopic is the SNS topic ARN or the Kafka topic name.
func eventTopic(cfg *Config) string {
	if cfg.EventBus == "sns" {
		return cfg.SNSTopicARN
	}
	return cfg.EventTopic
}
