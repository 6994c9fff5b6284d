package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yashrajoria/catalog-import/database"
	aws_pkg "github.com/yashrajoria/catalog-import/pkg/aws"
)

// Config holds all environment variables for the catalog-import service.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	Postgres    database.PostgresConfig
	AutoMigrate bool

	RedisURL    string
	SQSQueueURL string
	Workers     int

	EventBus     string // "sns", "kafka" or "" for none
	SNSTopicARN  string
	KafkaBrokers []string
	EventTopic   string

	TokenStore     string // "postgres" or "dynamodb"
	DDBTokensTable string

	StorageProvider  string // "s3" or "cloudinary"
	S3Bucket         string
	S3Prefix         string
	S3Endpoint       string
	CloudFrontDomain string
	CloudinaryURL    string
	CloudinaryFolder string

	CloudWatchLogGroup string
	MetricsEnabled     bool
	MetricsNamespace   string

	RateLimitPerMinute int
	RateLimitBurst     int
	RequestTimeout     time.Duration
	CORSOrigins        []string

	UseSecrets bool
	SecretName string
}

// LoadConfig loads environment variables into Config and validates them.
// With AWS_USE_SECRETS=true the JSON secret named by AWS_SECRET_NAME overrides
// matching keys; a failed lookup keeps the env values.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8090"),
		Env:       getEnv("ENV", "development"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		Postgres: database.PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        os.Getenv("POSTGRES_PASSWORD"),
			DBName:          getEnv("POSTGRES_DB", "catalog"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone:        getEnv("POSTGRES_TIMEZONE", "UTC"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
			Attempts:        getEnvInt("POSTGRES_CONNECT_ATTEMPTS", 10),
		},
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		RedisURL:    os.Getenv("REDIS_URL"),
		SQSQueueURL: os.Getenv("SQS_QUEUE_URL"),
		Workers:     getEnvInt("IMPORT_WORKERS", 2),

		EventBus:     strings.ToLower(os.Getenv("EVENT_BUS")),
		SNSTopicARN:  os.Getenv("SNS_TOPIC_ARN"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		EventTopic:   getEnv("EVENT_TOPIC", "catalog.shopify.import"),

		TokenStore:     strings.ToLower(getEnv("TOKEN_STORE", "postgres")),
		DDBTokensTable: getEnv("DDB_TABLE_SHOPIFY_TOKENS", "ShopifyTokens"),

		StorageProvider:  strings.ToLower(getEnv("STORAGE_PROVIDER", "s3")),
		S3Bucket:         getEnv("AWS_S3_BUCKET", "catalog-media"),
		S3Prefix:         getEnv("AWS_S3_PREFIX", "stores/"),
		S3Endpoint:       aws_pkg.Endpoint(),
		CloudFrontDomain: os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		CloudinaryURL:    os.Getenv("CLOUDINARY_URL"),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "catalog"),

		CloudWatchLogGroup: os.Getenv("CLOUDWATCH_LOG_GROUP"),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", false),
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "CatalogImport"),

		RateLimitPerMinute: getEnvInt("IMPORT_RATE_LIMIT_PER_MINUTE", 6),
		RateLimitBurst:     getEnvInt("IMPORT_RATE_LIMIT_BURST", 2),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Minute),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		UseSecrets: os.Getenv("AWS_USE_SECRETS") == "true",
		SecretName: getEnv("AWS_SECRET_NAME", "catalog-import/config"),
	}

	if cfg.UseSecrets {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)
			if values, err := sm.GetSecretMap(context.Background(), cfg.SecretName); err == nil {
				cfg.applySecrets(values)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides credentials with non-empty values from a secret.
func (c *Config) applySecrets(values map[string]string) {
	set := func(dst *string, key string) {
		if v := values[key]; v != "" {
			*dst = v
		}
	}
	set(&c.JWTSecret, "JWT_SECRET")
	set(&c.Postgres.Password, "POSTGRES_PASSWORD")
	set(&c.RedisURL, "REDIS_URL")
	set(&c.CloudinaryURL, "CLOUDINARY_URL")
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.EventBus {
	case "":
	case "sns":
		if c.SNSTopicARN == "" {
			return fmt.Errorf("SNS_TOPIC_ARN is required when EVENT_BUS=sns")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("unsupported EVENT_BUS %q", c.EventBus)
	}
	switch c.TokenStore {
	case "postgres", "dynamodb":
	default:
		return fmt.Errorf("unsupported TOKEN_STORE %q", c.TokenStore)
	}
	switch c.StorageProvider {
	case "s3":
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required when STORAGE_PROVIDER=cloudinary")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.StorageProvider)
	}
	return nil
}

// usesAWS reports whether any component needs an AWS SDK config.
func (c *Config) usesAWS() bool {
	return c.EventBus == "sns" || c.TokenStore == "dynamodb" || c.StorageProvider == "s3" ||
		c.SQSQueueURL != "" || c.CloudWatchLogGroup != "" || c.MetricsEnabled
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
