package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

// envConfig mirrors the supported environment variables.
type envConfig struct {
	Port        string `env:"PORT" env-default:"5000"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`

	ModelSource       string `env:"MODEL_SOURCE" env-default:"file://models"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`

	CropModelKey       string `env:"MODEL_CROP_KEY" env-default:"crop.yaml"`
	FertilizerModelKey string `env:"MODEL_FERTILIZER_KEY" env-default:"fertilizer.yaml"`
	DosageModelKey     string `env:"MODEL_DOSAGE_KEY" env-default:"dosage.yaml"`
	YieldModelKey      string `env:"MODEL_YIELD_KEY" env-default:"yield.yaml"`

	RateLimit      float64 `env:"RATE_LIMIT" env-default:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" env-default:"200"`
	LogsJWTSecret  string  `env:"LOGS_JWT_SECRET"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	ShutdownTimeoutSeconds int `env:"SHUTDOWN_TIMEOUT_SECONDS" env-default:"10"`
}

// WithEnv applies the process environment.
//
//	PORT, ENVIRONMENT                      - HTTP port and runtime environment
//	DATABASE_URL                           - "memory" or "postgres(ql)://..."
//	DB_SCHEMA, DB_AUTO_MIGRATE             - Postgres search_path and start-up migration
//	MODEL_SOURCE                           - "file://<dir>", "s3://<bucket>/<prefix>" or "memory://"
//	S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, S3_USE_PATH_STYLE
//	MODEL_{CROP,FERTILIZER,DOSAGE,YIELD}_KEY - artifact key per domain
//	RATE_LIMIT, RATE_LIMIT_BURST           - /api budget, 0 disables
//	LOGS_JWT_SECRET                        - guard log listings with HS256 tokens
//	LOG_LEVEL, LOG_FORMAT                  - slog level and text/json output
//	SHUTDOWN_TIMEOUT_SECONDS               - graceful shutdown deadline
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func (e *envConfig) apply(c *ServerConfig) error {
	c.Port = e.Port
	c.Environment = e.Environment

	if err := applyDatabaseURL(e.DatabaseURL, c); err != nil {
		return err
	}
	c.DBSchema = e.DBSchema
	c.AutoMigrate = e.AutoMigrate

	if err := applyModelSource(e.ModelSource, c); err != nil {
		return err
	}
	c.Models.Region = e.S3Region
	c.Models.Endpoint = e.S3Endpoint
	c.Models.AccessKeyID = e.S3AccessKeyID
	c.Models.SecretAccessKey = e.S3SecretAccessKey
	c.Models.UsePathStyle = e.S3UsePathStyle

	c.ModelKeys = map[advisor.Domain]string{
		advisor.DomainCrop:       e.CropModelKey,
		advisor.DomainFertilizer: e.FertilizerModelKey,
		advisor.DomainDosage:     e.DosageModelKey,
		advisor.DomainYield:      e.YieldModelKey,
	}

	c.RateLimit = e.RateLimit
	c.RateLimitBurst = e.RateLimitBurst
	c.LogsJWTSecret = e.LogsJWTSecret

	c.LogLevel = e.LogLevel
	c.LogFormat = e.LogFormat
	c.ShutdownTimeout = time.Duration(e.ShutdownTimeoutSeconds) * time.Second
	return nil
}

// applyDatabaseURL auto-detects the audit log backend from the URL
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	if dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

// applyModelSource parses MODEL_SOURCE
func applyModelSource(url string, c *ServerConfig) error {
	switch {
	case url == "memory" || url == "memory://":
		c.Models.Type = "memory"
		return nil

	case strings.HasPrefix(url, "file://"):
		dir := strings.TrimPrefix(url, "file://")
		if dir == "" {
			return fmt.Errorf("model directory cannot be empty in MODEL_SOURCE")
		}
		c.Models.Type = "fs"
		c.Models.BaseDir = dir
		return nil

	case strings.HasPrefix(url, "s3://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(url, "s3://"), "/")
		if bucket == "" {
			return fmt.Errorf("bucket cannot be empty in MODEL_SOURCE")
		}
		c.Models.Type = "s3"
		c.Models.Bucket = bucket
		c.Models.Prefix = strings.Trim(prefix, "/")
		return nil
	}

	return fmt.Errorf("unsupported MODEL_SOURCE format: %s (use 'file://...', 's3://...' or 'memory://')", url)
}
