package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/agri-advisor/pkg/advisor"
	"github.com/tendant/agri-advisor/pkg/advisor/artifact/fs"
	artifactmemory "github.com/tendant/agri-advisor/pkg/advisor/artifact/memory"
	artifacts3 "github.com/tendant/agri-advisor/pkg/advisor/artifact/s3"
	"github.com/tendant/agri-advisor/pkg/advisor/model"
	"github.com/tendant/agri-advisor/pkg/advisor/repo/memory"
	repopg "github.com/tendant/agri-advisor/pkg/advisor/repo/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// ArtifactBackend is an artifact store that can also be published to.
type ArtifactBackend interface {
	advisor.ArtifactStore
	advisor.ArtifactWriter
}

// Load constructs a ServerConfig by applying the supplied options on top of defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "5000",
		Environment:  "development",
		DatabaseType: "memory",
		AutoMigrate:  true,
		Models: ModelSourceConfig{
			Type:    "fs",
			BaseDir: "models",
		},
		ModelKeys:       model.DefaultKeys(),
		RateLimit:       100,
		RateLimitBurst:  200,
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
	}
}

// ServerConfig represents server configuration for the advisor service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // optional Postgres search_path
	AutoMigrate  bool   // create the audit table at start-up

	// Model artifacts
	Models    ModelSourceConfig
	ModelKeys map[advisor.Domain]string

	// HTTP
	RateLimit      float64 // requests/second on /api, 0 disables
	RateLimitBurst int
	LogsJWTSecret  string

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json

	ShutdownTimeout time.Duration

	// artifacts overrides the configured model source, e.g. in tests
	artifacts ArtifactBackend
}

// ModelSourceConfig says where model artifacts are read from
type ModelSourceConfig struct {
	Type    string // "fs", "s3", "memory"
	BaseDir string // fs

	// s3
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Models.Type {
	case "memory":
	case "fs":
		if c.Models.BaseDir == "" {
			return errors.New("model directory is required for the fs model source")
		}
	case "s3":
		if c.Models.Bucket == "" {
			return errors.New("bucket is required for the s3 model source")
		}
	default:
		return fmt.Errorf("unsupported model source type: %s", c.Models.Type)
	}

	for _, d := range advisor.Domains {
		if c.ModelKeys[d] == "" {
			return fmt.Errorf("model key for %s is required", d)
		}
	}

	if c.RateLimit < 0 || c.RateLimitBurst < 0 {
		return errors.New("rate limit must not be negative")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.LogFormat)
	}

	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *ServerConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// BuildArtifactStore creates the store model artifacts are loaded from
func (c *ServerConfig) BuildArtifactStore() (ArtifactBackend, error) {
	if c.artifacts != nil {
		return c.artifacts, nil
	}

	switch c.Models.Type {
	case "memory":
		return artifactmemory.New(), nil
	case "fs":
		return fs.New(fs.Config{BaseDir: c.Models.BaseDir})
	case "s3":
		return artifacts3.New(artifacts3.Config{
			Region:          c.Models.Region,
			Bucket:          c.Models.Bucket,
			Prefix:          c.Models.Prefix,
			AccessKeyID:     c.Models.AccessKeyID,
			SecretAccessKey: c.Models.SecretAccessKey,
			Endpoint:        c.Models.Endpoint,
			UsePathStyle:    c.Models.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported model source type: %s", c.Models.Type)
	}
}

// BuildRegistry loads every domain's model. Individual domains may end up
// unavailable; only a store that cannot be built is an error.
func (c *ServerConfig) BuildRegistry(ctx context.Context, logger *slog.Logger) (*model.Registry, error) {
	store, err := c.BuildArtifactStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact store: %w", err)
	}
	return model.Load(ctx, store, c.ModelKeys, logger), nil
}

// BuildAuditLog creates the audit log store. The returned func releases its
// resources.
func (c *ServerConfig) BuildAuditLog(ctx context.Context) (advisor.AuditLog, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		pool, err := c.OpenPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		repo := repopg.NewWithPool(pool)
		if c.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to migrate audit log: %w", err)
			}
		}
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// OpenPool connects to Postgres, setting search_path when DBSchema is set.
func (c *ServerConfig) OpenPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// BuildService wires the registry and audit log into an advisor.Service.
// Extra options (observer, logger) are applied last.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger, extra ...advisor.Option) (advisor.Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := c.BuildRegistry(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	auditLog, closeFn, err := c.BuildAuditLog(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build audit log: %w", err)
	}

	options := []advisor.Option{
		advisor.WithRegistry(registry),
		advisor.WithAuditLog(auditLog),
		advisor.WithLogger(logger),
	}
	options = append(options, extra...)

	svc, err := advisor.New(options...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
