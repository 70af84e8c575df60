package config

import (
	"fmt"
	"time"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the audit log backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate controls whether the audit table is created at start-up
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithModelSource parses a model source URL: file://<dir>,
// s3://<bucket>/<prefix> or memory://
func WithModelSource(url string) Option {
	return func(c *ServerConfig) error {
		return applyModelSource(url, c)
	}
}

// WithFilesystemModels reads model artifacts from dir
func WithFilesystemModels(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("model directory cannot be empty")
		}
		c.Models.Type = "fs"
		c.Models.BaseDir = dir
		return nil
	}
}

// WithS3Models reads model artifacts from an S3 bucket
func WithS3Models(bucket, prefix string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("bucket cannot be empty")
		}
		c.Models.Type = "s3"
		c.Models.Bucket = bucket
		c.Models.Prefix = prefix
		return nil
	}
}

// WithS3Connection sets region, endpoint and static credentials for the S3
// model source
func WithS3Connection(region, endpoint, accessKeyID, secretAccessKey string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.Models.Region = region
		c.Models.Endpoint = endpoint
		c.Models.AccessKeyID = accessKeyID
		c.Models.SecretAccessKey = secretAccessKey
		c.Models.UsePathStyle = usePathStyle
		return nil
	}
}

// WithArtifactStore uses store instead of the configured model source
func WithArtifactStore(store ArtifactBackend) Option {
	return func(c *ServerConfig) error {
		if store == nil {
			return fmt.Errorf("artifact store cannot be nil")
		}
		c.artifacts = store
		return nil
	}
}

// WithModelKey sets the artifact key for one domain
func WithModelKey(domain advisor.Domain, key string) Option {
	return func(c *ServerConfig) error {
		if !domain.IsValid() {
			return fmt.Errorf("%w: %s", advisor.ErrUnknownDomain, domain)
		}
		if key == "" {
			return fmt.Errorf("model key for %s cannot be empty", domain)
		}
		keys := make(map[advisor.Domain]string, len(c.ModelKeys)+1)
		for d, k := range c.ModelKeys {
			keys[d] = k
		}
		keys[domain] = key
		c.ModelKeys = keys
		return nil
	}
}

// WithRateLimit sets the /api request budget. A zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *ServerConfig) error {
		if rps < 0 || burst < 0 {
			return fmt.Errorf("rate limit must not be negative")
		}
		c.RateLimit = rps
		c.RateLimitBurst = burst
		return nil
	}
}

// WithLogsJWTSecret guards the log listings with HS256 bearer tokens
func WithLogsJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.LogsJWTSecret = secret
		return nil
	}
}

// WithLogging sets the log level and format
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		if level != "" {
			c.LogLevel = level
		}
		if format != "" {
			c.LogFormat = format
		}
		return nil
	}
}

// WithShutdownTimeout sets the graceful shutdown deadline
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d <= 0 {
			return fmt.Errorf("shutdown timeout must be positive")
		}
		c.ShutdownTimeout = d
		return nil
	}
}
