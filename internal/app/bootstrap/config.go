// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/features/files"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATADRIVE"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: STRATADRIVE_MONGO_URI, STRATADRIVE_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratadrive", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Credential configuration
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Credential signing key (must be strong in production)"},
	{Name: "jwt_ttl", Default: "168h", Desc: "Credential lifetime (e.g., 24h, 168h)"},
	{Name: "cookie_name", Default: auth.DefaultCookieName, Desc: "Credential cookie name"},
	{Name: "cookie_domain", Default: "", Desc: "Credential cookie domain (blank means current host)"},

	// Rate limiting configuration
	{Name: "rate_limit_enabled", Default: true, Desc: "Enable rate limiting for login attempts"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed login attempts before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed attempts"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Blob storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'r2', 'local', 's3' or 'memory'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix reported for local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// R2 configuration
	{Name: "r2_endpoint", Default: "", Desc: "R2 (S3-compatible) endpoint URL"},
	{Name: "r2_bucket", Default: "", Desc: "R2 bucket name"},
	{Name: "r2_access_key_id", Default: "", Desc: "R2 access key ID"},
	{Name: "r2_secret_access_key", Default: "", Desc: "R2 secret access key"},
	{Name: "r2_public_url", Default: "", Desc: "Public bucket URL reported as fileUrl (optional)"},

	{Name: "blob_sign_key", Default: "dev-only-blob-sign-key-change-0123456789", Desc: "Signing key for app-served blob URLs (32+ chars in production)"},

	// Limits and timeouts
	{Name: "upload_max_bytes", Default: int(files.DefaultMaxUploadBytes), Desc: "Largest accepted upload in bytes"},
	{Name: "ping_timeout", Default: "2s", Desc: "Health check timeout"},
	{Name: "query_timeout", Default: "5s", Desc: "Metadata lookup timeout"},
	{Name: "blob_timeout", Default: "30s", Desc: "Blob store call timeout"},

	{Name: "base_url", Default: "", Desc: "Externally visible origin for share links (blank derives it from the request)"},
	{Name: "trust_proxy_headers", Default: false, Desc: "Read client IPs from X-Forwarded-For / X-Real-IP"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATADRIVE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Credential
		JWTSecret:    appValues.String("jwt_secret"),
		JWTTTL:       appValues.Duration("jwt_ttl", auth.DefaultTTL),
		CookieName:   appValues.String("cookie_name"),
		CookieDomain: appValues.String("cookie_domain"),

		// Rate limiting
		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),

		CSRFKey: appValues.String("csrf_key"),

		// Blob storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		// R2
		R2Endpoint:        appValues.String("r2_endpoint"),
		R2Bucket:          appValues.String("r2_bucket"),
		R2AccessKeyID:     appValues.String("r2_access_key_id"),
		R2SecretAccessKey: appValues.String("r2_secret_access_key"),
		R2PublicURL:       appValues.String("r2_public_url"),

		BlobSignKey: appValues.String("blob_sign_key"),

		// Limits and timeouts
		UploadMaxBytes: int64(appValues.Int("upload_max_bytes")),
		PingTimeout:    appValues.Duration("ping_timeout", timeouts.DefaultPing),
		QueryTimeout:   appValues.Duration("query_timeout", timeouts.DefaultQuery),
		BlobTimeout:    appValues.Duration("blob_timeout", timeouts.DefaultBlob),

		BaseURL:           appValues.String("base_url"),
		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	prod := coreCfg.Env == "prod"

	// NewIssuer applies the same strength rules BuildHandler will.
	if _, err := auth.NewIssuer(appCfg.JWTSecret, appCfg.JWTTTL, prod, logger); err != nil {
		logger.Error("invalid credential configuration", zap.Error(err))
		return err
	}

	if prod && len(appCfg.CSRFKey) < 32 {
		return errors.New("csrf_key must be at least 32 characters in production")
	}

	if err := validateStorage(appCfg, prod); err != nil {
		logger.Error("invalid storage configuration", zap.Error(err))
		return err
	}
	return nil
}

func validateStorage(appCfg AppConfig, prod bool) error {
	switch appCfg.StorageType {
	case "r2":
		if appCfg.R2Endpoint == "" || appCfg.R2Bucket == "" {
			return errors.New("r2 storage requires r2_endpoint and r2_bucket")
		}
		if appCfg.R2AccessKeyID == "" || appCfg.R2SecretAccessKey == "" {
			return errors.New("r2 storage requires r2_access_key_id and r2_secret_access_key")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return errors.New("s3 storage requires storage_s3_bucket")
		}
		fallthrough
	case "local", "":
		if len(appCfg.BlobSignKey) < 32 {
			if prod {
				return errors.New("blob_sign_key must be at least 32 characters in production")
			}
			if appCfg.BlobSignKey == "" {
				return errors.New("blob_sign_key is required for local and s3 storage")
			}
		}
	case "memory":
		if prod {
			return errors.New("memory storage is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
	return nil
}
