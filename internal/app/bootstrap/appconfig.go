// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits); AppConfig
// carries everything specific to the file catalog.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Credential configuration
	JWTSecret    string        // HMAC key for signing credentials (must be strong in production)
	JWTTTL       time.Duration // Credential lifetime (default: 24h)
	CookieName   string        // Credential cookie name (default: uid)
	CookieDomain string        // Cookie domain (blank means current host)

	// Rate limiting configuration
	RateLimitEnabled       bool          // Enable rate limiting for login attempts (default: true)
	RateLimitLoginAttempts int           // Max failed login attempts before lockout (default: 5)
	RateLimitLoginWindow   time.Duration // Time window for counting failed attempts (default: 15m)
	RateLimitLoginLockout  time.Duration // Lockout duration after exceeding limit (default: 15m)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Blob storage configuration
	StorageType      string // Storage backend: "r2", "local", "s3" or "memory"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix the local backend reports for stored files

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string // AWS region
	StorageS3Bucket    string // S3 bucket name
	StorageS3Prefix    string // Key prefix (e.g., "uploads/")
	StorageCFURL       string // CloudFront distribution URL
	StorageCFKeyPairID string // CloudFront key pair ID
	StorageCFKeyPath   string // Path to CloudFront private key file

	// R2 configuration (only used if StorageType is "r2")
	R2Endpoint        string // e.g. https://<account>.r2.cloudflarestorage.com
	R2Bucket          string // Bucket name
	R2AccessKeyID     string // Access key ID
	R2SecretAccessKey string // Secret access key
	R2PublicURL       string // Optional public bucket URL reported as fileUrl

	// BlobSignKey authenticates app-signed blob URLs for the local and s3 backends.
	BlobSignKey string

	// Request limits and timeouts
	UploadMaxBytes int64         // Largest accepted upload body (default: 100 MiB)
	PingTimeout    time.Duration // Health check timeout
	QueryTimeout   time.Duration // Single metadata lookup timeout
	BlobTimeout    time.Duration // One blob store call timeout

	// BaseURL is the externally visible origin used in share and signed URLs.
	// Blank derives the origin from each request.
	BaseURL string

	// TrustProxyHeaders reads the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
}
