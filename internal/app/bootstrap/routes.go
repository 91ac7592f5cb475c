// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	accountfeature "github.com/dalemusser/stratadrive/internal/app/features/account"
	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	filesfeature "github.com/dalemusser/stratadrive/internal/app/features/files"
	foldersfeature "github.com/dalemusser/stratadrive/internal/app/features/folders"
	healthfeature "github.com/dalemusser/stratadrive/internal/app/features/health"
	"github.com/dalemusser/stratadrive/internal/app/services/catalog"
	"github.com/dalemusser/stratadrive/internal/app/services/foldertree"
	"github.com/dalemusser/stratadrive/internal/app/services/sharing"
	"github.com/dalemusser/stratadrive/internal/app/store/fileversion"
	"github.com/dalemusser/stratadrive/internal/app/store/folder"
	"github.com/dalemusser/stratadrive/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/accesslog"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// csrfExemptPrefixes are routes reachable without a credential cookie, so a
// forged cross-site request has nothing to ride on.
var csrfExemptPrefixes = []string{
	"/api/files/shared/",
	"/api/files/blob/",
	"/api/auth/signup",
	"/api/auth/login",
	"/health",
	"/ready",
	"/readyz",
	"/livez",
}

// probePaths are not written to the access log.
var probePaths = []string{"/health", "/ready", "/readyz", "/livez"}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Browser clients authenticate with the credential cookie and must send the
// CSRF token (GET /api/auth/csrf) on unsafe requests. API clients send
// "Authorization: Bearer <token>" and are exempt from CSRF checks.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies and strict credential checks are enabled in production mode.
	secure := coreCfg.Env == "prod"

	issuer, err := auth.NewIssuer(appCfg.JWTSecret, appCfg.JWTTTL, secure, logger)
	if err != nil {
		logger.Error("credential issuer init failed", zap.Error(err))
		return nil, err
	}
	gw := auth.NewGateway(issuer, auth.CookieConfig{
		Name:   appCfg.CookieName,
		Domain: appCfg.CookieDomain,
		Secure: secure,
	}, logger)

	// Fetch fresh user data on each request so deleted accounts lose access
	// before their credential expires.
	gw.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	// Stores and services
	versionStore := fileversion.New(deps.MongoDatabase)
	folderStore := folder.New(deps.MongoDatabase)

	tree := foldertree.New(folderStore, versionStore, logger)
	cat := catalog.New(versionStore, deps.Blobs, tree, logger)
	share := sharing.New(versionStore, deps.Blobs, logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(accesslog.Middleware(accesslog.Config{
		Logger:     logger,
		TrustProxy: appCfg.TrustProxyHeaders,
		SkipPaths:  probePaths,
	}))

	// Request timeout middleware. Uploads and downloads of large files are
	// bounded by the blob timeout instead.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	r.Use(csrfMiddleware(appCfg, secure, logger))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health checks (public)
	healthHandler := healthfeature.NewHandler(map[string]healthfeature.Check{
		"mongodb": healthfeature.MongoCheck(deps.MongoClient),
		"storage": healthfeature.BlobCheck(deps.Blobs),
	}, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Accounts
	var throttle accountfeature.Throttle
	if appCfg.RateLimitEnabled {
		throttle = ratelimit.New(deps.MongoDatabase, ratelimit.Limits{
			MaxAttempts: appCfg.RateLimitLoginAttempts,
			Window:      appCfg.RateLimitLoginWindow,
			Lockout:     appCfg.RateLimitLoginLockout,
		}, logger)
	}
	accountHandler := accountfeature.NewHandler(userstore.New(deps.MongoDatabase), throttle, gw, errLog, logger)
	r.Mount("/api/auth", accountfeature.Routes(accountHandler))

	// Folder tree
	foldersHandler := foldersfeature.NewHandler(tree, errLog, logger)
	r.Mount("/api/folders", foldersfeature.Routes(foldersHandler, gw))

	// Files, versions and shares
	var resolver filesfeature.BlobResolver
	if deps.BlobResolver != nil {
		resolver = deps.BlobResolver
	}
	filesHandler := filesfeature.NewHandler(cat, share, deps.Blobs, resolver, filesfeature.Config{
		MaxUploadBytes: appCfg.UploadMaxBytes,
		BaseURL:        appCfg.BaseURL,
	}, errLog, logger)
	r.Mount("/api/files", filesfeature.Routes(filesHandler, gw))

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	logger.Info("routes mounted",
		zap.String("storage", appCfg.StorageType),
		zap.Bool("rate_limit", appCfg.RateLimitEnabled),
		zap.Bool("signed_blob_route", resolver != nil),
	)
	return r, nil
}

// csrfMiddleware protects cookie-authenticated unsafe requests. Bearer
// requests and public routes skip the check.
func csrfMiddleware(appCfg AppConfig, secure bool, logger *zap.Logger) func(http.Handler) http.Handler {
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratadrive_csrf"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			jsonutil.Forbidden(w, "CSRF token invalid or missing")
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.CookieDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.CookieDomain))
	}
	protect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if csrfExempt(req) {
				next.ServeHTTP(w, req)
				return
			}
			if !secure && req.TLS == nil {
				req = csrf.PlaintextHTTPRequest(req)
			}
			protected.ServeHTTP(w, req)
		})
	}
}

// csrfExempt reports whether req is outside CSRF protection: it carries a
// Bearer credential (never sent automatically by browsers) or targets a
// public route.
func csrfExempt(req *http.Request) bool {
	if h := req.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return true
	}
	for _, prefix := range csrfExemptPrefixes {
		if strings.HasPrefix(req.URL.Path, prefix) {
			return true
		}
	}
	return false
}
