// Package accesslog writes one structured log line per HTTP request.
package accesslog

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/network"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Config controls the access log middleware.
type Config struct {
	Logger     *zap.Logger
	TrustProxy bool     // read the client IP from forwarding headers
	SkipPaths  []string // path prefixes that are not logged (probes)
}

// Middleware logs method, path, status, size, duration, request ID and
// client IP after each request completes.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()
			rw := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Int64("bytes", rw.bytesWritten),
				zap.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("ip", network.ClientIP(r, cfg.TrustProxy)),
			}
			if rw.statusCode >= http.StatusInternalServerError {
				cfg.Logger.Warn("request", fields...)
				return
			}
			cfg.Logger.Info("request", fields...)
		})
	}
}

// responseWrapper captures the status code and bytes written.
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher so streamed downloads are not buffered.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
