// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// probeKey is never written; a not-found answer proves the backend is reachable.
const probeKey = "_health/probe"

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

// BlobCheck reads a key that never exists. ErrNotFound counts as healthy.
func BlobCheck(store blobstore.Store) Check {
	return func(ctx context.Context) error {
		obj, err := store.Get(ctx, probeKey)
		if err == nil {
			obj.Body.Close()
			return nil
		}
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil
		}
		return err
	}
}

// Handler provides health check endpoints.
type Handler struct {
	checks map[string]Check
	logger *zap.Logger
}

// NewHandler creates a health Handler running the named checks.
func NewHandler(checks map[string]Check, logger *zap.Logger) *Handler {
	return &Handler{checks: checks, logger: logger}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the conventional probe paths on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// run executes every check under the ping timeout and reports per-service status.
func (h *Handler) run(ctx context.Context) Response {
	resp := Response{Status: "ok", Services: make(map[string]string, len(h.checks))}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Ping(), h.logger, "health "+name)
		err := h.checks[name](cctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Services[name] = "unavailable"
			h.logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
			continue
		}
		resp.Services[name] = "ok"
	}
	return resp
}

// Check performs a full health check of every dependency.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := h.run(r.Context())
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready reports whether the service can take traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if resp := h.run(r.Context()); resp.Status != "ok" {
		jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
		return
	}
	jsonutil.OK(w, Response{Status: "ready"})
}

// Live reports that the process is up. It never touches dependencies.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, Response{Status: "alive"})
}
