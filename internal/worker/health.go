package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger checks the Redis connection
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthServer serves liveness and readiness probes for the view worker
type HealthServer struct {
	port     int
	redis    Pinger
	viewsDir string
	logger   *zap.Logger
	server   *http.Server
}

// NewHealthServer creates a health server; viewsDir must exist for the worker to be healthy
func NewHealthServer(port int, redis Pinger, viewsDir string, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		port:     port,
		redis:    redis,
		viewsDir: viewsDir,
		logger:   logger,
	}
}

// Handler returns the probe routes
func (hs *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)
	return mux
}

// Start starts the health check server
func (hs *HealthServer) Start() error {
	hs.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", hs.port),
		Handler:           hs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hs.logger.Info("starting health server", zap.Int("port", hs.port))

	go func() {
		if err := hs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			hs.logger.Error("health server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the health check server
func (hs *HealthServer) Stop() error {
	if hs.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hs.logger.Info("stopping health server")
	return hs.server.Shutdown(ctx)
}

// HealthResponse is the body of both health endpoints
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// check is a named dependency probe
type check struct {
	name string
	run  func(ctx context.Context) error
}

func (hs *HealthServer) liveness() []check {
	return []check{
		{name: "redis", run: hs.pingRedis},
		{name: "views", run: hs.statViews},
	}
}

func (hs *HealthServer) readiness() []check {
	return []check{
		{name: "redis", run: hs.pingRedis},
	}
}

// handleHealth reports every dependency
func (hs *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	results, ok := hs.runChecks(r.Context(), hs.liveness())
	if !ok {
		hs.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: results})
		return
	}
	hs.respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Checks: results})
}

// handleReady reports whether render requests can be consumed
func (hs *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, ok := hs.runChecks(r.Context(), hs.readiness()); !ok {
		hs.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	hs.respondJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (hs *HealthServer) runChecks(ctx context.Context, checks []check) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(checks))
	ok := true
	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			hs.logger.Warn("health check failed", zap.String("check", c.name), zap.Error(err))
			results[c.name] = fmt.Sprintf("unhealthy: %v", err)
			ok = false
			continue
		}
		results[c.name] = "healthy"
	}
	return results, ok
}

func (hs *HealthServer) pingRedis(ctx context.Context) error {
	return hs.redis.Ping(ctx).Err()
}

func (hs *HealthServer) statViews(context.Context) error {
	info, err := os.Stat(hs.viewsDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", hs.viewsDir)
	}
	return nil
}

// respondJSON writes a JSON response
func (hs *HealthServer) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		hs.logger.Error("failed to encode response", zap.Error(err))
	}
}
