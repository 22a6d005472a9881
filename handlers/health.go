// Package handlers implements the ops HTTP endpoints: liveness, readiness
// against the model gateway, and a status summary.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/utils"
	"go.uber.org/zap"
)

// GatewayProbe reports whether the upstream model gateway is reachable
type GatewayProbe interface {
	IsAvailable(ctx context.Context) bool
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck returns a simple liveness handler
func HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessCheck probes the model gateway before reporting ready
func ReadinessCheck(probe GatewayProbe, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		if probe.IsAvailable(ctx) {
			checks["gateway"] = "healthy"
			_ = utils.WriteOK(w, HealthResponse{
				Status:    "ready",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Checks:    checks,
			})
			return
		}

		logger.Warn("gateway readiness probe failed")
		checks["gateway"] = "unreachable"
		_ = utils.WriteServiceUnavailable(w, "gateway unreachable", map[string]interface{}{
			"checks": checks,
		})
	}
}

// StatusHandler returns application status information
func StatusHandler(cfg *config.Config, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, map[string]interface{}{
			"version":     version,
			"environment": cfg.Environment,
			"models": map[string]string{
				"primary":   cfg.Models.Primary,
				"secondary": cfg.Models.Secondary,
			},
			"gateway_base_url": cfg.Gateway.BaseURL,
		})
	}
}
