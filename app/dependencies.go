// Package app wires the application together: configuration, logger,
// metrics, gateway client, retry policy, fallback orchestrator, planner
// service and the MCP tool facade. This is the single composition root;
// every component is constructed once at process start and injected.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/services/fallback"
	"github.com/upb/planning-agent/services/gateway"
	"github.com/upb/planning-agent/services/planner"
	"github.com/upb/planning-agent/services/retry"
	"github.com/upb/planning-agent/tools"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Invocation path, leaves first
	Gateway  *gateway.Client
	Retry    *retry.Policy
	Fallback *fallback.Orchestrator
	Planner  *planner.Service
	Tools    *tools.PlanningTools
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	deps.Metrics = observability.NewMetrics(deps.Registry)
	deps.Gateway = gateway.NewClient(cfg.Gateway, logger, deps.Metrics)
	deps.Retry = retry.NewPolicy(cfg.Retry, logger, deps.Metrics)
	deps.Fallback = fallback.NewOrchestrator(deps.Gateway, deps.Retry, logger, deps.Metrics)
	deps.Planner = planner.NewService(deps.Fallback, cfg.Models, logger)
	deps.Tools = tools.New(deps.Planner, logger, deps.Metrics)

	logger.Info("all dependencies initialized",
		zap.String("gateway_base_url", cfg.Gateway.BaseURL),
		zap.String("primary_model", cfg.Models.Primary),
		zap.String("secondary_model", cfg.Models.Secondary))

	return deps, nil
}
