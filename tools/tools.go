// Package tools exposes the planning operations as MCP tools. It is the
// outermost facade: each tool call gets its own correlation context before
// anything else happens, and every terminal outcome is logged and counted.
package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/middleware"
	"github.com/upb/planning-agent/services/planner"
	"go.uber.org/zap"
)

// PlanningTools registers and handles the MCP planning tools
type PlanningTools struct {
	service *planner.Service
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New creates the planning tool set
func New(service *planner.Service, logger *zap.Logger, metrics *observability.Metrics) *PlanningTools {
	return &PlanningTools{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds the planning tools to the MCP server
func (t *PlanningTools) Register(s *server.MCPServer) {
	createPlan := mcp.NewTool("create_plan",
		mcp.WithDescription("Create a comprehensive plan for complex tasks using the configured planning models"),
		mcp.WithString("task_description",
			mcp.Required(),
			mcp.Description("Detailed description of the task or project to plan"),
		),
		mcp.WithString("context",
			mcp.Description("Additional context, constraints, or requirements"),
		),
		mcp.WithString("preferred_model",
			mcp.Description("Preferred model for planning; moved to the front of the fallback order"),
		),
	)
	s.AddTool(createPlan, t.handleCreatePlan)

	analyzeComplexity := mcp.NewTool("analyze_complexity",
		mcp.WithDescription("Analyze task complexity and recommend a planning approach"),
		mcp.WithString("task_description",
			mcp.Required(),
			mcp.Description("Task to analyze for complexity"),
		),
	)
	s.AddTool(analyzeComplexity, t.handleAnalyzeComplexity)
}

// handleCreatePlan handles create_plan tool calls
func (t *PlanningTools) handleCreatePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = middleware.NewCorrelationContext(ctx)
	log := observability.WithCorrelation(ctx, t.logger)

	taskDescription, err := request.RequireString("task_description")
	if err != nil {
		t.metrics.ToolCalls.WithLabelValues("create_plan", "invalid").Inc()
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.service.CreatePlan(ctx, &planner.PlanRequest{
		TaskDescription: taskDescription,
		Context:         request.GetString("context", ""),
		PreferredModel:  request.GetString("preferred_model", ""),
	})
	if err != nil {
		t.metrics.ToolCalls.WithLabelValues("create_plan", "failure").Inc()
		log.Error("create_plan failed", observability.ElapsedField(ctx), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Planning failed: %v", err)), nil
	}

	t.metrics.ToolCalls.WithLabelValues("create_plan", "success").Inc()
	log.Info("create_plan completed",
		zap.String("model", result.Model),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		observability.ElapsedField(ctx))
	return mcp.NewToolResultText(t.service.RenderPlan(result)), nil
}

// handleAnalyzeComplexity handles analyze_complexity tool calls
func (t *PlanningTools) handleAnalyzeComplexity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = middleware.NewCorrelationContext(ctx)
	log := observability.WithCorrelation(ctx, t.logger)

	taskDescription, err := request.RequireString("task_description")
	if err != nil {
		t.metrics.ToolCalls.WithLabelValues("analyze_complexity", "invalid").Inc()
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.service.AnalyzeComplexity(ctx, &planner.AnalysisRequest{
		TaskDescription: taskDescription,
	})
	if err != nil {
		t.metrics.ToolCalls.WithLabelValues("analyze_complexity", "failure").Inc()
		log.Error("analyze_complexity failed", observability.ElapsedField(ctx), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	t.metrics.ToolCalls.WithLabelValues("analyze_complexity", "success").Inc()
	log.Info("analyze_complexity completed",
		zap.String("model", result.Model),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		observability.ElapsedField(ctx))
	return mcp.NewToolResultText(t.service.RenderAnalysis(result)), nil
}
