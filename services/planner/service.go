// Package planner builds task-specific prompts for the two planning
// operations and renders the orchestrator's results for external callers.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/services/fallback"
	"github.com/upb/planning-agent/services/gateway"
	"go.uber.org/zap"
)

// PlanRequest describes a create_plan call
type PlanRequest struct {
	// TaskDescription is the task or project to plan
	TaskDescription string `validate:"required"`

	// Context holds additional constraints or requirements
	Context string

	// PreferredModel, when set, is moved to the front of the candidate list
	PreferredModel string
}

// AnalysisRequest describes an analyze_complexity call
type AnalysisRequest struct {
	// TaskDescription is the task to assess
	TaskDescription string `validate:"required"`
}

// Result is the outcome of one successful planning operation
type Result struct {
	Content string
	Model   string
	Usage   gateway.Usage
}

// Completer produces one completion across an ordered candidate list
type Completer interface {
	Complete(ctx context.Context, req *fallback.Request) (*gateway.Completion, error)
}

// Service maps the two planning operations onto orchestrated completions
type Service struct {
	completer Completer
	models    config.ModelsConfig
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewService creates a planner service
func NewService(completer Completer, models config.ModelsConfig, logger *zap.Logger) *Service {
	return &Service{
		completer: completer,
		models:    models,
		validate:  validator.New(),
		logger:    logger,
	}
}

// CreatePlan produces a comprehensive plan for the described task. The
// candidate order is primary then secondary, with the preferred model moved
// to the front when the caller names one.
func (s *Service) CreatePlan(ctx context.Context, req *PlanRequest) (*Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &gateway.Error{Kind: gateway.KindNonRetryable, Message: "invalid plan request", Cause: err}
	}

	candidates := s.candidateOrder(req.PreferredModel, s.models.Primary, s.models.Secondary)

	log := observability.WithCorrelation(ctx, s.logger)
	log.Info("creating plan",
		zap.Strings("candidates", candidates),
		zap.String("preferred_model", req.PreferredModel),
		zap.Int("task_length", len(req.TaskDescription)))

	completion, err := s.completer.Complete(ctx, &fallback.Request{
		Candidates:  candidates,
		System:      planningSystemPrompt,
		Prompt:      BuildPlanPrompt(req.TaskDescription, req.Context),
		MaxTokens:   s.models.MaxTokens,
		Temperature: s.models.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Content: completion.Content, Model: completion.Model, Usage: completion.Usage}, nil
}

// AnalyzeComplexity assesses a task and recommends a planning approach. The
// lighter secondary model is consulted first; the primary model only serves
// as its fallback.
func (s *Service) AnalyzeComplexity(ctx context.Context, req *AnalysisRequest) (*Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &gateway.Error{Kind: gateway.KindNonRetryable, Message: "invalid analysis request", Cause: err}
	}

	candidates := s.candidateOrder("", s.models.Secondary, s.models.Primary)

	log := observability.WithCorrelation(ctx, s.logger)
	log.Info("analyzing task complexity",
		zap.Strings("candidates", candidates),
		zap.Int("task_length", len(req.TaskDescription)))

	completion, err := s.completer.Complete(ctx, &fallback.Request{
		Candidates:  candidates,
		System:      planningSystemPrompt,
		Prompt:      BuildComplexityPrompt(req.TaskDescription),
		MaxTokens:   s.models.MaxTokens,
		Temperature: s.models.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Content: completion.Content, Model: completion.Model, Usage: completion.Usage}, nil
}

// candidateOrder builds the fallback order: the preferred model first when
// given, then the defaults, with duplicates removed.
func (s *Service) candidateOrder(preferred string, defaults ...string) []string {
	order := make([]string, 0, len(defaults)+1)
	seen := make(map[string]bool)

	add := func(model string) {
		if model != "" && !seen[model] {
			seen[model] = true
			order = append(order, model)
		}
	}

	add(preferred)
	for _, model := range defaults {
		add(model)
	}
	return order
}

// RenderPlan formats a successful planning result as markdown
func (s *Service) RenderPlan(res *Result) string {
	return fmt.Sprintf(`# Planning Result

**Model Used:** %s
**Usage:** %d prompt + %d completion = %d tokens

---

%s
`, res.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.TotalTokens, res.Content)
}

// RenderAnalysis formats a complexity analysis as markdown with a
// planning-approach recommendation derived from the analysis text
func (s *Service) RenderAnalysis(res *Result) string {
	return fmt.Sprintf(`# Complexity Analysis

**Analyzed by:** %s

%s

---
**Recommendation:** %s
`, res.Model, res.Content, s.recommendation(res.Content))
}

// recommendation derives the planning-approach hint from the analysis text
func (s *Service) recommendation(content string) string {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "complex") || strings.Contains(lower, "difficult") {
		return fmt.Sprintf("Use %s for detailed planning", s.models.Primary)
	}
	return "Standard planning sufficient"
}
