package planner

import (
	"fmt"
	"strings"
)

// planningSystemPrompt frames every planning invocation
const planningSystemPrompt = "You are an expert planning agent. Provide detailed, actionable plans with clear steps, dependencies, and considerations."

// planPromptTemplate is the structured planning prompt. The section layout
// is what downstream consumers of plans expect, so changes here need
// coordination with them.
const planPromptTemplate = `Task: %s

Context: %s

Please create a comprehensive implementation plan that includes:

1. **Overview & Objectives**
   - Clear problem statement
   - Success criteria
   - Key deliverables

2. **Technical Analysis**
   - Architecture considerations
   - Technology stack decisions
   - Dependencies and prerequisites

3. **Implementation Steps**
   - Detailed step-by-step breakdown
   - Estimated effort for each step
   - Dependencies between steps

4. **Risk Assessment**
   - Potential challenges
   - Mitigation strategies
   - Alternative approaches

5. **Testing & Validation**
   - Testing strategy
   - Quality assurance checkpoints
   - Success metrics

6. **Deployment & Maintenance**
   - Rollout plan
   - Monitoring considerations
   - Long-term maintenance

Please be specific and actionable in your recommendations.`

const complexityPromptTemplate = `Analyze the complexity of this task and provide recommendations:

Task: %s

Please assess:
1. Technical complexity (1-10 scale)
2. Time estimate
3. Required expertise level
4. Recommended planning approach
5. Whether this needs heavy planning with the primary model or can be handled with lighter planning

Be concise but thorough in your analysis.`

// BuildPlanPrompt renders the planning prompt for a task and optional context
func BuildPlanPrompt(taskDescription, taskContext string) string {
	return strings.TrimSpace(fmt.Sprintf(planPromptTemplate, taskDescription, taskContext))
}

// BuildComplexityPrompt renders the complexity-analysis prompt for a task
func BuildComplexityPrompt(taskDescription string) string {
	return strings.TrimSpace(fmt.Sprintf(complexityPromptTemplate, taskDescription))
}
