package llm

import (
	"context"
	"fmt"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/openai"
	"github.com/yungbote/braingraph-backend/internal/types"
)

const (
	extractionTemperature = 0.3
	defaultTemperature    = 0
)

type openaiAdapter struct {
	log    *logger.Logger
	client openai.Client
}

func newOpenAIAdapter(log *logger.Logger, client openai.Client) *openaiAdapter {
	return &openaiAdapter{log: log, client: client}
}

func (a *openaiAdapter) Chat(ctx context.Context, prompt string) (string, error) {
	text, err := a.client.GenerateText(ctx, "", prompt, defaultTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: chat: %v", pkgerrors.ErrLLM, err)
	}
	return text, nil
}

func (a *openaiAdapter) ExtractGraphComponents(ctx context.Context, text, sourceID, brainID string) ([]types.GraphNode, []types.GraphEdge, error) {
	payload, err := a.client.GenerateJSON(ctx, extractionSystemPrompt, extractionUserPrompt(text), "graph_extraction", extractionSchema(), extractionTemperature)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: extract graph: %v", pkgerrors.ErrLLM, err)
	}
	return decodeGraphPayload(payload, sourceID, brainID)
}

func (a *openaiAdapter) GenerateAnswer(ctx context.Context, schemaText, question string) (string, error) {
	text, err := a.client.GenerateText(ctx, answerSystemPrompt, answerUserPrompt(schemaText, question), defaultTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: generate answer: %v", pkgerrors.ErrLLM, err)
	}
	return text, nil
}

func (a *openaiAdapter) FilterNodes(ctx context.Context, question string, candidates []Candidate) (FilterResult, error) {
	payload, err := a.client.GenerateJSON(ctx, filterSystemPrompt, filterUserPrompt(question, candidates), "node_filter", filterSchema(), defaultTemperature)
	if err != nil {
		return FilterResult{}, fmt.Errorf("%w: filter nodes: %v", pkgerrors.ErrLLM, err)
	}
	return decodeFilterResult(payload)
}

func (a *openaiAdapter) JudgeSchema(ctx context.Context, question string, nodeCount, relatedCount, relationCount int) (SchemaJudgment, error) {
	payload, err := a.client.GenerateJSON(ctx, judgeSystemPrompt, judgeUserPrompt(question, nodeCount, relatedCount, relationCount), "schema_judgment", judgmentSchema(), defaultTemperature)
	if err != nil {
		return SchemaJudgment{}, fmt.Errorf("%w: judge schema: %v", pkgerrors.ErrLLM, err)
	}
	return decodeJudgment(payload)
}

func (a *openaiAdapter) OptimizeSchemaText(ctx context.Context, question, schemaText string) (string, error) {
	text, err := a.client.GenerateText(ctx, optimizeSystemPrompt, optimizeUserPrompt(question, schemaText), defaultTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: optimize schema: %v", pkgerrors.ErrLLM, err)
	}
	return text, nil
}

func (a *openaiAdapter) DecideRecovery(ctx context.Context, info ErrorInfo, rctx RecoveryContext) (RecoveryDecision, error) {
	payload, err := a.client.GenerateJSON(ctx, recoverySystemPrompt, recoveryUserPrompt(info, rctx), "recovery_decision", recoverySchema(), defaultTemperature)
	if err != nil {
		return RecoveryDecision{}, fmt.Errorf("%w: decide recovery: %v", pkgerrors.ErrLLM, err)
	}
	return decodeRecovery(payload)
}

func extractionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"nodes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label":       map[string]any{"type": "string"},
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
					"required":             []string{"label", "name", "description"},
					"additionalProperties": false,
				},
			},
			"edges": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source":   map[string]any{"type": "string"},
						"target":   map[string]any{"type": "string"},
						"relation": map[string]any{"type": "string"},
					},
					"required":             []string{"source", "target", "relation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"nodes", "edges"},
		"additionalProperties": false,
	}
}

func filterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filtered_node_names": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"needs_more_search": map[string]any{"type": "boolean"},
			"reason":            map[string]any{"type": "string"},
		},
		"required":             []string{"filtered_node_names", "needs_more_search", "reason"},
		"additionalProperties": false,
	}
}

func judgmentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_sufficient":     map[string]any{"type": "boolean"},
			"needs_deep_search": map[string]any{"type": "boolean"},
			"reason":            map[string]any{"type": "string"},
		},
		"required":             []string{"is_sufficient", "needs_deep_search", "reason"},
		"additionalProperties": false,
	}
}

func recoverySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recovery_action": map[string]any{
				"type": "string",
				"enum": []string{"retry", "skip", "modify", "fallback"},
			},
			"modification": map[string]any{"type": "string"},
			"reason":       map[string]any{"type": "string"},
			"retry_params": map[string]any{
				"type":                 "object",
				"additionalProperties": true,
			},
		},
		"required":             []string{"recovery_action", "modification", "reason", "retry_params"},
		"additionalProperties": false,
	}
}
