package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/envutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/ollama"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type ollamaAdapter struct {
	log    *logger.Logger
	client ollama.Client
	model  string

	mu     sync.Mutex
	pulled map[string]struct{}
}

func newOllamaAdapter(log *logger.Logger, client ollama.Client, model string) *ollamaAdapter {
	model = strings.TrimSpace(model)
	if model == "" {
		model = envutil.String("OLLAMA_MODEL", "llama3.1")
	}
	return &ollamaAdapter{
		log:    log,
		client: client,
		model:  model,
		pulled: map[string]struct{}{},
	}
}

// ensureModel pulls the model once per process; a pull failure is logged and
// the chat call decides whether the model is actually available.
func (a *ollamaAdapter) ensureModel(ctx context.Context) {
	a.mu.Lock()
	_, done := a.pulled[a.model]
	a.mu.Unlock()
	if done {
		return
	}
	if err := a.client.Pull(ctx, a.model); err != nil {
		a.log.Warn("ollama model pull failed", "model", a.model, "error", err)
		return
	}
	a.mu.Lock()
	a.pulled[a.model] = struct{}{}
	a.mu.Unlock()
}

func (a *ollamaAdapter) chatJSON(ctx context.Context, system, user string, temperature float64) (map[string]any, error) {
	a.ensureModel(ctx)
	raw, err := a.client.Chat(ctx, a.model, system, user, true, temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama chat: %v", pkgerrors.ErrLLM, err)
	}
	return parseJSONObject(raw)
}

func (a *ollamaAdapter) Chat(ctx context.Context, prompt string) (string, error) {
	a.ensureModel(ctx)
	text, err := a.client.Chat(ctx, a.model, "", prompt, false, defaultTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: chat: %v", pkgerrors.ErrLLM, err)
	}
	return text, nil
}

func (a *ollamaAdapter) ExtractGraphComponents(ctx context.Context, text, sourceID, brainID string) ([]types.GraphNode, []types.GraphEdge, error) {
	payload, err := a.chatJSON(ctx, extractionSystemPrompt, extractionUserPrompt(text), extractionTemperature)
	if err != nil {
		return nil, nil, err
	}
	return decodeGraphPayload(payload, sourceID, brainID)
}

func (a *ollamaAdapter) GenerateAnswer(ctx context.Context, schemaText, question string) (string, error) {
	a.ensureModel(ctx)
	text, err := a.client.Chat(ctx, a.model, answerSystemPrompt, answerUserPrompt(schemaText, question), false, defaultTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: generate answer: %v", pkgerrors.ErrLLM, err)
	}
	return text, nil
}

func (a *ollamaAdapter) FilterNodes(ctx context.Context, question string, candidates []Candidate) (FilterResult, error) {
	payload, err := a.chatJSON(ctx, filterSystemPrompt, filterUserPrompt(question, candidates), defaultTemperature)
	if err != nil {
		return FilterResult{}, err
	}
	return decodeFilterResult(payload)
}

func (a *ollamaAdapter) JudgeSchema(ctx context.Context, question string, nodeCount, relatedCount, relationCount int) (SchemaJudgment, error) {
	payload, err := a.chatJSON(ctx, judgeSystemPrompt, judgeUserPrompt(question, nodeCount, relatedCount, relationCount), defaultTemperature)
	if err != nil {
		return SchemaJudgment{}, err
	}
	return decodeJudgment(payload)
}

func (a *ollamaAdapter) OptimizeSchemaText(ctx context.Context, question, schemaText string) (string, error) {
	a.ensureModel(ctx)
	text, err := a.client.Chat(ctx, a.model, optimizeSystemPrompt, optimizeUserPrompt(question, schemaText), false, defaultTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: optimize schema: %v", pkgerrors.ErrLLM, err)
	}
	return text, nil
}

func (a *ollamaAdapter) DecideRecovery(ctx context.Context, info ErrorInfo, rctx RecoveryContext) (RecoveryDecision, error) {
	payload, err := a.chatJSON(ctx, recoverySystemPrompt, recoveryUserPrompt(info, rctx), defaultTemperature)
	if err != nil {
		return RecoveryDecision{}, err
	}
	return decodeRecovery(payload)
}
