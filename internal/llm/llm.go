package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/ollama"
	"github.com/yungbote/braingraph-backend/internal/platform/openai"
	"github.com/yungbote/braingraph-backend/internal/types"
)

// Backend selects the concrete model provider behind an Adapter.
type Backend string

const (
	BackendOpenAI Backend = "openai"
	BackendOllama Backend = "ollama"
)

func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return BackendOpenAI, nil
	case "ollama":
		return BackendOllama, nil
	default:
		return "", fmt.Errorf("unknown llm backend %q", s)
	}
}

// Candidate is one vector search hit offered to the node-quality filter.
type Candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FilterResult is the node-quality filter verdict.
type FilterResult struct {
	FilteredNodeNames []string `json:"filtered_node_names"`
	NeedsMoreSearch   bool     `json:"needs_more_search"`
	Reason            string   `json:"reason"`
}

// SchemaJudgment is the sufficiency verdict over a fetched subgraph summary.
type SchemaJudgment struct {
	IsSufficient    bool   `json:"is_sufficient"`
	NeedsDeepSearch bool   `json:"needs_deep_search"`
	Reason          string `json:"reason"`
}

// RecoveryAction is one corrective action chosen for a failed stage.
type RecoveryAction string

const (
	RecoveryRetry    RecoveryAction = "retry"
	RecoverySkip     RecoveryAction = "skip"
	RecoveryModify   RecoveryAction = "modify"
	RecoveryFallback RecoveryAction = "fallback"
)

// ErrorInfo describes a failed stage for the recovery decision prompt.
type ErrorInfo struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Step         string `json:"step"`
	Attempt      int    `json:"attempt"`
}

// RecoveryContext carries the orchestration state alongside the error.
type RecoveryContext struct {
	Question        string `json:"question"`
	NodeCount       int    `json:"node_count"`
	SchemaNodeCount int    `json:"schema_node_count"`
}

// RecoveryDecision is the parsed recovery verdict.
type RecoveryDecision struct {
	Action       RecoveryAction `json:"recovery_action"`
	Modification string         `json:"modification"`
	Reason       string         `json:"reason"`
	RetryParams  map[string]any `json:"retry_params"`
}

// Adapter is the uniform model interface the orchestrator and the ingestion
// pipeline speak. Both backends honor the same JSON contracts; a malformed
// response surfaces as an error and feeds the recovery runner.
type Adapter interface {
	Chat(ctx context.Context, prompt string) (string, error)
	ExtractGraphComponents(ctx context.Context, text, sourceID, brainID string) ([]types.GraphNode, []types.GraphEdge, error)
	GenerateAnswer(ctx context.Context, schemaText, question string) (string, error)
	FilterNodes(ctx context.Context, question string, candidates []Candidate) (FilterResult, error)
	JudgeSchema(ctx context.Context, question string, nodeCount, relatedCount, relationCount int) (SchemaJudgment, error)
	OptimizeSchemaText(ctx context.Context, question, schemaText string) (string, error)
	DecideRecovery(ctx context.Context, info ErrorInfo, rctx RecoveryContext) (RecoveryDecision, error)
}

// New builds the adapter for a backend. modelName may be empty; each backend
// falls back to its configured default model.
func New(log *logger.Logger, backend Backend, modelName string, oa openai.Client, ol ollama.Client) (Adapter, error) {
	switch backend {
	case BackendOpenAI:
		if oa == nil {
			return nil, fmt.Errorf("openai client not configured")
		}
		return newOpenAIAdapter(log, oa), nil
	case BackendOllama:
		if ol == nil {
			return nil, fmt.Errorf("ollama client not configured")
		}
		return newOllamaAdapter(log, ol, modelName), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", backend)
	}
}
