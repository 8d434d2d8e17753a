package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/braingraph-backend/internal/llm"
	"github.com/yungbote/braingraph-backend/internal/observability"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
)

// ErrFallback signals that the recovery decision abandoned retrieval; the
// orchestrator switches to the general-knowledge fallback path.
var ErrFallback = errors.New("recovery fallback requested")

// ErrSkipped signals that a failed optional stage was skipped; the caller
// proceeds with its previous state.
var ErrSkipped = errors.New("stage skipped")

const maxAttempts = 3

// Params are the mutable stage parameters a "modify" decision can rewrite
// between attempts (for example deep=true or max_schema_chars).
type Params map[string]any

func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Runner wraps orchestration stages with the bounded-retry recovery loop.
type Runner struct {
	log     *logger.Logger
	adapter llm.Adapter

	// Context fields reported to the recovery prompt; the orchestrator
	// updates them as stages complete.
	Question        string
	NodeCount       int
	SchemaNodeCount int
}

func NewRunner(log *logger.Logger, adapter llm.Adapter, question string) *Runner {
	return &Runner{log: log, adapter: adapter, Question: question}
}

// Run executes one stage with up to three attempts. On failure the adapter
// picks an action: retry re-runs, modify merges retry params and re-runs,
// skip returns ErrSkipped, fallback returns ErrFallback. After three failed
// attempts the original error propagates.
func Run[T any](ctx context.Context, r *Runner, stage string, params Params, fn func(ctx context.Context, params Params) (T, error)) (T, error) {
	var zero T
	if params == nil {
		params = Params{}
	}

	var firstErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := fn(ctx, params)
		if err == nil {
			return out, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			return zero, err
		}
		r.log.Warn("answer stage failed", "stage", stage, "attempt", attempt, "error", err)
		if attempt == maxAttempts {
			break
		}

		decision, decErr := r.adapter.DecideRecovery(ctx, llm.ErrorInfo{
			ErrorType:    classifyError(err),
			ErrorMessage: err.Error(),
			Step:         stage,
			Attempt:      attempt,
		}, llm.RecoveryContext{
			Question:        r.Question,
			NodeCount:       r.NodeCount,
			SchemaNodeCount: r.SchemaNodeCount,
		})
		if decErr != nil {
			// The recovery model itself failed; retrying the stage is the
			// only action that needs no verdict.
			r.log.Warn("recovery decision failed, retrying stage", "stage", stage, "error", decErr)
			continue
		}
		observability.Current().IncRecoveryAction(stage, string(decision.Action))

		switch decision.Action {
		case llm.RecoveryRetry:
			continue
		case llm.RecoveryModify:
			for k, v := range decision.RetryParams {
				params[k] = v
			}
			r.log.Info("stage parameters modified", "stage", stage, "modification", decision.Modification)
			continue
		case llm.RecoverySkip:
			r.log.Warn("stage skipped by recovery", "stage", stage, "reason", decision.Reason)
			return zero, ErrSkipped
		case llm.RecoveryFallback:
			r.log.Warn("recovery chose fallback", "stage", stage, "reason", decision.Reason)
			return zero, ErrFallback
		default:
			continue
		}
	}
	return zero, fmt.Errorf("stage %s failed after %d attempts: %w", stage, maxAttempts, firstErr)
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, pkgerrors.ErrGraphStore):
		return "graph_store"
	case errors.Is(err, pkgerrors.ErrVectorStore):
		return "vector_store"
	case errors.Is(err, pkgerrors.ErrMetadataStore):
		return "metadata_store"
	case errors.Is(err, pkgerrors.ErrLLM):
		return "llm"
	case errors.Is(err, pkgerrors.ErrExtraction):
		return "extraction"
	case errors.Is(err, pkgerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "internal"
	}
}
