package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/llm"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

// decisionAdapter returns scripted recovery decisions in order.
type decisionAdapter struct {
	llm.Adapter
	decisions []llm.RecoveryDecision
	infos     []llm.ErrorInfo
	decErr    error
}

func (d *decisionAdapter) DecideRecovery(ctx context.Context, info llm.ErrorInfo, rctx llm.RecoveryContext) (llm.RecoveryDecision, error) {
	d.infos = append(d.infos, info)
	if d.decErr != nil {
		return llm.RecoveryDecision{}, d.decErr
	}
	if len(d.decisions) == 0 {
		return llm.RecoveryDecision{Action: llm.RecoveryRetry}, nil
	}
	dec := d.decisions[0]
	if len(d.decisions) > 1 {
		d.decisions = d.decisions[1:]
	}
	return dec, nil
}

func (d *decisionAdapter) ExtractGraphComponents(ctx context.Context, text, sourceID, brainID string) ([]types.GraphNode, []types.GraphEdge, error) {
	return nil, nil, nil
}

func newTestRunner(t *testing.T, adapter llm.Adapter) *Runner {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return NewRunner(log, adapter, "who is alice?")
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	adapter := &decisionAdapter{decisions: []llm.RecoveryDecision{{Action: llm.RecoveryRetry}}}
	r := newTestRunner(t, adapter)

	attempts := 0
	got, err := Run(context.Background(), r, "retrieve", nil, func(ctx context.Context, _ Params) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "ok" || attempts != 3 {
		t.Fatalf("want success on attempt 3, got=%q attempts=%d", got, attempts)
	}
}

func TestRunPropagatesOriginalErrorAfterThreeAttempts(t *testing.T) {
	adapter := &decisionAdapter{decisions: []llm.RecoveryDecision{{Action: llm.RecoveryRetry}}}
	r := newTestRunner(t, adapter)

	first := errors.New("first failure")
	attempts := 0
	_, err := Run(context.Background(), r, "generate", nil, func(ctx context.Context, _ Params) (string, error) {
		attempts++
		if attempts == 1 {
			return "", first
		}
		return "", errors.New("later failure")
	})
	if attempts != maxAttempts {
		t.Fatalf("attempts: want=%d got=%d", maxAttempts, attempts)
	}
	if !errors.Is(err, first) {
		t.Fatalf("original error must propagate, got=%v", err)
	}
}

func TestRunSkipReturnsErrSkipped(t *testing.T) {
	adapter := &decisionAdapter{decisions: []llm.RecoveryDecision{{Action: llm.RecoverySkip, Reason: "optional"}}}
	r := newTestRunner(t, adapter)

	attempts := 0
	_, err := Run(context.Background(), r, "filter_nodes", nil, func(ctx context.Context, _ Params) ([]string, error) {
		attempts++
		return nil, errors.New("filter blew up")
	})
	if !errors.Is(err, ErrSkipped) {
		t.Fatalf("want ErrSkipped, got=%v", err)
	}
	if attempts != 1 {
		t.Fatalf("skip must not re-run the stage, attempts=%d", attempts)
	}
}

func TestRunModifyMergesRetryParams(t *testing.T) {
	adapter := &decisionAdapter{decisions: []llm.RecoveryDecision{
		{Action: llm.RecoveryModify, RetryParams: map[string]any{"deep": true}},
	}}
	r := newTestRunner(t, adapter)

	var sawDeep bool
	_, err := Run(context.Background(), r, "schema_fetch", Params{"deep": false}, func(ctx context.Context, params Params) (int, error) {
		if params.Bool("deep", false) {
			sawDeep = true
			return 1, nil
		}
		return 0, errors.New("too shallow")
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sawDeep {
		t.Fatalf("modified params must reach the retry")
	}
}

func TestRunFallbackReturnsErrFallback(t *testing.T) {
	adapter := &decisionAdapter{decisions: []llm.RecoveryDecision{{Action: llm.RecoveryFallback}}}
	r := newTestRunner(t, adapter)

	_, err := Run(context.Background(), r, "retrieve", nil, func(ctx context.Context, _ Params) (string, error) {
		return "", errors.New("index down")
	})
	if !errors.Is(err, ErrFallback) {
		t.Fatalf("want ErrFallback, got=%v", err)
	}
}

func TestRunRetriesWhenDecisionFails(t *testing.T) {
	adapter := &decisionAdapter{decErr: errors.New("recovery model down")}
	r := newTestRunner(t, adapter)

	attempts := 0
	got, err := Run(context.Background(), r, "generate", nil, func(ctx context.Context, _ Params) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("decision failure must default to retry, got=%q err=%v", got, err)
	}
}

func TestRunReportsErrorEnvelope(t *testing.T) {
	adapter := &decisionAdapter{decisions: []llm.RecoveryDecision{{Action: llm.RecoverySkip}}}
	r := newTestRunner(t, adapter)
	r.NodeCount = 5
	r.SchemaNodeCount = 2

	_, _ = Run(context.Background(), r, "judge_schema", nil, func(ctx context.Context, _ Params) (int, error) {
		return 0, pkgerrors.ErrLLM
	})
	if len(adapter.infos) != 1 {
		t.Fatalf("decision calls: want=1 got=%d", len(adapter.infos))
	}
	info := adapter.infos[0]
	if info.ErrorType != "llm" || info.Step != "judge_schema" || info.Attempt != 1 {
		t.Fatalf("error envelope: got=%+v", info)
	}
}

func TestParamsHelpers(t *testing.T) {
	p := Params{"deep": true, "max_schema_chars": float64(4000)}
	if !p.Bool("deep", false) {
		t.Fatalf("Bool lookup failed")
	}
	if p.Int("max_schema_chars", 0) != 4000 {
		t.Fatalf("Int must accept JSON float64 values")
	}
	if p.Int("missing", 7) != 7 {
		t.Fatalf("Int default failed")
	}
}
