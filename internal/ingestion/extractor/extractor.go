package extractor

import (
	"context"
	"fmt"

	"github.com/yungbote/braingraph-backend/internal/embedding"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

// Extractor turns raw document text into graph nodes, edges and vector
// points via rule-based segmentation, recursive topical chunking and keyword
// assembly. Deterministic modulo point UUIDs.
type Extractor interface {
	Extract(ctx context.Context, text, brainID, sourceID string) ([]types.GraphNode, []types.GraphEdge, []types.VectorPoint, error)
}

type ruleExtractor struct {
	log *logger.Logger
	enc embedding.Encoder
}

func NewRuleExtractor(log *logger.Logger, enc embedding.Encoder) Extractor {
	return &ruleExtractor{log: log, enc: enc}
}

func (e *ruleExtractor) Extract(ctx context.Context, text, brainID, sourceID string) ([]types.GraphNode, []types.GraphEdge, []types.VectorPoint, error) {
	sentences := SegmentSentences(text)
	if len(sentences) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no usable sentences", pkgerrors.ErrExtraction)
	}

	tokens := make([][]string, len(sentences))
	for i, s := range sentences {
		tokens[i] = Tokenize(s)
	}

	result := chunkSentences(sentences, tokens)
	if result.Root == "" && len(result.Leaves) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: chunker produced no output", pkgerrors.ErrExtraction)
	}

	nodes, edges, points, err := assemble(ctx, e.enc, result, sentences, brainID, sourceID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: assemble: %v", pkgerrors.ErrExtraction, err)
	}
	if len(nodes) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no nodes extracted", pkgerrors.ErrExtraction)
	}

	e.log.Info("rule extraction complete",
		"brain_id", brainID,
		"source_id", sourceID,
		"sentences", len(sentences),
		"nodes", len(nodes),
		"edges", len(edges),
	)
	return nodes, edges, points, nil
}
