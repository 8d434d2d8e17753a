package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/braingraph-backend/internal/data/graph"
	"github.com/yungbote/braingraph-backend/internal/embedding"
	"github.com/yungbote/braingraph-backend/internal/ingestion/extractor"
	"github.com/yungbote/braingraph-backend/internal/llm"
	"github.com/yungbote/braingraph-backend/internal/observability"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/qdrant"
	"github.com/yungbote/braingraph-backend/internal/types"

	"github.com/google/uuid"
)

// Mode selects the extraction strategy for one ingest call.
type Mode string

const (
	ModeRule Mode = "rule"
	ModeLLM  Mode = "llm"
)

// Summary reports what one ingest call wrote.
type Summary struct {
	Nodes  int `json:"nodes"`
	Edges  int `json:"edges"`
	Points int `json:"points"`
}

// Pipeline drives one source through extraction and dual-store persistence.
// The graph write happens before any vector write; a vector failure after a
// committed graph write returns the summary together with
// ErrPartialPersistence so callers can re-submit (at-least-once).
type Pipeline interface {
	Process(ctx context.Context, brainID, sourceID, text string, mode Mode, adapter llm.Adapter) (Summary, error)
}

type pipeline struct {
	log     *logger.Logger
	index   qdrant.Index
	store   graph.Store
	extract extractor.Extractor
	enc     embedding.Encoder
}

func New(log *logger.Logger, index qdrant.Index, store graph.Store, ex extractor.Extractor, enc embedding.Encoder) (Pipeline, error) {
	if log == nil || index == nil || store == nil || ex == nil || enc == nil {
		return nil, fmt.Errorf("pipeline: all dependencies required")
	}
	return &pipeline{log: log, index: index, store: store, extract: ex, enc: enc}, nil
}

func (p *pipeline) Process(ctx context.Context, brainID, sourceID, text string, mode Mode, adapter llm.Adapter) (Summary, error) {
	if brainID == "" || sourceID == "" {
		return Summary{}, fmt.Errorf("%w: brain_id and source_id required", pkgerrors.ErrInvalidArgument)
	}
	if mode == ModeLLM && adapter == nil {
		// No model configured: fall back to the rule extractor.
		p.log.Warn("llm ingest requested without a model, using rule extraction", "brain_id", brainID, "source_id", sourceID)
		mode = ModeRule
	}
	if mode == "" {
		mode = ModeRule
	}

	if err := p.timed("ensure_collection", func() error {
		return p.index.EnsureCollection(ctx, brainID)
	}); err != nil {
		return Summary{}, fmt.Errorf("ensure collection: %w", err)
	}

	var nodes []types.GraphNode
	var edges []types.GraphEdge
	var points []types.VectorPoint
	err := p.timed("extract", func() error {
		var err error
		if mode == ModeLLM {
			nodes, edges, err = adapter.ExtractGraphComponents(ctx, text, sourceID, brainID)
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				return fmt.Errorf("%w: llm extraction produced no nodes", pkgerrors.ErrExtraction)
			}
			points, err = p.buildPoints(ctx, nodes, sourceID, brainID)
			return err
		}
		nodes, edges, points, err = p.extract.Extract(ctx, text, brainID, sourceID)
		return err
	})
	if err != nil {
		return Summary{}, err
	}

	if err := p.timed("graph_upsert", func() error {
		return p.store.UpsertNodesEdges(ctx, brainID, nodes, edges)
	}); err != nil {
		return Summary{}, fmt.Errorf("graph upsert: %w", err)
	}
	observability.Current().AddGraphUpserts(len(nodes), len(edges))

	// One upsert set per call: a point id already written is not re-sent.
	written := make(map[string]struct{}, len(points))
	unique := points[:0]
	for _, pt := range points {
		if _, dup := written[pt.ID]; dup {
			continue
		}
		written[pt.ID] = struct{}{}
		unique = append(unique, pt)
	}

	summary := Summary{Nodes: len(nodes), Edges: len(edges), Points: len(unique)}
	if err := p.timed("vector_upsert", func() error {
		return p.index.Upsert(ctx, brainID, unique)
	}); err != nil {
		observability.Current().IncPartialPersistence()
		p.log.Error("vector upsert failed after graph commit", "brain_id", brainID, "source_id", sourceID, "error", err)
		return summary, fmt.Errorf("%w: %v", pkgerrors.ErrPartialPersistence, err)
	}
	observability.Current().AddVectorPoints(len(unique))

	p.log.Info("ingest complete",
		"brain_id", brainID,
		"source_id", sourceID,
		"mode", string(mode),
		"nodes", summary.Nodes,
		"edges", summary.Edges,
		"points", summary.Points,
	)
	return summary, nil
}

// buildPoints embeds "name — description" per LLM-extracted node, bounded at
// four workers like the rule extractor's embedding fan-out.
func (p *pipeline) buildPoints(ctx context.Context, nodes []types.GraphNode, sourceID, brainID string) ([]types.VectorPoint, error) {
	vectors := make([][]float32, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range nodes {
		i := i
		g.Go(func() error {
			text := nodes[i].Name
			if len(nodes[i].Descriptions) > 0 {
				text = nodes[i].Name + " — " + nodes[i].Descriptions[0].Description
			}
			vec, err := p.enc.Encode(gctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: embed llm nodes: %v", pkgerrors.ErrExtraction, err)
	}

	points := make([]types.VectorPoint, 0, len(nodes))
	for i, n := range nodes {
		desc := ""
		if len(n.Descriptions) > 0 {
			desc = n.Descriptions[0].Description
		}
		points = append(points, types.VectorPoint{
			ID:          uuid.NewString(),
			Vector:      vectors[i],
			Name:        n.Name,
			Description: desc,
			SourceID:    sourceID,
			BrainID:     brainID,
			FormatIndex: i,
		})
	}
	return points, nil
}

func (p *pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveIngestStage(stage, status, time.Since(start))
	return err
}
