package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/embedding"
	"github.com/yungbote/braingraph-backend/internal/llm"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/qdrant"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type fakeIndex struct {
	ensured   []string
	upserted  [][]types.VectorPoint
	upsertErr error
	calls     []string
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, brainID string) error {
	f.calls = append(f.calls, "ensure")
	f.ensured = append(f.ensured, brainID)
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, brainID string, points []types.VectorPoint) error {
	f.calls = append(f.calls, "vector")
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, points)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, brainID string, vector []float32, topK int) ([]qdrant.Match, error) {
	return nil, nil
}
func (f *fakeIndex) CountBySource(ctx context.Context, brainID, sourceID string) (int, error) {
	return 0, nil
}
func (f *fakeIndex) DeleteBySource(ctx context.Context, brainID, sourceID string) error { return nil }
func (f *fakeIndex) DeleteCollection(ctx context.Context, brainID string) error         { return nil }

type fakeStore struct {
	calls *fakeIndex
	nodes []types.GraphNode
	edges []types.GraphEdge
	err   error
}

func (f *fakeStore) UpsertNodesEdges(ctx context.Context, brainID string, nodes []types.GraphNode, edges []types.GraphEdge) error {
	f.calls.calls = append(f.calls.calls, "graph")
	if f.err != nil {
		return f.err
	}
	f.nodes = append(f.nodes, nodes...)
	f.edges = append(f.edges, edges...)
	return nil
}

func (f *fakeStore) GetGraph(ctx context.Context, brainID string) (types.GraphProjection, error) {
	return types.GraphProjection{}, nil
}
func (f *fakeStore) QuerySchemaByNames(ctx context.Context, brainID string, names []string, deep bool) (types.SchemaResult, error) {
	return types.SchemaResult{}, nil
}
func (f *fakeStore) GetDescriptions(ctx context.Context, nodeName, brainID string) ([]types.Description, error) {
	return nil, nil
}
func (f *fakeStore) GetDescriptionsBulk(ctx context.Context, names []string, brainID string) (map[string][]types.Description, error) {
	return nil, nil
}
func (f *fakeStore) GetOriginalSentences(ctx context.Context, nodeName, sourceID, brainID string) ([]types.OriginalSentence, error) {
	return nil, nil
}
func (f *fakeStore) GetSourceIDsByNode(ctx context.Context, nodeName, brainID string) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) GetNodesBySource(ctx context.Context, brainID, sourceID string) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) DeleteBySource(ctx context.Context, brainID, sourceID string) error { return nil }
func (f *fakeStore) DeleteByBrain(ctx context.Context, brainID string) error            { return nil }

type fakeExtractor struct {
	nodes  []types.GraphNode
	edges  []types.GraphEdge
	points []types.VectorPoint
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, text, brainID, sourceID string) ([]types.GraphNode, []types.GraphEdge, []types.VectorPoint, error) {
	return f.nodes, f.edges, f.points, f.err
}

type fakeEncoder struct{}

func (fakeEncoder) Dimension() int { return 3 }
func (fakeEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}
func (fakeEncoder) EncodeBatch(ctx context.Context, texts []string, lang embedding.Lang) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeAdapter struct {
	llm.Adapter
	nodes []types.GraphNode
	edges []types.GraphEdge
	err   error
}

func (f *fakeAdapter) ExtractGraphComponents(ctx context.Context, text, sourceID, brainID string) ([]types.GraphNode, []types.GraphEdge, error) {
	return f.nodes, f.edges, f.err
}

func newTestPipeline(t *testing.T, index *fakeIndex, store *fakeStore, ex *fakeExtractor) Pipeline {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	p, err := New(log, index, store, ex, fakeEncoder{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func sampleExtraction() *fakeExtractor {
	return &fakeExtractor{
		nodes: []types.GraphNode{
			{Name: "Alice", Label: "Alice", BrainID: "7", Descriptions: []types.Description{{Description: "Leads.", SourceID: "3"}}},
		},
		edges: []types.GraphEdge{
			{Source: "Alice", Target: "Team", Relation: "leads", BrainID: "7"},
		},
		points: []types.VectorPoint{
			{ID: "p-1", Vector: []float32{1, 2, 3}, Name: "Alice", SourceID: "3", BrainID: "7"},
		},
	}
}

func TestProcessOrdersGraphBeforeVector(t *testing.T) {
	index := &fakeIndex{}
	store := &fakeStore{calls: index}
	p := newTestPipeline(t, index, store, sampleExtraction())

	summary, err := p.Process(context.Background(), "7", "3", "text", ModeRule, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Nodes != 1 || summary.Edges != 1 || summary.Points != 1 {
		t.Fatalf("summary: got=%+v", summary)
	}
	want := []string{"ensure", "graph", "vector"}
	if len(index.calls) != 3 {
		t.Fatalf("call order: want=%v got=%v", want, index.calls)
	}
	for i, c := range want {
		if index.calls[i] != c {
			t.Fatalf("call order: want=%v got=%v", want, index.calls)
		}
	}
}

func TestProcessDedupsPointIDsPerCall(t *testing.T) {
	ex := sampleExtraction()
	ex.points = append(ex.points, ex.points[0])
	index := &fakeIndex{}
	p := newTestPipeline(t, index, &fakeStore{calls: index}, ex)

	summary, err := p.Process(context.Background(), "7", "3", "text", ModeRule, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Points != 1 {
		t.Fatalf("point dedup: want=1 got=%d", summary.Points)
	}
	if len(index.upserted[0]) != 1 {
		t.Fatalf("upserted points: want=1 got=%d", len(index.upserted[0]))
	}
}

func TestProcessVectorFailureIsPartialPersistence(t *testing.T) {
	index := &fakeIndex{upsertErr: errors.New("qdrant down")}
	store := &fakeStore{calls: index}
	p := newTestPipeline(t, index, store, sampleExtraction())

	summary, err := p.Process(context.Background(), "7", "3", "text", ModeRule, nil)
	if !errors.Is(err, pkgerrors.ErrPartialPersistence) {
		t.Fatalf("want ErrPartialPersistence, got=%v", err)
	}
	if summary.Nodes != 1 {
		t.Fatalf("summary must survive partial persistence, got=%+v", summary)
	}
	if len(store.nodes) != 1 {
		t.Fatalf("graph write must have committed")
	}
}

func TestProcessGraphFailureAbortsBeforeVector(t *testing.T) {
	index := &fakeIndex{}
	store := &fakeStore{calls: index, err: errors.New("neo4j down")}
	p := newTestPipeline(t, index, store, sampleExtraction())

	if _, err := p.Process(context.Background(), "7", "3", "text", ModeRule, nil); err == nil {
		t.Fatalf("graph failure must surface")
	}
	for _, c := range index.calls {
		if c == "vector" {
			t.Fatalf("vector upsert must not run after a graph failure")
		}
	}
}

func TestProcessLLMModeBuildsPoints(t *testing.T) {
	index := &fakeIndex{}
	store := &fakeStore{calls: index}
	p := newTestPipeline(t, index, store, sampleExtraction())

	adapter := &fakeAdapter{
		nodes: []types.GraphNode{
			{Name: "Neo4j", Label: "tool", BrainID: "7", Descriptions: []types.Description{{Description: "Graph database.", SourceID: "3"}}},
			{Name: "Qdrant", Label: "tool", BrainID: "7", Descriptions: []types.Description{{Description: "Vector database.", SourceID: "3"}}},
		},
		edges: []types.GraphEdge{{Source: "Neo4j", Target: "Qdrant", Relation: "pairs with", BrainID: "7"}},
	}
	summary, err := p.Process(context.Background(), "7", "3", "text", ModeLLM, adapter)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Nodes != 2 || summary.Points != 2 {
		t.Fatalf("summary: got=%+v", summary)
	}
	points := index.upserted[0]
	ids := map[string]struct{}{}
	for _, pt := range points {
		if pt.ID == "" {
			t.Fatalf("llm point missing id")
		}
		ids[pt.ID] = struct{}{}
		if pt.BrainID != "7" || pt.SourceID != "3" {
			t.Fatalf("llm point scope: got=%+v", pt)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("llm point ids must be unique")
	}
}

func TestProcessLLMModeWithoutAdapterFallsBackToRule(t *testing.T) {
	index := &fakeIndex{}
	store := &fakeStore{calls: index}
	p := newTestPipeline(t, index, store, sampleExtraction())

	summary, err := p.Process(context.Background(), "7", "3", "text", ModeLLM, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Nodes != 1 {
		t.Fatalf("rule fallback summary: got=%+v", summary)
	}
}

func TestProcessValidatesScope(t *testing.T) {
	index := &fakeIndex{}
	p := newTestPipeline(t, index, &fakeStore{calls: index}, sampleExtraction())
	if _, err := p.Process(context.Background(), "", "3", "text", ModeRule, nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got=%v", err)
	}
}
