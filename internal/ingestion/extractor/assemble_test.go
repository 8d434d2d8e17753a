package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/embedding"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
)

type fakeEncoder struct {
	dim  int
	fail bool
}

func (f *fakeEncoder) Dimension() int { return f.dim }

func (f *fakeEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EncodeBatch(ctx, []string{text}, embedding.LangAuto)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEncoder) EncodeBatch(ctx context.Context, texts []string, lang embedding.Lang) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding daemon down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func newTestExtractor(t *testing.T, enc embedding.Encoder) Extractor {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return NewRuleExtractor(log, enc)
}

func TestAssembleCoOccurrenceRelation(t *testing.T) {
	sentences := []string{
		"alpha works closely with beta on every deployment.",
		"gamma runs alone without any partners at all.",
	}
	if got := coOccurringSentence("alpha", "beta", sentences); got != sentences[0] {
		t.Fatalf("co-occurring sentence: want=%q got=%q", sentences[0], got)
	}
	if got := coOccurringSentence("alpha", "gamma", sentences); got != "" {
		t.Fatalf("no co-occurrence expected, got=%q", got)
	}
}

func TestAssembleCapsHighlights(t *testing.T) {
	result := chunkResult{
		Root: "graph",
		Leaves: []leafChunk{
			{Keyword: "graph", Sentences: []int{0, 1, 2, 3, 4, 5, 6}},
		},
	}
	sentences := make([]string, 7)
	for i := range sentences {
		sentences[i] = "graph usage example number " + string(rune('a'+i)) + " appears here."
	}
	highlights := collectHighlights(result, sentences)
	if len(highlights["graph"]) != maxHighlights {
		t.Fatalf("highlight cap: want=%d got=%d", maxHighlights, len(highlights["graph"]))
	}
}

func TestAssembleDescriptiveLeafFeedsParent(t *testing.T) {
	result := chunkResult{
		Root: "graph",
		Leaves: []leafChunk{
			{Keyword: "graph", Sentences: []int{0}},
			{Keyword: "graph", Parent: "graph", Sentences: []int{1}, Descriptive: true},
		},
	}
	sentences := []string{
		"graph stores keep relationships explicit.",
		"short aside without the main term.",
	}
	highlights := collectHighlights(result, sentences)
	if len(highlights["graph"]) != 2 {
		t.Fatalf("parent highlights: want=2 got=%d", len(highlights["graph"]))
	}
}

func TestExtractProducesNodesEdgesPoints(t *testing.T) {
	enc := &fakeEncoder{dim: 4}
	ex := newTestExtractor(t, enc)

	text := "Graph Overview\n" +
		"Graph databases store entities as nodes with typed relationships between them.\n" +
		"Vector indexes store embeddings and answer similarity searches quickly.\n" +
		"Graph queries traverse relationships while vector queries rank by distance.\n" +
		"Embedding models turn sentences into fixed dimension vectors for the index."
	nodes, _, points, err := ex.Extract(context.Background(), text, "7", "3")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(nodes) == 0 {
		t.Fatalf("no nodes extracted")
	}
	if len(points) != len(nodes) {
		t.Fatalf("one vector point per node: nodes=%d points=%d", len(nodes), len(points))
	}
	seen := map[string]struct{}{}
	for i, p := range points {
		if p.ID == "" {
			t.Fatalf("point %d missing id", i)
		}
		if _, dup := seen[p.ID]; dup {
			t.Fatalf("duplicate point id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.BrainID != "7" || p.SourceID != "3" {
			t.Fatalf("point scope: got brain=%q source=%q", p.BrainID, p.SourceID)
		}
		if len(p.Vector) != 4 {
			t.Fatalf("point vector dimension: want=4 got=%d", len(p.Vector))
		}
		if p.FormatIndex != i {
			t.Fatalf("format index: want=%d got=%d", i, p.FormatIndex)
		}
	}
	for _, n := range nodes {
		if n.BrainID != "7" {
			t.Fatalf("node brain scope: got=%q", n.BrainID)
		}
		if len(n.Descriptions) == 0 {
			t.Fatalf("node %q has no descriptions", n.Name)
		}
		for _, s := range n.OriginalSentences {
			if s.Score == nil || *s.Score != 1.0 {
				t.Fatalf("highlighted sentence score must be 1.0")
			}
			if s.SourceID != "3" {
				t.Fatalf("sentence source: got=%q", s.SourceID)
			}
		}
	}
}

func TestExtractEmptyTextFails(t *testing.T) {
	ex := newTestExtractor(t, &fakeEncoder{dim: 4})
	_, _, _, err := ex.Extract(context.Background(), "   \n  ", "7", "3")
	if !errors.Is(err, pkgerrors.ErrExtraction) {
		t.Fatalf("want ErrExtraction, got=%v", err)
	}
}

func TestExtractWrapsEmbeddingFailure(t *testing.T) {
	ex := newTestExtractor(t, &fakeEncoder{dim: 4, fail: true})
	text := "Graph databases store entities as nodes with typed relationships between them.\n" +
		"Vector indexes store embeddings and answer similarity searches quickly."
	_, _, _, err := ex.Extract(context.Background(), text, "7", "3")
	if !errors.Is(err, pkgerrors.ErrExtraction) {
		t.Fatalf("want ErrExtraction, got=%v", err)
	}
}

func TestExtractDeterministicModuloUUIDs(t *testing.T) {
	text := "Graph databases store entities as nodes with typed relationships between them.\n" +
		"Vector indexes store embeddings and answer similarity searches quickly.\n" +
		"Graph queries traverse relationships while vector queries rank by distance."
	ex := newTestExtractor(t, &fakeEncoder{dim: 4})

	nodesA, edgesA, _, err := ex.Extract(context.Background(), text, "7", "3")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	nodesB, edgesB, _, err := ex.Extract(context.Background(), text, "7", "3")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(nodesA) != len(nodesB) || len(edgesA) != len(edgesB) {
		t.Fatalf("extraction not deterministic: nodes %d/%d edges %d/%d", len(nodesA), len(nodesB), len(edgesA), len(edgesB))
	}
	for i := range nodesA {
		if nodesA[i].Name != nodesB[i].Name {
			t.Fatalf("node order differs: %q vs %q", nodesA[i].Name, nodesB[i].Name)
		}
	}
	for i := range edgesA {
		if edgesA[i] != edgesB[i] {
			t.Fatalf("edge %d differs: %+v vs %+v", i, edgesA[i], edgesB[i])
		}
	}
}
