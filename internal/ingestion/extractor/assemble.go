package extractor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/braingraph-backend/internal/embedding"
	"github.com/yungbote/braingraph-backend/internal/types"
)

const (
	maxHighlights    = 5
	embedWorkers     = 4
	defaultRelation  = "관련"
	highlightedScore = 1.0
)

// assemble turns the chunk tree into graph nodes, edges and vector points.
// One node per keyword; descriptions and original_sentences are the up-to-5
// highlighted sentences; the node vector is the mean of their embeddings.
func assemble(ctx context.Context, enc embedding.Encoder, result chunkResult, sentences []string, brainID, sourceID string) ([]types.GraphNode, []types.GraphEdge, []types.VectorPoint, error) {
	highlights := collectHighlights(result, sentences)
	order := keywordOrder(result)

	nodes := make([]types.GraphNode, 0, len(order))
	for _, kw := range order {
		hs := highlights[kw]
		node := types.GraphNode{
			Name:    kw,
			Label:   kw,
			BrainID: brainID,
		}
		for _, s := range hs {
			score := highlightedScore
			node.Descriptions = append(node.Descriptions, types.Description{
				Description: s,
				SourceID:    sourceID,
			})
			node.OriginalSentences = append(node.OriginalSentences, types.OriginalSentence{
				OriginalSentence: s,
				SourceID:         sourceID,
				Score:            &score,
			})
		}
		nodes = append(nodes, node)
	}

	edges := make([]types.GraphEdge, 0, len(result.Edges))
	seenEdges := map[string]struct{}{}
	for _, e := range result.Edges {
		if e.Parent == "" || e.Child == "" || e.Parent == e.Child {
			continue
		}
		relation := coOccurringSentence(e.Parent, e.Child, sentences)
		if relation == "" {
			relation = defaultRelation
		}
		key := e.Parent + "\x00" + e.Child + "\x00" + relation
		if _, dup := seenEdges[key]; dup {
			continue
		}
		seenEdges[key] = struct{}{}
		edges = append(edges, types.GraphEdge{
			Source:   e.Parent,
			Target:   e.Child,
			Relation: relation,
			BrainID:  brainID,
		})
	}

	vectors := make([][]float32, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for i := range nodes {
		i := i
		g.Go(func() error {
			vec, err := meanEmbedding(gctx, enc, highlights[nodes[i].Name])
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	points := make([]types.VectorPoint, 0, len(nodes))
	for i, node := range nodes {
		desc := ""
		if len(node.Descriptions) > 0 {
			desc = node.Descriptions[0].Description
		}
		points = append(points, types.VectorPoint{
			ID:          uuid.NewString(),
			Vector:      vectors[i],
			Name:        node.Name,
			Description: desc,
			SourceID:    sourceID,
			BrainID:     brainID,
			FormatIndex: i,
		})
	}
	return nodes, edges, points, nil
}

// collectHighlights picks, per keyword, up to 5 of its leaf sentences that
// literally contain the keyword; when none do, the first leaf sentences stand
// in. Descriptive leaves contribute their sentences to the parent keyword.
func collectHighlights(result chunkResult, sentences []string) map[string][]string {
	byKeyword := map[string][]int{}
	for _, leaf := range result.Leaves {
		if leaf.Keyword == "" {
			continue
		}
		byKeyword[leaf.Keyword] = append(byKeyword[leaf.Keyword], leaf.Sentences...)
	}

	out := make(map[string][]string, len(byKeyword))
	for kw, idx := range byKeyword {
		var containing, fallback []string
		for _, s := range idx {
			sentence := sentences[s]
			if containsKeyword(sentence, kw) {
				containing = append(containing, sentence)
			} else {
				fallback = append(fallback, sentence)
			}
		}
		picked := containing
		if len(picked) < maxHighlights {
			picked = append(picked, fallback...)
		}
		if len(picked) > maxHighlights {
			picked = picked[:maxHighlights]
		}
		out[kw] = dedupStrings(picked)
	}
	return out
}

// keywordOrder lists node keywords in discovery order: root first, then each
// edge child, then leaf keywords not reached through an edge.
func keywordOrder(result chunkResult) []string {
	var order []string
	seen := map[string]struct{}{}
	add := func(kw string) {
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		order = append(order, kw)
	}
	add(result.Root)
	for _, e := range result.Edges {
		add(e.Parent)
		add(e.Child)
	}
	for _, leaf := range result.Leaves {
		add(leaf.Keyword)
	}
	return order
}

// coOccurringSentence returns the first sentence mentioning both keywords.
func coOccurringSentence(a, b string, sentences []string) string {
	for _, s := range sentences {
		if containsKeyword(s, a) && containsKeyword(s, b) {
			return s
		}
	}
	return ""
}

func containsKeyword(sentence, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(sentence), strings.ToLower(keyword))
}

func meanEmbedding(ctx context.Context, enc embedding.Encoder, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return make([]float32, enc.Dimension()), nil
	}
	vecs, err := enc.EncodeBatch(ctx, texts, embedding.LangAuto)
	if err != nil {
		return nil, err
	}
	mean := make([]float32, enc.Dimension())
	for _, vec := range vecs {
		for i := range vec {
			if i < len(mean) {
				mean[i] += vec[i]
			}
		}
	}
	n := float32(len(vecs))
	for i := range mean {
		mean[i] /= n
	}
	return mean, nil
}

func dedupStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
