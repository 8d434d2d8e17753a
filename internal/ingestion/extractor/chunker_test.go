package extractor

import (
	"fmt"
	"reflect"
	"sort"
	"testing"
)

func tokenizeAll(sentences []string) [][]string {
	tokens := make([][]string, len(sentences))
	for i, s := range sentences {
		tokens[i] = Tokenize(s)
	}
	return tokens
}

func TestFitTopicsDeterministic(t *testing.T) {
	docs := [][]string{
		{"graph", "node", "edge"},
		{"vector", "index", "search"},
		{"graph", "query", "traversal"},
		{"vector", "embedding", "search"},
	}
	a := fitTopics(docs, 2)
	b := fitTopics(docs, 2)
	if !reflect.DeepEqual(a.docTopics, b.docTopics) {
		t.Fatalf("topic distributions differ across runs")
	}
	if a.topTerm(a.topTopic()) != b.topTerm(b.topTopic()) {
		t.Fatalf("top term differs across runs")
	}
}

func TestFitTopicsEmptyVocabulary(t *testing.T) {
	m := fitTopics([][]string{{}, {}}, 3)
	if len(m.docTopics) != 2 {
		t.Fatalf("doc distributions: want=2 got=%d", len(m.docTopics))
	}
	for _, dist := range m.docTopics {
		if len(dist) != 3 {
			t.Fatalf("distribution width: want=3 got=%d", len(dist))
		}
	}
	if m.topTerm(m.topTopic()) != "" {
		t.Fatalf("empty vocabulary must yield no top term")
	}
}

func TestChunkerPartitionsSentenceIndices(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, fmt.Sprintf("sentence number %d talks about topic%d extensively today.", i, i%4))
	}
	result := chunkSentences(sentences, tokenizeAll(sentences))

	var covered []int
	for _, leaf := range result.Leaves {
		covered = append(covered, leaf.Sentences...)
	}
	sort.Ints(covered)
	if len(covered) != len(sentences) {
		t.Fatalf("leaf coverage: want=%d indices got=%d", len(sentences), len(covered))
	}
	for i, idx := range covered {
		if idx != i {
			t.Fatalf("index %d missing or duplicated in leaves", i)
		}
	}
}

func TestChunkerSingleSentence(t *testing.T) {
	sentences := []string{"graph stores keep relationships explicit in the data model."}
	result := chunkSentences(sentences, tokenizeAll(sentences))
	if len(result.Leaves) != 1 {
		t.Fatalf("leaf count: want=1 got=%d", len(result.Leaves))
	}
	if result.Root == "" {
		t.Fatalf("root keyword missing for a single-sentence document")
	}
	if result.Leaves[0].Keyword != result.Root {
		t.Fatalf("single leaf must carry the root keyword")
	}
}

func TestChunkerDeterministicModuloNothing(t *testing.T) {
	sentences := []string{
		"그래프 데이터베이스는 노드와 엣지로 지식을 저장한다.",
		"벡터 인덱스는 임베딩 기반 유사도 검색을 제공한다.",
		"그래프 질의는 관계를 직접 탐색한다.",
		"임베딩 모델은 문장을 고정 차원 벡터로 변환한다.",
	}
	tokens := tokenizeAll(sentences)
	a := chunkSentences(sentences, tokens)
	b := chunkSentences(sentences, tokens)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("chunking must be deterministic for identical input")
	}
}

func TestChunkerRepresentativesUnique(t *testing.T) {
	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, fmt.Sprintf("item %d covers subject%d and subject%d in depth here.", i, i%3, (i+1)%3))
	}
	result := chunkSentences(sentences, tokenizeAll(sentences))

	seen := map[string]int{}
	for _, e := range result.Edges {
		seen[e.Child]++
	}
	for kw, n := range seen {
		if n > 1 {
			t.Fatalf("representative %q assigned to %d groups", kw, n)
		}
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors: want≈1 got=%v", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors: want=0 got=%v", got)
	}
	if got := cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("zero vector: want=0 got=%v", got)
	}
}

func TestTFIDFRepresentativeSkipsUsedTerms(t *testing.T) {
	docs := [][]string{
		{"graph", "graph", "node"},
		{"vector", "vector", "index"},
	}
	m := fitTFIDF(docs)
	used := map[string]struct{}{"graph": {}}
	if got := m.representative(docs[0], used); got != "node" {
		t.Fatalf("representative: want=node got=%q", got)
	}
	if got := m.representative(docs[1], used); got != "vector" {
		t.Fatalf("representative: want=vector got=%q", got)
	}
	exhausted := map[string]struct{}{"vector": {}, "index": {}}
	if got := m.representative(docs[1], exhausted); got != "" {
		t.Fatalf("exhausted candidates must yield empty, got=%q", got)
	}
}

func TestTFIDFRankOrdering(t *testing.T) {
	docs := [][]string{
		{"shared", "rare"},
		{"shared", "common"},
		{"shared", "common"},
	}
	m := fitTFIDF(docs)
	ranked := m.rank(docs[0])
	if len(ranked) != 2 {
		t.Fatalf("rank length: want=2 got=%d", len(ranked))
	}
	if ranked[0].term != "rare" {
		t.Fatalf("rarest term must rank first, got=%q", ranked[0].term)
	}
}
