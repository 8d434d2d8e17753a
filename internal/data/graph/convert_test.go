package graph

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/types"
)

func encodeOne(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestMergeDescriptionsDedupsExactRecords(t *testing.T) {
	existing := []string{
		encodeOne(t, types.Description{Description: "a graph database", SourceID: "1"}),
	}
	additions := []types.Description{
		{Description: "a graph database", SourceID: "1"},
		{Description: "a graph database", SourceID: "2"},
		{Description: "stores relationships", SourceID: "1"},
	}

	merged := mergeDescriptions(existing, additions)
	if len(merged) != 3 {
		t.Fatalf("merged length: want=3 got=%d", len(merged))
	}

	decoded := decodeDescriptions(merged)
	if decoded[0].SourceID != "1" || decoded[0].Description != "a graph database" {
		t.Fatalf("existing record must stay first, got %+v", decoded[0])
	}
	if decoded[1].SourceID != "2" {
		t.Fatalf("same text from a new source must survive, got %+v", decoded[1])
	}
}

func TestMergeSentencesDedupsByText(t *testing.T) {
	score := 0.9
	existing := []string{
		encodeOne(t, types.OriginalSentence{OriginalSentence: "Neo4j는 그래프 데이터베이스이다.", SourceID: "1"}),
	}
	additions := []types.OriginalSentence{
		{OriginalSentence: "Neo4j는 그래프 데이터베이스이다.", SourceID: "2", Score: &score},
		{OriginalSentence: "관계를 저장한다.", SourceID: "2", Score: &score},
		{OriginalSentence: "", SourceID: "2"},
	}

	merged := mergeSentences(existing, additions)
	if len(merged) != 2 {
		t.Fatalf("merged length: want=2 got=%d", len(merged))
	}
	decoded := decodeSentences(merged)
	if decoded[0].SourceID != "1" {
		t.Fatalf("existing sentence wins over same text from another source, got %+v", decoded[0])
	}
	if decoded[1].OriginalSentence != "관계를 저장한다." {
		t.Fatalf("new sentence appended, got %+v", decoded[1])
	}
}

func TestHasNonEmptyDescription(t *testing.T) {
	onlyEmpty := []string{
		encodeOne(t, types.Description{Description: "", SourceID: "1"}),
	}
	if hasNonEmptyDescription(onlyEmpty) {
		t.Fatalf("empty-only records must report false")
	}
	mixed := append(onlyEmpty, encodeOne(t, types.Description{Description: "x", SourceID: "1"}))
	if !hasNonEmptyDescription(mixed) {
		t.Fatalf("non-empty record must report true")
	}
}

func TestFilterEncodedBySource(t *testing.T) {
	encoded := []string{
		encodeOne(t, types.Description{Description: "a", SourceID: "1"}),
		encodeOne(t, types.Description{Description: "b", SourceID: "2"}),
		encodeOne(t, types.Description{Description: "c", SourceID: "1"}),
	}
	kept, dropped := filterEncodedBySource(encoded, "1", descriptionSourceID)
	if dropped != 2 {
		t.Fatalf("dropped: want=2 got=%d", dropped)
	}
	if len(kept) != 1 || descriptionSourceID(kept[0]) != "2" {
		t.Fatalf("kept records wrong: %v", kept)
	}
}

func TestNodeFromPropsLabelFallback(t *testing.T) {
	props := map[string]any{
		"name":     "Neo4j",
		"brain_id": "7",
		"descriptions": []any{
			encodeOne(t, types.Description{Description: "graph db", SourceID: "3"}),
		},
	}
	node := nodeFromProps(props)
	if node.Label != "Neo4j" {
		t.Fatalf("label fallback: want=Neo4j got=%q", node.Label)
	}
	if len(node.Descriptions) != 1 || node.Descriptions[0].SourceID != "3" {
		t.Fatalf("descriptions not decoded: %+v", node.Descriptions)
	}
}

func TestBrainKey(t *testing.T) {
	if got := BrainKey(42); got != "42" {
		t.Fatalf("brain key: want=42 got=%q", got)
	}
}
