package embedding

import (
	"context"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/platform/logger"
)

type fakeBackend struct {
	calls map[string][][]string
}

func (f *fakeBackend) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if f.calls == nil {
		f.calls = map[string][][]string{}
	}
	f.calls[model] = append(f.calls[model], append([]string{}, inputs...))
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(len(inputs[i])), 1, 2}
	}
	return out, nil
}

func newTestEncoder(t *testing.T, backend Backend) *routedEncoder {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return &routedEncoder{
		log:     log,
		backend: backend,
		koModel: "ko-model",
		enModel: "en-model",
		dim:     3,
	}
}

func TestDetectScript(t *testing.T) {
	cases := []struct {
		text string
		want Lang
	}{
		{"그래프 데이터베이스", LangKorean},
		{"graph database", LangEnglish},
		{"Neo4j는 그래프 DB이다", LangKorean},
		{"1234 !!", LangAuto},
	}
	for _, tc := range cases {
		if got := detectScript(tc.text); got != tc.want {
			t.Fatalf("detectScript(%q): want=%q got=%q", tc.text, tc.want, got)
		}
	}
}

func TestEncodeBatchRoutesByScriptAndPreservesOrder(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEncoder(t, backend)

	texts := []string{"그래프", "graph store", "", "노드와 엣지"}
	vecs, err := e.EncodeBatch(context.Background(), texts, LangAuto)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if len(vecs) != 4 {
		t.Fatalf("vectors length: want=4 got=%d", len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			t.Fatalf("vector %d missing", i)
		}
	}

	// Empty input maps to the null embedding, not an error.
	for _, x := range vecs[2] {
		if x != 0 {
			t.Fatalf("empty input must yield the null vector, got=%v", vecs[2])
		}
	}

	if len(backend.calls["ko-model"]) != 1 || len(backend.calls["en-model"]) != 1 {
		t.Fatalf("model call counts: ko=%d en=%d", len(backend.calls["ko-model"]), len(backend.calls["en-model"]))
	}
	ko := backend.calls["ko-model"][0]
	if len(ko) != 2 || ko[0] != "그래프" || ko[1] != "노드와 엣지" {
		t.Fatalf("korean batch: got=%v", ko)
	}
	en := backend.calls["en-model"][0]
	if len(en) != 1 || en[0] != "graph store" {
		t.Fatalf("english batch: got=%v", en)
	}
}

func TestEncodeBatchExplicitLanguageSkipsDetection(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEncoder(t, backend)

	_, err := e.EncodeBatch(context.Background(), []string{"graph", "store"}, LangKorean)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if len(backend.calls["ko-model"]) != 1 {
		t.Fatalf("expected single korean batch, got=%v", backend.calls)
	}
	if len(backend.calls["en-model"]) != 0 {
		t.Fatalf("english model must not be called for an explicit korean batch")
	}
}

func TestEncodeUsesAutoRouting(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEncoder(t, backend)

	vec, err := e.Encode(context.Background(), "지식 그래프")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("vector length: want=3 got=%d", len(vec))
	}
	if len(backend.calls["ko-model"]) != 1 {
		t.Fatalf("expected korean model call, got=%v", backend.calls)
	}
}

func TestCacheKeyIsModelScoped(t *testing.T) {
	a := cacheKey("ko-model", "text")
	b := cacheKey("en-model", "text")
	if a == b {
		t.Fatalf("cache keys must differ per model")
	}
}
