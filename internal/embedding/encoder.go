package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/braingraph-backend/internal/platform/envutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
)

// Lang tags the routed embedding model for a batch.
type Lang string

const (
	LangKorean  Lang = "ko"
	LangEnglish Lang = "en"
	LangAuto    Lang = "auto"
)

// Encoder maps text to fixed-dimension vectors. The empty string encodes to
// the null embedding (all zeros, dimension D) and never errors.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string, lang Lang) ([][]float32, error)
	Dimension() int
}

// Backend is the embedding daemon call: one daemon, addressed by model name.
// Both the ollama and openai platform clients satisfy it.
type Backend interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

type routedEncoder struct {
	log     *logger.Logger
	backend Backend
	koModel string
	enModel string
	dim     int

	cache    *goredis.Client
	cacheTTL time.Duration
}

func NewRoutedEncoder(log *logger.Logger, backend Backend) (Encoder, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if backend == nil {
		return nil, fmt.Errorf("embedding backend required")
	}

	e := &routedEncoder{
		log:     log.With("service", "RoutedEncoder"),
		backend: backend,
		koModel: envutil.String("EMBED_MODEL_KO", "bge-m3"),
		enModel: envutil.String("EMBED_MODEL_EN", "nomic-embed-text"),
		dim:     envutil.Int("EMBED_DIM", 768),
	}

	if addr := envutil.String("REDIS_ADDR", ""); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        addr,
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("embedding cache disabled, redis unreachable", "addr", addr, "error", err)
			_ = rdb.Close()
		} else {
			e.cache = rdb
			e.cacheTTL = time.Duration(envutil.Int("EMBED_CACHE_TTL_SECONDS", 86400)) * time.Second
			log.Info("embedding cache enabled", "addr", addr, "ttl", e.cacheTTL.String())
		}
	}

	return e, nil
}

func (e *routedEncoder) Dimension() int {
	return e.dim
}

func (e *routedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text}, LangAuto)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch returns one vector per input in input order. With LangAuto
// every text is routed individually; with an explicit language the whole
// batch goes to that model.
func (e *routedEncoder) EncodeBatch(ctx context.Context, texts []string, lang Lang) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	// Group pending inputs per model, skipping blanks and cache hits.
	type pending struct {
		indexes []int
		inputs  []string
	}
	byModel := map[string]*pending{}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = e.nullVector()
			continue
		}
		model := e.modelFor(text, lang)
		if cached := e.cacheGet(ctx, model, text); cached != nil {
			out[i] = cached
			continue
		}
		p := byModel[model]
		if p == nil {
			p = &pending{}
			byModel[model] = p
		}
		p.indexes = append(p.indexes, i)
		p.inputs = append(p.inputs, text)
	}

	for model, p := range byModel {
		vecs, err := e.backend.Embed(ctx, model, p.inputs)
		if err != nil {
			return nil, fmt.Errorf("embed batch (model=%s, n=%d): %w", model, len(p.inputs), err)
		}
		if len(vecs) != len(p.inputs) {
			return nil, fmt.Errorf(
				"embed batch size mismatch (model=%s): requested=%d returned=%d",
				model, len(p.inputs), len(vecs),
			)
		}
		for j, idx := range p.indexes {
			out[idx] = vecs[j]
			e.cacheSet(ctx, model, p.inputs[j], vecs[j])
		}
	}

	return out, nil
}

func (e *routedEncoder) modelFor(text string, lang Lang) string {
	switch lang {
	case LangKorean:
		return e.koModel
	case LangEnglish:
		return e.enModel
	}
	switch detectScript(text) {
	case LangEnglish:
		return e.enModel
	default:
		return e.koModel
	}
}

// detectScript picks the dominant script: Hangul wins over Latin, anything
// else falls back to Korean handling.
func detectScript(text string) Lang {
	hangul, latin := 0, 0
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.IsLetter(r) && r < 0x250:
			latin++
		}
	}
	if hangul > 0 {
		return LangKorean
	}
	if latin > 0 {
		return LangEnglish
	}
	return LangAuto
}

func (e *routedEncoder) nullVector() []float32 {
	return make([]float32, e.dim)
}

func cacheKey(model, text string) string {
	sum := sha1.Sum([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

func (e *routedEncoder) cacheGet(ctx context.Context, model, text string) []float32 {
	if e.cache == nil {
		return nil
	}
	raw, err := e.cache.Get(ctx, cacheKey(model, text)).Bytes()
	if err != nil {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
		return nil
	}
	return vec
}

func (e *routedEncoder) cacheSet(ctx context.Context, model, text string, vec []float32) {
	if e.cache == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, cacheKey(model, text), raw, e.cacheTTL).Err(); err != nil {
		e.log.Debug("embedding cache write failed", "error", err)
	}
}
