package answer

import (
	"math"
	"strings"

	"github.com/yungbote/braingraph-backend/internal/llm"
)

const (
	accuracyWeightQ = 0.2
	accuracyWeightS = 0.7
	accuracyWeightC = 0.1
)

// Accuracy combines retrieval quality Q, answer-context similarity S and
// citation coverage C, clamped to [0,1] and rounded to 3 decimals.
func Accuracy(q, s, c float64) float64 {
	v := accuracyWeightQ*q + accuracyWeightS*s + accuracyWeightC*c
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return math.Round(v*1000) / 1000
}

// Coverage is |referenced ∩ provided| / |provided| over names normalized by
// stripping label prefixes and whitespace. Empty provided set yields 0.
func Coverage(referenced, provided []string) float64 {
	if len(provided) == 0 {
		return 0
	}
	providedSet := make(map[string]struct{}, len(provided))
	for _, name := range provided {
		if n := normalizeName(name); n != "" {
			providedSet[n] = struct{}{}
		}
	}
	if len(providedSet) == 0 {
		return 0
	}
	hit := map[string]struct{}{}
	for _, name := range referenced {
		n := normalizeName(name)
		if _, ok := providedSet[n]; ok {
			hit[n] = struct{}{}
		}
	}
	return float64(len(hit)) / float64(len(providedSet))
}

func normalizeName(name string) string {
	return strings.TrimSpace(llm.StripLabelPrefix(name))
}

// CosineSimilarity over float32 vectors; zero for mismatched or zero-norm
// inputs. Negative similarities clamp to 0 so S stays in [0,1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
