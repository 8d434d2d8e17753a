package extractor

import (
	"math"
	"math/rand"
	"sort"
)

const (
	ldaSeed       = 42
	ldaIterations = 50
	ldaAlpha      = 0.1
	ldaBeta       = 0.01
)

// topicModel is a small collapsed-Gibbs LDA fit over the sentence token
// lists. Fixed seed, sorted vocabulary, and in-order sweeps keep the fit
// deterministic for identical input.
type topicModel struct {
	k         int
	vocab     []string
	vocabIdx  map[string]int
	docTopics [][]float64
	topicTerm [][]float64
	topicMass []float64
}

func fitTopics(docs [][]string, k int) *topicModel {
	if k < 1 {
		k = 1
	}

	vocabSet := map[string]struct{}{}
	for _, doc := range docs {
		for _, term := range doc {
			vocabSet[term] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(vocabSet))
	for term := range vocabSet {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	vocabIdx := make(map[string]int, len(vocab))
	for i, term := range vocab {
		vocabIdx[term] = i
	}

	m := &topicModel{
		k:        k,
		vocab:    vocab,
		vocabIdx: vocabIdx,
	}
	v := len(vocab)
	if v == 0 {
		m.docTopics = make([][]float64, len(docs))
		for i := range m.docTopics {
			m.docTopics[i] = uniformTopics(k)
		}
		m.topicTerm = make([][]float64, k)
		m.topicMass = make([]float64, k)
		return m
	}

	// word assignments
	words := make([][]int, len(docs))
	assign := make([][]int, len(docs))
	docTopicCt := make([][]int, len(docs))
	topicTermCt := make([][]int, k)
	topicCt := make([]int, k)
	for t := 0; t < k; t++ {
		topicTermCt[t] = make([]int, v)
	}

	rng := rand.New(rand.NewSource(ldaSeed))
	for d, doc := range docs {
		words[d] = make([]int, len(doc))
		assign[d] = make([]int, len(doc))
		docTopicCt[d] = make([]int, k)
		for i, term := range doc {
			w := vocabIdx[term]
			t := rng.Intn(k)
			words[d][i] = w
			assign[d][i] = t
			docTopicCt[d][t]++
			topicTermCt[t][w]++
			topicCt[t]++
		}
	}

	probs := make([]float64, k)
	for iter := 0; iter < ldaIterations; iter++ {
		for d := range docs {
			for i := range words[d] {
				w := words[d][i]
				old := assign[d][i]
				docTopicCt[d][old]--
				topicTermCt[old][w]--
				topicCt[old]--

				total := 0.0
				for t := 0; t < k; t++ {
					p := (float64(docTopicCt[d][t]) + ldaAlpha) *
						(float64(topicTermCt[t][w]) + ldaBeta) /
						(float64(topicCt[t]) + ldaBeta*float64(v))
					probs[t] = p
					total += p
				}
				u := rng.Float64() * total
				next := 0
				acc := 0.0
				for t := 0; t < k; t++ {
					acc += probs[t]
					if u <= acc {
						next = t
						break
					}
				}

				assign[d][i] = next
				docTopicCt[d][next]++
				topicTermCt[next][w]++
				topicCt[next]++
			}
		}
	}

	m.docTopics = make([][]float64, len(docs))
	for d := range docs {
		dist := make([]float64, k)
		total := float64(len(words[d])) + ldaAlpha*float64(k)
		for t := 0; t < k; t++ {
			dist[t] = (float64(docTopicCt[d][t]) + ldaAlpha) / total
		}
		m.docTopics[d] = dist
	}

	m.topicTerm = make([][]float64, k)
	m.topicMass = make([]float64, k)
	for t := 0; t < k; t++ {
		m.topicTerm[t] = make([]float64, v)
		for w := 0; w < v; w++ {
			m.topicTerm[t][w] = float64(topicTermCt[t][w])
		}
		m.topicMass[t] = float64(topicCt[t])
	}
	return m
}

func uniformTopics(k int) []float64 {
	dist := make([]float64, k)
	for i := range dist {
		dist[i] = 1 / float64(k)
	}
	return dist
}

// topTopic is the topic with the largest assignment mass; ties break on the
// lower index.
func (m *topicModel) topTopic() int {
	best := 0
	for t := 1; t < m.k; t++ {
		if m.topicMass[t] > m.topicMass[best] {
			best = t
		}
	}
	return best
}

// topTerm is the heaviest vocabulary term of a topic, ties breaking on the
// sorted vocabulary order.
func (m *topicModel) topTerm(topic int) string {
	if topic < 0 || topic >= m.k || len(m.vocab) == 0 {
		return ""
	}
	best := 0
	for w := 1; w < len(m.vocab); w++ {
		if m.topicTerm[topic][w] > m.topicTerm[topic][best] {
			best = w
		}
	}
	return m.vocab[best]
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
