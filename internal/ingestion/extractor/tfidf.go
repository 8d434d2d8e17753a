package extractor

import (
	"math"
	"sort"
)

// tfidfModel scores terms per document over a small corpus of token lists.
// IDF = log(N/df); ranking ties break on the term string so representative
// selection is deterministic.
type tfidfModel struct {
	idf map[string]float64
}

func fitTFIDF(docs [][]string) *tfidfModel {
	docFreq := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}
	idf := make(map[string]float64, len(docFreq))
	n := float64(len(docs))
	for term, df := range docFreq {
		idf[term] = math.Log(n/float64(df)) + 1
	}
	return &tfidfModel{idf: idf}
}

type termScore struct {
	term  string
	score float64
}

// rank returns the document's terms ordered by descending TF-IDF weight.
func (m *tfidfModel) rank(doc []string) []termScore {
	if len(doc) == 0 {
		return nil
	}
	tf := map[string]int{}
	for _, term := range doc {
		tf[term]++
	}
	scores := make([]termScore, 0, len(tf))
	for term, freq := range tf {
		idf, ok := m.idf[term]
		if !ok {
			idf = 1
		}
		scores = append(scores, termScore{term: term, score: float64(freq) * idf})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score == scores[j].score {
			return scores[i].term < scores[j].term
		}
		return scores[i].score > scores[j].score
	})
	return scores
}

// representative picks the highest-ranked term of the document not yet
// claimed by another group. Empty when every candidate is taken.
func (m *tfidfModel) representative(doc []string, used map[string]struct{}) string {
	for _, ts := range m.rank(doc) {
		if _, taken := used[ts.term]; taken {
			continue
		}
		return ts.term
	}
	return ""
}
