package extractor

const (
	chunkMaxDepth       = 5
	chunkTokenFloor     = 700
	chunkBaseThreshold  = 0.6
	chunkThresholdGrow  = 1.1
	chunkDescTokenLimit = 30
	chunkTopics         = 4
)

// leafChunk is one terminal group of sentence indices. Descriptive leaves
// carry no keyword of their own; their sentences attach to the parent node as
// extra descriptions.
type leafChunk struct {
	Keyword     string
	Parent      string
	Sentences   []int
	Descriptive bool
}

type chunkEdge struct {
	Parent string
	Child  string
}

type chunkResult struct {
	Root   string
	Leaves []leafChunk
	Edges  []chunkEdge
}

// chunkSentences runs the recursive topical chunking over the tokenized
// sentences. Every input index lands in exactly one leaf; recursion is bounded
// by the depth/token floor and by a no-progress guard when grouping cannot
// split further.
func chunkSentences(sentences []string, tokens [][]string) chunkResult {
	c := &chunker{
		sentences: sentences,
		tokens:    tokens,
		used:      map[string]struct{}{},
	}
	all := make([]int, len(sentences))
	for i := range all {
		all[i] = i
	}
	c.descend(all, "", "", 0, chunkBaseThreshold)
	return chunkResult{Root: c.root, Leaves: c.leaves, Edges: c.edges}
}

type chunker struct {
	sentences []string
	tokens    [][]string
	used      map[string]struct{}
	root      string
	leaves    []leafChunk
	edges     []chunkEdge
}

func (c *chunker) descend(idx []int, keyword, parent string, depth int, threshold float64) {
	if len(idx) == 0 {
		return
	}
	docs := make([][]string, len(idx))
	for i, s := range idx {
		docs[i] = c.tokens[s]
	}
	var model *topicModel
	if depth == 0 {
		model = fitTopics(docs, chunkTopics)
		keyword = model.topTerm(model.topTopic())
		c.root = keyword
		if keyword != "" {
			c.used[keyword] = struct{}{}
		}
	}

	total := c.totalTokens(idx)
	if len(idx) == 1 || (depth > chunkMaxDepth && total < chunkTokenFloor) {
		c.emitLeaf(idx, keyword, parent)
		return
	}
	if model == nil {
		model = fitTopics(docs, chunkTopics)
	}

	groups := c.group(idx, model, threshold)
	if len(groups) == 1 && len(groups[0]) == len(idx) && depth > 0 {
		// Grouping made no progress; force a leaf so recursion terminates.
		c.emitLeaf(idx, keyword, parent)
		return
	}

	groupDocs := make([][]string, len(groups))
	for g, members := range groups {
		var doc []string
		for _, s := range members {
			doc = append(doc, c.tokens[s]...)
		}
		groupDocs[g] = doc
	}
	tfidf := fitTFIDF(groupDocs)

	for g, members := range groups {
		rep := tfidf.representative(groupDocs[g], c.used)
		if rep == "" {
			if c.totalTokens(members) < chunkDescTokenLimit {
				c.leaves = append(c.leaves, leafChunk{
					Keyword:     keyword,
					Parent:      keyword,
					Sentences:   members,
					Descriptive: true,
				})
				continue
			}
			c.emitLeaf(members, keyword, parent)
			continue
		}
		c.used[rep] = struct{}{}
		c.edges = append(c.edges, chunkEdge{Parent: keyword, Child: rep})
		c.descend(members, rep, keyword, depth+1, threshold*chunkThresholdGrow)
	}
}

// group scans left to right over the topic vectors; a sentence joins the open
// group iff its cosine to at least one member clears the threshold.
func (c *chunker) group(idx []int, model *topicModel, threshold float64) [][]int {
	var groups [][]int
	var current []int
	var currentVecs [][]float64
	for i, s := range idx {
		vec := model.docTopics[i]
		if len(current) == 0 {
			current = []int{s}
			currentVecs = [][]float64{vec}
			continue
		}
		joined := false
		for _, member := range currentVecs {
			if cosine(vec, member) >= threshold {
				joined = true
				break
			}
		}
		if joined {
			current = append(current, s)
			currentVecs = append(currentVecs, vec)
			continue
		}
		groups = append(groups, current)
		current = []int{s}
		currentVecs = [][]float64{vec}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func (c *chunker) emitLeaf(idx []int, keyword, parent string) {
	c.leaves = append(c.leaves, leafChunk{Keyword: keyword, Parent: parent, Sentences: idx})
}

func (c *chunker) totalTokens(idx []int) int {
	total := 0
	for _, s := range idx {
		total += tokenWords(c.sentences[s])
	}
	return total
}
