package types

// Canonical graph records. The graph store converts to and from Neo4j value
// objects exactly once at its boundary; everything above works with these.

// Description is one `{description, source_id}` record carried on a node.
// SourceID is a string here because graph and vector payloads store it as
// text; the relational id converts at the orchestrator boundary.
type Description struct {
	Description string `json:"description"`
	SourceID    string `json:"source_id"`
}

// OriginalSentence is one highlighted sentence record carried on a node.
type OriginalSentence struct {
	OriginalSentence string   `json:"original_sentence"`
	SourceID         string   `json:"source_id"`
	Score            *float64 `json:"score,omitempty"`
}

// GraphNode is identified by (Name, BrainID). Label falls back to Name when
// the extractor cannot assign a category.
type GraphNode struct {
	Name              string             `json:"name"`
	Label             string             `json:"label"`
	BrainID           string             `json:"brain_id"`
	Descriptions      []Description      `json:"descriptions"`
	OriginalSentences []OriginalSentence `json:"original_sentences,omitempty"`
}

// GraphEdge is directed and identified by (Source, Target, Relation, BrainID).
type GraphEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	BrainID  string `json:"brain_id"`
}

// VectorPoint is one embedding entry destined for the brain's collection.
type VectorPoint struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SourceID    string    `json:"source_id"`
	BrainID     string    `json:"brain_id"`
	FormatIndex int       `json:"format_index"`
}

// GraphProjection is the full per-brain projection for visualization.
type GraphProjection struct {
	Nodes []GraphProjectionNode `json:"nodes"`
	Links []GraphProjectionLink `json:"links"`
}

type GraphProjectionNode struct {
	Name string `json:"name"`
}

type GraphProjectionLink struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// SchemaResult is the subgraph returned by the schema query: resolved start
// nodes, their related/path nodes, and the relationships among them. Node
// sets are flat lists keyed by name; cycles never form object pointers.
type SchemaResult struct {
	StartNodes    []GraphNode `json:"start_nodes"`
	RelatedNodes  []GraphNode `json:"related_nodes"`
	Relationships []GraphEdge `json:"relationships"`
}

func (s SchemaResult) Empty() bool {
	return len(s.StartNodes) == 0 && len(s.RelatedNodes) == 0 && len(s.Relationships) == 0
}

// AllNodes returns start and related nodes deduplicated by name, first
// occurrence winning. Order is deterministic given the stored order.
func (s SchemaResult) AllNodes() []GraphNode {
	seen := make(map[string]struct{}, len(s.StartNodes)+len(s.RelatedNodes))
	out := make([]GraphNode, 0, len(s.StartNodes)+len(s.RelatedNodes))
	for _, n := range append(append([]GraphNode{}, s.StartNodes...), s.RelatedNodes...) {
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ReferencedNode is the citation structure persisted with AI chat messages.
type ReferencedNode struct {
	Name      string            `json:"name"`
	SourceIDs []ReferenceSource `json:"source_ids"`
}

type ReferenceSource struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	OriginalSentences []OriginalSentence `json:"original_sentences"`
}
