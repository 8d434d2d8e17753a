package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/braingraph-backend/internal/types"
)

// Store is the per-brain property graph. Every read and write is scoped by
// brain_id; nothing crosses workspaces.
type Store interface {
	UpsertNodesEdges(ctx context.Context, brainID string, nodes []types.GraphNode, edges []types.GraphEdge) error
	GetGraph(ctx context.Context, brainID string) (types.GraphProjection, error)
	QuerySchemaByNames(ctx context.Context, brainID string, names []string, deep bool) (types.SchemaResult, error)
	GetDescriptions(ctx context.Context, nodeName, brainID string) ([]types.Description, error)
	GetDescriptionsBulk(ctx context.Context, names []string, brainID string) (map[string][]types.Description, error)
	GetOriginalSentences(ctx context.Context, nodeName, sourceID, brainID string) ([]types.OriginalSentence, error)
	GetSourceIDsByNode(ctx context.Context, nodeName, brainID string) ([]string, error)
	GetNodesBySource(ctx context.Context, brainID, sourceID string) ([]string, error)
	DeleteBySource(ctx context.Context, brainID, sourceID string) error
	DeleteByBrain(ctx context.Context, brainID string) error
}

type store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, baseLog *logger.Logger) (Store, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph store: neo4j client required")
	}
	s := &store{client: client, log: baseLog.With("service", "GraphStore")}
	s.bootstrapSchema()
	return s, nil
}

// Schema helpers are best-effort; restricted users may not be allowed to
// create constraints.
func (s *store) bootstrapSchema() {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT entity_identity IF NOT EXISTS FOR (e:Entity) REQUIRE (e.name, e.brain_id) IS UNIQUE`,
		`CREATE INDEX entity_brain_idx IF NOT EXISTS FOR (e:Entity) ON (e.brain_id)`,
	}
	for _, stmt := range statements {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (s *store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctxutil.Default(ctx), s.client.Timeout)
}

// UpsertNodesEdges commits nodes and edges in one write transaction. Node
// merge key is (name, brain_id); list properties append with set-dedup
// (descriptions by exact JSON, sentences by sentence text). Edges merge on
// (source, target, relation, brain_id) and require both endpoints.
func (s *store) UpsertNodesEdges(ctx context.Context, brainID string, nodes []types.GraphNode, edges []types.GraphEdge) error {
	if brainID == "" {
		return fmt.Errorf("%w: brain id required", pkgerrors.ErrInvalidArgument)
	}
	if len(nodes) == 0 && len(edges) == 0 {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		names := make([]string, 0, len(nodes))
		for _, n := range nodes {
			names = append(names, n.Name)
		}

		existing, err := fetchExistingLists(ctx, tx, brainID, names)
		if err != nil {
			return nil, err
		}

		rows := make([]map[string]any, 0, len(nodes))
		for _, n := range nodes {
			prev := existing[n.Name]
			descs := mergeDescriptions(prev.descriptions, n.Descriptions)
			sentences := mergeSentences(prev.sentences, n.OriginalSentences)
			label := n.Label
			if label == "" {
				label = prev.label
			}
			if label == "" {
				label = n.Name
			}
			rows = append(rows, map[string]any{
				"name":               n.Name,
				"label":              label,
				"descriptions":       descs,
				"original_sentences": sentences,
				"has_description":    hasNonEmptyDescription(descs),
			})
		}

		if len(rows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (e:Entity {name: n.name, brain_id: $brain_id})
SET e.label = n.label,
    e.descriptions = n.descriptions,
    e.original_sentences = n.original_sentences,
    e.has_description = n.has_description
`, map[string]any{"nodes": rows, "brain_id": brainID})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(edges) > 0 {
			rels := make([]map[string]any, 0, len(edges))
			for _, e := range edges {
				if e.Source == "" || e.Target == "" || e.Relation == "" {
					continue
				}
				rels = append(rels, map[string]any{
					"source":   e.Source,
					"target":   e.Target,
					"relation": e.Relation,
				})
			}
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:Entity {name: r.source, brain_id: $brain_id})
MATCH (b:Entity {name: r.target, brain_id: $brain_id})
MERGE (a)-[e:REL {relation: r.relation, brain_id: $brain_id}]->(b)
`, map[string]any{"rels": rels, "brain_id": brainID})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert nodes/edges: %v", pkgerrors.ErrGraphStore, err)
	}
	return nil
}

type existingLists struct {
	label        string
	descriptions []string
	sentences    []string
}

func fetchExistingLists(ctx context.Context, tx neo4j.ManagedTransaction, brainID string, names []string) (map[string]existingLists, error) {
	out := make(map[string]existingLists, len(names))
	if len(names) == 0 {
		return out, nil
	}
	res, err := tx.Run(ctx, `
UNWIND $names AS nm
MATCH (e:Entity {name: nm, brain_id: $brain_id})
RETURN e.name AS name, e.label AS label, e.descriptions AS descriptions, e.original_sentences AS original_sentences
`, map[string]any{"names": names, "brain_id": brainID})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		name, _ := rec.Get("name")
		label, _ := rec.Get("label")
		descs, _ := rec.Get("descriptions")
		sentences, _ := rec.Get("original_sentences")
		out[stringFromAny(name)] = existingLists{
			label:        stringFromAny(label),
			descriptions: stringsFromAny(descs),
			sentences:    stringsFromAny(sentences),
		}
	}
	return out, nil
}

func (s *store) GetGraph(ctx context.Context, brainID string) (types.GraphProjection, error) {
	out := types.GraphProjection{
		Nodes: []types.GraphProjectionNode{},
		Links: []types.GraphProjectionLink{},
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {brain_id: $brain_id})
RETURN e.name AS name
ORDER BY name
`, map[string]any{"brain_id": brainID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			name, _ := rec.Get("name")
			out.Nodes = append(out.Nodes, types.GraphProjectionNode{Name: stringFromAny(name)})
		}

		res, err = tx.Run(ctx, `
MATCH (a:Entity {brain_id: $brain_id})-[r:REL {brain_id: $brain_id}]->(b:Entity {brain_id: $brain_id})
RETURN a.name AS source, b.name AS target, r.relation AS relation
ORDER BY source, target, relation
`, map[string]any{"brain_id": brainID})
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			src, _ := rec.Get("source")
			tgt, _ := rec.Get("target")
			rel, _ := rec.Get("relation")
			out.Links = append(out.Links, types.GraphProjectionLink{
				Source:   stringFromAny(src),
				Target:   stringFromAny(tgt),
				Relation: stringFromAny(rel),
			})
		}
		return nil, nil
	})
	if err != nil {
		return out, fmt.Errorf("%w: get graph: %v", pkgerrors.ErrGraphStore, err)
	}
	return out, nil
}

// DeleteBySource rewrites every node of the brain without the records tagged
// with sourceID and detaches nodes whose descriptions become empty. The
// rewrite happens in one transaction so readers never observe half-filtered
// nodes.
func (s *store) DeleteBySource(ctx context.Context, brainID, sourceID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {brain_id: $brain_id})
RETURN e.name AS name, e.descriptions AS descriptions, e.original_sentences AS original_sentences
`, map[string]any{"brain_id": brainID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		var toDelete []string
		var toUpdate []map[string]any
		for _, rec := range records {
			nameAny, _ := rec.Get("name")
			descsAny, _ := rec.Get("descriptions")
			sentencesAny, _ := rec.Get("original_sentences")
			name := stringFromAny(nameAny)

			keptDescs, droppedDescs := filterEncodedBySource(stringsFromAny(descsAny), sourceID, descriptionSourceID)
			keptSentences, droppedSentences := filterEncodedBySource(stringsFromAny(sentencesAny), sourceID, sentenceSourceID)
			if droppedDescs == 0 && droppedSentences == 0 {
				continue
			}
			if len(keptDescs) == 0 {
				toDelete = append(toDelete, name)
				continue
			}
			toUpdate = append(toUpdate, map[string]any{
				"name":               name,
				"descriptions":       keptDescs,
				"original_sentences": keptSentences,
				"has_description":    hasNonEmptyDescription(keptDescs),
			})
		}

		if len(toUpdate) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MATCH (e:Entity {name: n.name, brain_id: $brain_id})
SET e.descriptions = n.descriptions,
    e.original_sentences = n.original_sentences,
    e.has_description = n.has_description
`, map[string]any{"nodes": toUpdate, "brain_id": brainID})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		if len(toDelete) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $names AS nm
MATCH (e:Entity {name: nm, brain_id: $brain_id})
DETACH DELETE e
`, map[string]any{"names": toDelete, "brain_id": brainID})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete by source: %v", pkgerrors.ErrGraphStore, err)
	}
	return nil
}

func (s *store) DeleteByBrain(ctx context.Context, brainID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {brain_id: $brain_id})
DETACH DELETE e
`, map[string]any{"brain_id": brainID})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("%w: delete by brain: %v", pkgerrors.ErrGraphStore, err)
	}
	return nil
}

// GetNodesBySource lists names of nodes carrying at least one description
// from the given source.
func (s *store) GetNodesBySource(ctx context.Context, brainID, sourceID string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	names := []string{}
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {brain_id: $brain_id})
RETURN e.name AS name, e.descriptions AS descriptions
ORDER BY name
`, map[string]any{"brain_id": brainID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			nameAny, _ := rec.Get("name")
			descsAny, _ := rec.Get("descriptions")
			for _, d := range decodeDescriptions(stringsFromAny(descsAny)) {
				if d.SourceID == sourceID {
					names = append(names, stringFromAny(nameAny))
					break
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: nodes by source: %v", pkgerrors.ErrGraphStore, err)
	}
	sort.Strings(names)
	return names, nil
}

func filterEncodedBySource(encoded []string, sourceID string, extract func(string) string) ([]string, int) {
	kept := make([]string, 0, len(encoded))
	dropped := 0
	for _, item := range encoded {
		if extract(item) == sourceID {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped
}

func descriptionSourceID(encoded string) string {
	for _, d := range decodeDescriptions([]string{encoded}) {
		return d.SourceID
	}
	return ""
}

func sentenceSourceID(encoded string) string {
	for _, s := range decodeSentences([]string{encoded}) {
		return s.SourceID
	}
	return ""
}
