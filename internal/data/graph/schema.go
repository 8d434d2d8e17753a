package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/types"
)

const (
	schemaWalkDepth     = 5
	schemaWalkDepthDeep = 20
	schemaPathLimit     = 200
)

// QuerySchemaByNames resolves the given names to start nodes and assembles
// the answer subgraph around them. Every start node contributes its direct
// neighbors. Start nodes with no description of their own are stubs: from
// those the walk continues along undirected REL paths until a described node
// is reached, up to the depth cap (5 normally, 20 when deep is set), and the
// traversed path is included. Paths come back ordered by length then by
// concatenated node names, so the result is deterministic for a fixed store
// state and input order.
func (s *store) QuerySchemaByNames(ctx context.Context, brainID string, names []string, deep bool) (types.SchemaResult, error) {
	out := types.SchemaResult{
		StartNodes:    []types.GraphNode{},
		RelatedNodes:  []types.GraphNode{},
		Relationships: []types.GraphEdge{},
	}
	if len(names) == 0 {
		return out, nil
	}

	depth := schemaWalkDepth
	if deep {
		depth = schemaWalkDepthDeep
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {brain_id: $brain_id})
WHERE e.name IN $names
RETURN e
ORDER BY e.name
`, map[string]any{"brain_id": brainID, "names": names})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		startNames := make(map[string]struct{}, len(records))
		stubNames := []string{}
		elementNames := map[string]string{}
		for _, rec := range records {
			v, _ := rec.Get("e")
			node, ok := v.(dbtype.Node)
			if !ok {
				continue
			}
			gn := nodeFromProps(node.Props)
			gn.BrainID = brainID
			out.StartNodes = append(out.StartNodes, gn)
			startNames[gn.Name] = struct{}{}
			elementNames[node.ElementId] = gn.Name
			if !nodeHasProse(gn) {
				stubNames = append(stubNames, gn.Name)
			}
		}
		if len(out.StartNodes) == 0 {
			return nil, nil
		}

		seenRelated := map[string]struct{}{}
		seenEdges := map[string]struct{}{}
		addNode := func(node dbtype.Node) {
			gn := nodeFromProps(node.Props)
			elementNames[node.ElementId] = gn.Name
			if _, isStart := startNames[gn.Name]; isStart {
				return
			}
			if _, ok := seenRelated[gn.Name]; ok {
				return
			}
			seenRelated[gn.Name] = struct{}{}
			gn.BrainID = brainID
			out.RelatedNodes = append(out.RelatedNodes, gn)
		}
		addEdge := func(rel dbtype.Relationship) {
			source := elementNames[rel.StartElementId]
			target := elementNames[rel.EndElementId]
			relation := stringFromAny(rel.Props["relation"])
			if source == "" || target == "" {
				return
			}
			key := source + "\x00" + target + "\x00" + relation
			if _, ok := seenEdges[key]; ok {
				return
			}
			seenEdges[key] = struct{}{}
			out.Relationships = append(out.Relationships, types.GraphEdge{
				Source:   source,
				Target:   target,
				Relation: relation,
				BrainID:  brainID,
			})
		}

		// Direct neighbors of every start node, described or not.
		res, err = tx.Run(ctx, `
MATCH (s:Entity {brain_id: $brain_id})-[r:REL {brain_id: $brain_id}]-(n:Entity {brain_id: $brain_id})
WHERE s.name IN $names
RETURN s, r, n
ORDER BY s.name, n.name, r.relation
`, map[string]any{"brain_id": brainID, "names": names})
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if v, _ := rec.Get("n"); v != nil {
				if node, ok := v.(dbtype.Node); ok {
					addNode(node)
				}
			}
			if v, _ := rec.Get("r"); v != nil {
				if rel, ok := v.(dbtype.Relationship); ok {
					addEdge(rel)
				}
			}
		}

		// Walk from stub start nodes until a described node is reached.
		if len(stubNames) > 0 {
			res, err = tx.Run(ctx, fmt.Sprintf(`
MATCH p = (s:Entity {brain_id: $brain_id})-[:REL*1..%d]-(t:Entity {brain_id: $brain_id})
WHERE s.name IN $stubs
  AND t.has_description = true
  AND all(rel IN relationships(p) WHERE rel.brain_id = $brain_id)
RETURN nodes(p) AS ns, relationships(p) AS rs, length(p) AS len,
       reduce(acc = '', n IN nodes(p) | acc + '|' + n.name) AS pathkey
ORDER BY len ASC, pathkey ASC
LIMIT %d
`, depth, schemaPathLimit), map[string]any{"brain_id": brainID, "stubs": stubNames})
			if err != nil {
				return nil, err
			}
			records, err = res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			for _, rec := range records {
				nsAny, _ := rec.Get("ns")
				rsAny, _ := rec.Get("rs")
				if items, ok := nsAny.([]any); ok {
					for _, item := range items {
						if node, ok := item.(dbtype.Node); ok {
							addNode(node)
						}
					}
				}
				if items, ok := rsAny.([]any); ok {
					for _, item := range items {
						if rel, ok := item.(dbtype.Relationship); ok {
							addEdge(rel)
						}
					}
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return out, fmt.Errorf("%w: query schema: %v", pkgerrors.ErrGraphStore, err)
	}
	return out, nil
}

func nodeHasProse(n types.GraphNode) bool {
	for _, d := range n.Descriptions {
		if d.Description != "" {
			return true
		}
	}
	return false
}

func (s *store) GetDescriptions(ctx context.Context, nodeName, brainID string) ([]types.Description, error) {
	bulk, err := s.GetDescriptionsBulk(ctx, []string{nodeName}, brainID)
	if err != nil {
		return nil, err
	}
	descs, ok := bulk[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: node %q", pkgerrors.ErrNotFound, nodeName)
	}
	return descs, nil
}

// GetDescriptionsBulk returns decoded description records per node name.
// Names with no matching node are absent from the map.
func (s *store) GetDescriptionsBulk(ctx context.Context, names []string, brainID string) (map[string][]types.Description, error) {
	out := make(map[string][]types.Description, len(names))
	if len(names) == 0 {
		return out, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $names AS nm
MATCH (e:Entity {name: nm, brain_id: $brain_id})
RETURN e.name AS name, e.descriptions AS descriptions
`, map[string]any{"names": names, "brain_id": brainID})
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
			out[stringFromAny(nameAny)] = decodeDescriptions(stringsFromAny(descsAny))
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get descriptions: %v", pkgerrors.ErrGraphStore, err)
	}
	return out, nil
}

// GetSourceIDsByNode lists the distinct sources contributing descriptions to
// the node, in first-appearance order.
func (s *store) GetSourceIDsByNode(ctx context.Context, nodeName, brainID string) ([]string, error) {
	descs, err := s.GetDescriptions(ctx, nodeName, brainID)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, d := range descs {
		if d.SourceID == "" {
			continue
		}
		if _, ok := seen[d.SourceID]; ok {
			continue
		}
		seen[d.SourceID] = struct{}{}
		out = append(out, d.SourceID)
	}
	return out, nil
}

// GetOriginalSentences returns the node's highlighted sentences for one
// source, deduplicated by sentence text and stripped of scores.
func (s *store) GetOriginalSentences(ctx context.Context, nodeName, sourceID, brainID string) ([]types.OriginalSentence, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	var encoded []string
	found := false
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {name: $name, brain_id: $brain_id})
RETURN e.original_sentences AS original_sentences
`, map[string]any{"name": nodeName, "brain_id": brainID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			found = true
			v, _ := records[0].Get("original_sentences")
			encoded = stringsFromAny(v)
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get sentences: %v", pkgerrors.ErrGraphStore, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: node %q", pkgerrors.ErrNotFound, nodeName)
	}

	seen := map[string]struct{}{}
	out := []types.OriginalSentence{}
	for _, sent := range decodeSentences(encoded) {
		if sent.SourceID != sourceID || sent.OriginalSentence == "" {
			continue
		}
		if _, ok := seen[sent.OriginalSentence]; ok {
			continue
		}
		seen[sent.OriginalSentence] = struct{}{}
		out = append(out, types.OriginalSentence{
			OriginalSentence: sent.OriginalSentence,
			SourceID:         sent.SourceID,
		})
	}
	return out, nil
}
