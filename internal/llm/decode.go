package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/types"
)

// decodeGraphPayload validates the extraction JSON contract and converts it
// to graph records. Nodes without both label and name are rejected; edges
// referencing unknown endpoints are dropped; both sets are deduplicated.
func decodeGraphPayload(payload map[string]any, sourceID, brainID string) ([]types.GraphNode, []types.GraphEdge, error) {
	rawNodes, ok := payload["nodes"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: extraction response missing nodes array", pkgerrors.ErrLLM)
	}
	rawEdges, _ := payload["edges"].([]any)

	var nodes []types.GraphNode
	nodeSeen := map[string]struct{}{}
	nodeNames := map[string]struct{}{}
	for i, raw := range rawNodes {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: node %d is not an object", pkgerrors.ErrLLM, i)
		}
		name := strings.TrimSpace(stringField(obj, "name"))
		label := strings.TrimSpace(stringField(obj, "label"))
		if name == "" || label == "" {
			return nil, nil, fmt.Errorf("%w: node %d missing label or name", pkgerrors.ErrLLM, i)
		}
		key := name + "\x00" + label
		if _, dup := nodeSeen[key]; dup {
			continue
		}
		nodeSeen[key] = struct{}{}
		nodeNames[name] = struct{}{}

		desc := strings.TrimSpace(stringField(obj, "description"))
		if desc == "" {
			desc = name
		}
		nodes = append(nodes, types.GraphNode{
			Name:    name,
			Label:   label,
			BrainID: brainID,
			Descriptions: []types.Description{
				{Description: desc, SourceID: sourceID},
			},
		})
	}

	var edges []types.GraphEdge
	edgeSeen := map[string]struct{}{}
	for _, raw := range rawEdges {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		source := strings.TrimSpace(stringField(obj, "source"))
		target := strings.TrimSpace(stringField(obj, "target"))
		relation := strings.TrimSpace(stringField(obj, "relation"))
		if source == "" || target == "" || relation == "" {
			continue
		}
		if _, ok := nodeNames[source]; !ok {
			continue
		}
		if _, ok := nodeNames[target]; !ok {
			continue
		}
		key := source + "\x00" + target + "\x00" + relation
		if _, dup := edgeSeen[key]; dup {
			continue
		}
		edgeSeen[key] = struct{}{}
		edges = append(edges, types.GraphEdge{
			Source:   source,
			Target:   target,
			Relation: relation,
			BrainID:  brainID,
		})
	}
	return nodes, edges, nil
}

func decodeFilterResult(payload map[string]any) (FilterResult, error) {
	names, ok := payload["filtered_node_names"].([]any)
	if !ok {
		return FilterResult{}, fmt.Errorf("%w: filter response missing filtered_node_names", pkgerrors.ErrLLM)
	}
	out := FilterResult{
		NeedsMoreSearch: boolField(payload, "needs_more_search"),
		Reason:          stringField(payload, "reason"),
	}
	for _, raw := range names {
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			out.FilteredNodeNames = append(out.FilteredNodeNames, strings.TrimSpace(s))
		}
	}
	return out, nil
}

func decodeJudgment(payload map[string]any) (SchemaJudgment, error) {
	if _, ok := payload["is_sufficient"]; !ok {
		return SchemaJudgment{}, fmt.Errorf("%w: judgment response missing is_sufficient", pkgerrors.ErrLLM)
	}
	return SchemaJudgment{
		IsSufficient:    boolField(payload, "is_sufficient"),
		NeedsDeepSearch: boolField(payload, "needs_deep_search"),
		Reason:          stringField(payload, "reason"),
	}, nil
}

func decodeRecovery(payload map[string]any) (RecoveryDecision, error) {
	action := RecoveryAction(strings.ToLower(strings.TrimSpace(stringField(payload, "recovery_action"))))
	switch action {
	case RecoveryRetry, RecoverySkip, RecoveryModify, RecoveryFallback:
	default:
		return RecoveryDecision{}, fmt.Errorf("%w: unknown recovery action %q", pkgerrors.ErrLLM, action)
	}
	dec := RecoveryDecision{
		Action:       action,
		Modification: stringField(payload, "modification"),
		Reason:       stringField(payload, "reason"),
	}
	if params, ok := payload["retry_params"].(map[string]any); ok {
		dec.RetryParams = params
	}
	return dec, nil
}

// parseJSONObject unmarshals a raw model response into a JSON object.
// Malformed output is a stage failure.
func parseJSONObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: response is not a JSON object", pkgerrors.ErrLLM)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", pkgerrors.ErrLLM, err)
	}
	return payload, nil
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func boolField(obj map[string]any, key string) bool {
	if b, ok := obj[key].(bool); ok {
		return b
	}
	return false
}
