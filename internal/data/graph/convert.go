package graph

import (
	"encoding/json"
	"strconv"

	"github.com/yungbote/braingraph-backend/internal/types"
)

// Graph node list properties hold JSON-encoded records (one string per
// record). Conversion to and from the canonical types happens here, once,
// at the store boundary.

func encodeDescriptions(descs []types.Description) []string {
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		raw, err := json.Marshal(d)
		if err != nil {
			continue
		}
		out = append(out, string(raw))
	}
	return out
}

func decodeDescriptions(raw []string) []types.Description {
	out := make([]types.Description, 0, len(raw))
	for _, item := range raw {
		var d types.Description
		if err := json.Unmarshal([]byte(item), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func encodeSentences(sentences []types.OriginalSentence) []string {
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		raw, err := json.Marshal(s)
		if err != nil {
			continue
		}
		out = append(out, string(raw))
	}
	return out
}

func decodeSentences(raw []string) []types.OriginalSentence {
	out := make([]types.OriginalSentence, 0, len(raw))
	for _, item := range raw {
		var s types.OriginalSentence
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// mergeDescriptions appends additions that are not already present, where
// presence is exact JSON equality of the encoded record.
func mergeDescriptions(existing []string, additions []types.Description) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(additions))
	for _, e := range existing {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for _, enc := range encodeDescriptions(additions) {
		if _, ok := seen[enc]; ok {
			continue
		}
		seen[enc] = struct{}{}
		out = append(out, enc)
	}
	return out
}

// mergeSentences appends additions whose sentence text is not already
// carried by the node, regardless of score or source.
func mergeSentences(existing []string, additions []types.OriginalSentence) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(additions))
	for _, e := range existing {
		key := sentenceKey(e)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	for _, add := range additions {
		if add.OriginalSentence == "" {
			continue
		}
		if _, ok := seen[add.OriginalSentence]; ok {
			continue
		}
		seen[add.OriginalSentence] = struct{}{}
		raw, err := json.Marshal(add)
		if err != nil {
			continue
		}
		out = append(out, string(raw))
	}
	return out
}

func sentenceKey(encoded string) string {
	var s types.OriginalSentence
	if err := json.Unmarshal([]byte(encoded), &s); err != nil {
		return ""
	}
	return s.OriginalSentence
}

// hasNonEmptyDescription reports whether any encoded description record
// carries non-empty prose. The result is denormalized onto the node as
// `has_description` so schema traversals can filter without JSON parsing.
func hasNonEmptyDescription(encoded []string) bool {
	for _, d := range decodeDescriptions(encoded) {
		if d.Description != "" {
			return true
		}
	}
	return false
}

func stringsFromAny(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringFromAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func nodeFromProps(props map[string]any) types.GraphNode {
	name := stringFromAny(props["name"])
	label := stringFromAny(props["label"])
	if label == "" {
		label = name
	}
	return types.GraphNode{
		Name:              name,
		Label:             label,
		BrainID:           stringFromAny(props["brain_id"]),
		Descriptions:      decodeDescriptions(stringsFromAny(props["descriptions"])),
		OriginalSentences: decodeSentences(stringsFromAny(props["original_sentences"])),
	}
}

// BrainKey renders a relational brain id the way graph and vector payloads
// store it.
func BrainKey(brainID uint) string {
	return strconv.FormatUint(uint64(brainID), 10)
}
