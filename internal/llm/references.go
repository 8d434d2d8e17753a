package llm

import (
	"encoding/json"
	"strings"
)

type referencePayload struct {
	ReferencedNodes []string `json:"referenced_nodes"`
}

// ParseAnswerReferences splits a generated answer on the EOF sentinel and
// parses the trailing reference JSON. The sentinel and JSON are tolerated
// missing; the answer body is always returned trimmed.
func ParseAnswerReferences(text string) (answer string, names []string) {
	idx := findSentinel(text)
	if idx < 0 {
		return strings.TrimSpace(text), nil
	}
	answer = strings.TrimSpace(text[:idx])
	tail := strings.TrimSpace(text[idx+len(AnswerEOFSentinel):])

	start := strings.Index(tail, "{")
	end := strings.LastIndex(tail, "}")
	if start < 0 || end < start {
		return answer, nil
	}
	var payload referencePayload
	if err := json.Unmarshal([]byte(tail[start:end+1]), &payload); err != nil {
		return answer, nil
	}
	seen := map[string]struct{}{}
	for _, raw := range payload.ReferencedNodes {
		name := StripLabelPrefix(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return answer, names
}

// findSentinel locates EOF standing alone at a line boundary so prose
// containing the letters is not cut.
func findSentinel(text string) int {
	offset := 0
	for {
		i := strings.Index(text[offset:], AnswerEOFSentinel)
		if i < 0 {
			return -1
		}
		pos := offset + i
		before := pos == 0 || text[pos-1] == '\n'
		afterPos := pos + len(AnswerEOFSentinel)
		after := afterPos >= len(text) || text[afterPos] == '\n' || text[afterPos] == '\r'
		if before && after {
			return pos
		}
		offset = pos + len(AnswerEOFSentinel)
	}
}

// StripLabelPrefix removes a "label-" prefix from a referenced node name:
// everything up to and including the first "-", then surrounding whitespace.
func StripLabelPrefix(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "-"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// IsInsufficientAnswer reports whether a generated answer declares the schema
// insufficient.
func IsInsufficientAnswer(text string) bool {
	return strings.Contains(text, InsufficientAnswerMarker)
}
