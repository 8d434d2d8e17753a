package llm

import (
	"sort"
	"strings"

	"github.com/yungbote/braingraph-backend/internal/types"
)

// GenerateSchemaText renders a subgraph as the two-part schema text fed to
// the model: relation lines first, then one description line per node.
// Implemented in code; no model call.
func GenerateSchemaText(schema types.SchemaResult) string {
	relSeen := map[string]struct{}{}
	var relLines []string
	for _, r := range schema.Relationships {
		line := r.Source + " -> " + r.Relation + " -> " + r.Target
		if _, dup := relSeen[line]; dup {
			continue
		}
		relSeen[line] = struct{}{}
		relLines = append(relLines, line)
	}
	sort.Strings(relLines)

	var nodeLines []string
	for _, n := range schema.AllNodes() {
		descSeen := map[string]struct{}{}
		var parts []string
		for _, d := range n.Descriptions {
			text := strings.TrimSpace(d.Description)
			if text == "" {
				continue
			}
			if _, dup := descSeen[text]; dup {
				continue
			}
			descSeen[text] = struct{}{}
			parts = append(parts, text)
		}
		nodeLines = append(nodeLines, n.Name+": "+strings.Join(parts, " "))
	}

	var b strings.Builder
	for _, line := range relLines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(relLines) > 0 && len(nodeLines) > 0 {
		b.WriteString("\n")
	}
	for _, line := range nodeLines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
