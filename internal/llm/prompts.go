package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerEOFSentinel separates the prose answer from the trailing reference
// JSON in the generation contract.
const AnswerEOFSentinel = "EOF"

// InsufficientAnswerMarker is the exact string the model must emit when the
// schema cannot answer the question. Its presence switches the orchestrator
// to the general-knowledge fallback.
const InsufficientAnswerMarker = "INSUFFICIENT_SCHEMA"

const extractionSystemPrompt = `You extract a knowledge graph from text.
Return JSON with two arrays:
"nodes": [{"label": "<category>", "name": "<entity>", "description": "<one sentence about the entity from the text>"}]
"edges": [{"source": "<node name>", "target": "<node name>", "relation": "<short verb phrase>"}]
Every node needs both label and name. Every edge endpoint must be the name of a node in "nodes". Use the language of the input text.`

const filterSystemPrompt = `You judge which retrieved graph nodes are relevant to a question.
Given the question and candidate nodes with similarity scores, return JSON:
{"filtered_node_names": ["..."], "needs_more_search": true|false, "reason": "..."}
Keep only nodes that could help answer the question.`

const judgeSystemPrompt = `You judge whether a fetched subgraph is sufficient to answer a question.
Return JSON: {"is_sufficient": true|false, "needs_deep_search": true|false, "reason": "..."}.
Set needs_deep_search when more distant graph context would likely help.`

const optimizeSystemPrompt = `You trim a graph schema text for a question.
The schema has relation lines "A -> rel -> B" followed by node lines "name: description".
Remove only lines unrelated to the question. Keep the two-part format and the original wording of kept lines. Return the trimmed schema text only.`

const answerSystemPrompt = `You answer questions strictly from the provided graph schema.
Rules:
1. Use only facts present in the schema text.
2. Answer in the language of the question.
3. After the answer, append a line "` + AnswerEOFSentinel + `" followed by JSON {"referenced_nodes": ["<node name>", ...]} listing every schema node you used.
4. If the schema does not contain the answer, respond with exactly "` + InsufficientAnswerMarker + `" and nothing else.`

const recoverySystemPrompt = `You select a recovery action for a failed pipeline stage.
Return JSON: {"recovery_action": "retry"|"skip"|"modify"|"fallback", "modification": "...", "reason": "...", "retry_params": {}}.
"skip" is only safe for optional stages (node filtering, schema judgment, schema optimization).
"modify" must put changed stage parameters into retry_params (for example {"deep": true} or {"max_schema_chars": 4000}).
"fallback" abandons retrieval and answers from general knowledge.`

const generalKnowledgeSystemPrompt = `Answer the question from general knowledge.
State clearly that no workspace documents informed the answer. Answer in the language of the question.`

func extractionUserPrompt(text string) string {
	return "Text:\n" + text
}

func filterUserPrompt(question string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nCandidates:\n", question)
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s (score %.4f)\n", c.Name, c.Score)
	}
	return b.String()
}

func judgeUserPrompt(question string, nodeCount, relatedCount, relationCount int) string {
	return fmt.Sprintf("Question: %s\nSchema summary: nodes=%d, related=%d, rels=%d", question, nodeCount, relatedCount, relationCount)
}

func optimizeUserPrompt(question, schemaText string) string {
	return fmt.Sprintf("Question: %s\n\nSchema:\n%s", question, schemaText)
}

func answerUserPrompt(schemaText, question string) string {
	return fmt.Sprintf("Schema:\n%s\n\nQuestion: %s", schemaText, question)
}

func recoveryUserPrompt(info ErrorInfo, rctx RecoveryContext) string {
	errJSON, _ := json.Marshal(info)
	ctxJSON, _ := json.Marshal(rctx)
	return fmt.Sprintf("error_info: %s\ncontext: %s", errJSON, ctxJSON)
}

// GeneralKnowledgePrompt is the fallback path A user prompt.
func GeneralKnowledgePrompt(question string) (system, user string) {
	return generalKnowledgeSystemPrompt, "Question: " + question
}
