package answer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/braingraph-backend/internal/data/graph"
	"github.com/yungbote/braingraph-backend/internal/embedding"
	"github.com/yungbote/braingraph-backend/internal/llm"
	"github.com/yungbote/braingraph-backend/internal/modules/answer/steps"
	"github.com/yungbote/braingraph-backend/internal/observability"
	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/qdrant"
	"github.com/yungbote/braingraph-backend/internal/repos"
	"github.com/yungbote/braingraph-backend/internal/types"
)

const (
	defaultTopK = 10

	// Optimized schema text shorter than this keeps the original.
	optimizedFloorChars = 30

	// referencesHeader opens the node list appended to the persisted answer.
	referencesHeader = "[참고된 노드 목록]"
)

// Request is one answer call.
type Request struct {
	Question      string
	SessionID     uint
	BrainID       uint
	Backend       llm.Backend
	ModelName     string
	UseDeepSearch bool
}

// Response mirrors the answer endpoint payload.
type Response struct {
	Answer          string                 `json:"answer"`
	ReferencedNodes []types.ReferencedNode `json:"referenced_nodes"`
	ChatID          uint                   `json:"chat_id"`
	Accuracy        float64                `json:"accuracy"`
}

// AdapterFactory builds the model adapter for a request's backend.
type AdapterFactory func(backend llm.Backend, modelName string) (llm.Adapter, error)

type Service interface {
	Answer(ctx context.Context, req Request) (Response, error)
}

type service struct {
	log      *logger.Logger
	enc      embedding.Encoder
	index    qdrant.Index
	store    graph.Store
	sources  repos.SourceRepo
	chats    repos.ChatRepo
	adapters AdapterFactory
	topK     int
}

func NewService(log *logger.Logger, enc embedding.Encoder, index qdrant.Index, store graph.Store, sources repos.SourceRepo, chats repos.ChatRepo, adapters AdapterFactory) (Service, error) {
	if log == nil || enc == nil || index == nil || store == nil || sources == nil || chats == nil || adapters == nil {
		return nil, fmt.Errorf("answer service: all dependencies required")
	}
	return &service{
		log:      log,
		enc:      enc,
		index:    index,
		store:    store,
		sources:  sources,
		chats:    chats,
		adapters: adapters,
		topK:     defaultTopK,
	}, nil
}

func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, fmt.Errorf("%w: question required", pkgerrors.ErrInvalidArgument)
	}
	adapter, err := s.adapters(req.Backend, req.ModelName)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}
	brainKey := graph.BrainKey(req.BrainID)
	runner := steps.NewRunner(s.log, adapter, question)

	if _, err := s.chats.SaveChat(ctx, nil, req.SessionID, false, question, nil, nil); err != nil {
		return Response{}, fmt.Errorf("save question: %w", err)
	}

	// Stage 1: embed the question and search the brain's collection.
	type retrieval struct {
		matches []qdrant.Match
		quality float64
	}
	ret, err := runStage(ctx, s, runner, "retrieve", nil, func(ctx context.Context, _ steps.Params) (retrieval, error) {
		vec, err := s.enc.Encode(ctx, question)
		if err != nil {
			return retrieval{}, fmt.Errorf("%w: embed question: %v", pkgerrors.ErrVectorStore, err)
		}
		matches, err := s.index.Search(ctx, brainKey, vec, s.topK)
		if err != nil {
			return retrieval{}, err
		}
		return retrieval{matches: matches, quality: qdrant.Quality(matches)}, nil
	})
	if err != nil {
		return s.maybeFallback(ctx, adapter, req, question, err)
	}
	if len(ret.matches) == 0 {
		return s.fallback(ctx, adapter, req, question)
	}
	runner.NodeCount = len(ret.matches)

	candidates := make([]llm.Candidate, 0, len(ret.matches))
	for _, m := range ret.matches {
		candidates = append(candidates, llm.Candidate{Name: m.Name, Score: m.Score})
	}

	// Stage 2: node-quality filter. Optional; an emptied or skipped filter
	// keeps the original candidates.
	names := candidateNames(candidates)
	filtered, err := runStage(ctx, s, runner, "filter_nodes", nil, func(ctx context.Context, _ steps.Params) ([]string, error) {
		res, err := adapter.FilterNodes(ctx, question, candidates)
		if err != nil {
			return nil, err
		}
		return res.FilteredNodeNames, nil
	})
	switch {
	case errors.Is(err, steps.ErrFallback):
		return s.fallback(ctx, adapter, req, question)
	case err == nil && len(filtered) > 0:
		names = filtered
	}

	// Stage 3: schema fetch.
	fetchParams := steps.Params{"deep": req.UseDeepSearch}
	schema, err := runStage(ctx, s, runner, "schema_fetch", fetchParams, func(ctx context.Context, params steps.Params) (types.SchemaResult, error) {
		return s.store.QuerySchemaByNames(ctx, brainKey, names, params.Bool("deep", false))
	})
	if err != nil {
		return s.maybeFallback(ctx, adapter, req, question, err)
	}
	if schema.Empty() {
		return s.fallback(ctx, adapter, req, question)
	}
	runner.SchemaNodeCount = len(schema.AllNodes())

	// Stage 4: sufficiency judgment. May re-fetch deep once.
	if !req.UseDeepSearch {
		judgment, err := runStage(ctx, s, runner, "judge_schema", nil, func(ctx context.Context, _ steps.Params) (llm.SchemaJudgment, error) {
			return adapter.JudgeSchema(ctx, question, len(schema.StartNodes), len(schema.RelatedNodes), len(schema.Relationships))
		})
		if errors.Is(err, steps.ErrFallback) {
			return s.fallback(ctx, adapter, req, question)
		}
		if err == nil && !judgment.IsSufficient && judgment.NeedsDeepSearch {
			deep, err := runStage(ctx, s, runner, "schema_fetch_deep", nil, func(ctx context.Context, _ steps.Params) (types.SchemaResult, error) {
				return s.store.QuerySchemaByNames(ctx, brainKey, names, true)
			})
			if err == nil && !deep.Empty() {
				schema = deep
				runner.SchemaNodeCount = len(schema.AllNodes())
			}
		}
	}

	// Stage 5: schema text synthesis (pure code).
	schemaText := llm.GenerateSchemaText(schema)

	// Stage 6: optimization. Empty or too-short output keeps the original.
	optimized, err := runStage(ctx, s, runner, "optimize_schema", nil, func(ctx context.Context, _ steps.Params) (string, error) {
		return adapter.OptimizeSchemaText(ctx, question, schemaText)
	})
	switch {
	case errors.Is(err, steps.ErrFallback):
		return s.fallback(ctx, adapter, req, question)
	case err == nil:
		if trimmed := strings.TrimSpace(optimized); len([]rune(trimmed)) >= optimizedFloorChars {
			schemaText = trimmed
		}
	}

	// Stage 7: answer generation. A modify decision can cap the schema size.
	genParams := steps.Params{}
	rawAnswer, err := runStage(ctx, s, runner, "generate", genParams, func(ctx context.Context, params steps.Params) (string, error) {
		text := schemaText
		if limit := params.Int("max_schema_chars", 0); limit > 0 {
			text = truncateRunes(text, limit)
		}
		return adapter.GenerateAnswer(ctx, text, question)
	})
	if err != nil {
		return s.maybeFallback(ctx, adapter, req, question, err)
	}

	// Stage 8: reference extraction.
	if llm.IsInsufficientAnswer(rawAnswer) {
		return s.fallback(ctx, adapter, req, question)
	}
	answerBody, refNames := llm.ParseAnswerReferences(rawAnswer)

	// Stage 9: citation expansion. The descriptions fetched here also feed
	// the accuracy similarity term below.
	var refDescs map[string][]types.Description
	references, err := runStage(ctx, s, runner, "citations", nil, func(ctx context.Context, _ steps.Params) ([]types.ReferencedNode, error) {
		refs, descs, err := s.expandCitations(ctx, brainKey, refNames)
		if err != nil {
			return nil, err
		}
		refDescs = descs
		return refs, nil
	})
	if err != nil {
		if errors.Is(err, steps.ErrFallback) {
			return s.fallback(ctx, adapter, req, question)
		}
		references = nil
	}

	// Stage 10: accuracy.
	accuracy := s.scoreAccuracy(ctx, ret.quality, answerBody, refNames, refDescs, schema)
	observability.Current().ObserveAnswerAccuracy(accuracy)

	// Stage 11: persist the AI turn with the appended node list.
	finalText := appendReferenceBlock(answerBody, references)
	chatID, err := runStage(ctx, s, runner, "persist", nil, func(ctx context.Context, _ steps.Params) (uint, error) {
		acc := accuracy
		id, err := s.chats.SaveChat(ctx, nil, req.SessionID, true, finalText, references, &acc)
		if err != nil {
			return 0, fmt.Errorf("%w: save answer: %v", pkgerrors.ErrMetadataStore, err)
		}
		return id, nil
	})
	if err != nil {
		return Response{}, err
	}

	return Response{
		Answer:          finalText,
		ReferencedNodes: references,
		ChatID:          chatID,
		Accuracy:        accuracy,
	}, nil
}

// maybeFallback routes a failed required stage: a fallback decision (or an
// exhausted stage) degrades to path A instead of failing the request.
func (s *service) maybeFallback(ctx context.Context, adapter llm.Adapter, req Request, question string, err error) (Response, error) {
	if errors.Is(err, steps.ErrFallback) || errors.Is(err, steps.ErrSkipped) {
		return s.fallback(ctx, adapter, req, question)
	}
	return Response{}, err
}

// fallback is path A: answer from general knowledge, cite nothing, accuracy 0.
func (s *service) fallback(ctx context.Context, adapter llm.Adapter, req Request, question string) (Response, error) {
	observability.Current().IncFallback()
	system, user := llm.GeneralKnowledgePrompt(question)
	text, err := adapter.Chat(ctx, system+"\n\n"+user)
	if err != nil {
		return Response{}, fmt.Errorf("fallback answer: %w", err)
	}
	accuracy := 0.0
	chatID, err := s.chats.SaveChat(ctx, nil, req.SessionID, true, text, []types.ReferencedNode{}, &accuracy)
	if err != nil {
		return Response{}, fmt.Errorf("%w: save fallback answer: %v", pkgerrors.ErrMetadataStore, err)
	}
	return Response{
		Answer:          text,
		ReferencedNodes: []types.ReferencedNode{},
		ChatID:          chatID,
		Accuracy:        0,
	}, nil
}

// expandCitations builds the nested reference structure: node name, its
// source ids, per-source titles and highlighted sentences. The descriptions
// map is returned alongside so the accuracy scorer reuses the same fetch.
func (s *service) expandCitations(ctx context.Context, brainKey string, refNames []string) ([]types.ReferencedNode, map[string][]types.Description, error) {
	if len(refNames) == 0 {
		return []types.ReferencedNode{}, nil, nil
	}
	descs, err := s.store.GetDescriptionsBulk(ctx, refNames, brainKey)
	if err != nil {
		return nil, nil, err
	}

	sourceOrder := map[string][]string{}
	var allIDs []uint
	idSeen := map[uint]struct{}{}
	for _, name := range refNames {
		seen := map[string]struct{}{}
		for _, d := range descs[name] {
			if d.SourceID == "" {
				continue
			}
			if _, dup := seen[d.SourceID]; dup {
				continue
			}
			seen[d.SourceID] = struct{}{}
			sourceOrder[name] = append(sourceOrder[name], d.SourceID)
			if id, err := strconv.ParseUint(d.SourceID, 10, 64); err == nil {
				if _, dup := idSeen[uint(id)]; !dup {
					idSeen[uint(id)] = struct{}{}
					allIDs = append(allIDs, uint(id))
				}
			}
		}
	}

	titles := map[uint]string{}
	if len(allIDs) > 0 {
		titles, err = s.sources.GetTitlesByIDs(ctx, nil, allIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: resolve source titles: %v", pkgerrors.ErrMetadataStore, err)
		}
	}

	out := make([]types.ReferencedNode, 0, len(refNames))
	for _, name := range refNames {
		ids := sourceOrder[name]
		if len(ids) == 0 {
			continue
		}
		ref := types.ReferencedNode{Name: name}
		for _, sid := range ids {
			title := ""
			if id, err := strconv.ParseUint(sid, 10, 64); err == nil {
				title = titles[uint(id)]
			}
			sentences, err := s.store.GetOriginalSentences(ctx, name, sid, brainKey)
			if err != nil {
				if errors.Is(err, pkgerrors.ErrNotFound) {
					sentences = nil
				} else {
					return nil, nil, err
				}
			}
			if sentences == nil {
				sentences = []types.OriginalSentence{}
			}
			ref.SourceIDs = append(ref.SourceIDs, types.ReferenceSource{
				ID:                sid,
				Title:             title,
				OriginalSentences: sentences,
			})
		}
		out = append(out, ref)
	}
	return out, descs, nil
}

// scoreAccuracy computes Acc = 0.2Q + 0.7S + 0.1C. S embeds the answer body
// against the referenced nodes' "name: description" lines; C is citation
// coverage of the schema's node names.
func (s *service) scoreAccuracy(ctx context.Context, quality float64, answerBody string, refNames []string, descs map[string][]types.Description, schema types.SchemaResult) float64 {
	similarity := 0.0
	contextText := referenceContextText(refNames, descs)
	if contextText != "" && answerBody != "" {
		vecs, err := s.enc.EncodeBatch(ctx, []string{answerBody, contextText}, embedding.LangAuto)
		if err != nil {
			s.log.Warn("accuracy similarity embedding failed", "error", err)
		} else if len(vecs) == 2 {
			similarity = CosineSimilarity(vecs[0], vecs[1])
		}
	}

	provided := make([]string, 0, len(schema.AllNodes()))
	for _, n := range schema.AllNodes() {
		provided = append(provided, n.Name)
	}
	coverage := Coverage(refNames, provided)
	return Accuracy(quality, similarity, coverage)
}

func referenceContextText(refNames []string, descs map[string][]types.Description) string {
	var lines []string
	for _, name := range refNames {
		for _, d := range descs[name] {
			if strings.TrimSpace(d.Description) == "" {
				continue
			}
			lines = append(lines, name+": "+d.Description)
		}
	}
	return strings.Join(lines, "\n")
}

// appendReferenceBlock adds the node list block the clients render under the
// answer.
func appendReferenceBlock(answerBody string, references []types.ReferencedNode) string {
	if len(references) == 0 {
		return answerBody
	}
	var b strings.Builder
	b.WriteString(answerBody)
	b.WriteString("\n\n")
	b.WriteString(referencesHeader)
	for _, ref := range references {
		b.WriteString("\n- ")
		b.WriteString(ref.Name)
	}
	return b.String()
}

func candidateNames(candidates []llm.Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// runStage wraps steps.Run with the per-stage answer metrics.
func runStage[T any](ctx context.Context, s *service, runner *steps.Runner, stage string, params steps.Params, fn func(ctx context.Context, params steps.Params) (T, error)) (T, error) {
	start := time.Now()
	out, err := steps.Run(ctx, runner, stage, params, fn)
	status := "ok"
	switch {
	case errors.Is(err, steps.ErrSkipped):
		status = "skipped"
	case errors.Is(err, steps.ErrFallback):
		status = "fallback"
	case err != nil:
		status = "error"
	}
	observability.Current().ObserveAnswerStage(stage, status, time.Since(start))
	return out, err
}
