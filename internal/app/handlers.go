package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/braingraph-backend/internal/http/handlers"
	"github.com/yungbote/braingraph-backend/internal/ingestion/extractor"
	"github.com/yungbote/braingraph-backend/internal/ingestion/pipeline"
	"github.com/yungbote/braingraph-backend/internal/llm"
	"github.com/yungbote/braingraph-backend/internal/modules/answer"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/openai"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	BrainGraph *handlers.BrainGraphHandler
	Brain      *handlers.BrainHandler
	Source     *handlers.SourceHandler
	Chat       *handlers.ChatHandler
}

// newAdapterFactory builds per-request model adapters. An openai model_name
// override gets its own client so the base client's default model stays
// untouched; ollama overrides are handled inside the adapter.
func newAdapterFactory(log *logger.Logger, clients Clients) answer.AdapterFactory {
	return func(backend llm.Backend, modelName string) (llm.Adapter, error) {
		oa := clients.OpenAI
		if backend == llm.BackendOpenAI && strings.TrimSpace(modelName) != "" {
			override, err := openai.NewClientWithModel(log, modelName)
			if err != nil {
				return nil, fmt.Errorf("openai model override: %w", err)
			}
			oa = override
		}
		return llm.New(log, backend, modelName, oa, clients.Ollama)
	}
}

func wireHandlers(log *logger.Logger, clients Clients, reposet Repos) (Handlers, error) {
	log.Info("Wiring handlers...")

	adapters := newAdapterFactory(log, clients)

	extract := extractor.NewRuleExtractor(log, clients.Encoder)
	pipe, err := pipeline.New(log, clients.Qdrant, clients.Graph, extract, clients.Encoder)
	if err != nil {
		return Handlers{}, fmt.Errorf("init pipeline: %w", err)
	}

	answers, err := answer.NewService(log, clients.Encoder, clients.Qdrant, clients.Graph, reposet.Source, reposet.Chat, adapters)
	if err != nil {
		return Handlers{}, fmt.Errorf("init answer service: %w", err)
	}

	return Handlers{
		Health:     handlers.NewHealthHandler(),
		BrainGraph: handlers.NewBrainGraphHandler(pipe, answers, clients.Graph, adapters),
		Brain:      handlers.NewBrainHandler(log, reposet.Brain, clients.Graph, clients.Qdrant),
		Source:     handlers.NewSourceHandler(log, reposet.Source),
		Chat:       handlers.NewChatHandler(reposet.Chat),
	}, nil
}
