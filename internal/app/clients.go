package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/braingraph-backend/internal/data/graph"
	"github.com/yungbote/braingraph-backend/internal/embedding"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/braingraph-backend/internal/platform/ollama"
	"github.com/yungbote/braingraph-backend/internal/platform/openai"
	"github.com/yungbote/braingraph-backend/internal/platform/qdrant"
)

type Clients struct {
	Neo4j   *neo4jdb.Client
	Qdrant  qdrant.Index
	OpenAI  openai.Client
	Ollama  ollama.Client
	Encoder embedding.Encoder
	Graph   graph.Store
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	store, err := graph.NewStore(neo, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init graph store: %w", err)
	}

	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		return Clients{}, fmt.Errorf("resolve qdrant config: %w", err)
	}
	index, err := qdrant.NewIndex(log, qcfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init qdrant: %w", err)
	}

	ol, err := ollama.NewClient(log)
	if err != nil {
		log.Warn("ollama client unavailable", "error", err)
		ol = nil
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ol.Ready(ctx); err != nil {
			log.Warn("ollama daemon not ready", "error", err)
		}
		cancel()
	}

	oa, err := openai.NewClient(log)
	if err != nil {
		log.Warn("openai client unavailable", "error", err)
		oa = nil
	}

	var embedBackend embedding.Backend
	switch strings.ToLower(cfg.EmbedBackend) {
	case "openai":
		if oa == nil {
			return Clients{}, fmt.Errorf("EMBED_BACKEND=openai but openai client unavailable")
		}
		embedBackend = oa
	default:
		if ol == nil {
			return Clients{}, fmt.Errorf("EMBED_BACKEND=ollama but ollama client unavailable")
		}
		embedBackend = ol
	}
	enc, err := embedding.NewRoutedEncoder(log, embedBackend)
	if err != nil {
		return Clients{}, fmt.Errorf("init encoder: %w", err)
	}

	return Clients{
		Neo4j:   neo,
		Qdrant:  index,
		OpenAI:  oa,
		Ollama:  ol,
		Encoder: enc,
		Graph:   store,
	}, nil
}
