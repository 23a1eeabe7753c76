package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"spacebio/internal/api"
	"spacebio/internal/cache"
	"spacebio/internal/config"
	"spacebio/internal/index"
	"spacebio/internal/providers"
	"spacebio/internal/search"
	"spacebio/internal/store"
	"spacebio/internal/summary"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	st, err := store.Load(cfg.MetadataPath, cfg.TextsDir)
	if err != nil {
		log.Fatalf("load metadata: %v", err)
	}

	idx, closeIdx, err := buildIndex(cfg)
	if err != nil {
		log.Fatalf("build index: %v", err)
	}
	defer closeIdx()

	pm, err := providers.NewManager(cfg)
	if err != nil {
		log.Fatalf("build providers: %v", err)
	}

	engine := search.NewEngine(pm.QueryEmbedder(), idx, st, cfg.MaxK)
	pipeline := summary.New(st, pm.Generator(), cache.New(cfg.CacheDir), summary.Options{
		PromptBudget:   cfg.PromptBudget,
		Retries:        cfg.SummaryRetries,
		AttemptTimeout: time.Duration(cfg.GenerateSecs) * time.Second,
	})

	srv := api.NewServer(cfg, st, engine, pipeline)
	log.Printf("spacebio api listening on %s index=%s passages=%d embed_providers=%q llm_providers=%q",
		cfg.APIAddr, cfg.IndexBackend, st.NumPassages(), cfg.EmbedProviders, cfg.LLMProviders)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Fatal(err)
	}
}

func buildIndex(cfg config.Config) (index.Index, func(), error) {
	switch cfg.IndexBackend {
	case "pgvector":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool, err := index.Dial(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return index.NewPgvector(pool), pool.Close, nil
	default:
		idx, err := index.LoadMemory(cfg.EmbeddingsPath)
		if err != nil {
			return nil, nil, err
		}
		return idx, func() {}, nil
	}
}
