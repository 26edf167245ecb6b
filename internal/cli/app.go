package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/clindraft/clindraft/internal/chunker"
	"github.com/clindraft/clindraft/internal/classify"
	"github.com/clindraft/clindraft/internal/embed"
	"github.com/clindraft/clindraft/internal/entity"
	"github.com/clindraft/clindraft/internal/index"
	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
	"github.com/clindraft/clindraft/internal/pipeline"
	"github.com/clindraft/clindraft/internal/report"
	"github.com/clindraft/clindraft/internal/retrieve"
	"github.com/clindraft/clindraft/internal/store"
	"github.com/clindraft/clindraft/internal/worker"
)

// loadConfig builds the effective configuration: defaults, then config
// file, then environment, then global flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
		cfg.Embedding.APIKey = key
	}
	if url := os.Getenv("CLINDRAFT_OLLAMA_URL"); url != "" {
		cfg.LLM.BaseURL = url
		cfg.Embedding.BaseURL = url
	}
	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired component graph for one command invocation.
type app struct {
	cfg       *model.Config
	store     *store.Store
	idx       index.Index
	embedder  embed.Embedder
	provider  llm.Provider
	pipe      *pipeline.Pipeline
	retriever *retrieve.Retriever
	generator *report.Generator
}

// newApp opens the store and wires the pipeline and generator from
// configuration.
func newApp(cfg *model.Config, progress pipeline.ProgressFunc) (*app, error) {
	s, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	var idx index.Index
	switch cfg.Index.Backend {
	case "memory":
		idx = index.NewMemoryIndex()
	default:
		idx, err = index.NewSQLiteIndex(s.DB())
		if err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	embedder, err := embed.New(cfg.Embedding)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	c, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, 1)

	pipe := pipeline.New(pipeline.Deps{
		Store:      s,
		Index:      idx,
		Embedder:   embedder,
		Classifier: classify.New(cfg.Classifier, provider),
		Extractor:  entity.New(provider),
		Chunker:    c,
		Limiter:    limiter,
		Workers:    cfg.Concurrency.Workers,
		Progress:   progress,
	})

	retriever := retrieve.New(embedder, idx, s, cfg.Retrieval)

	return &app{
		cfg:       cfg,
		store:     s,
		idx:       idx,
		embedder:  embedder,
		provider:  provider,
		pipe:      pipe,
		retriever: retriever,
		generator: report.NewGenerator(provider, retriever, cfg.LLM),
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}
