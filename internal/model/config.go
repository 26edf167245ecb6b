package model

import (
	"fmt"
	"runtime"
	"time"
)

// Config is the complete application configuration. It is constructed once
// at process start (defaults, config file, env, flags) and passed explicitly
// to every component that needs it; there is no ambient global.
type Config struct {
	Chunking    ChunkingConfig    `yaml:"chunking" json:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding" json:"embedding"`
	Index       IndexConfig       `yaml:"index" json:"index"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Classifier  ClassifierConfig  `yaml:"classifier" json:"classifier"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Storage     StorageConfig     `yaml:"storage" json:"storage"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// ChunkingConfig controls how document text is split for embedding.
type ChunkingConfig struct {
	// ChunkSize is the token budget per chunk.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// Overlap is the number of tokens shared between consecutive chunks.
	// Must be strictly less than ChunkSize.
	Overlap int `yaml:"overlap" json:"overlap"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider  string        `yaml:"provider" json:"provider"`
	Model     string        `yaml:"model" json:"model"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	APIKey    string        `yaml:"-" json:"-"`
	Dimension int           `yaml:"dimension" json:"dimension"`
	BatchSize int           `yaml:"batch_size" json:"batch_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	// CacheTTL bounds how long identical-text embeddings are memoized.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
}

// RetrievalConfig controls top-k retrieval and context assembly.
type RetrievalConfig struct {
	// TopK is the number of passages requested from the index.
	TopK int `yaml:"top_k" json:"top_k"`
	// MaxContextTokens bounds the concatenated passages handed to the
	// generator, counted with the chunker's tokenizer.
	MaxContextTokens int `yaml:"max_context_tokens" json:"max_context_tokens"`
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	// Provider is "ollama" or "openai".
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKey      string        `yaml:"-" json:"-"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	// MaxRetries bounds retries of a failed section generation call.
	// Only transient failures (timeout, connection) are retried.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// RetryBackoff is the base delay between retries; attempt n waits n times this.
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
	// RequestsPerSecond paces calls to the local runtime, which typically
	// serializes inference. Zero disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// ClassifierConfig selects the classification strategy.
type ClassifierConfig struct {
	// Mode is "keyword" or "llm".
	Mode string `yaml:"mode" json:"mode"`
	// FilenameBonus is added to a category's score per keyword found in
	// the filename.
	FilenameBonus float64 `yaml:"filename_bonus" json:"filename_bonus"`
	// MinConfidence below which the classifier falls back to "other".
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// ConcurrencyConfig bounds the worker pool.
type ConcurrencyConfig struct {
	// Workers caps concurrent file processing. Embedding and LLM calls are
	// the bottleneck, not I/O.
	Workers int `yaml:"workers" json:"workers"`
}

// StorageConfig locates the on-disk state.
type StorageConfig struct {
	// DatabasePath is the SQLite file holding documents, chunks, entities,
	// reports, and the persistent vector index.
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" json:"verbose"`
	Dir     string `yaml:"dir" json:"dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize: 500,
			Overlap:   50,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BaseURL:   "http://localhost:11434",
			BatchSize: 32,
			Timeout:   90 * time.Second,
			CacheTTL:  time.Hour,
		},
		Index: IndexConfig{
			Backend: "sqlite",
		},
		Retrieval: RetrievalConfig{
			TopK:             10,
			MaxContextTokens: 6000,
		},
		LLM: LLMConfig{
			Provider:     "ollama",
			Model:        "llama3:8b",
			BaseURL:      "http://localhost:11434",
			Temperature:  0.3,
			MaxTokens:    2000,
			Timeout:      2 * time.Minute,
			MaxRetries:   2,
			RetryBackoff: 2 * time.Second,
		},
		Classifier: ClassifierConfig{
			Mode:          "keyword",
			FilenameBonus: 3,
			MinConfidence: 0.3,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Storage: StorageConfig{
			DatabasePath: "clindraft.db",
		},
		Output: OutputConfig{
			Dir: "./clindraft-reports",
		},
	}
}

// Validate checks the configuration invariants at load time.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must not be negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap (%d) must be less than chunking.chunk_size (%d)",
			c.Chunking.Overlap, c.Chunking.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MaxContextTokens <= 0 {
		return fmt.Errorf("retrieval.max_context_tokens must be positive, got %d", c.Retrieval.MaxContextTokens)
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("concurrency.workers must be positive, got %d", c.Concurrency.Workers)
	}
	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("llm.provider must be ollama or openai, got %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("embedding.provider must be ollama or openai, got %q", c.Embedding.Provider)
	}
	switch c.Classifier.Mode {
	case "keyword", "llm":
	default:
		return fmt.Errorf("classifier.mode must be keyword or llm, got %q", c.Classifier.Mode)
	}
	switch c.Index.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("index.backend must be memory or sqlite, got %q", c.Index.Backend)
	}
	return nil
}
