package model

import "time"

// Stage identifies a step of the ingestion pipeline.
type Stage string

const (
	StageExtraction     Stage = "extraction"
	StageClassification Stage = "classification"
	StageEntities       Stage = "entities"
	StageChunking       Stage = "chunking"
	StageEmbedding      Stage = "embedding"
	StageIndexing       Stage = "indexing"
)

// DocumentStatus tracks how far a document has progressed through the pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusExtracted  DocumentStatus = "extracted"
	StatusClassified DocumentStatus = "classified"
	StatusChunked    DocumentStatus = "chunked"
	StatusEmbedded   DocumentStatus = "embedded"
	StatusIndexed    DocumentStatus = "indexed"
	StatusFailed     DocumentStatus = "failed"
)

// PageMark maps a page number to the rune offset where that page starts
// in the extracted text. TXT and HTML sources produce a single mark.
type PageMark struct {
	Page   int `json:"page"`
	Offset int `json:"offset"`
}

// Document is one source file owned by a project. Once indexed it is
// immutable except for user-driven category correction, which re-tags
// the document and its index metadata but never re-embeds.
type Document struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Filename  string    `json:"filename"`
	Text      string    `json:"text,omitempty"`
	PageMap   []PageMark `json:"page_map,omitempty"`

	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	LLMFallback bool     `json:"llm_fallback,omitempty"`
	Entities    []Entity `json:"entities,omitempty"`

	Status      DocumentStatus `json:"status"`
	FailedStage Stage          `json:"failed_stage,omitempty"`
	FailReason  string         `json:"fail_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded, overlapping slice of a document's text — the unit of
// embedding and retrieval. Chunks are created once during chunking, never
// mutated, and cascade-deleted with their document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	// OverlapTokens is the number of tokens shared with the previous chunk.
	// Zero for the first chunk.
	OverlapTokens int `json:"overlap_tokens"`
}

// EntitySource flags how an entity value was obtained.
type EntitySource string

const (
	EntitySourceRule EntitySource = "rule"
	EntitySourceLLM  EntitySource = "llm"
)

// Entity is a typed key/value fact extracted from a document, with
// provenance. Multiple entities with the same key may coexist across
// documents; resolution happens at report-generation time.
type Entity struct {
	Key        string       `json:"key"`
	Value      string       `json:"value"`
	DocumentID string       `json:"document_id"`
	Offset     int          `json:"offset,omitempty"`
	Source     EntitySource `json:"source"`
}
