// Package pipeline coordinates document ingestion: extraction,
// classification, entity extraction, chunking, embedding, and indexing.
// Files are processed on a bounded worker pool and fail independently; a
// corrupt file never takes down its batch.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clindraft/clindraft/internal/chunker"
	"github.com/clindraft/clindraft/internal/classify"
	"github.com/clindraft/clindraft/internal/embed"
	"github.com/clindraft/clindraft/internal/entity"
	"github.com/clindraft/clindraft/internal/index"
	"github.com/clindraft/clindraft/internal/ingest"
	"github.com/clindraft/clindraft/internal/model"
	"github.com/clindraft/clindraft/internal/store"
	"github.com/clindraft/clindraft/internal/worker"
)

// ProgressEvent reports one file entering a stage, or failing in it.
type ProgressEvent struct {
	Filename string
	Stage    model.Stage
	Err      error
}

// ProgressFunc receives progress events. It may be called from multiple
// workers concurrently.
type ProgressFunc func(ProgressEvent)

// Deps collects the pipeline's collaborators.
type Deps struct {
	Store      *store.Store
	Index      index.Index
	Embedder   embed.Embedder
	Classifier classify.Classifier
	Extractor  *entity.Extractor
	Chunker    *chunker.Chunker
	Limiter    *worker.Limiter
	Workers    int
	Progress   ProgressFunc
}

// Pipeline runs documents through the ingest stages.
type Pipeline struct {
	deps Deps
}

// New creates a pipeline.
func New(deps Deps) *Pipeline {
	if deps.Progress == nil {
		deps.Progress = func(ProgressEvent) {}
	}
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	return &Pipeline{deps: deps}
}

// FailedFile describes one file that did not make it through the pipeline.
type FailedFile struct {
	Filename string
	Stage    model.Stage
	Reason   string
}

// Summary is the outcome of one ingest batch.
type Summary struct {
	Succeeded int
	Failed    []FailedFile
}

// fileResult adapts a processed document to the worker pool's result type.
type fileResult struct {
	doc *model.Document
	err error
}

func (r fileResult) GetError() error { return r.err }

// fileJob runs one file through the stages.
type fileJob struct {
	p         *Pipeline
	projectID string
	path      string
}

func (j fileJob) Execute(ctx context.Context) worker.Result {
	return j.p.processFile(ctx, j.projectID, j.path)
}

// IngestFiles processes the files for a project on the worker pool and
// returns the batch summary. Cancellation stops unstarted files and is
// honored between stages; completed documents stay indexed.
func (p *Pipeline) IngestFiles(ctx context.Context, projectID string, paths []string) (*Summary, error) {
	if projectID == "" {
		return nil, fmt.Errorf("ingest requires a project id")
	}

	pool := worker.NewPool(ctx, p.deps.Workers)
	pool.Start()
	for _, path := range paths {
		pool.Submit(fileJob{p: p, projectID: projectID, path: path})
	}
	results := pool.Wait()

	summary := &Summary{}
	for _, r := range results {
		fr := r.(fileResult)
		if fr.err == nil {
			summary.Succeeded++
			continue
		}
		failed := FailedFile{Reason: fr.err.Error()}
		if fr.doc != nil {
			failed.Filename = fr.doc.Filename
			failed.Stage = fr.doc.FailedStage
		}
		summary.Failed = append(summary.Failed, failed)
	}
	return summary, ctx.Err()
}

// processFile runs the stage sequence for one file. Any stage error marks
// the document Failed at that stage and ends its processing; the document
// row is kept so the failure is inspectable.
func (p *Pipeline) processFile(ctx context.Context, projectID, path string) fileResult {
	doc := &model.Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Filename:  filepath.Base(path),
		Category:  model.CategoryOther,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	// Extraction.
	if err := ctx.Err(); err != nil {
		return fileResult{doc: doc, err: err}
	}
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: model.StageExtraction})
	extraction, err := ingest.Extract(path)
	if err != nil {
		return p.fail(ctx, doc, model.StageExtraction, err)
	}
	doc.Text = extraction.Text
	doc.PageMap = extraction.PageMap
	doc.Status = model.StatusExtracted

	// Classification.
	if err := ctx.Err(); err != nil {
		return fileResult{doc: doc, err: err}
	}
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: model.StageClassification})
	cls, err := p.deps.Classifier.Classify(ctx, doc.Text, doc.Filename)
	if err != nil {
		return p.fail(ctx, doc, model.StageClassification, err)
	}
	doc.Category = cls.Category
	doc.Confidence = cls.Confidence
	doc.LLMFallback = cls.LLMFallback
	doc.Status = model.StatusClassified

	// Entity extraction is best effort and never fails the file.
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: model.StageEntities})
	entities := p.deps.Extractor.Extract(ctx, doc.Text, doc.Filename, doc.ID)
	doc.Entities = entities.Entities

	// Chunking.
	if err := ctx.Err(); err != nil {
		return fileResult{doc: doc, err: err}
	}
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: model.StageChunking})
	spans := p.deps.Chunker.Chunk(doc.Text)
	if len(spans) == 0 {
		return p.fail(ctx, doc, model.StageChunking, fmt.Errorf("no chunks produced"))
	}
	chunks := make([]model.Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = model.Chunk{
			ID:            uuid.NewString(),
			DocumentID:    doc.ID,
			Ordinal:       span.Ordinal,
			Text:          span.Text,
			TokenCount:    span.TokenCount,
			OverlapTokens: span.OverlapTokens,
		}
	}
	doc.Status = model.StatusChunked

	// Embedding, batched per document.
	if err := ctx.Err(); err != nil {
		return fileResult{doc: doc, err: err}
	}
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: model.StageEmbedding})
	if err := p.deps.Limiter.Wait(ctx, "embedding"); err != nil {
		return fileResult{doc: doc, err: err}
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(ctx, doc, model.StageEmbedding, err)
	}
	doc.Status = model.StatusEmbedded

	// Indexing.
	if err := ctx.Err(); err != nil {
		return fileResult{doc: doc, err: err}
	}
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: model.StageIndexing})
	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{
			ChunkID:    c.ID,
			DocumentID: doc.ID,
			ProjectID:  projectID,
			Category:   doc.Category,
			Vector:     vectors[i],
		}
	}
	if err := p.deps.Index.Upsert(ctx, entries); err != nil {
		return p.fail(ctx, doc, model.StageIndexing, err)
	}
	doc.Status = model.StatusIndexed

	// Persist the finished document with its chunks and entities.
	if err := p.deps.Store.SaveDocument(ctx, doc); err != nil {
		return fileResult{doc: doc, err: err}
	}
	if err := p.deps.Store.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return fileResult{doc: doc, err: err}
	}
	if err := p.deps.Store.SaveEntities(ctx, doc.ID, doc.Entities); err != nil {
		return fileResult{doc: doc, err: err}
	}

	return fileResult{doc: doc}
}

// fail records a stage failure on the document and persists it for later
// inspection. The original stage error is returned, not the save error.
func (p *Pipeline) fail(ctx context.Context, doc *model.Document, stage model.Stage, err error) fileResult {
	doc.Status = model.StatusFailed
	doc.FailedStage = stage
	doc.FailReason = err.Error()
	p.deps.Progress(ProgressEvent{Filename: doc.Filename, Stage: stage, Err: err})
	_ = p.deps.Store.SaveDocument(ctx, doc)
	return fileResult{doc: doc, err: fmt.Errorf("%s: %w", stage, err)}
}

// CorrectCategory applies a user category correction: the document row and
// its index entries are re-tagged, vectors and chunks stay as they are.
func (p *Pipeline) CorrectCategory(ctx context.Context, documentID string, category model.Category) error {
	if !model.ValidCategory(category) {
		return fmt.Errorf("unknown category: %q", category)
	}
	if err := p.deps.Store.UpdateCategory(ctx, documentID, category); err != nil {
		return err
	}
	return p.deps.Index.UpdateCategory(ctx, documentID, category)
}

// DeleteDocument removes a document everywhere: store row (chunks and
// entities cascade) and index entries.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID string) error {
	if err := p.deps.Store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	return p.deps.Index.DeleteByDocument(ctx, documentID)
}
