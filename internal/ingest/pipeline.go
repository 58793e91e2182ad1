// Package ingest runs the offline batch job that populates the embedding
// store: extract and chunk each source document, request embeddings in
// rate-limited batches with retry, and append results incrementally.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedding"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/processor"
)

// DefaultBatchSize is the number of chunks embedded per API request.
const DefaultBatchSize = 50

// BatchEmbedder embeds a batch of texts in one call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Appender writes finished chunks to the embedding store.
type Appender interface {
	Append(chunks []models.EmbeddingChunk) error
}

// RetryPolicy controls per-batch embedding retries. The sleep and rate-limit
// probes are injectable so the policy is testable with a fake clock.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries per batch.
	MaxAttempts int
	// ThrottleDelay is waited before every attempt, including the first,
	// to keep the request rate down proactively.
	ThrottleDelay time.Duration
	// RateLimitBase seeds the exponential backoff after a rate-limit
	// rejection; the wait doubles on each further retry.
	RateLimitBase time.Duration
	// ErrorDelay is the fixed wait after any other failure.
	ErrorDelay time.Duration

	Sleep       func(time.Duration)
	IsRateLimit func(error) bool
}

// DefaultRetryPolicy returns the policy used in production runs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   5,
		ThrottleDelay: 200 * time.Millisecond,
		RateLimitBase: 2 * time.Second,
		ErrorDelay:    500 * time.Millisecond,
	}
}

func (r RetryPolicy) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (r RetryPolicy) isRateLimit(err error) bool {
	if r.IsRateLimit != nil {
		return r.IsRateLimit(err)
	}
	return embedding.IsRateLimited(err)
}

// SourceDocument names one governing-plan document to ingest.
type SourceDocument struct {
	Path  string
	Party string
}

// Stats summarizes an ingestion run.
type Stats struct {
	Documents      int
	Chunks         int
	FailedBatches  int
	ChunksByParty  map[string]int
	ChunksBySource map[string]int
	TotalChars     int
}

// Pipeline is the offline ingestion job. Batches run strictly sequentially;
// each waits for the previous one, partly to respect embedding API rate
// limits.
type Pipeline struct {
	Processor *processor.DocumentProcessor
	Embedder  BatchEmbedder
	Store     Appender
	BatchSize int
	Retry     RetryPolicy
}

// NewPipeline creates an ingestion pipeline with the default batch size and
// retry policy.
func NewPipeline(proc *processor.DocumentProcessor, embedder BatchEmbedder, store Appender) *Pipeline {
	return &Pipeline{
		Processor: proc,
		Embedder:  embedder,
		Store:     store,
		BatchSize: DefaultBatchSize,
		Retry:     DefaultRetryPolicy(),
	}
}

// Run ingests every source document. A batch that exhausts its retries is
// logged as lost data and skipped; the run continues with the next batch.
// Only document-level failures (unreadable file) abort the run.
func (p *Pipeline) Run(ctx context.Context, docs []SourceDocument) (*Stats, error) {
	stats := &Stats{
		ChunksByParty:  make(map[string]int),
		ChunksBySource: make(map[string]int),
	}

	for _, doc := range docs {
		chunks, err := p.Processor.ProcessDocument(doc.Path, doc.Party)
		if err != nil {
			return stats, fmt.Errorf("failed to process %s: %w", doc.Path, err)
		}
		log.Printf("Processing %s (%s): %d chunks", doc.Path, doc.Party, len(chunks))

		for start := 0; start < len(chunks); start += p.BatchSize {
			end := start + p.BatchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			batch := chunks[start:end]

			if err := p.embedBatch(ctx, batch); err != nil {
				stats.FailedBatches++
				log.Printf("CRITICAL: dropping batch %d-%d of %s after %d attempts: %v",
					start, end-1, doc.Path, p.Retry.MaxAttempts, err)
				continue
			}

			if err := p.Store.Append(batch); err != nil {
				return stats, fmt.Errorf("failed to append batch to store: %w", err)
			}

			stats.Chunks += len(batch)
			stats.ChunksByParty[doc.Party] += len(batch)
			for _, c := range batch {
				stats.ChunksBySource[c.Source]++
				stats.TotalChars += len(c.Content)
			}
		}

		stats.Documents++
	}

	return stats, nil
}

// embedBatch fills in the batch's embeddings, applying the retry policy.
func (p *Pipeline) embedBatch(ctx context.Context, batch []models.EmbeddingChunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	var lastErr error
	rateLimitDelay := p.Retry.RateLimitBase
	for attempt := 1; attempt <= p.Retry.MaxAttempts; attempt++ {
		p.Retry.sleep(p.Retry.ThrottleDelay)

		vectors, err := p.Embedder.EmbedBatch(ctx, texts)
		if err == nil {
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		}
		lastErr = err

		if attempt == p.Retry.MaxAttempts {
			break
		}
		if p.Retry.isRateLimit(err) {
			log.Printf("rate limited, backing off %v (attempt %d/%d)", rateLimitDelay, attempt, p.Retry.MaxAttempts)
			p.Retry.sleep(rateLimitDelay)
			rateLimitDelay *= 2
		} else {
			p.Retry.sleep(p.Retry.ErrorDelay)
		}
	}
	return lastErr
}
