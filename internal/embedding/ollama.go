// Package embedding wraps the Ollama embeddings API behind the small
// interfaces the retriever and ingestion pipeline consume.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaEmbedder generates embeddings using the Ollama API.
type OllamaEmbedder struct {
	Client     *api.Client
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder. The host defaults to the
// OLLAMA_HOST environment variable.
func NewOllamaEmbedder(model string) (*OllamaEmbedder, error) {
	client := api.NewClient(envconfig.Host(), http.DefaultClient)

	return &OllamaEmbedder{
		Client:     client,
		Model:      model,
		MaxRetries: 3,
		Timeout:    time.Second * 30,
	}, nil
}

// EmbedText generates an embedding for a single text, retrying transient
// failures. Used on the query path.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	var err error

	for retries := 0; retries <= e.MaxRetries; retries++ {
		// A dead request must stop immediately instead of burning retries.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if retries > 0 {
			time.Sleep(time.Duration(retries) * time.Second)
		}

		embedding, err = e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
	}

	return nil, fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
}

func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	return resp.Embedding, nil
}

// EmbedBatch generates embeddings for a batch of texts in one request. It
// makes a single attempt; the ingestion pipeline owns the retry policy.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	req := api.EmbedRequest{
		Model: e.Model,
		Input: texts,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embed(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		out[i] = make([]float64, len(vec))
		for j, v := range vec {
			out[i][j] = float64(v)
		}
	}
	return out, nil
}

// IsRateLimited reports whether an error is the API's rate-limit rejection.
func IsRateLimited(err error) bool {
	var statusErr api.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests
}
