// Package retriever implements similarity search over the embedding store:
// query embedding, cosine scoring, party detection and party-balanced top-K
// selection, plus the context formatting consumed by the oracle.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedstore"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

const (
	// DefaultTopK is the selection size when no party is detected.
	DefaultTopK = 5
	// chunksPerParty is the guaranteed minimum per detected party in
	// balanced mode.
	chunksPerParty = 3
	// balancedCap is the expanded total cap in balanced mode.
	balancedCap = 15
)

// Embedder turns free text into an embedding vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// Retriever scores a query against the embedding store and selects context
// chunks for the oracle.
type Retriever struct {
	store    *embedstore.Store
	embedder Embedder
}

// New creates a retriever over the given store and embedder.
func New(store *embedstore.Store, embedder Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// RetrieveContext returns a formatted context block for the query, or an
// empty string when the store holds nothing useful. An absent store file is
// not an error: the oracle must answer "no information" rather than fail.
// A failed query embedding does propagate; the oracle layer turns it into a
// user-facing apology.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, topK int) (string, error) {
	chunks, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return FormatContext(chunks), nil
}

// Retrieve returns the selected chunks for a query, sorted by score
// descending.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	all, err := r.store.Chunks()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("embedding store not found, returning empty context: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	parties, err := r.store.Parties()
	if err != nil {
		return nil, err
	}
	detected := DetectParties(query, parties)

	candidates := all
	if len(detected) > 0 {
		detectedSet := make(map[string]struct{}, len(detected))
		for _, p := range detected {
			detectedSet[p] = struct{}{}
		}
		candidates = candidates[:0:0]
		for _, c := range all {
			if _, ok := detectedSet[c.Party]; ok {
				candidates = append(candidates, c)
			}
		}
	}

	queryVec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored := make([]models.ScoredChunk, len(candidates))
	for i, c := range candidates {
		scored[i] = models.ScoredChunk{
			EmbeddingChunk: c,
			Score:          CosineSimilarity(queryVec, c.Embedding),
		}
	}
	sortByScore(scored)

	if len(detected) > 0 {
		return selectBalanced(scored, detected), nil
	}
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// DetectParties finds known party names mentioned in a query. Longer names
// are matched first and masked out, so "Alianza para el Progreso" never also
// registers a bare "Alianza".
func DetectParties(query string, known []string) []string {
	lowered := strings.ToLower(query)

	ordered := make([]string, len(known))
	copy(ordered, known)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	var detected []string
	for _, party := range ordered {
		name := strings.ToLower(party)
		if name == "" || !strings.Contains(lowered, name) {
			continue
		}
		detected = append(detected, party)
		lowered = strings.ReplaceAll(lowered, name, strings.Repeat(" ", len(name)))
	}
	sort.Strings(detected)
	return detected
}

// selectBalanced guarantees chunksPerParty top-scoring chunks per detected
// party, then fills up to balancedCap with the next-best remaining chunks,
// deduplicated by (party, chunkIndex). Input must be sorted by score
// descending; output is as well.
func selectBalanced(scored []models.ScoredChunk, parties []string) []models.ScoredChunk {
	type key struct {
		party string
		index int
	}
	taken := make(map[key]struct{})
	var selected []models.ScoredChunk

	take := func(c models.ScoredChunk) bool {
		k := key{c.Party, c.ChunkIndex}
		if _, dup := taken[k]; dup {
			return false
		}
		taken[k] = struct{}{}
		selected = append(selected, c)
		return true
	}

	for _, party := range parties {
		count := 0
		for _, c := range scored {
			if count >= chunksPerParty {
				break
			}
			if c.Party == party && take(c) {
				count++
			}
		}
	}

	for _, c := range scored {
		if len(selected) >= balancedCap {
			break
		}
		take(c)
	}

	sortByScore(selected)
	return selected
}

// FormatContext renders selected chunks as the oracle's context block.
func FormatContext(chunks []models.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[PARTIDO: %s]\nTEXTO: %s", c.Party, c.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// CosineSimilarity computes the normalized dot product of two vectors.
// Zero-magnitude vectors score 0, never NaN.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortByScore(chunks []models.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}
