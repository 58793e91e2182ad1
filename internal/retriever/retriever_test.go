package retriever

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedstore"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// fakeEmbedder returns a fixed vector for every query. Chunk scores are then
// fully determined by the chunk embeddings written to the store.
type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) EmbedText(_ context.Context, _ string) ([]float64, error) {
	return f.vec, f.err
}

// chunkVec returns a 3-dim embedding whose similarity to the all-ones query
// decreases as weight grows.
func chunkVec(weight float64) []float64 {
	return []float64{1, 1, 1 / (1 + weight)}
}

func buildStore(t *testing.T, chunks []models.EmbeddingChunk) *embedstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embeddings.ndjson")
	store := embedstore.New(path)
	if err := store.Append(chunks); err != nil {
		t.Fatal(err)
	}
	return store
}

func partyChunks(party, source string, n int) []models.EmbeddingChunk {
	chunks := make([]models.EmbeddingChunk, n)
	for i := 0; i < n; i++ {
		chunks[i] = models.EmbeddingChunk{
			Party:      party,
			ChunkIndex: i,
			Content:    fmt.Sprintf("%s propuesta %d", party, i),
			Source:     source,
			Embedding:  chunkVec(float64(i)),
		}
	}
	return chunks
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"zero left", []float64{0, 0}, []float64{1, 1}, 0},
		{"zero right", []float64{1, 1}, []float64{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.IsNaN(got) {
				t.Fatal("similarity is NaN")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if got < -1-1e-9 || got > 1+1e-9 {
				t.Errorf("similarity %v outside [-1, 1]", got)
			}
		})
	}
}

func TestDetectPartiesPrefersLongerNames(t *testing.T) {
	known := []string{"Alianza", "Alianza para el Progreso", "Fuerza Popular"}

	got := DetectParties("¿Qué propone alianza para el progreso?", known)
	if !reflect.DeepEqual(got, []string{"Alianza para el Progreso"}) {
		t.Errorf("long name should mask its substring: got %v", got)
	}

	got = DetectParties("háblame de Alianza", known)
	if !reflect.DeepEqual(got, []string{"Alianza"}) {
		t.Errorf("bare short name should still match: got %v", got)
	}

	got = DetectParties("clima en Lima", known)
	if got != nil {
		t.Errorf("expected no detection, got %v", got)
	}
}

func TestRetrieveGeneralModeTopK(t *testing.T) {
	store := buildStore(t, partyChunks("Fuerza Popular", "fp.pdf", 8))
	r := New(store, &fakeEmbedder{vec: []float64{1, 1, 1}})

	// Query mentions no party: plain top-K.
	chunks, err := r.Retrieve(context.Background(), "propuestas sobre educación", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Score > chunks[i-1].Score {
			t.Errorf("chunks not sorted by score descending at %d", i)
		}
	}
	// Lower-index chunks embed closer to the query.
	if chunks[0].ChunkIndex != 0 {
		t.Errorf("best chunk should be index 0, got %d", chunks[0].ChunkIndex)
	}
}

func TestRetrieveBalancedAcrossParties(t *testing.T) {
	var all []models.EmbeddingChunk
	all = append(all, partyChunks("Fuerza Popular", "fp.pdf", 10)...)
	all = append(all, partyChunks("Perú Libre", "pl.pdf", 10)...)
	all = append(all, partyChunks("Renovación Popular", "rp.pdf", 10)...)
	store := buildStore(t, all)
	r := New(store, &fakeEmbedder{vec: []float64{1, 1, 1}})

	chunks, err := r.Retrieve(context.Background(), "compara fuerza popular y perú libre", 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(chunks) > 15 {
		t.Errorf("balanced selection exceeded cap: %d chunks", len(chunks))
	}
	counts := make(map[string]int)
	for _, c := range chunks {
		counts[c.Party]++
	}
	if counts["Fuerza Popular"] < 3 || counts["Perú Libre"] < 3 {
		t.Errorf("party balance violated: %v", counts)
	}
	if counts["Renovación Popular"] != 0 {
		t.Errorf("undetected party leaked into results: %v", counts)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Score > chunks[i-1].Score {
			t.Errorf("balanced results not re-sorted by score at %d", i)
		}
	}

	// No (party, chunkIndex) pair appears twice.
	seen := make(map[string]bool)
	for _, c := range chunks {
		k := fmt.Sprintf("%s/%d", c.Party, c.ChunkIndex)
		if seen[k] {
			t.Errorf("duplicate chunk %s", k)
		}
		seen[k] = true
	}
}

func TestRetrieveBalancedWithScarceParty(t *testing.T) {
	var all []models.EmbeddingChunk
	all = append(all, partyChunks("Fuerza Popular", "fp.pdf", 10)...)
	all = append(all, partyChunks("Perú Libre", "pl.pdf", 2)...)
	store := buildStore(t, all)
	r := New(store, &fakeEmbedder{vec: []float64{1, 1, 1}})

	chunks, err := r.Retrieve(context.Background(), "fuerza popular y perú libre", 5)
	if err != nil {
		t.Fatal(err)
	}
	counts := make(map[string]int)
	for _, c := range chunks {
		counts[c.Party]++
	}
	// All available chunks of the scarce party are present.
	if counts["Perú Libre"] != 2 {
		t.Errorf("expected both Perú Libre chunks, got %d", counts["Perú Libre"])
	}
	if counts["Fuerza Popular"] < 3 {
		t.Errorf("expected at least 3 Fuerza Popular chunks, got %d", counts["Fuerza Popular"])
	}
}

func TestRetrieveMissingStoreFailsSoft(t *testing.T) {
	store := embedstore.New(filepath.Join(t.TempDir(), "absent.ndjson"))
	r := New(store, &fakeEmbedder{vec: []float64{1}})

	formatted, err := r.RetrieveContext(context.Background(), "cualquier cosa", 5)
	if err != nil {
		t.Fatalf("missing store should not error: %v", err)
	}
	if formatted != "" {
		t.Errorf("expected empty context, got %q", formatted)
	}
}

func TestRetrieveEmbedderErrorPropagates(t *testing.T) {
	store := buildStore(t, partyChunks("Fuerza Popular", "fp.pdf", 3))
	r := New(store, &fakeEmbedder{err: fmt.Errorf("model offline")})

	_, err := r.Retrieve(context.Background(), "educación", 5)
	if err == nil || !strings.Contains(err.Error(), "failed to embed query") {
		t.Errorf("expected wrapped embed error, got %v", err)
	}
}

func TestFormatContext(t *testing.T) {
	chunks := []models.ScoredChunk{
		{EmbeddingChunk: models.EmbeddingChunk{Party: "Fuerza Popular", Content: "texto uno"}, Score: 0.9},
		{EmbeddingChunk: models.EmbeddingChunk{Party: "Perú Libre", Content: "texto dos"}, Score: 0.8},
	}
	got := FormatContext(chunks)
	want := "[PARTIDO: Fuerza Popular]\nTEXTO: texto uno\n\n[PARTIDO: Perú Libre]\nTEXTO: texto dos"
	if got != want {
		t.Errorf("unexpected format:\ngot  %q\nwant %q", got, want)
	}

	if FormatContext(nil) != "" {
		t.Error("empty selection should format to empty string")
	}
}
