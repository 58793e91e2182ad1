// Package embedstore manages the newline-delimited JSON file of pre-computed
// text-chunk embeddings. The ingestion pipeline appends to it one record per
// line; the retriever reads it wholesale into a process-lifetime cache.
package embedstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// Store is the embedding store backed by an NDJSON file. Reads are served
// from an in-memory cache populated at most once for the life of the process.
type Store struct {
	path string

	loadOnce sync.Once
	loadErr  error
	chunks   []models.EmbeddingChunk

	appendMu sync.Mutex
}

// New creates a store over the given NDJSON file. The file is not touched
// until the first read or append.
func New(path string) *Store {
	return &Store{path: path}
}

// Chunks returns every chunk in the store, loading the file on first call.
// A missing file surfaces as a wrapped os.ErrNotExist so callers can choose
// to treat it as an empty store.
func (s *Store) Chunks() ([]models.EmbeddingChunk, error) {
	s.loadOnce.Do(func() {
		s.chunks, s.loadErr = readAll(s.path)
	})
	return s.chunks, s.loadErr
}

// Parties returns the distinct party names present in the store, sorted.
func (s *Store) Parties() ([]string, error) {
	chunks, err := s.Chunks()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var parties []string
	for _, c := range chunks {
		if _, ok := seen[c.Party]; ok {
			continue
		}
		seen[c.Party] = struct{}{}
		parties = append(parties, c.Party)
	}
	sort.Strings(parties)
	return parties, nil
}

// Append writes chunks to the end of the store file, one JSON record per
// line, creating the file if needed. Append-only writes keep the store
// resumable and inspectable mid-run; a crash never loses earlier batches.
// The in-memory cache is not refreshed: ingestion runs offline, upstream of
// any reader.
func (s *Store) Append(chunks []models.EmbeddingChunk) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open embedding store for append: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to append chunk %d of %s: %w", c.ChunkIndex, c.Source, err)
		}
	}
	return nil
}

func readAll(path string) ([]models.EmbeddingChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding store: %w", err)
	}
	defer f.Close()

	var chunks []models.EmbeddingChunk
	dec := json.NewDecoder(f)
	for {
		var c models.EmbeddingChunk
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse embedding store record %d: %w", len(chunks), err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
