package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/config"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedding"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedstore"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/ingest"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/processor"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	storePath := flag.String("store", "", "Embedding store file (overrides config)")
	model := flag.String("model", "", "Ollama embedding model (overrides config)")
	chunkSize := flag.Int("chunk-size", 0, "Character size for text chunks (overrides config)")
	chunkOverlap := flag.Int("chunk-overlap", 0, "Character overlap between chunks (overrides config)")
	batchSize := flag.Int("batch-size", 0, "Chunks per embedding request (overrides config)")
	flag.Parse()

	// Each positional argument names one source document as "Party:path".
	if flag.NArg() == 0 {
		log.Fatal("Usage: ingest [flags] 'Fuerza Popular:plans/fp.pdf' ['Perú Libre:plans/pl.pdf' ...]")
	}
	var docs []ingest.SourceDocument
	for _, arg := range flag.Args() {
		party, path, ok := strings.Cut(arg, ":")
		if !ok || party == "" || path == "" {
			log.Fatalf("Invalid source document %q: expected 'Party:path'", arg)
		}
		docs = append(docs, ingest.SourceDocument{Party: party, Path: path})
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *storePath != "" {
		cfg.Data.EmbeddingStore = *storePath
	}
	if *model != "" {
		cfg.Ollama.EmbeddingModel = *model
	}
	if *chunkSize > 0 {
		cfg.Ingest.ChunkSize = *chunkSize
	}
	if *chunkOverlap > 0 {
		cfg.Ingest.ChunkOverlap = *chunkOverlap
	}
	if *batchSize > 0 {
		cfg.Ingest.BatchSize = *batchSize
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.EmbeddingModel)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	proc := processor.NewDocumentProcessor(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	store := embedstore.New(cfg.Data.EmbeddingStore)

	pipeline := ingest.NewPipeline(proc, embedder, store)
	pipeline.BatchSize = cfg.Ingest.BatchSize

	log.Printf("Ingesting %d documents into %s", len(docs), cfg.Data.EmbeddingStore)
	log.Printf("Using model %s, chunk size %d/%d, batch size %d",
		cfg.Ollama.EmbeddingModel, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, pipeline.BatchSize)

	startTime := time.Now()
	stats, err := pipeline.Run(context.Background(), docs)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	log.Printf("Completed ingestion in %v", time.Since(startTime))
	printStats(stats)
	if stats.FailedBatches > 0 {
		log.Printf("WARNING: %d batches were dropped after exhausting retries", stats.FailedBatches)
	}
}

func printStats(stats *ingest.Stats) {
	log.Printf("Ingestion Statistics:")
	log.Printf("  Documents: %d", stats.Documents)
	log.Printf("  Chunks stored: %d", stats.Chunks)
	if stats.Chunks > 0 {
		log.Printf("  Average chunk length: %.1f characters", float64(stats.TotalChars)/float64(stats.Chunks))
	}

	log.Println("  Chunks per party:")
	for party, count := range stats.ChunksByParty {
		log.Printf("    %s: %d chunks", party, count)
	}

	log.Println("  Chunks per source:")
	for source, count := range stats.ChunksBySource {
		log.Printf("    %s: %d chunks", source, count)
	}
}
