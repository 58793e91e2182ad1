package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/config"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/database"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedding"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedstore"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/llm"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/mapping"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/match"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/retriever"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	pgConnString := flag.String("pg", "", "PostgreSQL connection string (overrides config; empty disables persistence)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *pgConnString != "" {
		cfg.Database.URL = *pgConnString
	}

	// The mapping document is mandatory: the matcher must not run without it.
	store, err := mapping.Load(cfg.Data.MappingPath)
	if err != nil {
		log.Fatalf("Failed to load mapping: %v", err)
	}
	log.Printf("Loaded %d plans, %d question mappings",
		len(store.Plans()), len(store.Mapping.QuestionOptionMappings))

	questionnaire := match.DefaultQuestionnaire()
	if cfg.Data.QuestionnairePath != "" {
		questionnaire, err = match.LoadQuestionnaire(cfg.Data.QuestionnairePath)
		if err != nil {
			log.Fatalf("Failed to load questionnaire: %v", err)
		}
	}
	log.Printf("Using questionnaire %s (%d questions)", questionnaire.Version, len(questionnaire.Order))

	candidates, err := match.LoadCandidatePositions(cfg.Data.CandidatesPath)
	if err != nil {
		log.Fatalf("Failed to load candidate positions: %v", err)
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.EmbeddingModel)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	generator, err := llm.NewOllamaLLM(cfg.Ollama.GenerationModel)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	chunks := embedstore.New(cfg.Data.EmbeddingStore)
	contextRetriever := retriever.New(chunks, embedder)
	oracle := llm.NewOracle(contextRetriever, generator, cfg.Retriever.TopK)

	// The interface must stay nil when persistence is off, so the server
	// skips the stats routes; a typed nil *database.DB would not.
	var submissions server.SubmissionStore
	if cfg.Database.URL != "" {
		db, err := database.NewDB(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Initialize(context.Background()); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		submissions = db
		log.Println("Submission persistence enabled")
	}

	srv := server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, store, questionnaire, candidates, oracle, submissions)

	log.Printf("Listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
