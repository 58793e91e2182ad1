package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/config"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedding"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/embedstore"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/llm"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/retriever"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	queryFlag := flag.String("q", "", "Question to answer (non-interactive mode)")
	interactive := flag.Bool("i", false, "Run in interactive mode")
	topK := flag.Int("context", 0, "Number of context chunks to retrieve (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *topK > 0 {
		cfg.Retriever.TopK = *topK
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.EmbeddingModel)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	generator, err := llm.NewOllamaLLM(cfg.Ollama.GenerationModel)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	store := embedstore.New(cfg.Data.EmbeddingStore)
	oracle := llm.NewOracle(retriever.New(store, embedder), generator, cfg.Retriever.TopK)

	ctx := context.Background()

	if *interactive {
		runInteractiveMode(ctx, oracle, store)
		return
	}

	if *queryFlag == "" {
		log.Fatal("Question is required in non-interactive mode. Use -q 'your question'")
	}
	fmt.Println(answer(ctx, oracle, *queryFlag))
}

func runInteractiveMode(ctx context.Context, oracle *llm.Oracle, store *embedstore.Store) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Altoq - Pregunta sobre los planes de gobierno (escribe 'salir' para terminar)")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		lowered := strings.ToLower(input)
		if lowered == "salir" || lowered == "exit" || lowered == "quit" {
			break
		}

		if lowered == "/partidos" {
			parties, err := store.Parties()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("Partidos con planes indexados:")
			for _, party := range parties {
				fmt.Println("  " + party)
			}
			continue
		}

		fmt.Print("Buscando en los planes de gobierno... ")
		fmt.Println("\r" + answer(ctx, oracle, input))
	}
}

func answer(ctx context.Context, oracle *llm.Oracle, query string) string {
	startTime := time.Now()
	reply := oracle.Answer(ctx, query)
	log.Printf("Query processed in %v", time.Since(startTime))
	return reply
}
