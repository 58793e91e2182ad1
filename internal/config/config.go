// Package config loads the application configuration from a YAML file,
// filling in defaults for anything unset.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DataConfig points at the static data files driving the engines.
type DataConfig struct {
	MappingPath       string `yaml:"mapping_path"`
	CandidatesPath    string `yaml:"candidates_path"`
	QuestionnairePath string `yaml:"questionnaire_path"`
	EmbeddingStore    string `yaml:"embedding_store"`
}

// OllamaConfig selects the models used for embedding and generation.
type OllamaConfig struct {
	EmbeddingModel  string `yaml:"embedding_model"`
	GenerationModel string `yaml:"generation_model"`
}

// DatabaseConfig configures optional submission persistence. An empty URL
// disables it.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RetrieverConfig configures context retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// IngestConfig configures the offline ingestion pipeline.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Database  DatabaseConfig  `yaml:"database"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// Load reads a config from the given path. A missing file returns defaults;
// a malformed one is an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Data.MappingPath == "" {
		cfg.Data.MappingPath = "data/mapping.json"
	}
	if cfg.Data.CandidatesPath == "" {
		cfg.Data.CandidatesPath = "data/candidates.json"
	}
	if cfg.Data.EmbeddingStore == "" {
		cfg.Data.EmbeddingStore = "data/embeddings.ndjson"
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Ollama.GenerationModel == "" {
		cfg.Ollama.GenerationModel = "llama3"
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 5
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 50
	}
}
