// Package server exposes the matching engines and the chat oracle over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/database"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/llm"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/mapping"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/match"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// Config holds the server's listen address.
type Config struct {
	Host string
	Port int
}

// SubmissionStore persists submissions and answers aggregate queries over
// them. *database.DB is the production implementation.
type SubmissionStore interface {
	StoreSubmission(ctx context.Context, answers map[string]models.OptionKey, results []models.PlanResult) error
	TopPlans(ctx context.Context, limit int) ([]database.PlanAggregate, error)
}

// Server wires the scoring engines, oracle and optional persistence behind
// the HTTP API.
type Server struct {
	config        Config
	mapping       *mapping.Store
	questionnaire *match.Questionnaire
	candidates    []models.CandidatePosition
	oracle        *llm.Oracle
	db            SubmissionStore

	router     *mux.Router
	httpServer *http.Server
}

// New creates a server. db may be nil; submissions are then not persisted and
// the stats routes are not registered.
func New(cfg Config, store *mapping.Store, questionnaire *match.Questionnaire,
	candidates []models.CandidatePosition, oracle *llm.Oracle, db SubmissionStore) *Server {

	s := &Server{
		config:        cfg,
		mapping:       store,
		questionnaire: questionnaire,
		candidates:    candidates,
		oracle:        oracle,
		db:            db,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/submit", s.handleSubmit).Methods("POST")
	api.HandleFunc("/recommendation", s.handleRecommendation).Methods("POST")
	api.HandleFunc("/chat", s.handleChat).Methods("POST")

	// Aggregate queries only exist when submissions are being persisted.
	if s.db != nil {
		api.HandleFunc("/stats/top-plans", s.handleTopPlans).Methods("GET")
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
