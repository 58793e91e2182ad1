package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/database"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/match"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// defaultTopPlansLimit bounds the stats rollup when no limit is given.
const defaultTopPlansLimit = 5

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

type submitResponse struct {
	Results []models.PlanResult `json:"results"`
}

// handleSubmit runs the evidence matcher. Unknown question ids or option
// keys are a no-op by contract, so answers are passed through unvalidated;
// only a missing or empty answer map is rejected.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with an answers object")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "empty_answers", "answers must not be empty")
		return
	}

	answers := make(map[string]models.OptionKey, len(req.Answers))
	for qid, option := range req.Answers {
		answers[qid] = models.OptionKey(option)
	}

	results, err := match.Match(answers, s.mapping)
	if err != nil {
		if errors.Is(err, match.ErrEmptyAnswers) {
			writeError(w, http.StatusBadRequest, "empty_answers", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "match_failed", "failed to compute matches")
		return
	}

	if s.db != nil {
		if err := s.db.StoreSubmission(r.Context(), answers, results); err != nil {
			// Persistence is best-effort; the user still gets their result.
			log.Printf("failed to persist submission: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, submitResponse{Results: results})
}

// handleRecommendation runs the sectioned position scorer. Unlike submit,
// coverage must be complete and option keys must come from the closed
// alphabet; the offending question is named in the error.
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with an answers object")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "empty_answers", "answers must not be empty")
		return
	}

	answers := make(map[string]models.OptionKey, len(req.Answers))
	for qid, option := range req.Answers {
		answers[qid] = models.OptionKey(option)
	}

	result, err := s.questionnaire.CalculateScores(answers, s.candidates)
	if err != nil {
		var verr *match.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid_answers", verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "scoring_failed", "failed to compute recommendation")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	Body string `json:"Body"`
	From string `json:"From"`
}

type chatResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// handleChat answers an inbound chat message. The transport always receives
// a well-formed acknowledgment: oracle failures collapse to a user-safe
// message internally and are only logged here.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("chat: malformed webhook payload: %v", err)
		writeJSON(w, http.StatusOK, chatResponse{Status: "received"})
		return
	}

	reply := s.oracle.Answer(r.Context(), req.Body)
	log.Printf("chat: answered message from %s", req.From)

	writeJSON(w, http.StatusOK, chatResponse{Status: "received", Reply: reply})
}

type topPlansResponse struct {
	Plans []database.PlanAggregate `json:"plans"`
}

// handleTopPlans reports the plans most matched across stored submissions.
// The route is only registered when persistence is enabled.
func (s *Server) handleTopPlans(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopPlansLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	plans, err := s.db.TopPlans(r.Context(), limit)
	if err != nil {
		log.Printf("failed to query top plans: %v", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to query top plans")
		return
	}

	writeJSON(w, http.StatusOK, topPlansResponse{Plans: plans})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
