package models

import "fmt"

// OptionKey is one of the closed set of answer choices ("A".."E").
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
	OptionE OptionKey = "E"
)

// ParseOptionKey validates a raw answer value against the closed alphabet.
func ParseOptionKey(raw string) (OptionKey, error) {
	switch OptionKey(raw) {
	case OptionA, OptionB, OptionC, OptionD, OptionE:
		return OptionKey(raw), nil
	}
	return "", fmt.Errorf("invalid option key %q: must be one of A-E", raw)
}

// Plan represents a political party's governing program.
type Plan struct {
	PlanID        int    `json:"plan_id"`
	Party         string `json:"party"`
	CandidateName string `json:"candidate_display_name"`
	URL           string `json:"url"`
}

// Evidence links a (question, option) pair to a plan that the option supports.
type Evidence struct {
	PlanID      int    `json:"plan_id"`
	Label       string `json:"label"`
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
}

// OptionMapping holds the evidences attached to one selectable answer option.
type OptionMapping struct {
	Option    OptionKey  `json:"option"`
	Evidences []Evidence `json:"evidences"`
}

// QuestionMapping binds a question to its per-option evidence lists.
type QuestionMapping struct {
	QuestionID string          `json:"question_id"`
	Options    []OptionMapping `json:"options"`
}

// QuestionnaireMapping is the full mapping document loaded at startup.
type QuestionnaireMapping struct {
	Plans                  []Plan            `json:"plans"`
	QuestionOptionMappings []QuestionMapping `json:"question_option_mappings"`
}

// MatchedEvidence pairs an evidence with the question it was matched under.
// Order within a PlanResult is the order answers were processed.
type MatchedEvidence struct {
	QuestionID string   `json:"question_id"`
	Evidence   Evidence `json:"evidence"`
}

// PlanResult is the per-submission scoring outcome for a single plan.
type PlanResult struct {
	Plan
	MatchScore        int               `json:"match_score"`
	MatchPercentage   int               `json:"match_percentage"`
	MatchingEvidences []MatchedEvidence `json:"matching_evidences"`
}

// CandidatePosition holds a candidate's stored stance codes, one per question
// in the canonical questionnaire order.
type CandidatePosition struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Party    string `json:"party"`
	Ideology string `json:"ideology"`
	Answers  []int  `json:"answers"`
}

// CandidateScore is the sectioned scorer's output for one candidate.
type CandidateScore struct {
	ID              string             `json:"id"`
	ScoreTotal      float64            `json:"scoreTotal"`
	ScoresBySection map[string]float64 `json:"scoresBySection"`
}

// EmbeddingChunk is one embedded slice of a source document, as written to and
// read from the NDJSON store.
type EmbeddingChunk struct {
	Party      string    `json:"party"`
	ChunkIndex int       `json:"chunkIndex"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Embedding  []float64 `json:"embedding"`
}

// ScoredChunk is an EmbeddingChunk with a request-scoped similarity score.
type ScoredChunk struct {
	EmbeddingChunk
	Score float64 `json:"score"`
}
