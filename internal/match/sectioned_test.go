package match

import (
	"errors"
	"strings"
	"testing"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

func smallQuestionnaire(t *testing.T) *Questionnaire {
	t.Helper()
	q := &Questionnaire{
		Version: "test-v1",
		Order:   []string{"q1", "q2", "q3", "q4"},
		OptionCodes: map[models.OptionKey]int{
			models.OptionA: 1,
			models.OptionB: 2,
			models.OptionC: 3,
			models.OptionD: 4,
			models.OptionE: 5,
		},
		Sections: []Section{
			{ID: "s1", Name: "Economía", Weight: 1.0, Questions: []string{"q1", "q2"}},
			{ID: "s2", Name: "Seguridad", Weight: 2.0, Questions: []string{"q3", "q4"}},
		},
		Rule: ScoringRule{Exact: 1.0, Adjacent: 0.5},
	}
	if err := q.validate(); err != nil {
		t.Fatal(err)
	}
	return q
}

func fullAnswers() map[string]models.OptionKey {
	return map[string]models.OptionKey{
		"q1": models.OptionA,
		"q2": models.OptionB,
		"q3": models.OptionC,
		"q4": models.OptionD,
	}
}

func TestCalculateScoresExactAndAdjacent(t *testing.T) {
	q := smallQuestionnaire(t)
	candidates := []models.CandidatePosition{
		// Matches exactly on all four questions: section s1 = 2, s2 = 2,
		// total = 1*2 + 2*2 = 6.
		{ID: "exact", Party: "X", Answers: []int{1, 2, 3, 4}},
		// One code off on every question: 0.5 per question,
		// total = 1*1 + 2*1 = 3.
		{ID: "adjacent", Party: "Y", Answers: []int{2, 3, 4, 5}},
		// Far off everywhere: total 0.
		{ID: "far", Party: "Z", Answers: []int{5, 5, 1, 1}},
	}

	result, err := q.CalculateScores(fullAnswers(), candidates)
	if err != nil {
		t.Fatal(err)
	}

	if result.Version.Questionnaire != "test-v1" {
		t.Errorf("expected version tag test-v1, got %q", result.Version.Questionnaire)
	}
	if len(result.Candidates) != 3 {
		t.Fatalf("expected 3 scored candidates, got %d", len(result.Candidates))
	}

	// Sorted descending by total.
	if result.Candidates[0].ID != "exact" || result.Candidates[1].ID != "adjacent" || result.Candidates[2].ID != "far" {
		t.Fatalf("unexpected ranking: %+v", result.Candidates)
	}
	if got := result.Candidates[0].ScoreTotal; got != 6 {
		t.Errorf("exact candidate: expected total 6, got %v", got)
	}
	if got := result.Candidates[0].ScoresBySection["s1"]; got != 2 {
		t.Errorf("exact candidate: expected s1 subtotal 2, got %v", got)
	}
	if got := result.Candidates[1].ScoreTotal; got != 3 {
		t.Errorf("adjacent candidate: expected total 3, got %v", got)
	}
	if got := result.Candidates[2].ScoreTotal; got != 0 {
		t.Errorf("far candidate: expected total 0, got %v", got)
	}
}

func TestCalculateScoresRejectsMissingQuestion(t *testing.T) {
	q := smallQuestionnaire(t)
	answers := fullAnswers()
	delete(answers, "q3")

	_, err := q.CalculateScores(answers, []models.CandidatePosition{
		{ID: "c", Answers: []int{1, 2, 3, 4}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.QuestionID != "q3" {
		t.Errorf("expected error to name q3, got %q", verr.QuestionID)
	}
	if !strings.Contains(verr.Error(), "q3") {
		t.Errorf("error message should name the question: %q", verr.Error())
	}
}

func TestCalculateScoresRejectsInvalidOption(t *testing.T) {
	q := smallQuestionnaire(t)
	answers := fullAnswers()
	answers["q2"] = "Z"

	_, err := q.CalculateScores(answers, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.QuestionID != "q2" {
		t.Errorf("expected error to name q2, got %q", verr.QuestionID)
	}
}

func TestCalculateScoresRejectsShortPositionVector(t *testing.T) {
	q := smallQuestionnaire(t)
	_, err := q.CalculateScores(fullAnswers(), []models.CandidatePosition{
		{ID: "short", Answers: []int{1, 2}},
	})
	if err == nil {
		t.Fatal("expected error for mismatched position vector length")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Errorf("candidate data mismatch is a config error, not a submission validation error")
	}
}

func TestScoringRuleContribution(t *testing.T) {
	rule := ScoringRule{Exact: 1.0, Adjacent: 0.5}
	tests := []struct {
		user, candidate int
		want            float64
	}{
		{3, 3, 1.0},
		{3, 4, 0.5},
		{4, 3, 0.5},
		{1, 5, 0},
		{2, 4, 0},
	}
	for _, tt := range tests {
		if got := rule.Contribution(tt.user, tt.candidate); got != tt.want {
			t.Errorf("Contribution(%d, %d) = %v, want %v", tt.user, tt.candidate, got, tt.want)
		}
	}
}

func TestDefaultQuestionnaireIsValid(t *testing.T) {
	q := DefaultQuestionnaire()
	if len(q.Order) != 20 {
		t.Errorf("expected 20 canonical questions, got %d", len(q.Order))
	}
	if q.Version == "" {
		t.Error("default questionnaire must carry a version tag")
	}

	// Every canonical question belongs to exactly one section.
	counts := make(map[string]int)
	for _, sec := range q.Sections {
		for _, qid := range sec.Questions {
			counts[qid]++
		}
	}
	for _, qid := range q.Order {
		if counts[qid] != 1 {
			t.Errorf("question %s assigned to %d sections, want 1", qid, counts[qid])
		}
	}
}

func TestQuestionnaireValidateRejectsUnassignedQuestion(t *testing.T) {
	q := &Questionnaire{
		Version:     "v",
		Order:       []string{"q1", "q2"},
		OptionCodes: map[models.OptionKey]int{models.OptionA: 1},
		Sections: []Section{
			{ID: "s1", Weight: 1, Questions: []string{"q1"}},
		},
	}
	if err := q.validate(); err == nil {
		t.Error("expected validation error for unassigned question")
	}
}
