package match

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// Section groups canonical questions under a weighted topic.
type Section struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Weight    float64  `yaml:"weight" json:"weight"`
	Questions []string `yaml:"questions" json:"questions"`
}

// ScoringRule is the per-question contribution rule. It is configuration, not
// code: exact agreement earns Exact, codes one step apart earn Adjacent,
// anything further earns nothing.
type ScoringRule struct {
	Exact    float64 `yaml:"exact" json:"exact"`
	Adjacent float64 `yaml:"adjacent" json:"adjacent"`
}

// Contribution returns the score earned by a user code against a candidate code.
func (r ScoringRule) Contribution(userCode, candidateCode int) float64 {
	diff := userCode - candidateCode
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return r.Exact
	case 1:
		return r.Adjacent
	}
	return 0
}

// Questionnaire is the canonical question-set configuration driving the
// sectioned scorer: question order, option-to-code translation, section
// grouping, contribution rule and a version tag binding results to this
// exact configuration.
type Questionnaire struct {
	Version     string                      `yaml:"version" json:"version"`
	Order       []string                    `yaml:"order" json:"order"`
	OptionCodes map[models.OptionKey]int    `yaml:"option_codes" json:"option_codes"`
	Sections    []Section                   `yaml:"sections" json:"sections"`
	Rule        ScoringRule                 `yaml:"rule" json:"rule"`
	sectionOf   map[string]int
}

// LoadQuestionnaire reads a questionnaire configuration from a YAML file.
func LoadQuestionnaire(path string) (*Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questionnaire file: %w", err)
	}
	var q Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire file: %w", err)
	}
	if err := q.validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

func (q *Questionnaire) validate() error {
	if q.Version == "" {
		return fmt.Errorf("questionnaire has no version tag")
	}
	if len(q.Order) == 0 {
		return fmt.Errorf("questionnaire has no canonical question order")
	}
	if len(q.OptionCodes) == 0 {
		return fmt.Errorf("questionnaire has no option codes")
	}

	q.sectionOf = make(map[string]int, len(q.Order))
	for si, sec := range q.Sections {
		for _, qid := range sec.Questions {
			if _, dup := q.sectionOf[qid]; dup {
				return fmt.Errorf("question %q appears in more than one section", qid)
			}
			q.sectionOf[qid] = si
		}
	}
	for _, qid := range q.Order {
		if _, ok := q.sectionOf[qid]; !ok {
			return fmt.Errorf("question %q is not assigned to any section", qid)
		}
	}
	return nil
}

// ScoreVersion tags a scoring result with the questionnaire it was computed under.
type ScoreVersion struct {
	Questionnaire string `json:"questionnaire"`
}

// ScoreResult is the sectioned scorer's full response payload.
type ScoreResult struct {
	Candidates []models.CandidateScore `json:"candidates"`
	Version    ScoreVersion            `json:"version"`
}

// ValidationError identifies the question that failed submission validation.
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %q: %s", e.QuestionID, e.Reason)
}

// CalculateScores scores a complete set of user answers against every
// candidate's stored position vector. Unlike the evidence matcher, coverage
// must be total: a missing or invalid answer for any canonical question is a
// validation failure, never a partial score.
func (q *Questionnaire) CalculateScores(answers map[string]models.OptionKey, candidates []models.CandidatePosition) (*ScoreResult, error) {
	if q.sectionOf == nil {
		if err := q.validate(); err != nil {
			return nil, err
		}
	}

	codes := make([]int, len(q.Order))
	for i, qid := range q.Order {
		option, ok := answers[qid]
		if !ok {
			return nil, &ValidationError{QuestionID: qid, Reason: "missing answer"}
		}
		code, ok := q.OptionCodes[option]
		if !ok {
			return nil, &ValidationError{QuestionID: qid, Reason: fmt.Sprintf("invalid option key %q", option)}
		}
		codes[i] = code
	}

	scored := make([]models.CandidateScore, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.Answers) != len(q.Order) {
			return nil, fmt.Errorf("candidate %q has %d position codes, questionnaire has %d questions",
				cand.ID, len(cand.Answers), len(q.Order))
		}

		bySection := make(map[string]float64, len(q.Sections))
		for _, sec := range q.Sections {
			bySection[sec.ID] = 0
		}
		for i, qid := range q.Order {
			sec := q.Sections[q.sectionOf[qid]]
			bySection[sec.ID] += q.Rule.Contribution(codes[i], cand.Answers[i])
		}

		total := 0.0
		for _, sec := range q.Sections {
			total += sec.Weight * bySection[sec.ID]
		}

		scored = append(scored, models.CandidateScore{
			ID:              cand.ID,
			ScoreTotal:      total,
			ScoresBySection: bySection,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].ScoreTotal != scored[j].ScoreTotal {
			return scored[i].ScoreTotal > scored[j].ScoreTotal
		}
		return scored[i].ID < scored[j].ID
	})

	return &ScoreResult{
		Candidates: scored,
		Version:    ScoreVersion{Questionnaire: q.Version},
	}, nil
}
