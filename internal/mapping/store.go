// Package mapping loads the static questionnaire mapping document that drives
// the evidence matcher: the list of plans and the per-question, per-option
// evidence links. The document is read-only reference data; a missing or
// malformed file is a fatal configuration error.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// Store holds the validated mapping document plus lookup indexes built once
// at load time.
type Store struct {
	Mapping models.QuestionnaireMapping

	plansByID   map[int]models.Plan
	questionIdx map[string]map[models.OptionKey][]models.Evidence
}

// Load reads and validates a mapping document from disk.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var m models.QuestionnaireMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}

	return New(m)
}

// New validates an in-memory mapping document and builds lookup indexes.
func New(m models.QuestionnaireMapping) (*Store, error) {
	if len(m.Plans) == 0 {
		return nil, fmt.Errorf("mapping has no plans")
	}

	plansByID := make(map[int]models.Plan, len(m.Plans))
	for _, p := range m.Plans {
		if _, dup := plansByID[p.PlanID]; dup {
			return nil, fmt.Errorf("duplicate plan_id %d in mapping", p.PlanID)
		}
		plansByID[p.PlanID] = p
	}

	questionIdx := make(map[string]map[models.OptionKey][]models.Evidence, len(m.QuestionOptionMappings))
	for _, qm := range m.QuestionOptionMappings {
		if qm.QuestionID == "" {
			return nil, fmt.Errorf("mapping contains a question with empty question_id")
		}
		if _, dup := questionIdx[qm.QuestionID]; dup {
			return nil, fmt.Errorf("duplicate question_id %q in mapping", qm.QuestionID)
		}
		options := make(map[models.OptionKey][]models.Evidence, len(qm.Options))
		for _, om := range qm.Options {
			if _, err := models.ParseOptionKey(string(om.Option)); err != nil {
				return nil, fmt.Errorf("question %q: %w", qm.QuestionID, err)
			}
			for _, ev := range om.Evidences {
				if _, ok := plansByID[ev.PlanID]; !ok {
					return nil, fmt.Errorf("question %q option %s: evidence references unknown plan_id %d",
						qm.QuestionID, om.Option, ev.PlanID)
				}
			}
			options[om.Option] = om.Evidences
		}
		questionIdx[qm.QuestionID] = options
	}

	return &Store{
		Mapping:     m,
		plansByID:   plansByID,
		questionIdx: questionIdx,
	}, nil
}

// Plans returns all plans in document order.
func (s *Store) Plans() []models.Plan {
	return s.Mapping.Plans
}

// EvidencesFor looks up the evidences attached to a (question, option) pair.
// Unknown questions or options return nil; per the matcher contract that is
// a no-op, not a fault.
func (s *Store) EvidencesFor(questionID string, option models.OptionKey) []models.Evidence {
	options, ok := s.questionIdx[questionID]
	if !ok {
		return nil
	}
	return options[option]
}
