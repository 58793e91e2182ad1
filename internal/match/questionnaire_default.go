package match

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// DefaultQuestionnaire returns the compiled-in configuration for the current
// 20-question questionnaire: five topical sections of four questions each,
// option codes A..E mapped to 1..5, exact agreement worth a full point and
// adjacent codes worth half.
func DefaultQuestionnaire() *Questionnaire {
	q := &Questionnaire{
		Version: "2026-peru-v1",
		Order: []string{
			"q01", "q02", "q03", "q04", "q05",
			"q06", "q07", "q08", "q09", "q10",
			"q11", "q12", "q13", "q14", "q15",
			"q16", "q17", "q18", "q19", "q20",
		},
		OptionCodes: map[models.OptionKey]int{
			models.OptionA: 1,
			models.OptionB: 2,
			models.OptionC: 3,
			models.OptionD: 4,
			models.OptionE: 5,
		},
		Sections: []Section{
			{ID: "economia", Name: "Economía", Weight: 1.0,
				Questions: []string{"q01", "q02", "q03", "q04"}},
			{ID: "seguridad", Name: "Seguridad", Weight: 1.0,
				Questions: []string{"q05", "q06", "q07", "q08"}},
			{ID: "educacion", Name: "Educación", Weight: 1.0,
				Questions: []string{"q09", "q10", "q11", "q12"}},
			{ID: "salud", Name: "Salud", Weight: 1.0,
				Questions: []string{"q13", "q14", "q15", "q16"}},
			{ID: "institucionalidad", Name: "Institucionalidad", Weight: 1.0,
				Questions: []string{"q17", "q18", "q19", "q20"}},
		},
		Rule: ScoringRule{Exact: 1.0, Adjacent: 0.5},
	}
	if err := q.validate(); err != nil {
		// The compiled-in configuration is checked by tests; a failure here
		// means the binary shipped with a broken question set.
		panic(err)
	}
	return q
}

// LoadCandidatePositions reads the static candidate position vectors from a
// JSON file.
func LoadCandidatePositions(path string) ([]models.CandidatePosition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate positions file: %w", err)
	}
	var candidates []models.CandidatePosition
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse candidate positions file: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate positions file is empty")
	}
	return candidates, nil
}
