// Package match implements the questionnaire-to-candidate scoring engines:
// the evidence matcher with its normalizer/ranker, and the sectioned position
// scorer. Both are pure, synchronous functions over their inputs and are safe
// to call concurrently.
package match

import (
	"errors"
	"math"
	"sort"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/mapping"
	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"
)

// ErrEmptyAnswers is returned when a submission carries no answers at all.
// Partial submissions are fine; empty ones are a caller error.
var ErrEmptyAnswers = errors.New("answers must not be empty")

// ComputeEvidenceMatches accumulates per-plan scores for a set of submitted
// answers. Every plan in the store appears in the result, even with zero
// matches. Answers for questions or options absent from the mapping are
// skipped silently.
//
// Answers are processed in ascending question-id order so that the
// matching_evidences lists come out deterministic regardless of map
// iteration order. Totals do not depend on processing order.
func ComputeEvidenceMatches(answers map[string]models.OptionKey, store *mapping.Store) (map[int]*models.PlanResult, error) {
	if len(answers) == 0 {
		return nil, ErrEmptyAnswers
	}

	results := make(map[int]*models.PlanResult, len(store.Plans()))
	for _, plan := range store.Plans() {
		results[plan.PlanID] = &models.PlanResult{Plan: plan}
	}

	questionIDs := make([]string, 0, len(answers))
	for qid := range answers {
		questionIDs = append(questionIDs, qid)
	}
	sort.Strings(questionIDs)

	for _, qid := range questionIDs {
		for _, ev := range store.EvidencesFor(qid, answers[qid]) {
			result := results[ev.PlanID]
			result.MatchScore++
			result.MatchingEvidences = append(result.MatchingEvidences, models.MatchedEvidence{
				QuestionID: qid,
				Evidence:   ev,
			})
		}
	}

	return results, nil
}

// Rank fills in match percentages and returns the results sorted by score
// descending, plan_id ascending among ties. totalQuestions is the count of
// distinct questions actually answered; zero yields zero percentages.
func Rank(results map[int]*models.PlanResult, totalQuestions int) []models.PlanResult {
	ranked := make([]models.PlanResult, 0, len(results))
	for _, r := range results {
		r.MatchPercentage = percentage(r.MatchScore, totalQuestions)
		ranked = append(ranked, *r)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return ranked[i].PlanID < ranked[j].PlanID
	})

	return ranked
}

// Match runs the evidence matcher and ranker in one step, normalizing against
// the number of questions present in the submission.
func Match(answers map[string]models.OptionKey, store *mapping.Store) ([]models.PlanResult, error) {
	results, err := ComputeEvidenceMatches(answers, store)
	if err != nil {
		return nil, err
	}
	return Rank(results, len(answers)), nil
}

func percentage(score, totalQuestions int) int {
	if totalQuestions <= 0 {
		return 0
	}
	pct := int(math.Round(float64(score) / float64(totalQuestions) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}
