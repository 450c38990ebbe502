package scoring

import (
	"f1league/internal/models"
	"f1league/internal/normalize"
	"f1league/internal/results"
)

const (
	// ExactBonus is awarded when a distance-scored slot hits exactly.
	ExactBonus = 2
	// WildcardBonus is the flat payout for a wildcard set membership.
	WildcardBonus = 5
)

// Score computes one user's total for the event: the sum of independent
// per-slot evaluations against the classification. A slot whose guess
// is blank or does not resolve to a classified name contributes exactly
// zero. Totals can be negative, there is no floor.
func Score(p *models.Prediction, cls *results.Classification) int {
	total := 0

	for _, g := range p.PositionGuesses() {
		name := normalize.Name(g.Driver)
		if name == "" {
			continue
		}
		actual, ok := cls.DriverPositions[name]
		if !ok {
			continue
		}
		total += diffScore(g.Rank, actual)
	}

	for _, g := range p.ConstructorGuesses() {
		key := normalize.Constructor(g.Constructor)
		if key == "" {
			continue
		}
		actual, ok := cls.ConstructorRanks[key]
		if !ok {
			continue
		}
		total += diffScore(g.Rank, actual)
	}

	total += wildcard(p.RaceLoser, cls.RaceLosers)
	total += wildcard(p.SprintGainer, cls.SprintGainers)
	total += wildcard(p.SprintLoser, cls.SprintLosers)

	return total
}

// diffScore rewards an exact hit and charges one point per position of
// distance otherwise.
func diffScore(predicted, actual int) int {
	diff := predicted - actual
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return ExactBonus
	}
	return -diff
}

func wildcard(guess string, set map[string]bool) int {
	name := normalize.Name(guess)
	if name != "" && set[name] {
		return WildcardBonus
	}
	return 0
}
