package matching

import (
	"math"

	"campus-service/internal/models"
)

// Factor weights for the compatibility score.
const (
	weightSmoking     = 15.0
	weightDrinking    = 10.0
	weightSleep       = 20.0
	weightStudy       = 15.0
	weightGuests      = 10.0
	weightCleanliness = 20.0
	weightBudget      = 10.0
)

// neutralScore is returned when no factor applies to the pair.
const neutralScore = 50.0

// Score computes the compatibility between two roommate profiles as a
// value in [0,100], rounded to one decimal place.
//
// Each categorical factor counts only when both profiles state a
// preference; a "no_preference" on either side removes the factor from
// both the earned and the total weight. Cleanliness always counts.
// Every rule is symmetric, so Score(a,b) == Score(b,a).
func Score(a, b models.RoommateProfile) float64 {
	var earned, total float64

	categorical := []struct {
		a, b   string
		weight float64
	}{
		{a.SmokingPreference, b.SmokingPreference, weightSmoking},
		{a.DrinkingPreference, b.DrinkingPreference, weightDrinking},
		{a.SleepHabits, b.SleepHabits, weightSleep},
		{a.StudyHabits, b.StudyHabits, weightStudy},
		{a.GuestsPreference, b.GuestsPreference, weightGuests},
	}
	for _, f := range categorical {
		if f.a == models.NoPreference || f.b == models.NoPreference {
			continue
		}
		total += f.weight
		if f.a == f.b {
			earned += f.weight
		}
	}

	total += weightCleanliness
	switch diff := abs(a.CleanlinessLevel - b.CleanlinessLevel); diff {
	case 0:
		earned += weightCleanliness
	case 1:
		earned += weightCleanliness * 0.7
	case 2:
		earned += weightCleanliness * 0.4
	}

	if a.MaxRentBudget != nil && b.MaxRentBudget != nil {
		total += weightBudget
		rel := math.Abs(*a.MaxRentBudget-*b.MaxRentBudget) / math.Max(*a.MaxRentBudget, *b.MaxRentBudget)
		switch {
		case rel <= 0.1:
			earned += weightBudget
		case rel <= 0.2:
			earned += weightBudget * 0.7
		case rel <= 0.3:
			earned += weightBudget * 0.4
		}
	}

	if total == 0 {
		return neutralScore
	}
	return math.Round(earned/total*1000) / 10
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
