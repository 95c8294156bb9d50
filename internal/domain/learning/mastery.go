package learning

import "fmt"

// MasteryStabilityDays is the stability a review card needs to count as mastered.
const MasteryStabilityDays = 21.0

// IsMastered reports whether a card has reached long-term retention.
func IsMastered(c Card) bool {
	return c.State == StateReview && c.Stability >= MasteryStabilityDays
}

// MasteryTier is a display bucket derived from stability.
type MasteryTier int

const (
	TierNovice MasteryTier = iota
	TierIntermediate
	TierVeteran
	TierMaster
)

var tierNames = map[MasteryTier]string{
	TierNovice:       "novice",
	TierIntermediate: "intermediate",
	TierVeteran:      "veteran",
	TierMaster:       "master",
}

func (t MasteryTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MasteryTier(%d)", int(t))
}

func (t MasteryTier) MarshalText() ([]byte, error) {
	name, ok := tierNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown mastery tier %d", int(t))
	}
	return []byte(name), nil
}

// ClassifyStability buckets a stability value: [0,1) novice, [1,7) intermediate,
// [7,21) veteran, [21,inf) master.
func ClassifyStability(stability float64) MasteryTier {
	switch {
	case stability >= MasteryStabilityDays:
		return TierMaster
	case stability >= 7:
		return TierVeteran
	case stability >= 1:
		return TierIntermediate
	default:
		return TierNovice
	}
}

// MasterySummary counts progress over the content unlocked by a ceiling.
type MasterySummary struct {
	Ceiling      int                 `json:"ceiling"`
	TotalContent int                 `json:"totalContent"`
	Studied      int                 `json:"studied"`
	Mastered     int                 `json:"mastered"`
	Tiers        map[MasteryTier]int `json:"tiers"`
}

// SummarizeMastery counts mastered and per-tier cards. The caller passes only
// cards whose content sits at or below the ceiling.
func SummarizeMastery(ceiling, totalContent int, cards []Card) MasterySummary {
	summary := MasterySummary{
		Ceiling:      ceiling,
		TotalContent: totalContent,
		Tiers: map[MasteryTier]int{
			TierNovice:       0,
			TierIntermediate: 0,
			TierVeteran:      0,
			TierMaster:       0,
		},
	}
	for _, c := range cards {
		if c.State == StateNew {
			continue
		}
		summary.Studied++
		if IsMastered(c) {
			summary.Mastered++
		}
		summary.Tiers[ClassifyStability(c.Stability)]++
	}
	return summary
}
