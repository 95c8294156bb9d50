package session

import (
	"errors"
	"fmt"
)

// TierConfig sets the session mix for learners past MinDays active days
type TierConfig struct {
	Name             string `yaml:"name" json:"name"`
	MinDays          int    `yaml:"min_days" json:"minDays"`
	VocabCount       int    `yaml:"vocab_count" json:"vocabCount"`
	PhraseCount      int    `yaml:"phrase_count" json:"phraseCount"`
	ReviewCount      int    `yaml:"review_count" json:"reviewCount"`
	NewSentenceCount int    `yaml:"new_sentence_count" json:"newSentenceCount"`
}

// Tiers is ordered by ascending MinDays
type Tiers []TierConfig

// DefaultTiers front-loads vocabulary and shifts towards reading over the year.
var DefaultTiers = Tiers{
	{Name: "beginner", MinDays: 0, VocabCount: 10, PhraseCount: 5, ReviewCount: 5, NewSentenceCount: 3},
	{Name: "developing", MinDays: 61, VocabCount: 6, PhraseCount: 5, ReviewCount: 8, NewSentenceCount: 5},
	{Name: "proficient", MinDays: 181, VocabCount: 3, PhraseCount: 3, ReviewCount: 10, NewSentenceCount: 7},
	{Name: "advanced", MinDays: 301, VocabCount: 0, PhraseCount: 2, ReviewCount: 12, NewSentenceCount: 10},
}

// Validate checks the table can classify every non-negative day count
func (t Tiers) Validate() error {
	if len(t) == 0 {
		return errors.New("at least one progression tier is required")
	}
	if t[0].MinDays != 0 {
		return fmt.Errorf("first tier %q must start at day 0", t[0].Name)
	}
	for i, tier := range t {
		if tier.VocabCount < 0 || tier.PhraseCount < 0 || tier.ReviewCount < 0 || tier.NewSentenceCount < 0 {
			return fmt.Errorf("tier %q has a negative count", tier.Name)
		}
		if i > 0 && tier.MinDays <= t[i-1].MinDays {
			return fmt.Errorf("tier %q must start after tier %q", tier.Name, t[i-1].Name)
		}
	}
	return nil
}

// ForDays picks the last tier whose MinDays is reached
func (t Tiers) ForDays(daysActive int) TierConfig {
	selected := t[0]
	for _, tier := range t[1:] {
		if daysActive < tier.MinDays {
			break
		}
		selected = tier
	}
	return selected
}
