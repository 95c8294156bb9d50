package session

import (
	"sort"

	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/learning"
)

// SentenceCard pairs a sentence card with its content
type SentenceCard struct {
	CardID   learning.ID
	Sentence content.Sentence
}

// VocabCard pairs a vocabulary card with its content
type VocabCard struct {
	CardID learning.ID
	Word   content.VocabWord
}

// PhraseCard pairs a phrase card with its content
type PhraseCard struct {
	CardID learning.ID
	Phrase content.Phrase
}

// Pools is everything the composer may draw from. Due pools come soonest due
// first; Seen pools hold reviewed, not-yet-due content for back-filling.
type Pools struct {
	DueSentences  []SentenceCard
	DueVocab      []VocabCard
	DuePhrases    []PhraseCard
	SeenSentences []SentenceCard
	SeenVocab     []VocabCard
	SeenPhrases   []PhraseCard
	Candidates    []content.Sentence
}

// Composer builds the ordered item list of a session
type Composer struct {
	tiers Tiers
}

// NewComposer creates a composer; an invalid tier table is rejected
func NewComposer(tiers Tiers) (*Composer, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return &Composer{tiers: tiers}, nil
}

// Tier returns the mix used for a learner with daysActive days
func (c *Composer) Tier(daysActive int) TierConfig {
	return c.tiers.ForDays(daysActive)
}

// Compose selects and orders the items of a session. Drills alternate with
// reviews and the new reading, if any, closes the session.
func (c *Composer) Compose(ceiling int, pools Pools, daysActive int) []Item {
	tier := c.Tier(daysActive)

	reviews := pick(pools.DueSentences, withinCeiling(pools.SeenSentences, ceiling, sentenceDifficulty),
		tier.ReviewCount, func(sc SentenceCard) string { return sc.Sentence.ID })
	vocab := pick(pools.DueVocab, withinCeiling(pools.SeenVocab, ceiling, vocabDifficulty),
		tier.VocabCount, func(vc VocabCard) string { return vc.Word.ID })
	phrases := pick(pools.DuePhrases, withinCeiling(pools.SeenPhrases, ceiling, phraseDifficulty),
		tier.PhraseCount, func(pc PhraseCard) string { return pc.Phrase.ID })

	reviewItems := make([]Item, 0, len(reviews))
	for _, r := range reviews {
		reviewItems = append(reviewItems, ReviewItem{CardID: r.CardID, Sentence: r.Sentence})
	}
	vocabItems := make([]Item, 0, len(vocab))
	for _, v := range vocab {
		vocabItems = append(vocabItems, VocabDrillItem{CardID: v.CardID, Word: v.Word})
	}
	phraseItems := make([]Item, 0, len(phrases))
	for _, p := range phrases {
		phraseItems = append(phraseItems, PhraseDrillItem{CardID: p.CardID, Phrase: p.Phrase})
	}

	items := Interleave(Interleave(vocabItems, phraseItems), reviewItems)

	seen := make(map[string]bool, len(pools.DueSentences)+len(pools.SeenSentences))
	for _, sc := range pools.DueSentences {
		seen[sc.Sentence.ID] = true
	}
	for _, sc := range pools.SeenSentences {
		seen[sc.Sentence.ID] = true
	}
	if fresh := selectNewSentences(pools.Candidates, seen, ceiling, tier.NewSentenceCount); len(fresh) > 0 {
		items = append(items, NewReadingItem{Sentences: fresh})
	}
	return items
}

// Interleave merges category lists round-robin, taking one item from each
// non-exhausted list in turn.
func Interleave(lists ...[]Item) []Item {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]Item, 0, total)
	for i := 0; len(out) < total; i++ {
		for _, l := range lists {
			if i < len(l) {
				out = append(out, l[i])
			}
		}
	}
	return out
}

// pick takes up to n entries from primary, then tops up from backup,
// skipping entries already taken.
func pick[T any](primary, backup []T, n int, key func(T) string) []T {
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	taken := make(map[string]bool, n)
	for _, src := range [][]T{primary, backup} {
		for _, v := range src {
			if len(out) == n {
				return out
			}
			k := key(v)
			if taken[k] {
				continue
			}
			taken[k] = true
			out = append(out, v)
		}
	}
	return out
}

func withinCeiling[T any](pool []T, ceiling int, difficulty func(T) int) []T {
	out := make([]T, 0, len(pool))
	for _, v := range pool {
		if difficulty(v) <= ceiling {
			out = append(out, v)
		}
	}
	return out
}

func selectNewSentences(candidates []content.Sentence, seen map[string]bool, ceiling, n int) []content.Sentence {
	if n <= 0 {
		return nil
	}
	eligible := make([]content.Sentence, 0, len(candidates))
	for _, s := range candidates {
		if s.Difficulty <= ceiling && !seen[s.ID] {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}

func sentenceDifficulty(sc SentenceCard) int { return sc.Sentence.Difficulty }
func vocabDifficulty(vc VocabCard) int       { return vc.Word.Difficulty }
func phraseDifficulty(pc PhraseCard) int     { return pc.Phrase.Difficulty }
