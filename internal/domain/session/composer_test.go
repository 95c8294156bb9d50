package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/learning"
)

func mustComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(DefaultTiers)
	require.NoError(t, err)
	return c
}

func sentenceCard(n, difficulty int) SentenceCard {
	id := fmt.Sprintf("bg.1.1.%d", n)
	return SentenceCard{
		CardID:   learning.ID("card-" + id),
		Sentence: content.Sentence{ID: id, Latin: "latin " + id, ReferenceTranslation: "english " + id, Difficulty: difficulty, Order: n},
	}
}

func sentence(n, difficulty int) content.Sentence {
	return sentenceCard(n, difficulty).Sentence
}

func vocabCard(n, difficulty int) VocabCard {
	return VocabCard{CardID: learning.ID(fmt.Sprintf("vc%d", n)), Word: content.VocabWord{ID: fmt.Sprintf("w%d", n), Lemma: "lemma", Gloss: "gloss", Difficulty: difficulty}}
}

func phraseCard(n, difficulty int) PhraseCard {
	return PhraseCard{CardID: learning.ID(fmt.Sprintf("pc%d", n)), Phrase: content.Phrase{ID: fmt.Sprintf("p%d", n), Latin: "latin", Translation: "english", Difficulty: difficulty}}
}

func kinds(items []Item) []ItemKind {
	out := make([]ItemKind, 0, len(items))
	for _, it := range items {
		out = append(out, it.Kind())
	}
	return out
}

func TestComposeBeginnerWithOnlyDueSentences(t *testing.T) {
	c := mustComposer(t)
	pools := Pools{
		DueSentences: []SentenceCard{sentenceCard(1, 5), sentenceCard(2, 6), sentenceCard(3, 7)},
		Candidates:   []content.Sentence{sentence(10, 4), sentence(11, 9)},
	}

	items := c.Compose(10, pools, 1)

	assert.Equal(t, []ItemKind{KindReview, KindReview, KindReview, KindNewReading}, kinds(items))
	reading := items[3].(NewReadingItem)
	assert.Len(t, reading.Sentences, 2)
}

func TestComposeCapsReviewsAtTierCount(t *testing.T) {
	c := mustComposer(t)
	var due []SentenceCard
	for i := 1; i <= 9; i++ {
		due = append(due, sentenceCard(i, 5))
	}

	items := c.Compose(50, Pools{DueSentences: due}, 30)

	assert.Len(t, items, DefaultTiers[0].ReviewCount)
	// soonest due first
	assert.Equal(t, learning.ID("card-bg.1.1.1"), items[0].(ReviewItem).CardID)
}

func TestComposeInterleavesDrillsWithReviews(t *testing.T) {
	c := mustComposer(t)
	pools := Pools{
		DueSentences: []SentenceCard{sentenceCard(1, 5), sentenceCard(2, 5)},
		DueVocab:     []VocabCard{vocabCard(1, 2)},
		DuePhrases:   []PhraseCard{phraseCard(1, 2)},
	}

	items := c.Compose(10, pools, 0)

	assert.Equal(t, []ItemKind{KindVocabDrill, KindReview, KindPhraseDrill, KindReview}, kinds(items))
}

func TestComposeBackfillsFromSeenContentUnderCeiling(t *testing.T) {
	c := mustComposer(t)
	pools := Pools{
		DueSentences:  []SentenceCard{sentenceCard(1, 5)},
		SeenSentences: []SentenceCard{sentenceCard(1, 5), sentenceCard(2, 30), sentenceCard(3, 8), sentenceCard(4, 9)},
	}

	items := c.Compose(10, pools, 0)

	require.Len(t, items, 3)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.(ReviewItem).Sentence.ID)
	}
	assert.Equal(t, []string{"bg.1.1.1", "bg.1.1.3", "bg.1.1.4"}, ids)
}

func TestComposeNewSentencesAreEasiestFirstAndGated(t *testing.T) {
	c := mustComposer(t)
	pools := Pools{
		DueSentences: []SentenceCard{sentenceCard(1, 5)},
		Candidates: []content.Sentence{
			sentence(20, 12),
			sentence(21, 3),
			sentence(22, 40), // above ceiling
			sentence(23, 3),
			sentence(24, 7),
			sentence(1, 2), // already studied
		},
	}

	items := c.Compose(15, pools, 0)

	require.NotEmpty(t, items)
	reading, ok := items[len(items)-1].(NewReadingItem)
	require.True(t, ok)
	var ids []string
	for _, s := range reading.Sentences {
		assert.LessOrEqual(t, s.Difficulty, 15)
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"bg.1.1.21", "bg.1.1.23", "bg.1.1.24"}, ids)
}

func TestComposeAdvancedTierHasNoVocab(t *testing.T) {
	c := mustComposer(t)
	pools := Pools{
		DueVocab:   []VocabCard{vocabCard(1, 2), vocabCard(2, 2)},
		DuePhrases: []PhraseCard{phraseCard(1, 2)},
	}

	items := c.Compose(100, pools, 400)

	assert.Equal(t, []ItemKind{KindPhraseDrill}, kinds(items))
}

func TestComposeEmptyPools(t *testing.T) {
	c := mustComposer(t)
	assert.Empty(t, c.Compose(10, Pools{}, 0))
}

func TestComposeIsDeterministic(t *testing.T) {
	c := mustComposer(t)
	pools := Pools{
		DueSentences: []SentenceCard{sentenceCard(1, 5), sentenceCard(2, 6)},
		DueVocab:     []VocabCard{vocabCard(1, 2), vocabCard(2, 3)},
		Candidates:   []content.Sentence{sentence(9, 5), sentence(8, 5), sentence(7, 4)},
	}

	assert.Equal(t, c.Compose(20, pools, 10), c.Compose(20, pools, 10))
}

func TestInterleave(t *testing.T) {
	d1, d2 := VocabDrillItem{CardID: "d1"}, VocabDrillItem{CardID: "d2"}
	r1, r2 := ReviewItem{CardID: "r1"}, ReviewItem{CardID: "r2"}

	t.Run("two by two alternates", func(t *testing.T) {
		got := Interleave([]Item{d1, d2}, []Item{r1, r2})
		assert.Equal(t, []Item{d1, r1, d2, r2}, got)
	})
	t.Run("uneven lengths drain the longer list", func(t *testing.T) {
		got := Interleave([]Item{d1}, []Item{r1, r2})
		assert.Equal(t, []Item{d1, r1, r2}, got)
	})
	t.Run("single list is unchanged", func(t *testing.T) {
		got := Interleave([]Item{r1, r2})
		assert.Equal(t, []Item{r1, r2}, got)
	})
	t.Run("single item", func(t *testing.T) {
		assert.Equal(t, []Item{d1}, Interleave([]Item{d1}))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, Interleave())
		assert.Empty(t, Interleave(nil, []Item{}))
	})
}
