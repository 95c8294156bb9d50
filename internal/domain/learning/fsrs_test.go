package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func reviewCard(stability float64, lastReview time.Time, due time.Time) Card {
	lr := lastReview
	return Card{
		State:         StateReview,
		Stability:     stability,
		Difficulty:    5,
		ScheduledDays: due.Sub(lastReview).Hours() / 24,
		Reps:          6,
		Lapses:        1,
		LastReview:    &lr,
		Due:           due,
	}
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SchedulerConfig
	}{
		{"retention above one", SchedulerConfig{DesiredRetention: 1.2}},
		{"negative retention", SchedulerConfig{DesiredRetention: -0.5}},
		{"negative max interval", SchedulerConfig{MaximumInterval: -1}},
		{"zero step", SchedulerConfig{LearningSteps: []time.Duration{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestScheduleNilCardSynthesizesNewCard(t *testing.T) {
	s := DefaultScheduler()

	got := s.Schedule(nil, OutcomeCorrect, t0)

	assert.Contains(t, []State{StateLearning, StateReview}, got.State)
	assert.Equal(t, 1, got.Reps)
	assert.Equal(t, 0, got.Lapses)
	assert.True(t, got.Due.After(t0))
	require.NotNil(t, got.LastReview)
	assert.Equal(t, t0, *got.LastReview)
}

func TestScheduleNewCardEntersLearningForEveryOutcome(t *testing.T) {
	s := DefaultScheduler()
	for _, o := range Outcomes {
		t.Run(string(o), func(t *testing.T) {
			card := NewCard(t0)
			got := s.Schedule(&card, o, t0)
			assert.Equal(t, StateLearning, got.State)
			assert.Greater(t, got.Stability, 0.0)
			assert.True(t, got.Due.After(t0))
		})
	}
}

func TestLearningLadder(t *testing.T) {
	s := DefaultScheduler()
	card := NewCard(t0)

	card = s.Schedule(&card, OutcomeCorrect, t0)
	assert.Equal(t, StateLearning, card.State)
	assert.Equal(t, 1, card.LearningSteps)
	assert.Equal(t, t0.Add(10*time.Minute), card.Due)

	now := card.Due
	card = s.Schedule(&card, OutcomeCorrect, now)
	assert.Equal(t, StateReview, card.State)
	assert.Equal(t, 0, card.LearningSteps)
	assert.GreaterOrEqual(t, card.Due.Sub(now), 24*time.Hour)
}

func TestHardAtFirstStepWaitsBetweenSteps(t *testing.T) {
	s := DefaultScheduler()
	card := NewCard(t0)

	got := s.Schedule(&card, OutcomePartial, t0)

	assert.Equal(t, StateLearning, got.State)
	assert.Equal(t, t0.Add(330*time.Second), got.Due)
}

func TestReviewIncorrectLapses(t *testing.T) {
	s := DefaultScheduler()
	card := reviewCard(30, t0.Add(-30*24*time.Hour), t0)

	got := s.Schedule(&card, OutcomeIncorrect, t0)

	assert.Less(t, got.Stability, 30.0)
	assert.Equal(t, StateRelearning, got.State)
	assert.Equal(t, card.Lapses+1, got.Lapses)
	assert.Equal(t, card.Reps+1, got.Reps)
	assert.Equal(t, t0.Add(10*time.Minute), got.Due)
}

func TestReviewIncorrectWithoutHistory(t *testing.T) {
	s := DefaultScheduler()
	card := Card{State: StateReview, Stability: 30, Due: t0}

	got := s.Schedule(&card, OutcomeIncorrect, t0)

	assert.Less(t, got.Stability, 30.0)
	assert.Equal(t, StateRelearning, got.State)
	assert.Equal(t, 1, got.Lapses)
}

func TestReviewSuccessNeverShrinksStabilityOrDue(t *testing.T) {
	s := DefaultScheduler()
	tests := []struct {
		name    string
		outcome Outcome
		now     time.Time
	}{
		{"good on time", OutcomeCorrect, t0},
		{"hard on time", OutcomePartial, t0},
		{"good early", OutcomeCorrect, t0.Add(-20 * 24 * time.Hour)},
		{"hard early", OutcomePartial, t0.Add(-20 * 24 * time.Hour)},
		{"hard same day", OutcomePartial, t0.Add(-30*24*time.Hour + time.Hour)},
		{"good late", OutcomeCorrect, t0.Add(40 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := reviewCard(30, t0.Add(-30*24*time.Hour), t0)

			got := s.Schedule(&card, tt.outcome, tt.now)

			assert.Equal(t, StateReview, got.State)
			assert.GreaterOrEqual(t, got.Stability, card.Stability)
			assert.True(t, got.Due.After(card.Due), "due %v should be after %v", got.Due, card.Due)
			assert.Equal(t, card.Lapses, got.Lapses)
		})
	}
}

func TestRepsAndLapsesNeverDecrease(t *testing.T) {
	s := DefaultScheduler()
	outcomes := []Outcome{
		OutcomeCorrect, OutcomeIncorrect, OutcomePartial, OutcomeCorrect, OutcomeCorrect,
		OutcomeIncorrect, OutcomeCorrect, OutcomePartial, OutcomeCorrect, OutcomeCorrect,
	}

	var card *Card
	now := t0
	prevReps, prevLapses := 0, 0
	for i, o := range outcomes {
		next := s.Schedule(card, o, now)
		assert.Equal(t, prevReps+1, next.Reps, "step %d", i)
		assert.GreaterOrEqual(t, next.Lapses, prevLapses, "step %d", i)
		assert.True(t, next.Due.After(now), "step %d", i)
		prevReps, prevLapses = next.Reps, next.Lapses
		now = next.Due
		card = &next
	}
}

func TestDueMatchesLastReviewPlusScheduledDays(t *testing.T) {
	s := DefaultScheduler()
	card := NewCard(t0)
	now := t0
	for _, o := range []Outcome{OutcomeCorrect, OutcomeCorrect, OutcomePartial, OutcomeIncorrect, OutcomeCorrect} {
		card = s.Schedule(&card, o, now)
		require.NotNil(t, card.LastReview)
		expected := card.LastReview.Add(time.Duration(card.ScheduledDays * 24 * float64(time.Hour)))
		assert.WithinDuration(t, expected, card.Due, time.Millisecond)
		now = card.Due
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	s := DefaultScheduler()
	card := reviewCard(12, t0.Add(-10*24*time.Hour), t0)

	a := s.Schedule(&card, OutcomeCorrect, t0)
	b := s.Schedule(&card, OutcomeCorrect, t0)

	assert.Equal(t, a, b)
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	s := DefaultScheduler()
	card := reviewCard(12, t0.Add(-10*24*time.Hour), t0)
	before := card

	_ = s.Schedule(&card, OutcomeIncorrect, t0)

	assert.Equal(t, before, card)
}

func TestRetrievability(t *testing.T) {
	s := DefaultScheduler()
	card := reviewCard(10, t0, t0.Add(10*24*time.Hour))

	assert.InDelta(t, 1.0, s.Retrievability(card, t0), 1e-9)
	assert.InDelta(t, DefaultRetention, s.Retrievability(card, t0.Add(10*24*time.Hour)), 1e-6)
	assert.Equal(t, 0.0, s.Retrievability(NewCard(t0), t0))
}

func TestIntervalIsCappedByMaximum(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{MaximumInterval: 30})
	require.NoError(t, err)
	card := reviewCard(500, t0.Add(-500*24*time.Hour), t0)

	got := s.Schedule(&card, OutcomeCorrect, t0)

	assert.LessOrEqual(t, got.ScheduledDays, 30.0+1e-9)
}
