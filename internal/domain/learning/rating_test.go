package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRating(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Rating
	}{
		{OutcomeIncorrect, Again},
		{OutcomePartial, Hard},
		{OutcomeCorrect, Good},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			assert.Equal(t, tt.want, ToRating(tt.outcome))
		})
	}
}

func TestToRatingIsTotalAndNeverEasy(t *testing.T) {
	for _, o := range Outcomes {
		r := ToRating(o)
		assert.NotEqual(t, Easy, r)
		assert.GreaterOrEqual(t, int(r), int(Again))
		assert.LessOrEqual(t, int(r), int(Good))
	}
}

func TestToRatingPanicsOnUnknownOutcome(t *testing.T) {
	assert.Panics(t, func() { ToRating(Outcome("MAYBE")) })
}

func TestParseOutcome(t *testing.T) {
	got, err := ParseOutcome(" partial ")
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, got)

	_, err = ParseOutcome("EXCELLENT")
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}
