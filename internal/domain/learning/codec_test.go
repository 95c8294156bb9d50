package learning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameTablesAreBijective(t *testing.T) {
	assert.Len(t, statesByName, len(stateNames))
	assert.Len(t, ratingsByName, len(ratingNames))
	assert.Len(t, kindsByName, len(kindNames))

	for _, s := range States() {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		parsed, err := ParseRating(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestParseRejectsUnknownNames(t *testing.T) {
	_, err := ParseState("graduated")
	assert.ErrorIs(t, err, ErrUnknownState)

	_, err = ParseRating("5")
	assert.ErrorIs(t, err, ErrUnknownRating)

	_, err = ParseKind("grammar")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCardJSONUsesStateNames(t *testing.T) {
	card := Card{State: StateRelearning, Stability: 2.5, Due: t0}

	data, err := json.Marshal(card)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"relearning"`)

	var decoded Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StateRelearning, decoded.State)

	assert.Error(t, json.Unmarshal([]byte(`{"state":"bogus"}`), &decoded))
}

func TestMarshalUnknownStateFails(t *testing.T) {
	_, err := State(42).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.Equal(t, "State(42)", State(42).String())
}
