package learning

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownState   = errors.New("unknown card state")
	ErrUnknownRating  = errors.New("unknown rating")
	ErrUnknownKind    = errors.New("unknown card kind")
	ErrUnknownOutcome = errors.New("unknown grading outcome")
)

// State represents the learning state of a card
type State int

const (
	StateNew State = iota
	StateLearning
	StateReview
	StateRelearning
)

// Kind is the type of learnable unit a card tracks.
type Kind int

const (
	KindSentence Kind = iota + 1
	KindVocab
	KindPhrase
)

// Name tables used for persistence and JSON. Each has an inverse built in init.
var (
	stateNames = map[State]string{
		StateNew:        "new",
		StateLearning:   "learning",
		StateReview:     "review",
		StateRelearning: "relearning",
	}
	ratingNames = map[Rating]string{
		Again: "again",
		Hard:  "hard",
		Good:  "good",
		Easy:  "easy",
	}
	kindNames = map[Kind]string{
		KindSentence: "sentence",
		KindVocab:    "vocab",
		KindPhrase:   "phrase",
	}

	statesByName  = invert(stateNames)
	ratingsByName = invert(ratingNames)
	kindsByName   = invert(kindNames)
)

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// States lists every state in declaration order.
func States() []State { return []State{StateNew, StateLearning, StateReview, StateRelearning} }

// Kinds lists every card kind.
func Kinds() []Kind { return []Kind{KindSentence, KindVocab, KindPhrase} }

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState converts a persisted name back to a State.
func ParseState(name string) (State, error) {
	s, ok := statesByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return s, nil
}

func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(name), nil
}

func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (r Rating) String() string {
	if name, ok := ratingNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating converts a persisted name back to a Rating.
func ParseRating(name string) (Rating, error) {
	r, ok := ratingsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRating, name)
	}
	return r, nil
}

func (r Rating) MarshalText() ([]byte, error) {
	name, ok := ratingNames[r]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRating, int(r))
	}
	return []byte(name), nil
}

func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a persisted name back to a Kind.
func ParseKind(name string) (Kind, error) {
	k, ok := kindsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(name), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
