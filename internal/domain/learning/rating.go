package learning

import (
	"fmt"
	"strings"
)

// Rating represents the scheduler's view of how well a card was recalled
type Rating int

const (
	Again Rating = 1 // Forgot
	Hard  Rating = 2 // Recalled with difficulty
	Good  Rating = 3 // Recalled
	Easy  Rating = 4 // Recalled effortlessly; never produced by grading
)

// Outcome is the three-way verdict returned by the grader.
type Outcome string

const (
	OutcomeCorrect   Outcome = "CORRECT"
	OutcomePartial   Outcome = "PARTIAL"
	OutcomeIncorrect Outcome = "INCORRECT"
)

// Outcomes lists every valid outcome.
var Outcomes = []Outcome{OutcomeCorrect, OutcomePartial, OutcomeIncorrect}

// IsValid reports whether o is one of the known outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeCorrect, OutcomePartial, OutcomeIncorrect:
		return true
	}
	return false
}

// ParseOutcome validates a grader verdict at the boundary.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
	}
	return o, nil
}

// ToRating maps a grading outcome onto a scheduler rating.
func ToRating(o Outcome) Rating {
	switch o {
	case OutcomeCorrect:
		return Good
	case OutcomePartial:
		return Hard
	case OutcomeIncorrect:
		return Again
	}
	panic(fmt.Sprintf("learning: unknown outcome %q", string(o)))
}
