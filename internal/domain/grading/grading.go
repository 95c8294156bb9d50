package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"caesar-in-a-year/internal/domain/learning"
)

// MaxAnswerLength is the longest translation accepted, in runes.
const MaxAnswerLength = 2000

var (
	ErrAnswerTooLong     = errors.New("answer exceeds maximum length")
	ErrMalformedResult   = errors.New("malformed grading result")
	ErrGraderUnavailable = errors.New("grader unavailable")
)

const (
	fallbackFeedback    = "The tutor is unavailable right now. Compare your translation with the reference below."
	emptyAnswerFeedback = "No translation was submitted. Read the reference translation and try again next time."
)

// Request is what the learner submitted for one item
type Request struct {
	LatinText       string
	UserAnswer      string
	ReferenceAnswer string
	Context         string
}

// Note is one remark from the tutor's analysis
type Note struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Analysis is optional structured feedback
type Analysis struct {
	Notes []Note `json:"notes,omitempty"`
}

// Result is the grader's verdict
type Result struct {
	Status     learning.Outcome `json:"status"`
	Feedback   string           `json:"feedback"`
	Correction string           `json:"correction,omitempty"`
	Analysis   *Analysis        `json:"analysis,omitempty"`
	Fallback   bool             `json:"fallback"`
}

// Grader judges a translation
type Grader interface {
	Grade(ctx context.Context, req Request) (Result, error)
}

// Validate checks a result returned by a grader
func (r Result) Validate() error {
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrMalformedResult, string(r.Status))
	}
	if strings.TrimSpace(r.Feedback) == "" {
		return fmt.Errorf("%w: empty feedback", ErrMalformedResult)
	}
	return nil
}

// Precheck decides requests that must never reach the grader. It returns a
// deterministic result for an empty answer, ErrAnswerTooLong for an oversized
// one, and (nil, nil) when the request should be graded.
func Precheck(req Request) (*Result, error) {
	answer := strings.TrimSpace(req.UserAnswer)
	if answer == "" {
		return &Result{
			Status:     learning.OutcomeIncorrect,
			Feedback:   emptyAnswerFeedback,
			Correction: req.ReferenceAnswer,
		}, nil
	}
	if utf8.RuneCountInString(answer) > MaxAnswerLength {
		return nil, fmt.Errorf("%w: %d characters allowed", ErrAnswerTooLong, MaxAnswerLength)
	}
	return nil, nil
}

// Fallback is the result used whenever the grader cannot answer
func Fallback(req Request) Result {
	return Result{
		Status:     learning.OutcomePartial,
		Feedback:   fallbackFeedback,
		Correction: req.ReferenceAnswer,
		Fallback:   true,
	}
}

// Unavailable is a Grader used when no tutor backend is configured
type Unavailable struct{}

func (Unavailable) Grade(context.Context, Request) (Result, error) {
	return Result{}, ErrGraderUnavailable
}
