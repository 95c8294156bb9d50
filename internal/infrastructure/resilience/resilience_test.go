package resilience

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
}

func TestCallBudget(t *testing.T) {
	clock := newClock()
	b := NewCallBudget(3, time.Hour)
	b.now = clock.now

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow("alice"), "call %d", i)
	}
	assert.False(t, b.Allow("alice"))
	assert.Equal(t, 0, b.Remaining("alice"))

	// keys are independent
	assert.True(t, b.Allow("bob"))
	assert.Equal(t, 2, b.Remaining("bob"))

	clock.advance(59 * time.Minute)
	assert.False(t, b.Allow("alice"))

	clock.advance(time.Minute)
	assert.Equal(t, 3, b.Remaining("alice"))
	assert.True(t, b.Allow("alice"))
	assert.Equal(t, 2, b.Remaining("alice"))
}

func TestCallBudgetFailsOpen(t *testing.T) {
	b := NewCallBudget(1, time.Hour)
	b.now = func() time.Time { panic("clock broken") }

	assert.True(t, b.Allow("alice"))
	assert.True(t, b.Allow("alice"))
}

func TestCircuitBreaker(t *testing.T) {
	const cooldown = 100 * time.Millisecond
	cb := NewCircuitBreaker(3, cooldown)

	fail := func() {
		t.Helper()
		done, ok := cb.Allow()
		require.True(t, ok)
		done(false)
	}

	fail()
	fail()
	assert.Equal(t, BreakerClosed, cb.State())
	assert.Equal(t, 2, cb.Failures())
	done, ok := cb.Allow()
	require.True(t, ok)
	done(true)
	assert.Equal(t, 0, cb.Failures())

	for i := 0; i < 3; i++ {
		fail()
	}
	assert.Equal(t, BreakerOpen, cb.State())
	_, ok = cb.Allow()
	assert.False(t, ok)

	time.Sleep(cooldown + 20*time.Millisecond)
	assert.Equal(t, BreakerHalfOpen, cb.State())
	trial, ok := cb.Allow()
	require.True(t, ok, "one trial after cooldown")
	_, ok = cb.Allow()
	assert.False(t, ok, "only one trial at a time")

	trial(false)
	assert.Equal(t, BreakerOpen, cb.State())
	_, ok = cb.Allow()
	assert.False(t, ok, "failed trial restarts the cooldown")

	time.Sleep(cooldown + 20*time.Millisecond)
	trial, ok = cb.Allow()
	require.True(t, ok)
	trial(true)
	assert.Equal(t, BreakerClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
	_, ok = cb.Allow()
	assert.True(t, ok)
}

func TestCircuitBreakerThresholdFloor(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Minute)
	done, ok := cb.Allow()
	require.True(t, ok)
	done(false)
	assert.Equal(t, BreakerOpen, cb.State())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half_open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}

type stubGrader struct {
	calls  atomic.Int32
	result grading.Result
	err    error
	delay  time.Duration
	panics bool
}

func (s *stubGrader) Grade(ctx context.Context, _ grading.Request) (grading.Result, error) {
	s.calls.Add(1)
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return grading.Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

var sampleRequest = grading.Request{
	LatinText:       "Gallia est omnis divisa in partes tres.",
	UserAnswer:      "All Gaul is divided into three parts.",
	ReferenceAnswer: "Gaul as a whole is divided into three parts.",
}

func newGuard(g grading.Grader, budget, threshold int) (*GuardedGrader, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	return NewGuardedGrader(g,
		NewCallBudget(budget, time.Hour),
		NewCircuitBreaker(threshold, time.Minute),
		50*time.Millisecond,
		WithMetrics(m),
	), m
}

func TestGuardedGraderPassesThroughValidResult(t *testing.T) {
	stub := &stubGrader{result: grading.Result{Status: learning.OutcomeCorrect, Feedback: "Optime!"}}
	guard, m := newGuard(stub, 10, 3)

	res, err := guard.Grade(context.Background(), "alice", sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, learning.OutcomeCorrect, res.Status)
	assert.False(t, res.Fallback)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues(outcomeGraded)))
}

func TestGuardedGraderPrecheck(t *testing.T) {
	stub := &stubGrader{result: grading.Result{Status: learning.OutcomeCorrect, Feedback: "ok"}}
	guard, _ := newGuard(stub, 10, 3)

	empty := sampleRequest
	empty.UserAnswer = "   "
	res, err := guard.Grade(context.Background(), "alice", empty)
	require.NoError(t, err)
	assert.Equal(t, learning.OutcomeIncorrect, res.Status)
	assert.Equal(t, sampleRequest.ReferenceAnswer, res.Correction)

	long := sampleRequest
	long.UserAnswer = strings.Repeat("a", grading.MaxAnswerLength+1)
	_, err = guard.Grade(context.Background(), "alice", long)
	assert.ErrorIs(t, err, grading.ErrAnswerTooLong)

	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestGuardedGraderFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		stub    *stubGrader
		outcome string
	}{
		{name: "error", stub: &stubGrader{err: errors.New("connection refused")}, outcome: outcomeGraderError},
		{name: "timeout", stub: &stubGrader{delay: time.Second, result: grading.Result{Status: learning.OutcomeCorrect, Feedback: "late"}}, outcome: outcomeTimeout},
		{name: "malformed", stub: &stubGrader{result: grading.Result{Status: "MAYBE", Feedback: "?"}}, outcome: outcomeMalformed},
		{name: "panic", stub: &stubGrader{panics: true}, outcome: outcomeGraderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, m := newGuard(tt.stub, 10, 3)

			res, err := guard.Grade(context.Background(), "alice", sampleRequest)
			require.NoError(t, err)
			assert.Equal(t, learning.OutcomePartial, res.Status)
			assert.True(t, res.Fallback)
			assert.Equal(t, sampleRequest.ReferenceAnswer, res.Correction)
			assert.NoError(t, res.Validate())
			assert.Equal(t, 1, guard.breaker.Failures())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues(tt.outcome)))
		})
	}
}

func TestGuardedGraderOpensCircuit(t *testing.T) {
	stub := &stubGrader{err: errors.New("503")}
	guard, m := newGuard(stub, 100, 5)

	for i := 0; i < 8; i++ {
		res, err := guard.Grade(context.Background(), "alice", sampleRequest)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
	}

	assert.Equal(t, int32(5), stub.calls.Load(), "calls stop once the circuit opens")
	assert.Equal(t, BreakerOpen, guard.BreakerState())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.calls.WithLabelValues(outcomeCircuitOpen)))
	assert.Equal(t, float64(BreakerOpen), testutil.ToFloat64(m.breakerState))
}

func TestGuardedGraderRateLimit(t *testing.T) {
	stub := &stubGrader{result: grading.Result{Status: learning.OutcomeCorrect, Feedback: "ok"}}
	guard, _ := newGuard(stub, 2, 3)

	for i := 0; i < 2; i++ {
		res, err := guard.Grade(context.Background(), "alice", sampleRequest)
		require.NoError(t, err)
		assert.False(t, res.Fallback)
	}

	res, err := guard.Grade(context.Background(), "alice", sampleRequest)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, int32(2), stub.calls.Load())
	assert.Equal(t, BreakerClosed, guard.BreakerState(), "budget refusals are not failures")

	res, err = guard.Grade(context.Background(), "bob", sampleRequest)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
}
