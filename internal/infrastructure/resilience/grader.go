package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"caesar-in-a-year/internal/domain/grading"
)

// GuardedGrader wraps an unreliable grader with input prechecks, a per-learner
// call budget, a circuit breaker and a timeout. Every failure of the wrapped
// grader is absorbed into grading.Fallback; the only error it returns is
// grading.ErrAnswerTooLong.
type GuardedGrader struct {
	grader  grading.Grader
	budget  *CallBudget
	breaker *CircuitBreaker
	timeout time.Duration
	metrics *Metrics
	log     *zap.Logger
}

type Option func(*GuardedGrader)

func WithMetrics(m *Metrics) Option {
	return func(g *GuardedGrader) { g.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *GuardedGrader) { g.log = l }
}

func NewGuardedGrader(grader grading.Grader, budget *CallBudget, breaker *CircuitBreaker, timeout time.Duration, opts ...Option) *GuardedGrader {
	g := &GuardedGrader{
		grader:  grader,
		budget:  budget,
		breaker: breaker,
		timeout: timeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type gradeReply struct {
	result grading.Result
	err    error
}

// Grade judges req on behalf of learnerID
func (g *GuardedGrader) Grade(ctx context.Context, learnerID string, req grading.Request) (grading.Result, error) {
	early, err := grading.Precheck(req)
	if err != nil {
		g.metrics.observe(outcomeRejected)
		return grading.Result{}, err
	}
	if early != nil {
		g.metrics.observe(outcomeEmptyAnswer)
		return *early, nil
	}

	if !g.budget.Allow(learnerID) {
		g.log.Warn("grading budget exhausted", zap.String("learner_id", learnerID))
		g.metrics.observe(outcomeRateLimited)
		return grading.Fallback(req), nil
	}

	done, ok := g.breaker.Allow()
	if !ok {
		g.metrics.observe(outcomeCircuitOpen)
		return grading.Fallback(req), nil
	}
	g.metrics.setBreaker(g.breaker.State())

	started := time.Now()
	result, err := g.call(ctx, req)
	g.metrics.observeLatency(time.Since(started).Seconds())

	if err != nil {
		done(false)
		g.metrics.setBreaker(g.breaker.State())
		g.metrics.observe(failureOutcome(err))
		g.log.Warn("grader call failed, using fallback",
			zap.String("learner_id", learnerID),
			zap.String("breaker", g.breaker.State().String()),
			zap.Error(err),
		)
		return grading.Fallback(req), nil
	}

	done(true)
	g.metrics.setBreaker(g.breaker.State())
	g.metrics.observe(outcomeGraded)
	result.Fallback = false
	return result, nil
}

// call runs the wrapped grader and races it against the timeout. The reply
// channel is buffered so a late grader never blocks.
func (g *GuardedGrader) call(ctx context.Context, req grading.Request) (grading.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	replies := make(chan gradeReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replies <- gradeReply{err: fmt.Errorf("grader panicked: %v", r)}
			}
		}()
		result, err := g.grader.Grade(ctx, req)
		replies <- gradeReply{result: result, err: err}
	}()

	select {
	case reply := <-replies:
		if reply.err != nil {
			return grading.Result{}, reply.err
		}
		if err := reply.result.Validate(); err != nil {
			return grading.Result{}, err
		}
		return reply.result, nil
	case <-ctx.Done():
		return grading.Result{}, fmt.Errorf("grader timed out after %s: %w", g.timeout, ctx.Err())
	}
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, grading.ErrMalformedResult):
		return outcomeMalformed
	default:
		return outcomeGraderError
	}
}

// BreakerState exposes the breaker position for health reporting
func (g *GuardedGrader) BreakerState() BreakerState {
	return g.breaker.State()
}
