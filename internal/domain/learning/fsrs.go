package learning

import (
	"fmt"
	"math"
	"time"
)

// FSRS-6 default weights.
//
//	w[0..3]   initial stability per rating
//	w[4..7]   difficulty
//	w[8..10]  recall stability
//	w[11..14] forget stability
//	w[15..16] hard penalty / easy bonus
//	w[17..19] short-term stability
//	w[20]     decay
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956,
	6.4133, 0.8334, 3.0194, 0.001,
	1.8722, 0.1666, 0.796, 1.4835,
	0.0614, 0.2629, 1.6483, 0.6014,
	1.8729, 0.5425, 0.0912, 0.0658,
	0.1542,
}

const (
	// Request retention (target recall probability)
	DefaultRetention       = 0.9
	DefaultMaximumInterval = 36500

	minStability  = 0.001
	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// DefaultLearningSteps is the short-interval ladder a new card climbs before graduating.
var DefaultLearningSteps = []time.Duration{time.Minute, 10 * time.Minute}

// DefaultRelearningSteps is the ladder a lapsed card climbs back to review.
var DefaultRelearningSteps = []time.Duration{10 * time.Minute}

// Card is the memory state of one learnable unit for one learner.
type Card struct {
	State         State      `json:"state"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	ElapsedDays   float64    `json:"elapsedDays"`
	ScheduledDays float64    `json:"scheduledDays"`
	LearningSteps int        `json:"learningSteps"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	LastReview    *time.Time `json:"lastReview,omitempty"`
	Due           time.Time  `json:"due"`
}

// NewCard creates a card that has never been reviewed and is due immediately.
func NewCard(now time.Time) Card {
	return Card{State: StateNew, Due: now}
}

// ReviewLog describes one scheduling decision.
type ReviewLog struct {
	Rating        Rating
	State         State // state before the review
	Stability     float64
	Difficulty    float64
	ElapsedDays   float64
	ScheduledDays float64
	ReviewTime    time.Time
}

// SchedulerConfig tunes the scheduler. Zero values fall back to the defaults.
type SchedulerConfig struct {
	Weights          [21]float64
	DesiredRetention float64
	LearningSteps    []time.Duration
	RelearningSteps  []time.Duration
	MaximumInterval  int
}

// Scheduler computes the next memory state of a card after a review.
// It holds no mutable state and is safe for concurrent use.
type Scheduler struct {
	w               [21]float64
	decay           float64
	factor          float64
	retention       float64
	learningSteps   []time.Duration
	relearningSteps []time.Duration
	maxInterval     int
}

// NewScheduler validates the config and precomputes the decay constants.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Weights == ([21]float64{}) {
		cfg.Weights = DefaultWeights
	}
	if cfg.DesiredRetention == 0 {
		cfg.DesiredRetention = DefaultRetention
	}
	if cfg.MaximumInterval == 0 {
		cfg.MaximumInterval = DefaultMaximumInterval
	}
	if cfg.LearningSteps == nil {
		cfg.LearningSteps = DefaultLearningSteps
	}
	if cfg.RelearningSteps == nil {
		cfg.RelearningSteps = DefaultRelearningSteps
	}

	if cfg.DesiredRetention <= 0 || cfg.DesiredRetention >= 1 {
		return nil, fmt.Errorf("desired retention must be in (0, 1), got %v", cfg.DesiredRetention)
	}
	if cfg.MaximumInterval < 1 {
		return nil, fmt.Errorf("maximum interval must be positive, got %d", cfg.MaximumInterval)
	}
	if cfg.Weights[20] <= 0 {
		return nil, fmt.Errorf("decay weight must be positive, got %v", cfg.Weights[20])
	}
	for _, step := range append(append([]time.Duration{}, cfg.LearningSteps...), cfg.RelearningSteps...) {
		if step <= 0 {
			return nil, fmt.Errorf("learning steps must be positive, got %v", step)
		}
	}

	decay := -cfg.Weights[20]
	return &Scheduler{
		w:               cfg.Weights,
		decay:           decay,
		factor:          math.Pow(0.9, 1/decay) - 1,
		retention:       cfg.DesiredRetention,
		learningSteps:   cfg.LearningSteps,
		relearningSteps: cfg.RelearningSteps,
		maxInterval:     cfg.MaximumInterval,
	}, nil
}

// DefaultScheduler returns a scheduler with the stock parameters.
func DefaultScheduler() *Scheduler {
	s, err := NewScheduler(SchedulerConfig{})
	if err != nil {
		panic(err)
	}
	return s
}

// Schedule applies a graded outcome to a card. A nil card is treated as a
// brand-new card created at now.
func (s *Scheduler) Schedule(card *Card, outcome Outcome, now time.Time) Card {
	current := NewCard(now)
	if card != nil {
		current = *card
	}
	next, _ := s.Review(current, ToRating(outcome), now)
	return next
}

// Review processes a rating and returns the updated card with its log entry.
func (s *Scheduler) Review(card Card, rating Rating, now time.Time) (Card, ReviewLog) {
	elapsed := 0.0
	if card.LastReview != nil {
		elapsed = math.Max(now.Sub(*card.LastReview).Hours()/24, 0)
	}

	next := card
	s.updateMemory(&next, card, rating, elapsed)

	var interval time.Duration
	switch card.State {
	case StateNew:
		next.State = StateLearning
		next.LearningSteps = 0
		interval = s.stepLadder(&next, rating, s.learningSteps)
	case StateLearning:
		interval = s.stepLadder(&next, rating, s.learningSteps)
	case StateRelearning:
		interval = s.stepLadder(&next, rating, s.relearningSteps)
	default:
		interval = s.reviewInterval(&next, rating)
	}

	due := now.Add(interval)
	if card.State == StateReview && rating != Again && !due.After(card.Due) {
		// a successful review always pushes the card further out
		due = card.Due.Add(24 * time.Hour)
		interval = due.Sub(now)
	}

	reviewed := now
	next.LastReview = &reviewed
	next.ElapsedDays = elapsed
	next.ScheduledDays = interval.Hours() / 24
	next.Due = due
	next.Reps = card.Reps + 1

	return next, ReviewLog{
		Rating:        rating,
		State:         card.State,
		Stability:     card.Stability,
		Difficulty:    card.Difficulty,
		ElapsedDays:   elapsed,
		ScheduledDays: next.ScheduledDays,
		ReviewTime:    now,
	}
}

// Retrievability estimates the probability of recall at now.
func (s *Scheduler) Retrievability(card Card, now time.Time) float64 {
	if card.State == StateNew || card.LastReview == nil || card.Stability <= 0 {
		return 0
	}
	elapsed := math.Max(now.Sub(*card.LastReview).Hours()/24, 0)
	return s.retrievability(elapsed, card.Stability)
}

func (s *Scheduler) updateMemory(next *Card, prev Card, rating Rating, elapsed float64) {
	if prev.State == StateNew || prev.Stability <= 0 {
		next.Stability = s.initStability(rating)
		next.Difficulty = s.initDifficulty(rating, true)
		return
	}

	d := clampD(prev.Difficulty)
	if elapsed < 1 {
		next.Stability = s.shortTermStability(prev.Stability, rating)
	} else {
		r := s.retrievability(elapsed, prev.Stability)
		if rating == Again {
			next.Stability = s.nextForgetStability(d, prev.Stability, r)
		} else {
			next.Stability = s.nextRecallStability(d, prev.Stability, r, rating)
		}
	}
	next.Difficulty = s.nextDifficulty(d, rating)

	if prev.State == StateReview && rating != Again && next.Stability < prev.Stability {
		next.Stability = prev.Stability
	}
}

// stepLadder moves a learning or relearning card along its steps and
// returns the wait until the next review.
func (s *Scheduler) stepLadder(c *Card, rating Rating, steps []time.Duration) time.Duration {
	step := c.LearningSteps
	if len(steps) == 0 || (step >= len(steps) && rating != Again) {
		return s.graduate(c)
	}

	switch rating {
	case Again:
		c.LearningSteps = 0
		return steps[0]
	case Hard:
		if step == 0 && len(steps) == 1 {
			return time.Duration(float64(steps[0]) * 1.5)
		}
		if step == 0 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[step]
	case Good:
		if step+1 >= len(steps) {
			return s.graduate(c)
		}
		c.LearningSteps = step + 1
		return steps[step+1]
	default:
		return s.graduate(c)
	}
}

func (s *Scheduler) reviewInterval(c *Card, rating Rating) time.Duration {
	if rating == Again {
		c.Lapses++
		if len(s.relearningSteps) > 0 {
			c.State = StateRelearning
			c.LearningSteps = 0
			return s.relearningSteps[0]
		}
	}
	return days(s.nextInterval(c.Stability))
}

func (s *Scheduler) graduate(c *Card) time.Duration {
	c.State = StateReview
	c.LearningSteps = 0
	return days(s.nextInterval(c.Stability))
}

// retrievability computes R(t, S) = (1 + factor*t/S)^decay.
func (s *Scheduler) retrievability(elapsed, stability float64) float64 {
	return math.Pow(1+s.factor*elapsed/stability, s.decay)
}

func (s *Scheduler) initStability(r Rating) float64 {
	return clampS(s.w[r-1])
}

// initDifficulty returns D0(G) = w4 - e^(w5*(G-1)) + 1.
func (s *Scheduler) initDifficulty(r Rating, clamp bool) float64 {
	d := s.w[4] - math.Exp(s.w[5]*float64(r-1)) + 1
	if clamp {
		return clampD(d)
	}
	return d
}

// nextInterval returns whole days until recall probability hits the target.
func (s *Scheduler) nextInterval(stability float64) int {
	ivl := stability / s.factor * (math.Pow(s.retention, 1/s.decay) - 1)
	return max(1, min(int(math.Round(ivl)), s.maxInterval))
}

// shortTermStability handles reviews less than a day apart.
func (s *Scheduler) shortTermStability(stability float64, r Rating) float64 {
	inc := math.Exp(s.w[17]*(float64(r)-3+s.w[18])) * math.Pow(stability, -s.w[19])
	if r >= Good {
		inc = math.Max(inc, 1)
	}
	return clampS(stability * inc)
}

// nextDifficulty applies linear damping and mean reversion towards D0(Easy).
func (s *Scheduler) nextDifficulty(d float64, r Rating) float64 {
	delta := -s.w[6] * (float64(r) - 3)
	damped := d + (10-d)*delta/9
	return clampD(s.w[7]*s.initDifficulty(Easy, false) + (1-s.w[7])*damped)
}

func (s *Scheduler) nextRecallStability(d, stability, r float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = s.w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = s.w[16]
	}
	return clampS(stability * (1 + math.Exp(s.w[8])*
		(11-d)*
		math.Pow(stability, -s.w[9])*
		(math.Exp((1-r)*s.w[10])-1)*
		hardPenalty*
		easyBonus))
}

func (s *Scheduler) nextForgetStability(d, stability, r float64) float64 {
	long := s.w[11] *
		math.Pow(d, -s.w[12]) *
		(math.Pow(stability+1, s.w[13]) - 1) *
		math.Exp((1-r)*s.w[14])
	short := stability / math.Exp(s.w[17]*s.w[18])
	return clampS(math.Min(long, short))
}

func clampS(s float64) float64 {
	return math.Max(s, minStability)
}

func clampD(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
