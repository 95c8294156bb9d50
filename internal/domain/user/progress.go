package user

import "time"

// MaxDifficultyCeiling is the hardest content difficulty in the corpus.
const MaxDifficultyCeiling = 100

// Progress is the learner's position in the course
type Progress struct {
	userID            ID
	difficultyCeiling int
	streak            int
	longestStreak     int
	xp                int
	daysActive        int
	lastSessionAt     *time.Time
	updatedAt         time.Time
}

// NewProgress creates progress for a learner who has not studied yet
func NewProgress(userID ID, initialCeiling int, now time.Time) *Progress {
	return &Progress{
		userID:            userID,
		difficultyCeiling: clampCeiling(initialCeiling),
		updatedAt:         now,
	}
}

// RestoreProgress rebuilds progress from storage (used by repository)
func RestoreProgress(userID ID, ceiling, streak, longestStreak, xp, daysActive int, lastSessionAt *time.Time, updatedAt time.Time) *Progress {
	return &Progress{
		userID:            userID,
		difficultyCeiling: ceiling,
		streak:            streak,
		longestStreak:     longestStreak,
		xp:                xp,
		daysActive:        daysActive,
		lastSessionAt:     lastSessionAt,
		updatedAt:         updatedAt,
	}
}

// Getters
func (p *Progress) UserID() ID                { return p.userID }
func (p *Progress) DifficultyCeiling() int    { return p.difficultyCeiling }
func (p *Progress) Streak() int               { return p.streak }
func (p *Progress) LongestStreak() int        { return p.longestStreak }
func (p *Progress) XP() int                   { return p.xp }
func (p *Progress) DaysActive() int           { return p.daysActive }
func (p *Progress) LastSessionAt() *time.Time { return p.lastSessionAt }
func (p *Progress) UpdatedAt() time.Time      { return p.updatedAt }

// LevelUp raises the difficulty ceiling, saturating at MaxDifficultyCeiling.
// Non-positive increments leave the ceiling untouched.
func (p *Progress) LevelUp(increment int, now time.Time) int {
	if increment <= 0 {
		return p.difficultyCeiling
	}
	p.difficultyCeiling = clampCeiling(p.difficultyCeiling + increment)
	p.updatedAt = now
	return p.difficultyCeiling
}

// AwardXP adds experience points
func (p *Progress) AwardXP(points int, now time.Time) {
	if points <= 0 {
		return
	}
	p.xp += points
	p.updatedAt = now
}

// RecordSessionCompletion updates streak and active-day counters.
// Only the first completed session of a calendar day counts towards them.
func (p *Progress) RecordSessionCompletion(now time.Time) {
	defer func() {
		completed := now
		p.lastSessionAt = &completed
		p.updatedAt = now
	}()

	if p.lastSessionAt == nil {
		p.streak = 1
		p.daysActive = 1
		p.longestStreak = max(p.longestStreak, p.streak)
		return
	}

	last := *p.lastSessionAt
	switch {
	case sameDay(last, now):
		return
	case sameDay(last.AddDate(0, 0, 1), now):
		p.streak++
	default:
		p.streak = 1
	}
	p.daysActive++
	p.longestStreak = max(p.longestStreak, p.streak)
}

func clampCeiling(c int) int {
	return max(0, min(c, MaxDifficultyCeiling))
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
