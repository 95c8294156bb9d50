package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"caesar-in-a-year/internal/domain/user"
)

// ID identifies a session
type ID string

// Status of a session
type Status int

const (
	StatusActive Status = iota + 1
	StatusComplete
)

var statusNames = map[Status]string{
	StatusActive:   "active",
	StatusComplete: "complete",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts a persisted name back to a Status
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown session status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown session status %d", int(s))
	}
	return []byte(name), nil
}

// Session is one day's ordered walk through its items. Items never change
// after creation; only the progression fields move.
type Session struct {
	id           ID
	userID       user.ID
	items        []Item
	currentIndex  int
	answeredIndex int
	status        Status
	createdAt     time.Time
	completedAt   *time.Time
}

// New creates a session. A session without items is complete from the start.
func New(userID user.ID, items []Item, now time.Time) *Session {
	s := &Session{
		id:            ID(uuid.NewString()),
		userID:        userID,
		items:         append([]Item(nil), items...),
		answeredIndex: -1,
		status:        StatusActive,
		createdAt:     now,
	}
	if len(items) == 0 {
		s.complete(now)
	}
	return s
}

// Restore rebuilds a session from storage (used by repository)
func Restore(id ID, userID user.ID, items []Item, currentIndex, answeredIndex int, status Status, createdAt time.Time, completedAt *time.Time) *Session {
	return &Session{
		id:            id,
		userID:        userID,
		items:         items,
		currentIndex:  currentIndex,
		answeredIndex: answeredIndex,
		status:        status,
		createdAt:     createdAt,
		completedAt:   completedAt,
	}
}

// Getters
func (s *Session) ID() ID                  { return s.id }
func (s *Session) UserID() user.ID         { return s.userID }
func (s *Session) CurrentIndex() int       { return s.currentIndex }
func (s *Session) AnsweredIndex() int      { return s.answeredIndex }
func (s *Session) Status() Status          { return s.status }
func (s *Session) CreatedAt() time.Time    { return s.createdAt }
func (s *Session) CompletedAt() *time.Time { return s.completedAt }
func (s *Session) Len() int                { return len(s.items) }

// Items returns a copy of the item list
func (s *Session) Items() []Item {
	return append([]Item(nil), s.items...)
}

// Item returns the item at index i
func (s *Session) Item(i int) (Item, bool) {
	if i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

// IsComplete reports whether the session has finished
func (s *Session) IsComplete() bool {
	return s.status == StatusComplete
}

// Answered reports whether the item at index already has a graded answer
func (s *Session) Answered(index int) bool {
	return index <= s.answeredIndex
}

// MarkAnswered records the answer to the current item. It refuses any other
// index, a repeat answer and a completed session.
func (s *Session) MarkAnswered(index int) bool {
	if s.status == StatusComplete || index != s.currentIndex || s.Answered(index) {
		return false
	}
	s.answeredIndex = index
	return true
}

// OwnedBy reports whether the session belongs to the learner
func (s *Session) OwnedBy(userID user.ID) bool {
	return s.userID == userID
}

// AdvanceResult describes what an Advance call did
type AdvanceResult struct {
	Index     int
	Status    Status
	Completed bool // true only on the call that completed the session
}

// Advance moves the session forward to requestedIndex. Stale or duplicate
// requests never move it backwards, and a completed session never changes.
func (s *Session) Advance(requestedIndex int, now time.Time) AdvanceResult {
	if s.status == StatusComplete {
		return AdvanceResult{Index: s.currentIndex, Status: s.status}
	}

	next := max(s.currentIndex, requestedIndex)
	if next >= len(s.items) {
		s.complete(now)
		return AdvanceResult{Index: s.currentIndex, Status: s.status, Completed: true}
	}

	s.currentIndex = next
	return AdvanceResult{Index: s.currentIndex, Status: s.status}
}

func (s *Session) complete(now time.Time) {
	s.status = StatusComplete
	if len(s.items) > 0 {
		s.currentIndex = len(s.items) - 1
	}
	if s.completedAt == nil {
		completed := now
		s.completedAt = &completed
	}
}
