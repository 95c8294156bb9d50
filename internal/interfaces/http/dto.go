package http

import (
	"time"

	"caesar-in-a-year/internal/application/usecases"
	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/session"
)

type AdvanceRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

type LevelUpRequest struct {
	Increment int `json:"increment" binding:"min=0,max=100"`
}

type SessionResponse struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	CurrentIndex int                `json:"currentIndex"`
	Items        []session.Envelope `json:"items"`
	CreatedAt    time.Time          `json:"createdAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}

type AdvanceResponse struct {
	Index     int    `json:"index"`
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
	XPAwarded int    `json:"xpAwarded"`
}

type CardResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ContentID  string    `json:"contentId"`
	State      string    `json:"state"`
	Due        time.Time `json:"due"`
	Stability  float64   `json:"stability"`
	Difficulty float64   `json:"difficulty"`
	Reps       int       `json:"reps"`
	Lapses     int       `json:"lapses"`
}

type AnswerResponse struct {
	grading.Result
	XPAwarded int            `json:"xpAwarded"`
	Cards     []CardResponse `json:"cards"`
}

type ProgressResponse struct {
	UserID            string     `json:"userId"`
	DifficultyCeiling int        `json:"difficultyCeiling"`
	Streak            int        `json:"streak"`
	LongestStreak     int        `json:"longestStreak"`
	XP                int        `json:"xp"`
	DaysActive        int        `json:"daysActive"`
	LastSessionAt     *time.Time `json:"lastSessionAt,omitempty"`
	DueCards          int        `json:"dueCards"`
}

func newSessionResponse(s *session.Session) (SessionResponse, error) {
	items := s.Items()
	envs := make([]session.Envelope, 0, len(items))
	for _, it := range items {
		env, err := session.EncodeItem(it)
		if err != nil {
			return SessionResponse{}, err
		}
		envs = append(envs, env)
	}
	return SessionResponse{
		ID:           string(s.ID()),
		Status:       s.Status().String(),
		CurrentIndex: s.CurrentIndex(),
		Items:        envs,
		CreatedAt:    s.CreatedAt(),
		CompletedAt:  s.CompletedAt(),
	}, nil
}

func newCardResponse(uc *learning.UserCard) CardResponse {
	card := uc.Card()
	return CardResponse{
		ID:         string(uc.ID()),
		Kind:       uc.Kind().String(),
		ContentID:  uc.ContentID(),
		State:      card.State.String(),
		Due:        card.Due,
		Stability:  card.Stability,
		Difficulty: card.Difficulty,
		Reps:       card.Reps,
		Lapses:     card.Lapses,
	}
}

func newAnswerResponse(out *usecases.AnswerOutcome) AnswerResponse {
	cards := make([]CardResponse, 0, len(out.Cards))
	for _, c := range out.Cards {
		cards = append(cards, newCardResponse(c))
	}
	return AnswerResponse{Result: out.Result, XPAwarded: out.XPAwarded, Cards: cards}
}

func newProgressResponse(view *usecases.ProgressView) ProgressResponse {
	p := view.Progress
	return ProgressResponse{
		UserID:            string(p.UserID()),
		DifficultyCeiling: p.DifficultyCeiling(),
		Streak:            p.Streak(),
		LongestStreak:     p.LongestStreak(),
		XP:                p.XP(),
		DaysActive:        p.DaysActive(),
		LastSessionAt:     p.LastSessionAt(),
		DueCards:          view.DueCards,
	}
}
