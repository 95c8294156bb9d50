package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/application/usecases"
	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/session"
	"caesar-in-a-year/internal/infrastructure/persistence"
	"caesar-in-a-year/internal/infrastructure/resilience"
)

type correctGrader struct{}

func (correctGrader) Grade(_ context.Context, req grading.Request) (grading.Result, error) {
	return grading.Result{Status: learning.OutcomeCorrect, Feedback: "Optime!", Correction: req.ReferenceAnswer}, nil
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	router, _ := setupTestRouterWithGrader(t, correctGrader{})
	return router
}

func setupTestRouterWithGrader(t *testing.T, grader grading.Grader) (*gin.Engine, *resilience.GuardedGrader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := persistence.NewDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	contentRepo := persistence.NewContentRepository(db)
	require.NoError(t, contentRepo.SaveSentences(ctx, []content.Sentence{
		{ID: "bg.1.1.1", Latin: "Gallia est omnis divisa in partes tres.", ReferenceTranslation: "Gaul is divided into three parts.", Difficulty: 5, Order: 1},
	}))
	require.NoError(t, contentRepo.SaveVocabulary(ctx, []content.VocabWord{
		{ID: "v.gallia", Lemma: "Gallia", Gloss: "Gaul", Difficulty: 1},
	}))

	userRepo := persistence.NewUserRepository(db)
	learningRepo := persistence.NewLearningRepository(db)
	learners := usecases.NewLearnerUseCase(userRepo, persistence.NewUserPreferencesRepository(db),
		learningRepo, contentRepo, 10, 10, zap.NewNop())

	reg := prometheus.NewRegistry()
	guard := resilience.NewGuardedGrader(grader,
		resilience.NewCallBudget(100, time.Hour),
		resilience.NewCircuitBreaker(5, time.Minute),
		time.Second,
		resilience.WithMetrics(resilience.NewMetrics(reg)),
	)

	composer, err := session.NewComposer(session.DefaultTiers)
	require.NoError(t, err)
	sessions := usecases.NewSessionUseCase(persistence.NewSessionRepository(db), learningRepo, contentRepo, userRepo,
		learners, composer, learning.DefaultScheduler(), guard, usecases.DefaultXPRewards, zap.NewNop())

	return NewRouter(NewHandler(sessions, learners, zap.NewNop()), guard, reg, zap.NewNop()), guard
}

func doRequest(t *testing.T, router *gin.Engine, method, path, learner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if learner != "" {
		req.Header.Set("X-User-ID", learner)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "ok", "grader": "closed"}, decode[map[string]any](t, w))

	w = doRequest(t, router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caesar_grading_circuit_state")
}

type failingGrader struct{}

func (failingGrader) Grade(context.Context, grading.Request) (grading.Result, error) {
	return grading.Result{}, errors.New("upstream unavailable")
}

func TestHealthReportsOpenCircuit(t *testing.T) {
	router, guard := setupTestRouterWithGrader(t, failingGrader{})

	req := grading.Request{LatinText: "Gallia est omnis divisa.", UserAnswer: "Gaul is divided.", ReferenceAnswer: "Gaul is divided."}
	for i := 0; i < 5; i++ {
		res, err := guard.Grade(context.Background(), "alice", req)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
	}
	require.Equal(t, resilience.BreakerOpen, guard.BreakerState())

	w := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "degraded", "grader": "open"}, decode[map[string]any](t, w))
}

func TestAuthRequired(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[map[string]any](t, w)["code"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
	req.AddCookie(&http.Cookie{Name: "user_id", Value: "alice"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionFlow(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/sessions", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := decode[SessionResponse](t, w)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "VOCAB_DRILL", s.Items[0].Kind)
	assert.Equal(t, "NEW_READING", s.Items[1].Kind)
	assert.Equal(t, "active", s.Status)

	base := "/api/v1/sessions/" + s.ID

	w = doRequest(t, router, http.MethodGet, base, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/sessions/nope", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, base+"/items/0/answer", "alice",
		AnswerRequest{Answer: strings.Repeat("a", grading.MaxAnswerLength+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[map[string]any](t, w)["code"])

	w = doRequest(t, router, http.MethodPost, base+"/items/0/answer", "alice", AnswerRequest{Answer: "Gaul"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	answer := decode[AnswerResponse](t, w)
	assert.Equal(t, learning.OutcomeCorrect, answer.Status)
	assert.Equal(t, 10, answer.XPAwarded)
	require.Len(t, answer.Cards, 1)
	assert.Equal(t, "learning", answer.Cards[0].State)

	w = doRequest(t, router, http.MethodPost, base+"/items/1/answer", "alice", AnswerRequest{Answer: "Gaul"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPost, base+"/advance", "alice", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, base+"/items/x/answer", "alice", AnswerRequest{Answer: "Gaul"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, base+"/advance", "alice", map[string]int{"index": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[AdvanceResponse](t, w).Completed)

	w = doRequest(t, router, http.MethodPost, base+"/items/1/answer", "alice", AnswerRequest{Answer: ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, learning.OutcomeIncorrect, decode[AnswerResponse](t, w).Status)

	w = doRequest(t, router, http.MethodPost, base+"/advance", "alice", map[string]int{"index": 2})
	require.Equal(t, http.StatusOK, w.Code)
	adv := decode[AdvanceResponse](t, w)
	assert.True(t, adv.Completed)
	assert.Equal(t, 1, adv.Index)
	assert.Equal(t, "complete", adv.Status)
	assert.Equal(t, 25, adv.XPAwarded)

	w = doRequest(t, router, http.MethodGet, "/api/v1/progress", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[ProgressResponse](t, w)
	assert.Equal(t, 10+1+25, progress.XP)
	assert.Equal(t, 1, progress.Streak)
}

func TestLevelUpAndMastery(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/progress/level-up", "alice", map[string]int{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, decode[ProgressResponse](t, w).DifficultyCeiling)

	w = doRequest(t, router, http.MethodPost, "/api/v1/progress/level-up", "alice", map[string]int{"increment": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, decode[ProgressResponse](t, w).DifficultyCeiling)

	w = doRequest(t, router, http.MethodPost, "/api/v1/progress/level-up", "alice", map[string]int{"increment": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/progress/mastery", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mastery := decode[map[string]any](t, w)
	assert.EqualValues(t, 25, mastery["ceiling"])
	assert.EqualValues(t, 1, mastery["totalContent"])
	assert.EqualValues(t, 0, mastery["studied"])
}
