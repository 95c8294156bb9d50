package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/application/usecases"
	apperrors "caesar-in-a-year/internal/common/errors"
	"caesar-in-a-year/internal/domain/session"
)

// Handler serves the learner API
type Handler struct {
	sessions *usecases.SessionUseCase
	learners *usecases.LearnerUseCase
	log      *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(sessions *usecases.SessionUseCase, learners *usecases.LearnerUseCase, log *zap.Logger) *Handler {
	return &Handler{sessions: sessions, learners: learners, log: log}
}

// StartSession starts or resumes today's session
func (h *Handler) StartSession(c *gin.Context) {
	s, err := h.sessions.StartSession(c.Request.Context(), learnerID(c))
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	h.writeSession(c, s)
}

// GetSession retrieves one of the learner's sessions
func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.sessions.GetSession(c.Request.Context(), learnerID(c), session.ID(c.Param("id")))
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	h.writeSession(c, s)
}

func (h *Handler) writeSession(c *gin.Context, s *session.Session) {
	resp, err := newSessionResponse(s)
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdvanceSession moves a session forward
func (h *Handler) AdvanceSession(c *gin.Context) {
	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONErrorResponse(c, h.log, apperrors.Validation("invalid request body", err.Error()))
		return
	}

	out, err := h.sessions.Advance(c.Request.Context(), learnerID(c), session.ID(c.Param("id")), *req.Index)
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, AdvanceResponse{
		Index:     out.Index,
		Status:    out.Status.String(),
		Completed: out.Completed,
		XPAwarded: out.XPAwarded,
	})
}

// SubmitAnswer grades the answer to the current item
func (h *Handler) SubmitAnswer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		JSONErrorResponse(c, h.log, apperrors.Validation("invalid item index", c.Param("index")))
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONErrorResponse(c, h.log, apperrors.Validation("invalid request body", err.Error()))
		return
	}

	out, err := h.sessions.SubmitAnswer(c.Request.Context(), learnerID(c), session.ID(c.Param("id")), index, req.Answer)
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newAnswerResponse(out))
}

// GetProgress returns the learner's progress
func (h *Handler) GetProgress(c *gin.Context) {
	view, err := h.learners.GetProgress(c.Request.Context(), learnerID(c))
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newProgressResponse(view))
}

// LevelUp raises the learner's difficulty ceiling
func (h *Handler) LevelUp(c *gin.Context) {
	var req LevelUpRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			JSONErrorResponse(c, h.log, apperrors.Validation("invalid request body", err.Error()))
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := h.learners.LevelUp(ctx, learnerID(c), req.Increment); err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}

	view, err := h.learners.GetProgress(ctx, learnerID(c))
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newProgressResponse(view))
}

// GetMastery summarises mastery within the current ceiling
func (h *Handler) GetMastery(c *gin.Context) {
	summary, err := h.learners.Mastery(c.Request.Context(), learnerID(c))
	if err != nil {
		JSONErrorResponse(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
