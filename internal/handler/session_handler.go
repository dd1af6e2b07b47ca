package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/middleware"
	"github.com/openexam/session-engine/internal/model"
	"github.com/openexam/session-engine/internal/response"
	"github.com/openexam/session-engine/internal/service"
	"github.com/openexam/session-engine/internal/session"
	"github.com/openexam/session-engine/internal/validator"
)

// SessionHandler handles candidate-facing exam-taking endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/candidate/exams/:exam_id/session
// Starts (or rejoins) the candidate's attempt and returns the question list
// with the initial state.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.sessionService.StartSession(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		case errors.Is(err, session.ErrInvalidDefinition):
			response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
		default:
			response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions": sess.Questions(),
		"state":     sess.State(),
	})
}

// GetState godoc
// GET /api/v1/candidate/exams/:exam_id/session/state
// Full snapshot for the client, e.g. after a page reload.
func (h *SessionHandler) GetState(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// GetCurrentQuestion godoc
// GET /api/v1/candidate/exams/:exam_id/session/question
func (h *SessionHandler) GetCurrentQuestion(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.CurrentQuestion())
}

// GoToQuestion godoc
// POST /api/v1/candidate/exams/:exam_id/session/goto
// Jumps to a question by display position.
func (h *SessionHandler) GoToQuestion(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}

	var req model.GoToQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.GoToQuestion(req.Index); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrIndexOutOfRange)
		return
	}

	response.Success(c, http.StatusOK, sess.CurrentQuestion())
}

// SetAnswer godoc
// PUT /api/v1/candidate/exams/:exam_id/session/answer
// Records an answer. Multi-answer questions with a single-key payload
// toggle that key's membership instead of overwriting.
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.SetAnswer(req.QuestionID, req.Answer); err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInExam)
		case errors.Is(err, session.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, sess.Progress())
}

// ToggleMark godoc
// POST /api/v1/candidate/exams/:exam_id/session/mark
// Flags or unflags a question for review.
func (h *SessionHandler) ToggleMark(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}

	var req model.ToggleMarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.ToggleMark(req.QuestionID); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInExam)
		return
	}

	response.Success(c, http.StatusOK, sess.State())
}

// GetProgress godoc
// GET /api/v1/candidate/exams/:exam_id/session/progress
func (h *SessionHandler) GetProgress(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.Progress())
}

// Submit godoc
// POST /api/v1/candidate/exams/:exam_id/session/submit
// Finishes the attempt and returns the graded result. Safe to retry:
// a repeat call returns the already-produced result.
func (h *SessionHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.Submit(examID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			// Never started, or the server restarted since submission. A
			// stored result means the latter; return it so retries stay
			// harmless.
			if stored, lookupErr := h.sessionService.GetResult(c.Request.Context(), examID, claims.UserID); lookupErr == nil {
				response.Success(c, http.StatusOK, stored)
				return
			}
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/candidate/exams/:exam_id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.GetResult(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrResultNotReady)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ForceSubmit godoc
// POST /api/v1/proctor/exams/:exam_id/candidates/:user_id/submit
// Proctor-initiated submission of a candidate's attempt.
func (h *SessionHandler) ForceSubmit(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.ForceSubmit(examID, userID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// activeSession resolves the live session for the authenticated candidate,
// writing the error response itself when there is none.
func (h *SessionHandler) activeSession(c *gin.Context) (*session.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	sess, err := h.sessionService.Get(examID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		return nil, false
	}
	return sess, true
}
