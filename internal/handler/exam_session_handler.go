package handler

import (
	"net/http"

	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExamSessionHandler handles student-facing exam taking.
type ExamSessionHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewExamSessionHandler creates a new ExamSessionHandler.
func NewExamSessionHandler(sessionService *service.ExamSessionService, log zerolog.Logger) *ExamSessionHandler {
	return &ExamSessionHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "exam_session_handler").Logger(),
	}
}

// GetSummary godoc
// GET /api/v1/classes/:class_id
// Returns the public description of a class exam.
func (h *ExamSessionHandler) GetSummary(c *gin.Context) {
	summary, err := h.sessionService.Summary(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// Open godoc
// POST /api/v1/classes/:class_id/sessions
// Opens the exam. A valid token for a live session reattaches to it; a token
// whose progress was saved offers a resume; otherwise a new session starts
// in the verifying phase.
func (h *ExamSessionHandler) Open(c *gin.Context) {
	opened, err := h.sessionService.Open(c.Request.Context(), c.Param("class_id"), middleware.GetClaims(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, opened)
}

// Verify godoc
// POST /api/v1/sessions/verify
// Checks the access key, registers the student and starts the countdown.
func (h *ExamSessionHandler) Verify(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.VerifyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.sessionService.Verify(c.Request.Context(), sess.ID(), req.AccessKey, req.Identity()); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// Resume godoc
// POST /api/v1/sessions/resume
// Restores saved progress and restarts the countdown.
func (h *ExamSessionHandler) Resume(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if _, err := h.sessionService.Resume(c.Request.Context(), sess.ID()); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// GetState godoc
// GET /api/v1/sessions/state
// Returns the current question, navigator and remaining time.
func (h *ExamSessionHandler) GetState(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// SelectAnswer godoc
// PUT /api/v1/sessions/answers
// Records the selected option for a question, replacing any earlier choice.
func (h *ExamSessionHandler) SelectAnswer(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.SelectAnswer(req.QuestionID, req.Option); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// ToggleFlag godoc
// POST /api/v1/sessions/flags/:question_id
// Flags a question for review, or clears the flag.
func (h *ExamSessionHandler) ToggleFlag(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	qid := c.Param("question_id")
	flagged, err := sess.ToggleFlag(qid)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": qid, "flagged": flagged})
}

// Navigate godoc
// POST /api/v1/sessions/navigate
// Moves to the next, previous or a given question. Out-of-range targets
// leave the position unchanged.
func (h *ExamSessionHandler) Navigate(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	navigate(sess, req.Action, req.Index)
	response.Success(c, http.StatusOK, sess.State())
}

// ReportIntegrityEvent godoc
// POST /api/v1/sessions/integrity-events
// Counts a focus or visibility loss. Reaching the limit submits the exam.
func (h *ExamSessionHandler) ReportIntegrityEvent(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.IntegrityEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := sess.ReportFocusLoss(c.Request.Context()); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// Submit godoc
// POST /api/v1/sessions/submit
// Scores the exam and records the result. Repeating it returns the same
// result.
func (h *ExamSessionHandler) Submit(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := sess.Submit(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result, "state": sess.State()})
}

// navigate applies a navigation action and returns the new index.
func navigate(sess *exam.Session, action string, index int) int {
	switch action {
	case "next":
		return sess.Next()
	case "previous":
		return sess.Previous()
	default:
		return sess.GoTo(index)
	}
}
