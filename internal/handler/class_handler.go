package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxImportSize bounds an uploaded question CSV.
const maxImportSize = 5 << 20

// ClassHandler handles admin-facing class management.
type ClassHandler struct {
	classService *service.ClassService
	log          zerolog.Logger
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService, log zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		classService: classService,
		log:          log.With().Str("component", "class_handler").Logger(),
	}
}

// ListClasses godoc
// GET /api/v1/admin/classes
// Lists all classes without pagination.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.classService.List(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if classes == nil {
		classes = []model.ExamDefinition{}
	}
	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// CreateClass godoc
// POST /api/v1/admin/classes
// Creates a new class exam.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, class)
}

// GetClass godoc
// GET /api/v1/admin/classes/:class_id
// Returns a class including its access key.
func (h *ClassHandler) GetClass(c *gin.Context) {
	class, err := h.classService.GetByID(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, class)
}

// ListQuestions godoc
// GET /api/v1/admin/classes/:class_id/questions
// Lists the question bank of a class, answers included.
func (h *ClassHandler) ListQuestions(c *gin.Context) {
	questions, err := h.classService.ListQuestions(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/admin/classes/:class_id/questions
// Appends one question to the bank.
func (h *ClassHandler) AddQuestion(c *gin.Context) {
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.classService.AddQuestion(c.Request.Context(), c.Param("class_id"), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// ImportQuestions godoc
// POST /api/v1/admin/classes/:class_id/questions/import
// Appends questions from an uploaded CSV file (multipart field "file").
// Invalid rows are skipped and reported.
func (h *ClassHandler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fileHeader.Size > maxImportSize {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"file": "file must be at most 5 MB"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer f.Close()

	report, err := h.classService.ImportQuestions(c.Request.Context(), c.Param("class_id"), f)
	if errors.Is(err, service.ErrImportEmpty) && report != nil {
		fields := make(map[string]string, len(report.Skipped))
		for _, s := range report.Skipped {
			fields[rowKey(s.Row)] = s.Message
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrImportEmpty, fields)
		return
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, report)
}

// ListStudents godoc
// GET /api/v1/admin/classes/:class_id/students
// Lists the students registered for a class.
func (h *ClassHandler) ListStudents(c *gin.Context) {
	roster, err := h.classService.Roster(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if roster == nil {
		roster = []model.RosterEntry{}
	}
	response.Success(c, http.StatusOK, gin.H{"students": roster})
}

// ListAttempts godoc
// GET /api/v1/admin/classes/:class_id/attempts
// Lists exam attempts with their status and tab-switch counts.
func (h *ClassHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.classService.Attempts(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

func rowKey(row int) string {
	return "row_" + strconv.Itoa(row)
}
