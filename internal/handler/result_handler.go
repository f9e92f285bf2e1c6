package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResultHandler serves recorded results.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// GetResult godoc
// GET /api/v1/results/:result_id
// Returns a single result for the result page.
func (h *ResultHandler) GetResult(c *gin.Context) {
	res, err := h.resultService.GetByID(c.Request.Context(), c.Param("result_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// ListResults godoc
// GET /api/v1/admin/classes/:class_id/results
// Lists the results of a class in submission order.
func (h *ResultHandler) ListResults(c *gin.Context) {
	results, err := h.resultService.ListByClass(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ExportResults godoc
// GET /api/v1/admin/classes/:class_id/results/export?format=csv|xlsx
// Downloads the results of a class as a CSV or Excel file.
func (h *ResultHandler) ExportResults(c *gin.Context) {
	classID := c.Param("class_id")

	var (
		export      func(ctx context.Context, classID string, w io.Writer) error
		contentType string
		ext         string
	)
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		export, contentType, ext = h.resultService.ExportCSV, "text/csv; charset=utf-8", "csv"
	case "xlsx":
		export, contentType, ext = h.resultService.ExportXLSX, xlsxContentType, "xlsx"
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"format": "format must be one of [csv xlsx]"})
		return
	}

	// Rendered in memory first so a failure still gets a proper error body.
	var buf bytes.Buffer
	if err := export(c.Request.Context(), classID, &buf); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Attachment(c, contentType, fmt.Sprintf("results-%s.%s", classID, ext), buf.Bytes())
}
