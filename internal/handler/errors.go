package handler

import (
	"errors"
	"net/http"

	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type errMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// errMappings is checked in order with errors.Is.
var errMappings = []errMapping{
	{service.ErrClassNotFound, http.StatusNotFound, response.ErrClassNotFound},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrResultNotFound, http.StatusNotFound, response.ErrResultNotFound},
	{service.ErrInvalidToken, http.StatusUnauthorized, response.ErrTokenInvalid},
	{service.ErrCorrectAnswerNotInOptions, http.StatusBadRequest, response.ErrInvalidQuestion},
	{service.ErrDuplicateOptions, http.StatusBadRequest, response.ErrInvalidQuestion},
	{service.ErrImportHeader, http.StatusBadRequest, response.ErrImportHeader},
	{service.ErrImportEmpty, http.StatusBadRequest, response.ErrImportEmpty},

	{exam.ErrNoQuestions, http.StatusConflict, response.ErrNoQuestions},
	{exam.ErrExamExpired, http.StatusGone, response.ErrExamExpired},
	{exam.ErrIdentityRequired, http.StatusBadRequest, response.ErrIdentityRequired},
	{exam.ErrInvalidAccessKey, http.StatusForbidden, response.ErrInvalidAccessKey},
	{exam.ErrAlreadyStarted, http.StatusConflict, response.ErrAlreadyStarted},
	{exam.ErrSessionSubmitted, http.StatusConflict, response.ErrSessionSubmitted},
	{exam.ErrNotInProgress, http.StatusConflict, response.ErrNotInProgress},
	{exam.ErrTimeUp, http.StatusConflict, response.ErrTimeUp},
	{exam.ErrUnknownQuestion, http.StatusBadRequest, response.ErrUnknownQuestion},
	{exam.ErrUnknownOption, http.StatusBadRequest, response.ErrUnknownOption},
	{exam.ErrNoSnapshot, http.StatusNotFound, response.ErrNoSnapshot},

	// Retryable: the guarded transition did not happen.
	{exam.ErrRosterWrite, http.StatusServiceUnavailable, response.ErrRosterWrite},
	{exam.ErrResultWrite, http.StatusServiceUnavailable, response.ErrResultWrite},
}

// classify maps a service or session error to an HTTP status and code.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the mapped error response. Unmapped and data-access errors
// are logged; expected validation errors are not.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
