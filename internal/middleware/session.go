package middleware

import (
	"net/http"

	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKeySession is the Gin context key for the live exam session.
const ContextKeySession = "exam_session"

// RequireLiveSession resolves the token's session in the registry. A token
// whose session was evicted or lost in a restart is rejected so the client
// reopens the exam and is offered a resume.
func RequireLiveSession(sessionService *service.ExamSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		sess, err := sessionService.Get(claims.SessionID)
		if err != nil || sess.ClassID() != claims.ClassID {
			response.AbortFail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}

		c.Set(ContextKeySession, sess)
		c.Next()
	}
}

// GetSession retrieves the live exam session from the Gin context.
func GetSession(c *gin.Context) *exam.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, ok := val.(*exam.Session)
	if !ok {
		return nil
	}
	return sess
}
