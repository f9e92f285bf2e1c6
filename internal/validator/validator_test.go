package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type identityRequest struct {
	Name  string `json:"name" binding:"required,notblank"`
	Email string `json:"email" binding:"required,email"`
	Index int    `json:"index"`
}

func bind(body string) map[string]string {
	Setup()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req identityRequest
	return Bind(c, &req)
}

func TestBind_Valid(t *testing.T) {
	assert.Nil(t, bind(`{"name":"Ada","email":"ada@example.com"}`))
}

func TestBind_TranslatesFieldErrors(t *testing.T) {
	fields := bind(`{"name":"   ","email":"not-an-email"}`)
	assert.Equal(t, "name must not be blank", fields["name"])
	assert.Contains(t, fields["email"], "email")
}

func TestBind_DecodingErrors(t *testing.T) {
	assert.Equal(t, map[string]string{"body": "request body is required"}, bind(``))

	fields := bind(`{"name":"Ada","email":"ada@example.com","index":"two"}`)
	assert.Equal(t, "index must be of type int", fields["index"])

	fields = bind(`{"name":`)
	assert.Contains(t, fields, "detail")
}
