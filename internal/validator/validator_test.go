package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func jsonContext(body string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"9876543210", true},
		{"+91 98765 43210", true},
		{"123456", true},
		{"12345", false},
		{"98765x3210", false},
		{"1234567890123456", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			var req model.StudentLoginRequest
			fields := Bind(jsonContext(`{"name":"Asha","phone":"`+tt.phone+`"}`), &req)
			if tt.valid {
				assert.Nil(t, fields)
				return
			}
			require.NotNil(t, fields)
			assert.Contains(t, fields, "phone")
		})
	}
}

func TestBindTranslatesMessages(t *testing.T) {
	var req model.VerifyOTPRequest
	fields := Bind(jsonContext(`{"code":"12"}`), &req)

	require.NotNil(t, fields)
	assert.Equal(t, "pending_token is a required field", fields["pending_token"])
	assert.Contains(t, fields, "code")
}

func TestBindMalformedJSON(t *testing.T) {
	var req model.VerifyOTPRequest
	fields := Bind(jsonContext(`{"code":`), &req)

	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}

func TestBindQueryUsesFormNames(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?email=not-an-email&phone=9876543210", nil)

	var q model.CheckUserQuery
	fields := BindQuery(c, &q)

	require.NotNil(t, fields)
	assert.Contains(t, fields, "email")
	assert.NotContains(t, fields, "phone")
}
