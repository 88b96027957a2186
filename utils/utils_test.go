package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGenerateDashlessUUID(t *testing.T) {
	id := GenerateDashlessUUID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GenerateDashlessUUID())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

// Helper function to create a test Gin context
func createTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/test", nil) // Add a dummy request
	return c, w
}

func TestGinError(t *testing.T) {
	c, w := createTestContext()
	testMsg := "Generic error"
	testCode := http.StatusTeapot // Use a distinct code

	GinError(c, testCode, testMsg)

	assert.Equal(t, testCode, w.Code)

	var response APIError
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, testMsg, response.Error)
	assert.True(t, c.IsAborted(), "Context should be aborted")
}

func TestGinErrorHelpers(t *testing.T) {
	testCases := []struct {
		name       string
		helperFunc func(*gin.Context, string)
		wantCode   int
		wantMsg    string
	}{
		{
			name:       "BadRequest",
			helperFunc: GinBadRequest,
			wantCode:   http.StatusBadRequest,
			wantMsg:    "Bad request test",
		},
		{
			name:       "Unauthorized",
			helperFunc: GinUnauthorized,
			wantCode:   http.StatusUnauthorized,
			wantMsg:    "Unauthorized test",
		},
		{
			name:       "Forbidden",
			helperFunc: GinForbidden,
			wantCode:   http.StatusForbidden,
			wantMsg:    "Forbidden test",
		},
		{
			name:       "NotFound",
			helperFunc: GinNotFound,
			wantCode:   http.StatusNotFound,
			wantMsg:    "Not found test",
		},
		{
			name:       "Conflict",
			helperFunc: GinConflict,
			wantCode:   http.StatusConflict,
			wantMsg:    "Conflict test",
		},
		{
			name:       "InternalServerError",
			helperFunc: GinInternalServerError,
			wantCode:   http.StatusInternalServerError,
			wantMsg:    "Internal server error test",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := createTestContext()
			tc.helperFunc(c, tc.wantMsg)

			assert.Equal(t, tc.wantCode, w.Code)

			var response APIError
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantMsg, response.Error)
			assert.True(t, c.IsAborted(), "Context should be aborted")
		})
	}
}

func TestGinValidationError(t *testing.T) {
	c, w := createTestContext()
	GinValidationError(c, map[string]string{"email": "Email is invalid"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response ValidationError
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Validation failed", response.Error)
	assert.Equal(t, "Email is invalid", response.Fields["email"])
	assert.True(t, c.IsAborted())
}
