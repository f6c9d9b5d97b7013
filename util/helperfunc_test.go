package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	list := []string{"scheduled", "confirmed", "completed"}
	assert.True(t, Contains("scheduled", list))
	assert.False(t, Contains("cancelled", list))
	assert.False(t, Contains("", list))
	assert.False(t, Contains("scheduled", nil))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Cardiology", NormalizeName("  Cardiology  "))
	assert.Equal(t, "General Medicine", NormalizeName("General    Medicine"))
	assert.Equal(t, "A B C", NormalizeName(" A  B\tC "))
	assert.Equal(t, "", NormalizeName("   "))
}

func responseEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestCallHelpers_StatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	errorCases := []struct {
		name string
		call func(c *gin.Context, params APIErrorParams)
		code int
	}{
		{"not found", CallErrorNotFound, http.StatusNotFound},
		{"user error", CallUserError, http.StatusBadRequest},
		{"server error", CallServerError, http.StatusInternalServerError},
		{"not authorized", CallUserNotAuthorized, http.StatusUnauthorized},
		{"forbidden", CallUserForbidden, http.StatusForbidden},
		{"conflict", CallUserConflict, http.StatusConflict},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tc.call(c, APIErrorParams{Msg: "it went wrong", Err: fmt.Errorf("cause")})

			assert.Equal(t, tc.code, w.Code)
			response := responseEnvelope(t, w)
			assert.False(t, response.Success)
			assert.Equal(t, "it went wrong", response.Msg)
			assert.Equal(t, "cause", response.Error)
		})
	}
}

func TestCallSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	CallSuccessOK(c, APISuccessParams{Msg: "OK", Data: map[string]interface{}{"count": 1}})
	assert.Equal(t, http.StatusOK, w.Code)
	response := responseEnvelope(t, w)
	assert.True(t, response.Success)
	assert.Equal(t, "OK", response.Msg)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	CallSuccessCreated(c, APISuccessParams{Msg: "Created"})
	assert.Equal(t, http.StatusCreated, w.Code)
}
