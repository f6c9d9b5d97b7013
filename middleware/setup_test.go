package middleware_test

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}
