package util

import (
	"bytes"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/carewellhq/carewell/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSanitizeLogValue(t *testing.T) {
	assert.Equal(t, "a b c", sanitizeLogValue("a\nb\rc"))
	assert.Equal(t, "a b", sanitizeLogValue("a\tb"))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	out := sanitizeLogValue(string(long))
	assert.Len(t, out, 203)
	assert.Contains(t, out, "...")
}

func TestLogSecurityEvent_WritesToLoggerAndDB(t *testing.T) {
	dsn := fmt.Sprintf("file:seclogtest_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.SecurityLog{}))

	SetSecurityLoggerDB(db)
	t.Cleanup(func() { SetSecurityLoggerDB(nil) })

	var buf bytes.Buffer
	original := GetSecurityLoggerForTest()
	SetSecurityLoggerForTest(log.New(&buf, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix))
	t.Cleanup(func() { SetSecurityLoggerForTest(original) })

	LogLoginFailure("jdoe", "10.0.0.1", "test-agent", "wrong password")

	assert.Contains(t, buf.String(), "Event=LOGIN_FAILURE")
	assert.Contains(t, buf.String(), "Username=jdoe")

	var entry model.SecurityLog
	assert.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "LOGIN_FAILURE", entry.EventType)
	assert.Equal(t, "jdoe", entry.Username)
	assert.Contains(t, entry.Message, "wrong password")
}

func TestLogSecurityEvent_SanitizesNewlines(t *testing.T) {
	var buf bytes.Buffer
	original := GetSecurityLoggerForTest()
	SetSecurityLoggerForTest(log.New(&buf, "", 0))
	t.Cleanup(func() { SetSecurityLoggerForTest(original) })

	LogSecurityEvent(SecurityEvent{
		EventType: EventSuspiciousActivity,
		Username:  "jdoe\nEvent=LOGIN_SUCCESS",
		Message:   "injection attempt",
	})

	assert.Contains(t, buf.String(), "jdoe Event=LOGIN_SUCCESS")
}
