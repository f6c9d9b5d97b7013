package model

import (
	"time"

	"gorm.io/gorm"
)

// Session records an issued bearer token. Expired rows are treated as
// revoked; refresh deletes a user's live sessions before issuing anew.
type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	SessionToken string    `json:"session_token" gorm:"size:512;index"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null"`
	ClientIP     string    `json:"client_ip" gorm:"size:45"`
	Browser      string    `json:"browser" gorm:"size:512"`
}
