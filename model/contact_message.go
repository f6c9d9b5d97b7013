package model

import "gorm.io/gorm"

// ContactMessage stores a submission from the public contact form.
type ContactMessage struct {
	gorm.Model
	Name    string `json:"name" gorm:"size:100;not null"`
	Email   string `json:"email" gorm:"size:191;not null"`
	Phone   string `json:"phone" gorm:"size:20"`
	Subject string `json:"subject" gorm:"size:200;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
	IsRead  bool   `json:"is_read" gorm:"default:false;index"`
}
