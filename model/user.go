package model

import (
	"strings"

	"gorm.io/gorm"
)

// User is the identity record backing doctors, patients, and staff accounts.
type User struct {
	gorm.Model
	Username       string `json:"username" gorm:"uniqueIndex;size:150;not null"`
	Email          string `json:"email" gorm:"size:191"`
	FirstName      string `json:"first_name" gorm:"size:150"`
	LastName       string `json:"last_name" gorm:"size:150"`
	Password       string `json:"-"`
	PasswordSalt   string `json:"-"`
	IsStaff        bool   `json:"is_staff" gorm:"default:false"`
	IsSuperuser    bool   `json:"is_superuser" gorm:"default:false"`
	FailedAttempts int    `json:"-" gorm:"default:0"`
	LockedUntil    *int64 `json:"-"`
}

// FullName returns "First Last", falling back to the username when both
// name parts are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserResponse is the wire shape for identity records.
type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserCreateRequest carries the nested user_data block in doctor/patient creation.
type UserCreateRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// ToResponse maps a User to its wire representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
