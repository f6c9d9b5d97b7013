package model

import "gorm.io/gorm"

// Specialization values a doctor may carry.
var SpecializationChoices = []string{
	"general",
	"cardiology",
	"dermatology",
	"neurology",
	"orthopedics",
	"pediatrics",
	"psychiatry",
	"surgery",
}

// IsValidSpecialization reports whether s is one of the enumerated specializations.
func IsValidSpecialization(s string) bool {
	for _, v := range SpecializationChoices {
		if v == s {
			return true
		}
	}
	return false
}

// Doctor profiles a practitioner. Each doctor is backed by exactly one User
// record and is removed with it; the department link survives department
// deletion as NULL.
type Doctor struct {
	gorm.Model
	UserID          uint        `json:"user_id" gorm:"uniqueIndex;not null"`
	User            User        `json:"user" gorm:"constraint:OnDelete:CASCADE"`
	LicenseNumber   string      `json:"license_number" gorm:"uniqueIndex;size:50;not null"`
	Specialization  string      `json:"specialization" gorm:"size:20;not null"`
	DepartmentID    *uint       `json:"department_id"`
	Department      *Department `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Phone           string      `json:"phone" gorm:"size:20"`
	Address         string      `json:"address" gorm:"type:text"`
	ExperienceYears int         `json:"experience_years" gorm:"default:0"`
	ConsultationFee float64     `json:"consultation_fee" gorm:"type:decimal(10,2);default:0"`
	IsAvailable     bool        `json:"is_available"`
	Bio             string      `json:"bio" gorm:"type:text"`
	Photo           string      `json:"photo" gorm:"size:255"`
	Latitude        *float64    `json:"latitude"`
	Longitude       *float64    `json:"longitude"`
}

// DoctorListItem is the simplified wire shape for doctor lists.
type DoctorListItem struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	DepartmentName  string  `json:"department_name"`
	ConsultationFee float64 `json:"consultation_fee"`
	IsAvailable     bool    `json:"is_available"`
	Photo           string  `json:"photo"`
}

// DoctorDetail is the full wire shape for a single doctor.
type DoctorDetail struct {
	Doctor
	UserInfo       UserResponse `json:"user"`
	DepartmentName string       `json:"department_name"`
}

// SpecializationCount is one row of the by-specialization aggregation.
type SpecializationCount struct {
	Specialization string `json:"specialization" gorm:"column:specialization"`
	Count          int64  `json:"count" gorm:"column:count"`
	AvailableCount int64  `json:"available_count" gorm:"column:available_count"`
}

// ToListItem maps a Doctor (with User and Department preloaded) to its list shape.
func (d *Doctor) ToListItem() DoctorListItem {
	item := DoctorListItem{
		ID:              d.ID,
		Name:            d.User.FullName(),
		Specialization:  d.Specialization,
		ConsultationFee: d.ConsultationFee,
		IsAvailable:     d.IsAvailable,
		Photo:           d.Photo,
	}
	if d.Department != nil {
		item.DepartmentName = d.Department.Name
	}
	return item
}

// ToDetail maps a Doctor to its detail shape.
func (d *Doctor) ToDetail() DoctorDetail {
	detail := DoctorDetail{Doctor: *d, UserInfo: d.User.ToResponse()}
	if d.Department != nil {
		detail.DepartmentName = d.Department.Name
	}
	return detail
}
