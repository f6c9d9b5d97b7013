package model

import (
	"time"

	"gorm.io/gorm"
)

// Appointment lifecycle states.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// StatusChoices enumerates every valid appointment status.
var StatusChoices = []string{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// IsValidStatus reports whether s is one of the enumerated statuses.
func IsValidStatus(s string) bool {
	for _, v := range StatusChoices {
		if v == s {
			return true
		}
	}
	return false
}

// Appointment links one patient with one doctor at a point in time.
// Double-booking a doctor is permitted; no uniqueness constraint covers
// (doctor_id, appointment_date). Version supports opt-in optimistic
// concurrency on workflow writes.
type Appointment struct {
	gorm.Model
	PatientID       uint       `json:"patient_id" gorm:"not null;index"`
	Patient         Patient    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	DoctorID        uint       `json:"doctor_id" gorm:"not null;index"`
	Doctor          Doctor     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AppointmentDate time.Time  `json:"appointment_date" gorm:"not null;index"`
	DurationMinutes int        `json:"duration_minutes" gorm:"default:30"`
	Reason          string     `json:"reason" gorm:"type:text"`
	Status          string     `json:"status" gorm:"size:20;default:scheduled;index"`
	Notes           string     `json:"notes" gorm:"type:text"`
	Prescription    string     `json:"prescription" gorm:"type:text"`
	FollowUpDate    *time.Time `json:"follow_up_date"`
	Version         int        `json:"version" gorm:"default:0"`
}

// AppointmentListItem is the simplified wire shape for appointment lists.
type AppointmentListItem struct {
	ID              uint      `json:"id"`
	PatientName     string    `json:"patient_name"`
	DoctorName      string    `json:"doctor_name"`
	AppointmentDate time.Time `json:"appointment_date"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason"`
}

// AppointmentDetail is the full wire shape for a single appointment.
type AppointmentDetail struct {
	Appointment
	PatientName          string `json:"patient_name"`
	DoctorName           string `json:"doctor_name"`
	PatientCode          string `json:"patient_code"`
	DoctorSpecialization string `json:"doctor_specialization"`
}

// StatusCount is one row of the by-status aggregation.
type StatusCount struct {
	Status string `json:"status" gorm:"column:status"`
	Count  int64  `json:"count" gorm:"column:count"`
}

// ToListItem maps an Appointment (with Patient.User and Doctor.User
// preloaded) to its list shape.
func (a *Appointment) ToListItem() AppointmentListItem {
	return AppointmentListItem{
		ID:              a.ID,
		PatientName:     a.Patient.User.FullName(),
		DoctorName:      a.Doctor.User.FullName(),
		AppointmentDate: a.AppointmentDate,
		Status:          a.Status,
		Reason:          a.Reason,
	}
}

// ToDetail maps an Appointment to its detail shape.
func (a *Appointment) ToDetail() AppointmentDetail {
	return AppointmentDetail{
		Appointment:          *a,
		PatientName:          a.Patient.User.FullName(),
		DoctorName:           a.Doctor.User.FullName(),
		PatientCode:          a.Patient.PatientID,
		DoctorSpecialization: a.Doctor.Specialization,
	}
}
