package model

import (
	"time"

	"gorm.io/gorm"
)

// Gender values a patient may carry.
var GenderChoices = []string{"M", "F", "O"}

// Blood group values a patient may carry. The field is optional.
var BloodGroupChoices = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IsValidGender reports whether g is one of the enumerated genders.
func IsValidGender(g string) bool {
	for _, v := range GenderChoices {
		if v == g {
			return true
		}
	}
	return false
}

// IsValidBloodGroup reports whether b is one of the enumerated blood groups.
func IsValidBloodGroup(b string) bool {
	for _, v := range BloodGroupChoices {
		if v == b {
			return true
		}
	}
	return false
}

// Patient profiles a registered patient. Each patient is backed by exactly
// one User record and is removed with it.
type Patient struct {
	gorm.Model
	UserID             uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	User               User      `json:"user" gorm:"constraint:OnDelete:CASCADE"`
	PatientID          string    `json:"patient_id" gorm:"uniqueIndex;size:20;not null"`
	DateOfBirth        time.Time `json:"date_of_birth" gorm:"not null"`
	Gender             string    `json:"gender" gorm:"size:1;not null"`
	BloodGroup         string    `json:"blood_group" gorm:"size:3"`
	Phone              string    `json:"phone" gorm:"size:20"`
	EmergencyContact   string    `json:"emergency_contact" gorm:"size:100"`
	EmergencyPhone     string    `json:"emergency_phone" gorm:"size:20"`
	Address            string    `json:"address" gorm:"type:text"`
	MedicalHistory     string    `json:"medical_history" gorm:"type:text"`
	Allergies          string    `json:"allergies" gorm:"type:text"`
	CurrentMedications string    `json:"current_medications" gorm:"type:text"`
	InsuranceProvider  string    `json:"insurance_provider" gorm:"size:100"`
	InsuranceNumber    string    `json:"insurance_number" gorm:"size:50"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
}

// Age returns the patient's age in whole years as of now.
func (p *Patient) Age() int {
	return p.AgeAt(time.Now())
}

// AgeAt returns the patient's age in whole years as of the given date.
func (p *Patient) AgeAt(at time.Time) int {
	age := at.Year() - p.DateOfBirth.Year()
	if at.Month() < p.DateOfBirth.Month() ||
		(at.Month() == p.DateOfBirth.Month() && at.Day() < p.DateOfBirth.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age
}

// PatientListItem is the simplified wire shape for patient lists.
type PatientListItem struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	PatientID string `json:"patient_id"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
	Phone     string `json:"phone"`
}

// PatientDetail is the full wire shape for a single patient.
type PatientDetail struct {
	Patient
	UserInfo UserResponse `json:"user"`
	Age      int          `json:"age"`
}

// MedicalHistoryResponse is the wire shape of the medical-history view.
type MedicalHistoryResponse struct {
	PatientID          string `json:"patient_id"`
	MedicalHistory     string `json:"medical_history"`
	Allergies          string `json:"allergies"`
	CurrentMedications string `json:"current_medications"`
	BloodGroup         string `json:"blood_group"`
}

// ToListItem maps a Patient (with User preloaded) to its list shape.
func (p *Patient) ToListItem() PatientListItem {
	return PatientListItem{
		ID:        p.ID,
		Name:      p.User.FullName(),
		PatientID: p.PatientID,
		Gender:    p.Gender,
		Age:       p.Age(),
		Phone:     p.Phone,
	}
}

// ToDetail maps a Patient to its detail shape.
func (p *Patient) ToDetail() PatientDetail {
	return PatientDetail{Patient: *p, UserInfo: p.User.ToResponse(), Age: p.Age()}
}

// ToMedicalHistory maps a Patient to the medical-history view.
func (p *Patient) ToMedicalHistory() MedicalHistoryResponse {
	return MedicalHistoryResponse{
		PatientID:          p.PatientID,
		MedicalHistory:     p.MedicalHistory,
		Allergies:          p.Allergies,
		CurrentMedications: p.CurrentMedications,
		BloodGroup:         p.BloodGroup,
	}
}
