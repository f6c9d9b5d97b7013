package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

// NewPatientID generates a unique patient identifier of the form PAT-XXXXXXXX.
func NewPatientID() string {
	id := uuid.New().String()
	return fmt.Sprintf("PAT-%s", id[:8])
}

// seedPassword mirrors util.HashPasswordArgon2 without importing it
// (model must not depend on util). Seeded accounts are for local use only.
func seedPassword(plain, salt string) string {
	hash := argon2.IDKey([]byte(plain), []byte(salt), 1, 64*1024, 4, 32)
	return fmt.Sprintf("argon2id$%x", hash)
}

// Seed populates the directory with a small idempotent sample data set:
// departments, an admin account, two doctors, two patients, and a pair of
// appointments. Existing rows are left alone.
func Seed(db *gorm.DB) error {
	departments := []Department{
		{Name: "Cardiology", Description: "Heart and cardiovascular system care", HeadOfDepartment: "Dr. Sarah Johnson", Phone: "555-0101", Email: "cardiology@carewell.example"},
		{Name: "Neurology", Description: "Brain and nervous system care", HeadOfDepartment: "Dr. Michael Chen", Phone: "555-0102", Email: "neurology@carewell.example"},
		{Name: "Pediatrics", Description: "Children and adolescent healthcare", HeadOfDepartment: "Dr. Emily Davis", Phone: "555-0103", Email: "pediatrics@carewell.example"},
		{Name: "Orthopedics", Description: "Bone, joint, and muscle care", HeadOfDepartment: "Dr. Robert Wilson", Phone: "555-0104", Email: "orthopedics@carewell.example"},
		{Name: "General Medicine", Description: "Primary healthcare and general medical care", HeadOfDepartment: "Dr. Lisa Anderson", Phone: "555-0105", Email: "general@carewell.example"},
	}
	for i := range departments {
		var existing Department
		err := db.Where("name = ?", departments[i].Name).First(&existing).Error
		if err == nil {
			departments[i] = existing
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&departments[i]).Error; err != nil {
			return fmt.Errorf("failed to seed department %s: %w", departments[i].Name, err)
		}
	}

	if _, err := seedUser(db, User{
		Username: "admin", Email: "admin@carewell.example",
		FirstName: "Site", LastName: "Admin",
		IsStaff: true, IsSuperuser: true,
	}, "admin123"); err != nil {
		return err
	}

	cardiology := departments[0].ID
	pediatrics := departments[2].ID

	doctors := []struct {
		user User
		doc  Doctor
	}{
		{
			user: User{Username: "dr.johnson", Email: "s.johnson@carewell.example", FirstName: "Sarah", LastName: "Johnson", IsStaff: true},
			doc: Doctor{
				LicenseNumber: "LIC-10001", Specialization: "cardiology", DepartmentID: &cardiology,
				Phone: "555-0201", Address: "120 Harbor Ave, Springfield", ExperienceYears: 15,
				ConsultationFee: 180, IsAvailable: true, Bio: "Interventional cardiologist.",
			},
		},
		{
			user: User{Username: "dr.davis", Email: "e.davis@carewell.example", FirstName: "Emily", LastName: "Davis", IsStaff: true},
			doc: Doctor{
				LicenseNumber: "LIC-10002", Specialization: "pediatrics", DepartmentID: &pediatrics,
				Phone: "555-0202", Address: "48 Maple Street, Springfield", ExperienceYears: 9,
				ConsultationFee: 120, IsAvailable: true, Bio: "Pediatric primary care.",
			},
		},
	}
	seededDoctors := make([]Doctor, 0, len(doctors))
	for _, d := range doctors {
		var existing Doctor
		err := db.Where("license_number = ?", d.doc.LicenseNumber).First(&existing).Error
		if err == nil {
			seededDoctors = append(seededDoctors, existing)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		u, err := seedUser(db, d.user, "doctor123")
		if err != nil {
			return err
		}
		d.doc.UserID = u.ID
		if err := db.Create(&d.doc).Error; err != nil {
			return fmt.Errorf("failed to seed doctor %s: %w", d.doc.LicenseNumber, err)
		}
		seededDoctors = append(seededDoctors, d.doc)
	}

	patients := []struct {
		user User
		pat  Patient
	}{
		{
			user: User{Username: "jdoe", Email: "jdoe@example.com", FirstName: "John", LastName: "Doe"},
			pat: Patient{
				PatientID: "PAT-SEED001", DateOfBirth: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
				Gender: "M", BloodGroup: "O+", Phone: "555-0301",
				EmergencyContact: "Jane Doe", EmergencyPhone: "555-0302",
				Address: "9 Birch Lane, Springfield",
			},
		},
		{
			user: User{Username: "asmith", Email: "asmith@example.com", FirstName: "Alice", LastName: "Smith"},
			pat: Patient{
				PatientID: "PAT-SEED002", DateOfBirth: time.Date(1992, 11, 2, 0, 0, 0, 0, time.UTC),
				Gender: "F", BloodGroup: "A-", Phone: "555-0303",
				EmergencyContact: "Bob Smith", EmergencyPhone: "555-0304",
				Address: "77 Cedar Court, Springfield",
			},
		},
	}
	seededPatients := make([]Patient, 0, len(patients))
	for _, p := range patients {
		var existing Patient
		err := db.Where("patient_id = ?", p.pat.PatientID).First(&existing).Error
		if err == nil {
			seededPatients = append(seededPatients, existing)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		u, err := seedUser(db, p.user, "patient123")
		if err != nil {
			return err
		}
		p.pat.UserID = u.ID
		if err := db.Create(&p.pat).Error; err != nil {
			return fmt.Errorf("failed to seed patient %s: %w", p.pat.PatientID, err)
		}
		seededPatients = append(seededPatients, p.pat)
	}

	if len(seededDoctors) >= 2 && len(seededPatients) >= 2 {
		var count int64
		db.Model(&Appointment{}).Count(&count)
		if count == 0 {
			now := time.Now()
			appointments := []Appointment{
				{
					PatientID: seededPatients[0].ID, DoctorID: seededDoctors[0].ID,
					AppointmentDate: now.Add(48 * time.Hour), DurationMinutes: 30,
					Reason: "Chest pain follow-up", Status: StatusScheduled,
				},
				{
					PatientID: seededPatients[1].ID, DoctorID: seededDoctors[1].ID,
					AppointmentDate: now.Add(-72 * time.Hour), DurationMinutes: 45,
					Reason: "Annual checkup", Status: StatusCompleted,
					Prescription: "Vitamin D 1000 IU daily",
				},
			}
			for i := range appointments {
				if err := db.Create(&appointments[i]).Error; err != nil {
					return fmt.Errorf("failed to seed appointment: %w", err)
				}
			}
		}
	}

	return nil
}

func seedUser(db *gorm.DB, u User, plain string) (User, error) {
	var existing User
	err := db.Where("username = ?", u.Username).First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return User{}, err
	}
	salt := uuid.New().String()[:16]
	u.Password = seedPassword(plain, salt)
	u.PasswordSalt = salt
	if err := db.Create(&u).Error; err != nil {
		return User{}, fmt.Errorf("failed to seed user %s: %w", u.Username, err)
	}
	return u, nil
}
