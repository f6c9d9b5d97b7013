package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createPatientRequest struct {
	UserData           model.UserCreateRequest `json:"user_data" binding:"required"`
	PatientID          string                  `json:"patient_id"`
	DateOfBirth        string                  `json:"date_of_birth" binding:"required"`
	Gender             string                  `json:"gender" binding:"required"`
	BloodGroup         string                  `json:"blood_group"`
	Phone              string                  `json:"phone"`
	EmergencyContact   string                  `json:"emergency_contact"`
	EmergencyPhone     string                  `json:"emergency_phone"`
	Address            string                  `json:"address"`
	MedicalHistory     string                  `json:"medical_history"`
	Allergies          string                  `json:"allergies"`
	CurrentMedications string                  `json:"current_medications"`
	InsuranceProvider  string                  `json:"insurance_provider"`
	InsuranceNumber    string                  `json:"insurance_number"`
}

type updatePatientRequest struct {
	BloodGroup         string `json:"blood_group"`
	Phone              string `json:"phone"`
	EmergencyContact   string `json:"emergency_contact"`
	EmergencyPhone     string `json:"emergency_phone"`
	Address            string `json:"address"`
	MedicalHistory     string `json:"medical_history"`
	Allergies          string `json:"allergies"`
	CurrentMedications string `json:"current_medications"`
	InsuranceProvider  string `json:"insurance_provider"`
	InsuranceNumber    string `json:"insurance_number"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
}

func validatePatientRequest(req createPatientRequest) error {
	if strings.TrimSpace(req.UserData.Username) == "" {
		return fmt.Errorf("username is empty or missing required fields")
	}
	if req.DateOfBirth == "" {
		return fmt.Errorf("date_of_birth is empty or missing required fields")
	}
	if !model.IsValidGender(req.Gender) {
		return fmt.Errorf("invalid gender: %s", req.Gender)
	}
	if req.BloodGroup != "" && !model.IsValidBloodGroup(req.BloodGroup) {
		return fmt.Errorf("invalid blood_group: %s", req.BloodGroup)
	}
	return nil
}

func fetchPatientList(db *gorm.DB) ([]model.Patient, error) {
	var patients []model.Patient
	err := db.Preload("User").
		Joins("JOIN users ON users.id = patients.user_id AND users.deleted_at IS NULL").
		Order("users.first_name ASC").
		Find(&patients).Error
	return patients, err
}

// ListPatients returns all registered patients.
func ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patients, err := fetchPatientList(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve patients",
			Err: err,
		})
		return
	}

	items := make([]model.PatientListItem, 0, len(patients))
	for i := range patients {
		items = append(items, patients[i].ToListItem())
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: map[string]interface{}{"total": len(items), "patients": items},
	})
}

func getPatientByID(c *gin.Context, db *gorm.DB) (model.Patient, bool) {
	id := c.Param("id")
	if id == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Missing patient ID",
			Err: fmt.Errorf("patient ID is required"),
		})
		return model.Patient{}, false
	}

	var patient model.Patient
	if err := db.Preload("User").First(&patient, id).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return model.Patient{}, false
	}
	return patient, true
}

// GetPatientInfo returns the detail shape of a single patient.
func GetPatientInfo(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient retrieved",
		Data: patient.ToDetail(),
	})
}

// CreatePatient registers a patient together with its backing user record in
// one transaction. The patient code is generated when not supplied.
func CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if err := validatePatientRequest(req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: err.Error(),
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid date_of_birth, expected YYYY-MM-DD",
			Err: err,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patientCode := req.PatientID
	if patientCode == "" {
		patientCode = model.NewPatientID()
	}

	var patient model.Patient
	err = db.Transaction(func(tx *gorm.DB) error {
		// Re-check the patient code inside the transaction to avoid race conditions.
		var existing model.Patient
		if err := tx.Where("patient_id = ?", patientCode).First(&existing).Error; err == nil {
			return fmt.Errorf("patient_id already registered")
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		user, err := createProfileUser(tx, req.UserData, false)
		if err != nil {
			return err
		}

		patient = model.Patient{
			UserID:             user.ID,
			User:               user,
			PatientID:          patientCode,
			DateOfBirth:        dob,
			Gender:             req.Gender,
			BloodGroup:         req.BloodGroup,
			Phone:              req.Phone,
			EmergencyContact:   req.EmergencyContact,
			EmergencyPhone:     req.EmergencyPhone,
			Address:            req.Address,
			MedicalHistory:     req.MedicalHistory,
			Allergies:          req.Allergies,
			CurrentMedications: req.CurrentMedications,
			InsuranceProvider:  req.InsuranceProvider,
			InsuranceNumber:    req.InsuranceNumber,
		}
		return tx.Create(&patient).Error
	})
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Failed to create patient",
			Err: err,
		})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Patient created",
		Data: patient.ToDetail(),
	})
}

// UpdatePatient merges the provided fields into an existing patient and its
// backing user record.
func UpdatePatient(c *gin.Context) {
	var req updatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if req.BloodGroup != "" && !model.IsValidBloodGroup(req.BloodGroup) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid blood_group: %s", req.BloodGroup),
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	existing, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	if req.BloodGroup != "" {
		existing.BloodGroup = req.BloodGroup
	}
	if req.Phone != "" {
		existing.Phone = req.Phone
	}
	if req.EmergencyContact != "" {
		existing.EmergencyContact = req.EmergencyContact
	}
	if req.EmergencyPhone != "" {
		existing.EmergencyPhone = req.EmergencyPhone
	}
	if req.Address != "" {
		existing.Address = req.Address
	}
	if req.MedicalHistory != "" {
		existing.MedicalHistory = req.MedicalHistory
	}
	if req.Allergies != "" {
		existing.Allergies = req.Allergies
	}
	if req.CurrentMedications != "" {
		existing.CurrentMedications = req.CurrentMedications
	}
	if req.InsuranceProvider != "" {
		existing.InsuranceProvider = req.InsuranceProvider
	}
	if req.InsuranceNumber != "" {
		existing.InsuranceNumber = req.InsuranceNumber
	}

	userChanged := false
	if req.FirstName != "" {
		existing.User.FirstName = req.FirstName
		userChanged = true
	}
	if req.LastName != "" {
		existing.User.LastName = req.LastName
		userChanged = true
	}
	if req.Email != "" {
		existing.User.Email = req.Email
		userChanged = true
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if userChanged {
			if err := tx.Save(&existing.User).Error; err != nil {
				return err
			}
		}
		return tx.Omit("User").Save(&existing).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update patient",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient updated",
		Data: existing.ToDetail(),
	})
}

// DeletePatient soft deletes a patient and its backing user record.
func DeletePatient(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&patient).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, patient.UserID).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete patient",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patient deleted",
	})
}

// PatientAppointments returns a patient's appointments, most recent first.
func PatientAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	appointments, err := fetchAppointments(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("patient_id = ?", patient.ID)
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve appointments",
			Err: err,
		})
		return
	}

	items := appointmentListItems(appointments)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient appointments retrieved",
		Data: map[string]interface{}{"total": len(items), "appointments": items},
	})
}

// PatientMedicalHistory returns the medical summary view of a patient.
func PatientMedicalHistory(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Medical history retrieved",
		Data: patient.ToMedicalHistory(),
	})
}
