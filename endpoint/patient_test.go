package endpoint

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/carewellhq/carewell/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setupPatientTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	router, db := setupEndpointTest(t)
	router.GET("/patient", ListPatients)
	router.GET("/patient/:id", GetPatientInfo)
	router.GET("/patient/:id/medical_history", PatientMedicalHistory)
	router.GET("/patient/:id/appointments", PatientAppointments)
	router.POST("/patient", CreatePatient)
	router.PATCH("/patient/:id", UpdatePatient)
	router.DELETE("/patient/:id", DeletePatient)
	return router, db
}

func TestCreatePatient_GeneratesPatientID(t *testing.T) {
	r, db := setupPatientTest(t)

	w := performJSON(r, http.MethodPost, "/patient", map[string]interface{}{
		"user_data": map[string]interface{}{
			"username":   "p.new",
			"first_name": "Paula",
			"last_name":  "Newman",
		},
		"date_of_birth": "1985-03-20",
		"gender":        "F",
		"blood_group":   "O+",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var patient model.Patient
	assert.NoError(t, db.Preload("User").Where("gender = ?", "F").Order("id DESC").First(&patient).Error)
	assert.True(t, strings.HasPrefix(patient.PatientID, "PAT-"))
	assert.Equal(t, "p.new", patient.User.Username)
}

func TestCreatePatient_InvalidGender(t *testing.T) {
	r, db := setupPatientTest(t)
	_ = db

	w := performJSON(r, http.MethodPost, "/patient", map[string]interface{}{
		"user_data": map[string]interface{}{
			"username": "p.bad",
		},
		"date_of_birth": "1985-03-20",
		"gender":        "X",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePatient_InvalidBloodGroup(t *testing.T) {
	r, db := setupPatientTest(t)
	_ = db

	w := performJSON(r, http.MethodPost, "/patient", map[string]interface{}{
		"user_data": map[string]interface{}{
			"username": "p.bad2",
		},
		"date_of_birth": "1985-03-20",
		"gender":        "M",
		"blood_group":   "Z+",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePatient_MalformedDate(t *testing.T) {
	r, db := setupPatientTest(t)
	_ = db

	w := performJSON(r, http.MethodPost, "/patient", map[string]interface{}{
		"user_data": map[string]interface{}{
			"username": "p.bad3",
		},
		"date_of_birth": "20-03-1985",
		"gender":        "M",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePatient_DuplicateUsername(t *testing.T) {
	r, db := setupPatientTest(t)

	createTestUser(t, db, "p.taken", false)

	w := performJSON(r, http.MethodPost, "/patient", map[string]interface{}{
		"user_data": map[string]interface{}{
			"username": "p.taken",
		},
		"date_of_birth": "1985-03-20",
		"gender":        "M",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPatientInfo_IncludesAge(t *testing.T) {
	r, db := setupPatientTest(t)

	patient := createTestPatient(t, db)

	w := performJSON(r, http.MethodGet, fmt.Sprintf("/patient/%d", patient.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	assert.Equal(t, float64(patient.Age()), data["age"])
	assert.Equal(t, patient.PatientID, data["patient_id"])
}

func TestPatientMedicalHistory(t *testing.T) {
	r, db := setupPatientTest(t)

	patient := createTestPatient(t, db)
	patient.MedicalHistory = "Asthma since childhood"
	patient.Allergies = "Penicillin"
	patient.BloodGroup = "AB-"
	assert.NoError(t, db.Save(&patient).Error)

	w := performJSON(r, http.MethodGet, fmt.Sprintf("/patient/%d/medical_history", patient.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	assert.Equal(t, "Asthma since childhood", data["medical_history"])
	assert.Equal(t, "Penicillin", data["allergies"])
	assert.Equal(t, "AB-", data["blood_group"])
	assert.Equal(t, patient.PatientID, data["patient_id"])
}

func TestUpdatePatient_MergesFields(t *testing.T) {
	r, db := setupPatientTest(t)

	patient := createTestPatient(t, db)

	w := performJSON(r, http.MethodPatch, fmt.Sprintf("/patient/%d", patient.ID), map[string]interface{}{
		"allergies":  "Latex",
		"phone":      "555-0177",
		"first_name": "Renamed",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored model.Patient
	assert.NoError(t, db.Preload("User").First(&stored, patient.ID).Error)
	assert.Equal(t, "Latex", stored.Allergies)
	assert.Equal(t, "555-0177", stored.Phone)
	assert.Equal(t, "Renamed", stored.User.FirstName)
	assert.Equal(t, patient.PatientID, stored.PatientID)
}

func TestPatientAppointments_ScopedToPatient(t *testing.T) {
	r, db := setupPatientTest(t)

	patient := createTestPatient(t, db)
	other := createTestPatient(t, db)
	doctor := createTestDoctor(t, db, "general", true)

	mine := createTestAppointment(t, db, patient, doctor, time.Now().Add(time.Hour), model.StatusScheduled)
	createTestAppointment(t, db, other, doctor, time.Now().Add(time.Hour), model.StatusScheduled)

	w := performJSON(r, http.MethodGet, fmt.Sprintf("/patient/%d/appointments", patient.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	items := data["appointments"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, float64(mine.ID), items[0].(map[string]interface{})["id"])
}

func TestDeletePatient_RemovesBackingUser(t *testing.T) {
	r, db := setupPatientTest(t)

	patient := createTestPatient(t, db)

	w := performJSON(r, http.MethodDelete, fmt.Sprintf("/patient/%d", patient.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var storedPatient model.Patient
	assert.Error(t, db.First(&storedPatient, patient.ID).Error)
	var storedUser model.User
	assert.Error(t, db.First(&storedUser, patient.UserID).Error)
}
