package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var fixtureSeq int

func nextFixtureID() int {
	fixtureSeq++
	return fixtureSeq
}

func createTestUser(t *testing.T, db *gorm.DB, username string, staff bool) model.User {
	t.Helper()
	salt, err := util.GenerateSalt()
	assert.NoError(t, err)
	hashed, err := util.HashPasswordArgon2("secret123", salt)
	assert.NoError(t, err)

	user := model.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@test.com", username),
		FirstName:    "Test",
		LastName:     username,
		Password:     hashed,
		PasswordSalt: salt,
		IsStaff:      staff,
	}
	assert.NoError(t, db.Create(&user).Error)
	return user
}

func createTestDoctor(t *testing.T, db *gorm.DB, specialization string, available bool) model.Doctor {
	t.Helper()
	n := nextFixtureID()
	user := createTestUser(t, db, fmt.Sprintf("doc%d", n), false)
	doctor := model.Doctor{
		UserID:         user.ID,
		User:           user,
		LicenseNumber:  fmt.Sprintf("LIC-%05d", n),
		Specialization: specialization,
		IsAvailable:    available,
		Address:        "1 Clinic Way",
	}
	assert.NoError(t, db.Create(&doctor).Error)
	return doctor
}

func createTestPatient(t *testing.T, db *gorm.DB) model.Patient {
	t.Helper()
	n := nextFixtureID()
	user := createTestUser(t, db, fmt.Sprintf("pat%d", n), false)
	patient := model.Patient{
		UserID:      user.ID,
		User:        user,
		PatientID:   fmt.Sprintf("PAT-%06d", n),
		DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:      "F",
		Address:     "2 Patient Road",
	}
	assert.NoError(t, db.Create(&patient).Error)
	return patient
}

func createTestAppointment(t *testing.T, db *gorm.DB, patient model.Patient, doctor model.Doctor, at time.Time, status string) model.Appointment {
	t.Helper()
	appointment := model.Appointment{
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		AppointmentDate: at,
		DurationMinutes: 30,
		Reason:          "Checkup",
		Status:          status,
	}
	assert.NoError(t, db.Create(&appointment).Error)
	return appointment
}

func performJSON(r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	response := decodeResponse(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response data is not an object: %v", response["data"])
	}
	return data
}

func authHeader(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
