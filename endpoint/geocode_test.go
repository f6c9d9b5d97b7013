package endpoint

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/carewellhq/carewell/geocode"
	"github.com/carewellhq/carewell/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// fakeProvider resolves any address except those containing "fail".
type fakeProvider struct {
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Geocode(_ context.Context, address string) geocode.Result {
	f.calls++
	if strings.Contains(address, "fail") {
		return geocode.Result{Success: false, Err: "Address not found"}
	}
	return geocode.Result{
		Latitude:         51.5007,
		Longitude:        -0.1246,
		FormattedAddress: address + ", resolved",
		Success:          true,
	}
}

func (f *fakeProvider) Reverse(_ context.Context, lat, lng float64) geocode.Result {
	f.calls++
	if lat == 0 && lng == 0 {
		return geocode.Result{Success: false, Err: "Coordinates not found"}
	}
	return geocode.Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: "Somewhere on the map",
		Success:          true,
	}
}

func setupGeocodeTest(t *testing.T) (*gin.Engine, *gorm.DB, *fakeProvider) {
	router, db := setupEndpointTest(t)

	fake := &fakeProvider{}
	service := geocode.NewService(geocode.Config{DefaultProvider: "fake"})
	service.Registry().Register(fake)
	SetGeocodeService(service)
	t.Cleanup(func() { SetGeocodeService(nil) })

	router.POST("/geocode/address", GeocodeAddress)
	router.POST("/geocode/reverse", ReverseGeocode)
	router.POST("/geocode/doctor/update", UpdateDoctorCoordinates)
	router.POST("/geocode/patient/update", UpdatePatientCoordinates)
	router.POST("/geocode/bulk-update", BulkUpdateCoordinates)
	router.GET("/geocode/info", GeocodingInfo)
	return router, db, fake
}

func TestGeocodeAddress_EmptyAddress(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/address", map[string]interface{}{
		"address": "",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "Address is required", response["msg"])
}

func TestGeocodeAddress_Success(t *testing.T) {
	r, _, fake := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/address", map[string]interface{}{
		"address": "10 Downing Street, London",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.calls)

	data := responseData(t, w)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, 51.5007, data["latitude"])
	assert.Equal(t, -0.1246, data["longitude"])
}

func TestGeocodeAddress_ProviderFailure(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/address", map[string]interface{}{
		"address": "this will fail",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "Address not found", response["msg"])
}

func TestReverseGeocode_MissingCoordinates(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/reverse", map[string]interface{}{
		"latitude": 51.5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReverseGeocode_OutOfRange(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/reverse", map[string]interface{}{
		"latitude":  123.0,
		"longitude": 0.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReverseGeocode_ProviderFailure(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/reverse", map[string]interface{}{
		"latitude":  0.0,
		"longitude": 0.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "Coordinates not found", response["msg"])
}

func TestReverseGeocode_Success(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodPost, "/geocode/reverse", map[string]interface{}{
		"latitude":  51.5007,
		"longitude": -0.1246,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Somewhere on the map", data["formatted_address"])
}

func TestUpdateDoctorCoordinates_StoresResult(t *testing.T) {
	r, db, _ := setupGeocodeTest(t)

	doctor := createTestDoctor(t, db, "cardiology", true)

	w := performJSON(r, http.MethodPost, "/geocode/doctor/update", map[string]interface{}{
		"id": doctor.ID,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored model.Doctor
	assert.NoError(t, db.First(&stored, doctor.ID).Error)
	assert.NotNil(t, stored.Latitude)
	assert.NotNil(t, stored.Longitude)
	assert.Equal(t, 51.5007, *stored.Latitude)
	assert.Equal(t, -0.1246, *stored.Longitude)
}

func TestUpdateDoctorCoordinates_NoAddress(t *testing.T) {
	r, db, _ := setupGeocodeTest(t)

	doctor := createTestDoctor(t, db, "cardiology", true)
	assert.NoError(t, db.Model(&doctor).Update("address", "").Error)

	w := performJSON(r, http.MethodPost, "/geocode/doctor/update", map[string]interface{}{
		"id": doctor.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "Address is required", response["msg"])
}

func TestUpdatePatientCoordinates_StoresResult(t *testing.T) {
	r, db, _ := setupGeocodeTest(t)

	patient := createTestPatient(t, db)

	w := performJSON(r, http.MethodPost, "/geocode/patient/update", map[string]interface{}{
		"id": patient.ID,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored model.Patient
	assert.NoError(t, db.First(&stored, patient.ID).Error)
	assert.NotNil(t, stored.Latitude)
}

func TestBulkUpdateCoordinates_AccumulatesFailures(t *testing.T) {
	r, db, _ := setupGeocodeTest(t)

	// Three doctors, one with an address the provider cannot resolve.
	createTestDoctor(t, db, "cardiology", true)
	createTestDoctor(t, db, "pediatrics", true)
	doomed := createTestDoctor(t, db, "surgery", true)
	assert.NoError(t, db.Model(&doomed).Update("address", "fail street").Error)

	w := performJSON(r, http.MethodPost, "/geocode/bulk-update", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	doctors := data["doctors"].(map[string]interface{})
	assert.Equal(t, 3.0, doctors["total"])
	assert.Equal(t, 2.0, doctors["updated"])
	assert.Equal(t, 1.0, doctors["failed"])
	errors := doctors["errors"].([]interface{})
	assert.Len(t, errors, 1)

	var stored model.Doctor
	assert.NoError(t, db.First(&stored, doomed.ID).Error)
	assert.Nil(t, stored.Latitude)
}

func TestBulkUpdateCoordinates_CoversBothEntitiesByDefault(t *testing.T) {
	r, db, _ := setupGeocodeTest(t)

	createTestDoctor(t, db, "cardiology", true)
	patient := createTestPatient(t, db)

	w := performJSON(r, http.MethodPost, "/geocode/bulk-update", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	doctors := data["doctors"].(map[string]interface{})
	patients := data["patients"].(map[string]interface{})
	assert.Equal(t, 1.0, doctors["updated"])
	assert.Equal(t, 1.0, patients["updated"])

	var stored model.Patient
	assert.NoError(t, db.First(&stored, patient.ID).Error)
	assert.NotNil(t, stored.Latitude)
}

func TestBulkUpdateCoordinates_FlagsOptEntitiesOut(t *testing.T) {
	r, db, _ := setupGeocodeTest(t)

	createTestDoctor(t, db, "cardiology", true)
	createTestPatient(t, db)

	w := performJSON(r, http.MethodPost, "/geocode/bulk-update", map[string]interface{}{
		"update_patients": false,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	assert.Contains(t, data, "doctors")
	assert.NotContains(t, data, "patients")
}

func TestGeocodingInfo_ReportsProviders(t *testing.T) {
	r, _, _ := setupGeocodeTest(t)

	w := performJSON(r, http.MethodGet, "/geocode/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w)
	assert.Equal(t, "fake", data["default_provider"])
	assert.Equal(t, false, data["google_available"])
	providers := data["providers"].([]interface{})
	assert.Contains(t, providers, "fake")
	assert.Contains(t, providers, "nominatim")
}

func TestGeocodeCaching_SecondLookupSkipsProvider(t *testing.T) {
	r, _, fake := setupGeocodeTest(t)

	for i := 0; i < 2; i++ {
		w := performJSON(r, http.MethodPost, "/geocode/address", map[string]interface{}{
			"address": "1 Cached Lane",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 1, fake.calls)
}
