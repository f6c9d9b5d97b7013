package endpoint

import (
	"fmt"
	"sync"

	"github.com/carewellhq/carewell/geocode"
	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	geocodeMu      sync.RWMutex
	geocodeService *geocode.Service
)

// SetGeocodeService installs the geocoding service used by the geocode
// endpoints. Called once at startup and by tests.
func SetGeocodeService(s *geocode.Service) {
	geocodeMu.Lock()
	defer geocodeMu.Unlock()
	geocodeService = s
}

func getGeocodeServiceOrRespond(c *gin.Context) (*geocode.Service, bool) {
	geocodeMu.RLock()
	s := geocodeService
	geocodeMu.RUnlock()
	if s == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Geocoding service not available",
			Err: fmt.Errorf("geocode service is nil"),
		})
		return nil, false
	}
	return s, true
}

type geocodeAddressRequest struct {
	Address  string `json:"address"`
	Provider string `json:"provider"`
}

type reverseGeocodeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Provider  string   `json:"provider"`
}

type updateCoordinatesRequest struct {
	ID       uint   `json:"id" binding:"required"`
	Address  string `json:"address"`
	Provider string `json:"provider"`
}

type bulkUpdateRequest struct {
	UpdateDoctors  *bool  `json:"update_doctors"`
	UpdatePatients *bool  `json:"update_patients"`
	Provider       string `json:"provider"`
}

// GeocodeAddress resolves a free-form address to coordinates. Provider
// failures (timeouts, unknown addresses) come back as a 400 carrying the
// result's error.
func GeocodeAddress(c *gin.Context) {
	var req geocodeAddressRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if req.Address == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Address is required",
			Err: fmt.Errorf("address cannot be empty"),
		})
		return
	}

	s, ok := getGeocodeServiceOrRespond(c)
	if !ok {
		return
	}

	result := s.Geocode(c.Request.Context(), req.Provider, req.Address)
	if !result.Success {
		util.CallUserError(c, util.APIErrorParams{
			Msg: result.Err,
			Err: fmt.Errorf("geocoding failed"),
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Geocoding result",
		Data: result,
	})
}

// ReverseGeocode resolves coordinates to a formatted address.
func ReverseGeocode(c *gin.Context) {
	var req reverseGeocodeRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Latitude and longitude are required",
			Err: fmt.Errorf("coordinates missing"),
		})
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Latitude or longitude out of range",
			Err: fmt.Errorf("coordinates out of range"),
		})
		return
	}

	s, ok := getGeocodeServiceOrRespond(c)
	if !ok {
		return
	}

	result := s.Reverse(c.Request.Context(), req.Provider, *req.Latitude, *req.Longitude)
	if !result.Success {
		util.CallUserError(c, util.APIErrorParams{
			Msg: result.Err,
			Err: fmt.Errorf("reverse geocoding failed"),
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Reverse geocoding result",
		Data: result,
	})
}

// UpdateDoctorCoordinates geocodes a doctor's address and stores the
// resulting coordinates on the doctor row.
func UpdateDoctorCoordinates(c *gin.Context) {
	var req updateCoordinatesRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	s, ok := getGeocodeServiceOrRespond(c)
	if !ok {
		return
	}

	var doctor model.Doctor
	if err := db.First(&doctor, req.ID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Doctor not found",
			Err: err,
		})
		return
	}

	address := req.Address
	if address == "" {
		address = doctor.Address
	}
	if address == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Address is required",
			Err: fmt.Errorf("doctor has no address on record"),
		})
		return
	}

	result := s.Geocode(c.Request.Context(), req.Provider, address)
	if !result.Success {
		util.CallUserError(c, util.APIErrorParams{
			Msg: result.Err,
			Err: fmt.Errorf("geocoding failed"),
		})
		return
	}

	updates := map[string]interface{}{
		"latitude":  result.Latitude,
		"longitude": result.Longitude,
	}
	if err := db.Model(&doctor).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to store coordinates",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctor coordinates updated",
		Data: result,
	})
}

// UpdatePatientCoordinates geocodes a patient's address and stores the
// resulting coordinates on the patient row.
func UpdatePatientCoordinates(c *gin.Context) {
	var req updateCoordinatesRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	s, ok := getGeocodeServiceOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, req.ID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}

	address := req.Address
	if address == "" {
		address = patient.Address
	}
	if address == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Address is required",
			Err: fmt.Errorf("patient has no address on record"),
		})
		return
	}

	result := s.Geocode(c.Request.Context(), req.Provider, address)
	if !result.Success {
		util.CallUserError(c, util.APIErrorParams{
			Msg: result.Err,
			Err: fmt.Errorf("geocoding failed"),
		})
		return
	}

	updates := map[string]interface{}{
		"latitude":  result.Latitude,
		"longitude": result.Longitude,
	}
	if err := db.Model(&patient).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to store coordinates",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient coordinates updated",
		Data: result,
	})
}

type bulkTarget struct {
	ID      uint
	Label   string
	Address string
}

func bulkTargets(db *gorm.DB, entity string) ([]bulkTarget, error) {
	targets := []bulkTarget{}
	switch entity {
	case "doctors":
		var doctors []model.Doctor
		if err := db.Preload("User").Where("address <> ''").Find(&doctors).Error; err != nil {
			return nil, err
		}
		for i := range doctors {
			targets = append(targets, bulkTarget{
				ID:      doctors[i].ID,
				Label:   doctors[i].User.FullName(),
				Address: doctors[i].Address,
			})
		}
	case "patients":
		var patients []model.Patient
		if err := db.Preload("User").Where("address <> ''").Find(&patients).Error; err != nil {
			return nil, err
		}
		for i := range patients {
			targets = append(targets, bulkTarget{
				ID:      patients[i].ID,
				Label:   patients[i].User.FullName(),
				Address: patients[i].Address,
			})
		}
	default:
		return nil, fmt.Errorf("unknown entity: %s", entity)
	}
	return targets, nil
}

// bulkUpdateEntity geocodes every target of one entity, storing successes
// and collecting failures instead of aborting the batch.
func bulkUpdateEntity(c *gin.Context, s *geocode.Service, db *gorm.DB, entity, provider string) (map[string]interface{}, error) {
	targets, err := bulkTargets(db, entity)
	if err != nil {
		return nil, err
	}

	updated := 0
	failed := 0
	errors := []string{}
	for _, target := range targets {
		result := s.Geocode(c.Request.Context(), provider, target.Address)
		if !result.Success {
			failed++
			errors = append(errors, fmt.Sprintf("%s: %s", target.Label, result.Err))
			continue
		}

		updates := map[string]interface{}{
			"latitude":  result.Latitude,
			"longitude": result.Longitude,
		}
		var storeErr error
		if entity == "doctors" {
			storeErr = db.Model(&model.Doctor{}).Where("id = ?", target.ID).Updates(updates).Error
		} else {
			storeErr = db.Model(&model.Patient{}).Where("id = ?", target.ID).Updates(updates).Error
		}
		if storeErr != nil {
			failed++
			errors = append(errors, fmt.Sprintf("%s: %v", target.Label, storeErr))
			continue
		}
		updated++
	}

	return map[string]interface{}{
		"total":   len(targets),
		"updated": updated,
		"failed":  failed,
		"errors":  errors,
	}, nil
}

// BulkUpdateCoordinates geocodes every doctor and patient carrying an
// address. Both entities are covered unless the update_doctors or
// update_patients flags opt one out. Best-effort: one attempt per address.
func BulkUpdateCoordinates(c *gin.Context) {
	var req bulkUpdateRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	s, ok := getGeocodeServiceOrRespond(c)
	if !ok {
		return
	}

	data := map[string]interface{}{}
	if req.UpdateDoctors == nil || *req.UpdateDoctors {
		doctors, err := bulkUpdateEntity(c, s, db, "doctors", req.Provider)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to load doctors",
				Err: err,
			})
			return
		}
		data["doctors"] = doctors
	}
	if req.UpdatePatients == nil || *req.UpdatePatients {
		patients, err := bulkUpdateEntity(c, s, db, "patients", req.Provider)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to load patients",
				Err: err,
			})
			return
		}
		data["patients"] = patients
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Bulk coordinate update finished",
		Data: data,
	})
}

// GeocodingInfo describes the configured providers. Open so clients can
// discover which providers are usable before authenticating.
func GeocodingInfo(c *gin.Context) {
	s, ok := getGeocodeServiceOrRespond(c)
	if !ok {
		return
	}

	hits, misses, size := s.CacheMetrics()
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Geocoding service info",
		Data: map[string]interface{}{
			"providers":        s.Registry().Names(),
			"default_provider": s.DefaultProvider(),
			"google_available": s.GoogleAvailable(),
			"cache": map[string]interface{}{
				"hits":   hits,
				"misses": misses,
				"size":   size,
			},
		},
	})
}
