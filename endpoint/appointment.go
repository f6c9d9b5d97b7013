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

type createAppointmentRequest struct {
	PatientID       uint       `json:"patient_id" binding:"required"`
	DoctorID        uint       `json:"doctor_id" binding:"required"`
	AppointmentDate time.Time  `json:"appointment_date" binding:"required"`
	DurationMinutes int        `json:"duration_minutes"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes"`
	FollowUpDate    *time.Time `json:"follow_up_date"`
}

type updateAppointmentRequest struct {
	AppointmentDate *time.Time `json:"appointment_date"`
	DurationMinutes *int       `json:"duration_minutes"`
	Reason          string     `json:"reason"`
	Notes           string     `json:"notes"`
	FollowUpDate    *time.Time `json:"follow_up_date"`
}

type updateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Version *int   `json:"version"`
}

type addPrescriptionRequest struct {
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
	Version      *int   `json:"version"`
}

func fetchAppointments(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]model.Appointment, error) {
	var appointments []model.Appointment
	query := db.Preload("Patient.User").Preload("Doctor.User").
		Order("appointment_date DESC")
	if scope != nil {
		query = scope(query)
	}
	err := query.Find(&appointments).Error
	return appointments, err
}

func appointmentListItems(appointments []model.Appointment) []model.AppointmentListItem {
	items := make([]model.AppointmentListItem, 0, len(appointments))
	for i := range appointments {
		items = append(items, appointments[i].ToListItem())
	}
	return items
}

// ListAppointments returns all appointments, most recent first.
func ListAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	appointments, err := fetchAppointments(db, nil)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve appointments",
			Err: err,
		})
		return
	}

	items := appointmentListItems(appointments)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: map[string]interface{}{"total": len(items), "appointments": items},
	})
}

func getAppointmentByID(c *gin.Context, db *gorm.DB) (model.Appointment, bool) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return model.Appointment{}, false
	}

	var appointment model.Appointment
	err := db.Preload("Patient.User").Preload("Doctor.User").
		First(&appointment, id).Error
	if err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Appointment not found",
			Err: err,
		})
		return model.Appointment{}, false
	}
	return appointment, true
}

// GetAppointmentInfo returns the detail shape of a single appointment.
func GetAppointmentInfo(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	appointment, ok := getAppointmentByID(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment retrieved",
		Data: appointment.ToDetail(),
	})
}

// CreateAppointment books a patient with a doctor. Double-booking a doctor
// is allowed; the clinic resolves collisions out of band.
func CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	status := req.Status
	if status == "" {
		status = model.StatusScheduled
	}
	if !model.IsValidStatus(status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid status: %s", req.Status),
			Err: fmt.Errorf("invalid status"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, req.PatientID).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}
	var doctor model.Doctor
	if err := db.First(&doctor, req.DoctorID).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Doctor not found",
			Err: err,
		})
		return
	}

	appointment := model.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Status:          status,
		Notes:           req.Notes,
		FollowUpDate:    req.FollowUpDate,
	}
	if appointment.DurationMinutes <= 0 {
		appointment.DurationMinutes = 30
	}

	if err := db.Create(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create appointment",
			Err: err,
		})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Appointment created",
		Data: appointment,
	})
}

// UpdateAppointment merges scheduling fields into an existing appointment.
// Status changes go through UpdateAppointmentStatus.
func UpdateAppointment(c *gin.Context) {
	var req updateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	existing, ok := getAppointmentByID(c, db)
	if !ok {
		return
	}

	if req.AppointmentDate != nil {
		existing.AppointmentDate = *req.AppointmentDate
	}
	if req.DurationMinutes != nil {
		existing.DurationMinutes = *req.DurationMinutes
	}
	if req.Reason != "" {
		existing.Reason = req.Reason
	}
	if req.Notes != "" {
		existing.Notes = req.Notes
	}
	if req.FollowUpDate != nil {
		existing.FollowUpDate = req.FollowUpDate
	}

	if err := db.Omit("Patient", "Doctor").Save(&existing).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update appointment",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment updated",
		Data: existing.ToDetail(),
	})
}

// DeleteAppointment soft deletes an appointment.
func DeleteAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	appointment, ok := getAppointmentByID(c, db)
	if !ok {
		return
	}

	if err := db.Delete(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete appointment",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Appointment deleted",
	})
}

// TodayAppointments returns appointments whose date component equals the
// current date.
func TodayAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	appointments, err := fetchAppointments(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("appointment_date >= ? AND appointment_date < ?", start, end)
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
		Msg:  "Today's appointments retrieved",
		Data: map[string]interface{}{"total": len(items), "appointments": items},
	})
}

// UpcomingAppointments returns future appointments still in a bookable
// state, soonest first. The predicate is exactly appointment_date >= now
// AND status in {scheduled, confirmed}.
func UpcomingAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var appointments []model.Appointment
	err := db.Preload("Patient.User").Preload("Doctor.User").
		Where("appointment_date >= ? AND status IN ?", time.Now(),
			[]string{model.StatusScheduled, model.StatusConfirmed}).
		Order("appointment_date ASC").
		Find(&appointments).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve appointments",
			Err: err,
		})
		return
	}

	items := appointmentListItems(appointments)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Upcoming appointments retrieved",
		Data: map[string]interface{}{"total": len(items), "appointments": items},
	})
}

// AppointmentsByStatus aggregates appointments per status. Without the
// status query param it returns {status, count} rows; with the param it
// returns appointments holding that status.
func AppointmentsByStatus(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	status := c.Query("status")
	if status == "" {
		var counts []model.StatusCount
		err := db.Model(&model.Appointment{}).
			Select("status, COUNT(*) as count").
			Group("status").
			Order("status ASC").
			Scan(&counts).Error
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to aggregate appointments",
				Err: err,
			})
			return
		}

		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Status counts retrieved",
			Data: map[string]interface{}{"statuses": counts},
		})
		return
	}

	if !model.IsValidStatus(status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid status: %s", status),
			Err: fmt.Errorf("invalid status"),
		})
		return
	}

	appointments, err := fetchAppointments(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", status)
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
		Msg:  "Appointments retrieved",
		Data: map[string]interface{}{"total": len(items), "appointments": items},
	})
}

// applyWorkflowUpdate writes the given columns as a single conditional row
// update keyed on the current version. A zero rows-affected result means a
// concurrent writer got there first.
func applyWorkflowUpdate(db *gorm.DB, appointment *model.Appointment, updates map[string]interface{}) (bool, error) {
	updates["version"] = appointment.Version + 1
	res := db.Model(&model.Appointment{}).
		Where("id = ? AND version = ?", appointment.ID, appointment.Version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func checkRequestVersion(c *gin.Context, appointment model.Appointment, version *int) bool {
	if version != nil && *version != appointment.Version {
		util.CallUserConflict(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Appointment was modified concurrently, current version is %d", appointment.Version),
			Err: fmt.Errorf("version conflict"),
		})
		return false
	}
	return true
}

// UpdateAppointmentStatus sets the workflow status. The only validation is
// membership in the status enum; any state may move to any other state.
func UpdateAppointmentStatus(c *gin.Context) {
	var req updateStatusRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if !model.IsValidStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid status: %s", req.Status),
			Err: fmt.Errorf("invalid status"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	appointment, ok := getAppointmentByID(c, db)
	if !ok {
		return
	}
	if !checkRequestVersion(c, appointment, req.Version) {
		return
	}

	applied, err := applyWorkflowUpdate(db, &appointment, map[string]interface{}{
		"status": req.Status,
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update appointment status",
			Err: err,
		})
		return
	}
	if !applied {
		util.CallUserConflict(c, util.APIErrorParams{
			Msg: "Appointment was modified concurrently",
			Err: fmt.Errorf("version conflict"),
		})
		return
	}

	appointment.Status = req.Status
	appointment.Version++
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment status updated",
		Data: appointment.ToDetail(),
	})
}

// AddPrescription records a prescription and closes the appointment. The
// status is forced to completed regardless of its prior value.
func AddPrescription(c *gin.Context) {
	var req addPrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if strings.TrimSpace(req.Prescription) == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Prescription is required",
			Err: fmt.Errorf("prescription cannot be empty"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	appointment, ok := getAppointmentByID(c, db)
	if !ok {
		return
	}
	if !checkRequestVersion(c, appointment, req.Version) {
		return
	}

	updates := map[string]interface{}{
		"prescription": req.Prescription,
		"status":       model.StatusCompleted,
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	applied, err := applyWorkflowUpdate(db, &appointment, updates)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to add prescription",
			Err: err,
		})
		return
	}
	if !applied {
		util.CallUserConflict(c, util.APIErrorParams{
			Msg: "Appointment was modified concurrently",
			Err: fmt.Errorf("version conflict"),
		})
		return
	}

	appointment.Prescription = req.Prescription
	appointment.Status = model.StatusCompleted
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}
	appointment.Version++
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Prescription added",
		Data: appointment.ToDetail(),
	})
}
