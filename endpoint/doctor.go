package endpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createDoctorRequest struct {
	UserData        model.UserCreateRequest `json:"user_data" binding:"required"`
	LicenseNumber   string                  `json:"license_number" binding:"required"`
	Specialization  string                  `json:"specialization" binding:"required"`
	DepartmentID    *uint                   `json:"department_id"`
	Phone           string                  `json:"phone"`
	Address         string                  `json:"address"`
	ExperienceYears int                     `json:"experience_years"`
	ConsultationFee float64                 `json:"consultation_fee"`
	IsAvailable     *bool                   `json:"is_available"`
	Bio             string                  `json:"bio"`
	Photo           string                  `json:"photo"`
}

type updateDoctorRequest struct {
	Specialization  string   `json:"specialization"`
	DepartmentID    *uint    `json:"department_id"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	ExperienceYears *int     `json:"experience_years"`
	ConsultationFee *float64 `json:"consultation_fee"`
	IsAvailable     *bool    `json:"is_available"`
	Bio             string   `json:"bio"`
	Photo           string   `json:"photo"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
}

func fetchDoctors(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]model.Doctor, error) {
	var doctors []model.Doctor
	query := db.Preload("User").Preload("Department").
		Joins("JOIN users ON users.id = doctors.user_id AND users.deleted_at IS NULL").
		Order("users.first_name ASC")
	if scope != nil {
		query = scope(query)
	}
	err := query.Find(&doctors).Error
	return doctors, err
}

func doctorListItems(doctors []model.Doctor) []model.DoctorListItem {
	items := make([]model.DoctorListItem, 0, len(doctors))
	for i := range doctors {
		items = append(items, doctors[i].ToListItem())
	}
	return items
}

// ListDoctors returns all doctors ordered by first name. Read access is
// open; writes require authentication.
func ListDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctors, err := fetchDoctors(db, nil)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve doctors",
			Err: err,
		})
		return
	}

	items := doctorListItems(doctors)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctors retrieved",
		Data: map[string]interface{}{"total": len(items), "doctors": items},
	})
}

func getDoctorByID(c *gin.Context, db *gorm.DB) (model.Doctor, bool) {
	id := c.Param("id")
	if id == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Missing doctor ID",
			Err: fmt.Errorf("doctor ID is required"),
		})
		return model.Doctor{}, false
	}

	var doctor model.Doctor
	if err := db.Preload("User").Preload("Department").First(&doctor, id).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Doctor not found",
			Err: err,
		})
		return model.Doctor{}, false
	}
	return doctor, true
}

// GetDoctorInfo returns the detail shape of a single doctor.
func GetDoctorInfo(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctor, ok := getDoctorByID(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctor retrieved",
		Data: doctor.ToDetail(),
	})
}

func validateDoctorRequest(req createDoctorRequest) error {
	if strings.TrimSpace(req.UserData.Username) == "" {
		return fmt.Errorf("username is empty or missing required fields")
	}
	if strings.TrimSpace(req.LicenseNumber) == "" {
		return fmt.Errorf("license_number is empty or missing required fields")
	}
	if !model.IsValidSpecialization(req.Specialization) {
		return fmt.Errorf("invalid specialization: %s", req.Specialization)
	}
	return nil
}

func createProfileUser(tx *gorm.DB, data model.UserCreateRequest, staff bool) (model.User, error) {
	var existing model.User
	if err := tx.Where("username = ?", data.Username).First(&existing).Error; err == nil {
		return model.User{}, fmt.Errorf("username already registered")
	} else if err != gorm.ErrRecordNotFound {
		return model.User{}, err
	}

	user := model.User{
		Username:  data.Username,
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		IsStaff:   staff,
	}
	if data.Password != "" {
		salt, err := util.GenerateSalt()
		if err != nil {
			return model.User{}, err
		}
		hashed, err := util.HashPasswordArgon2(data.Password, salt)
		if err != nil {
			return model.User{}, err
		}
		user.Password = hashed
		user.PasswordSalt = salt
	}

	if err := tx.Create(&user).Error; err != nil {
		return model.User{}, err
	}
	return user, nil
}

// CreateDoctor registers a doctor together with its backing user record in
// one transaction.
func CreateDoctor(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if err := validateDoctorRequest(req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: err.Error(),
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var doctor model.Doctor
	err := db.Transaction(func(tx *gorm.DB) error {
		// Re-check the license inside the transaction to avoid race conditions.
		var existing model.Doctor
		if err := tx.Where("license_number = ?", req.LicenseNumber).First(&existing).Error; err == nil {
			return fmt.Errorf("license_number already registered")
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		user, err := createProfileUser(tx, req.UserData, false)
		if err != nil {
			return err
		}

		doctor = model.Doctor{
			UserID:          user.ID,
			User:            user,
			LicenseNumber:   req.LicenseNumber,
			Specialization:  req.Specialization,
			DepartmentID:    req.DepartmentID,
			Phone:           req.Phone,
			Address:         req.Address,
			ExperienceYears: req.ExperienceYears,
			ConsultationFee: req.ConsultationFee,
			IsAvailable:     true,
			Bio:             req.Bio,
			Photo:           req.Photo,
		}
		if req.IsAvailable != nil {
			doctor.IsAvailable = *req.IsAvailable
		}
		return tx.Create(&doctor).Error
	})
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Failed to create doctor",
			Err: err,
		})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Doctor created",
		Data: doctor.ToDetail(),
	})
}

// UpdateDoctor merges the provided fields into an existing doctor and its
// backing user record.
func UpdateDoctor(c *gin.Context) {
	var req updateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if req.Specialization != "" && !model.IsValidSpecialization(req.Specialization) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid specialization: %s", req.Specialization),
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	existing, ok := getDoctorByID(c, db)
	if !ok {
		return
	}

	if req.Specialization != "" {
		existing.Specialization = req.Specialization
	}
	if req.DepartmentID != nil {
		existing.DepartmentID = req.DepartmentID
	}
	if req.Phone != "" {
		existing.Phone = req.Phone
	}
	if req.Address != "" {
		existing.Address = req.Address
	}
	if req.ExperienceYears != nil {
		existing.ExperienceYears = *req.ExperienceYears
	}
	if req.ConsultationFee != nil {
		existing.ConsultationFee = *req.ConsultationFee
	}
	if req.IsAvailable != nil {
		existing.IsAvailable = *req.IsAvailable
	}
	if req.Bio != "" {
		existing.Bio = req.Bio
	}
	if req.Photo != "" {
		existing.Photo = req.Photo
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
		return tx.Omit("User", "Department").Save(&existing).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update doctor",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctor updated",
		Data: existing.ToDetail(),
	})
}

// DeleteDoctor soft deletes a doctor and its backing user record.
func DeleteDoctor(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctor, ok := getDoctorByID(c, db)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&doctor).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, doctor.UserID).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete doctor",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Doctor deleted",
	})
}

// AvailableDoctors returns only doctors currently accepting appointments.
func AvailableDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctors, err := fetchDoctors(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("doctors.is_available = ?", true)
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve doctors",
			Err: err,
		})
		return
	}

	items := doctorListItems(doctors)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Available doctors retrieved",
		Data: map[string]interface{}{"total": len(items), "doctors": items},
	})
}

// DoctorsBySpecialization aggregates doctors per specialization. Without the
// spec query param it returns {specialization, count, available_count} rows;
// with the param it returns available doctors of that specialization.
func DoctorsBySpecialization(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	spec := c.Query("spec")
	if spec == "" {
		var counts []model.SpecializationCount
		err := db.Model(&model.Doctor{}).
			Select("specialization, COUNT(*) as count, SUM(CASE WHEN is_available THEN 1 ELSE 0 END) as available_count").
			Group("specialization").
			Order("specialization ASC").
			Scan(&counts).Error
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to aggregate doctors",
				Err: err,
			})
			return
		}

		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Specialization counts retrieved",
			Data: map[string]interface{}{"specializations": counts},
		})
		return
	}

	if !model.IsValidSpecialization(spec) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid specialization: %s", spec),
			Err: fmt.Errorf("invalid specialization"),
		})
		return
	}

	doctors, err := fetchDoctors(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("doctors.specialization = ? AND doctors.is_available = ?", spec, true)
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve doctors",
			Err: err,
		})
		return
	}

	items := doctorListItems(doctors)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctors retrieved",
		Data: map[string]interface{}{"total": len(items), "doctors": items},
	})
}

// DoctorAppointments returns a doctor's appointments, most recent first.
func DoctorAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctor, ok := getDoctorByID(c, db)
	if !ok {
		return
	}

	appointments, err := fetchAppointments(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("doctor_id = ?", doctor.ID)
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
		Msg:  "Doctor appointments retrieved",
		Data: map[string]interface{}{"total": len(items), "appointments": items},
	})
}

// parseUintParam converts a path parameter to uint, reporting a user error
// on malformed input.
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid %s", name),
			Err: err,
		})
		return 0, false
	}
	return uint(v), true
}
