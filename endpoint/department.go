package endpoint

import (
	"fmt"

	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createDepartmentRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	HeadOfDepartment string `json:"head_of_department"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
}

type updateDepartmentRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	HeadOfDepartment string `json:"head_of_department"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
}

// ListDepartments returns all departments ordered by name. Read access is
// open; writes require authentication.
func ListDepartments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var departments []model.Department
	if err := db.Order("name ASC").Find(&departments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve departments",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Departments retrieved",
		Data: map[string]interface{}{"total": len(departments), "departments": departments},
	})
}

func getDepartmentByID(c *gin.Context, db *gorm.DB) (model.Department, bool) {
	id := c.Param("id")
	if id == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Missing department ID",
			Err: fmt.Errorf("department ID is required"),
		})
		return model.Department{}, false
	}

	var department model.Department
	if err := db.First(&department, id).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Department not found",
			Err: err,
		})
		return model.Department{}, false
	}
	return department, true
}

// GetDepartmentInfo returns a single department by ID.
func GetDepartmentInfo(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	department, ok := getDepartmentByID(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Department retrieved",
		Data: department,
	})
}

// CreateDepartment registers a new department.
func CreateDepartment(c *gin.Context) {
	var req createDepartmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	req.Name = util.NormalizeName(req.Name)
	if req.Name == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Department payload is empty or missing required fields",
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	department := model.Department{
		Name:             req.Name,
		Description:      req.Description,
		HeadOfDepartment: req.HeadOfDepartment,
		Phone:            req.Phone,
		Email:            req.Email,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Re-check for a duplicate name inside the transaction to avoid race conditions.
		var existing model.Department
		if err := tx.Where("name = ?", req.Name).First(&existing).Error; err == nil {
			return fmt.Errorf("department already registered")
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		return tx.Create(&department).Error
	})
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Failed to create department",
			Err: err,
		})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Department created",
		Data: department,
	})
}

// UpdateDepartment merges the provided fields into an existing department.
func UpdateDepartment(c *gin.Context) {
	var req updateDepartmentRequest
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

	existing, ok := getDepartmentByID(c, db)
	if !ok {
		return
	}

	if req.Name != "" {
		existing.Name = util.NormalizeName(req.Name)
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.HeadOfDepartment != "" {
		existing.HeadOfDepartment = req.HeadOfDepartment
	}
	if req.Phone != "" {
		existing.Phone = req.Phone
	}
	if req.Email != "" {
		existing.Email = req.Email
	}

	if err := db.Save(&existing).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update department",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Department updated",
		Data: existing,
	})
}

// DeleteDepartment soft deletes a department. Doctors linked to it keep
// their rows with department_id cleared.
func DeleteDepartment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	department, ok := getDepartmentByID(c, db)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Doctor{}).
			Where("department_id = ?", department.ID).
			Update("department_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&department).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete department",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Department deleted",
	})
}
