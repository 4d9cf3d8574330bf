package controllers

import (
	"net/http"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// CreateEmployeeRequest represents the request body for adding a staff record
type CreateEmployeeRequest struct {
	Name       string `json:"name" binding:"required"`
	Department string `json:"department" binding:"required,department"`
	Email      string `json:"email" binding:"omitempty,email"`
	Phone      string `json:"phone"`
	ShiftStart string `json:"shift_start" binding:"omitempty,datetime=15:04"`
	ShiftEnd   string `json:"shift_end" binding:"omitempty,datetime=15:04"`
	IsPresent  bool   `json:"is_present"`
}

// UpdateEmployeeRequest represents a partial staff update
type UpdateEmployeeRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=1"`
	Department *string `json:"department" binding:"omitempty,department"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	ShiftStart *string `json:"shift_start" binding:"omitempty,datetime=15:04"`
	ShiftEnd   *string `json:"shift_end" binding:"omitempty,datetime=15:04"`
	IsPresent  *bool   `json:"is_present"`
	Status     *string `json:"status" binding:"omitempty,oneof=active archived"`
}

// ListEmployees handles GET /api/v1/employees?role=&status=&ispresent=&limit= (admin only).
// role filters by department; status defaults to active.
func ListEmployees(c *gin.Context) {
	query := config.GetDB().WithContext(c.Request.Context()).Model(&models.Employee{})

	if role := c.Query("role"); role != "" {
		query = query.Where("department = ?", role)
	}

	status := c.DefaultQuery("status", models.EmployeeActive)
	if status != "all" {
		query = query.Where("status = ?", status)
	}

	if raw := c.Query("ispresent"); raw != "" {
		present, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, utils.NewValidationError("Invalid ispresent filter", map[string]string{"ispresent": "boolean"}))
			return
		}
		query = query.Where("is_present = ?", present)
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(c, utils.NewValidationError("Invalid limit", map[string]string{"limit": "min"}))
			return
		}
		query = query.Limit(limit)
	}

	var employees []models.Employee
	if err := query.Order("name").Find(&employees).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve employees", err))
		return
	}

	respondOK(c, http.StatusOK, employees)
}

// CreateEmployee handles POST /api/v1/employees (admin only)
func CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	employee := models.Employee{
		Name:       req.Name,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
		ShiftStart: req.ShiftStart,
		ShiftEnd:   req.ShiftEnd,
		IsPresent:  req.IsPresent,
		Status:     models.EmployeeActive,
	}
	if err := config.GetDB().WithContext(c.Request.Context()).Create(&employee).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to create employee", err))
		return
	}

	respondOK(c, http.StatusCreated, employee)
}

// UpdateEmployee handles PATCH /api/v1/employees/:id (admin only)
func UpdateEmployee(c *gin.Context) {
	var req UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	employee, err := findEmployee(c)
	if err != nil {
		respondError(c, err)
		return
	}

	updates := make(map[string]interface{})
	setIfPresent(updates, "name", req.Name)
	setIfPresent(updates, "department", req.Department)
	setIfPresent(updates, "email", req.Email)
	setIfPresent(updates, "phone", req.Phone)
	setIfPresent(updates, "shift_start", req.ShiftStart)
	setIfPresent(updates, "shift_end", req.ShiftEnd)
	setIfPresent(updates, "status", req.Status)
	if req.IsPresent != nil {
		updates["is_present"] = *req.IsPresent
	}

	if len(updates) > 0 {
		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Model(employee).Updates(updates).Error; err != nil {
			respondError(c, utils.NewInternalError("Failed to update employee", err))
			return
		}
		if err := db.First(employee, employee.ID).Error; err != nil {
			respondError(c, utils.NewInternalError("Failed to fetch updated employee", err))
			return
		}
	}

	respondOK(c, http.StatusOK, employee)
}

// ArchiveEmployee handles DELETE /api/v1/employees/:id (admin only). The record is kept with status archived.
func ArchiveEmployee(c *gin.Context) {
	employee, err := findEmployee(c)
	if err != nil {
		respondError(c, err)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Model(employee).Updates(map[string]interface{}{
		"status":     models.EmployeeArchived,
		"is_present": false,
	}).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to archive employee", err))
		return
	}
	employee.Status = models.EmployeeArchived
	employee.IsPresent = false

	respondOK(c, http.StatusOK, employee)
}

func findEmployee(c *gin.Context) (*models.Employee, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, utils.NewValidationError("Invalid employee ID", map[string]string{"id": "numeric"})
	}

	var employee models.Employee
	if err := config.GetDB().WithContext(c.Request.Context()).First(&employee, id).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("EMPLOYEE_NOT_FOUND", "Employee not found")
		}
		return nil, utils.NewInternalError("Failed to retrieve employee", err)
	}
	return &employee, nil
}

func setIfPresent(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
