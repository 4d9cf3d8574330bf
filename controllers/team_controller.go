package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TeamRequest represents the request body for creating or updating a team.
// Omitted id lists leave the current members or orders unchanged.
type TeamRequest struct {
	Name      *string   `json:"name" binding:"omitempty,min=1"`
	MemberIDs *[]uint   `json:"member_ids"`
	OrderIDs  *[]string `json:"order_ids"`
}

// AssignOrdersRequest represents orders being added to a team
type AssignOrdersRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1"`
}

// ListTeams handles GET /api/v1/teams (admin only)
func ListTeams(c *gin.Context) {
	var teams []models.Team
	err := config.GetDB().WithContext(c.Request.Context()).
		Preload("Members").Preload("Orders").Order("name").Find(&teams).Error
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve teams", err))
		return
	}
	respondOK(c, http.StatusOK, teams)
}

// CreateTeam handles POST /api/v1/teams (admin only)
func CreateTeam(c *gin.Context) {
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Name == nil {
		respondError(c, utils.NewValidationError("Team name is required", map[string]string{"name": "required"}))
		return
	}

	team := models.Team{Name: *req.Name}
	err := config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		return replaceTeamAssociations(tx, &team, req)
	})
	if err != nil {
		respondError(c, teamWriteError(err))
		return
	}

	respondTeam(c, http.StatusCreated, team.ID)
}

// UpdateTeam handles PATCH /api/v1/teams/:id (admin only)
func UpdateTeam(c *gin.Context) {
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	team, err := findTeam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if req.Name != nil {
			if err := tx.Model(team).Update("name", *req.Name).Error; err != nil {
				return err
			}
		}
		return replaceTeamAssociations(tx, team, req)
	})
	if err != nil {
		respondError(c, teamWriteError(err))
		return
	}

	respondTeam(c, http.StatusOK, team.ID)
}

// AssignTeamOrders handles POST /api/v1/teams/:id/orders - adds orders to a team (admin only)
func AssignTeamOrders(c *gin.Context) {
	var req AssignOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	team, err := findTeam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		orders, err := loadOrders(tx, req.OrderIDs)
		if err != nil {
			return err
		}
		return tx.Model(team).Association("Orders").Append(orders)
	})
	if err != nil {
		respondError(c, teamWriteError(err))
		return
	}

	respondTeam(c, http.StatusOK, team.ID)
}

// DeleteTeam handles DELETE /api/v1/teams/:id (admin only)
func DeleteTeam(c *gin.Context) {
	team, err := findTeam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(team).Association("Members").Clear(); err != nil {
			return err
		}
		if err := tx.Model(team).Association("Orders").Clear(); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM quota_teams WHERE team_id = ?", team.ID).Error; err != nil {
			return err
		}
		return tx.Delete(team).Error
	})
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to delete team", err))
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": team.ID, "deleted": true})
}

func replaceTeamAssociations(tx *gorm.DB, team *models.Team, req TeamRequest) error {
	if req.MemberIDs != nil {
		members, err := loadEmployees(tx, *req.MemberIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(team).Association("Members").Replace(members); err != nil {
			return err
		}
	}
	if req.OrderIDs != nil {
		orders, err := loadOrders(tx, *req.OrderIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(team).Association("Orders").Replace(orders); err != nil {
			return err
		}
	}
	return nil
}

func loadEmployees(tx *gorm.DB, ids []uint) ([]models.Employee, error) {
	employees := []models.Employee{}
	if len(ids) == 0 {
		return employees, nil
	}
	if err := tx.Where("id IN ? AND status = ?", ids, models.EmployeeActive).Find(&employees).Error; err != nil {
		return nil, err
	}
	if len(employees) != len(uniqueUints(ids)) {
		return nil, utils.NewValidationError("One or more employees do not exist or are archived", map[string]string{"member_ids": "exists"})
	}
	return employees, nil
}

func loadOrders(tx *gorm.DB, ids []string) ([]models.Order, error) {
	orders := []models.Order{}
	if len(ids) == 0 {
		return orders, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) != len(uniqueStrings(ids)) {
		return nil, utils.NewValidationError("One or more orders do not exist", map[string]string{"order_ids": "exists"})
	}
	return orders, nil
}

func findTeam(c *gin.Context) (*models.Team, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, utils.NewValidationError("Invalid team ID", map[string]string{"id": "numeric"})
	}

	var team models.Team
	if err := config.GetDB().WithContext(c.Request.Context()).First(&team, id).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("TEAM_NOT_FOUND", "Team not found")
		}
		return nil, utils.NewInternalError("Failed to retrieve team", err)
	}
	return &team, nil
}

func respondTeam(c *gin.Context, status int, id uint) {
	var team models.Team
	err := config.GetDB().WithContext(c.Request.Context()).
		Preload("Members").Preload("Orders").First(&team, id).Error
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to load team", err))
		return
	}
	respondOK(c, status, team)
}

func teamWriteError(err error) error {
	if utils.IsUniqueViolation(err) {
		return utils.NewConflictError("A team with this name already exists", err)
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.NewInternalError("Failed to save team", err)
}

func uniqueUints(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func uniqueStrings(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
