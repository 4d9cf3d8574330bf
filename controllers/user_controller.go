package controllers

import (
	"net/http"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name          string          `json:"name" binding:"omitempty"`
	Email         string          `json:"email" binding:"omitempty,email"`
	CompanyName   *string         `json:"company_name"`
	ContactPerson *string         `json:"contact_person"`
	Phone         *string         `json:"phone"`
	Address       *models.Address `json:"address"`
}

// CreateUser handles POST /api/v1/users - creates a new user from Auth0 userinfo
// This endpoint requires authentication and fetches user data from Auth0's /userinfo endpoint
func CreateUser(c *gin.Context) {
	// Get the Auth0 user ID from the validated JWT
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user ID from token",
			},
		})
		return
	}

	// Get the access token to call Auth0's /userinfo endpoint
	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_TOKEN",
				"message": "Access token not found",
			},
		})
		return
	}

	userInfo, err := services.GetProfileProvider().GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		respondError(c, &utils.AppError{
			Status:  http.StatusInternalServerError,
			Code:    "AUTH0_ERROR",
			Message: "Failed to fetch user information from Auth0",
			Err:     err,
		})
		return
	}

	// Validate that required fields are present
	if userInfo.Email == "" {
		respondError(c, &utils.AppError{Status: http.StatusBadRequest, Code: "MISSING_EMAIL", Message: "Email not provided by Auth0"})
		return
	}
	if userInfo.Name == "" {
		respondError(c, &utils.AppError{Status: http.StatusBadRequest, Code: "MISSING_NAME", Message: "Name not provided by Auth0"})
		return
	}

	// Only staff accounts carry a role claim; everyone else is a customer
	role := models.RoleCustomer
	if middleware.GetClaimedRole(c) == models.RoleAdmin {
		role = models.RoleAdmin
	}

	user := models.User{
		Auth0ID:       auth0ID,
		Name:          userInfo.Name,
		Email:         userInfo.Email,
		Role:          role,
		ContactPerson: userInfo.Name,
		Phone:         userInfo.PhoneNumber,
	}

	if err := config.GetDB().WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			respondError(c, &utils.AppError{
				Status:  http.StatusBadRequest,
				Code:    "USER_EXISTS",
				Message: "A user with this Auth0 ID or email already exists",
				Err:     err,
			})
			return
		}
		respondError(c, utils.NewInternalError("Failed to create user", err))
		return
	}

	respondOK(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	setIfPresent(updates, "company_name", req.CompanyName)
	setIfPresent(updates, "contact_person", req.ContactPerson)
	setIfPresent(updates, "phone", req.Phone)
	if req.Address != nil {
		address := *req.Address
		address.Normalize()
		if !address.IsEmpty() {
			if err := address.Validate(); err != nil {
				respondError(c, utils.NewValidationError(err.Error(), map[string]string{"address": "invalid"}))
				return
			}
		}
		updates["address_line1"] = address.Line1
		updates["address_city"] = address.City
		updates["address_province"] = address.Province
		updates["address_postal_code"] = address.PostalCode
		updates["address_country_code"] = address.CountryCode
	}

	// If no fields to update, return current user
	if len(updates) == 0 {
		respondOK(c, http.StatusOK, user)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			respondError(c, &utils.AppError{
				Status:  http.StatusBadRequest,
				Code:    "EMAIL_EXISTS",
				Message: "A user with this email already exists",
				Err:     err,
			})
			return
		}
		respondError(c, utils.NewInternalError("Failed to update user profile", err))
		return
	}

	// Fetch updated user to return
	var updated models.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to fetch updated profile", err))
		return
	}

	respondOK(c, http.StatusOK, updated)
}
