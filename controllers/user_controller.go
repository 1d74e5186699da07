package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/services"
)

// ResetPasswordRequest represents the request body for an admin password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// userView is the row shape returned by user list/detail queries,
// joining in electrician details where they exist.
type userView struct {
	models.User
	Skills              *string  `json:"skills,omitempty"`
	Certifications      *string  `json:"certifications,omitempty"`
	Rating              *float64 `json:"rating,omitempty"`
	TotalTasksCompleted *int     `json:"total_tasks_completed,omitempty"`
}

// UserController handles the user administration endpoints.
type UserController struct {
	db    *gorm.DB
	users *services.UserService
}

// NewUserController creates a UserController backed by the given database.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db, users: services.NewUserService(db)}
}

// ListUsers handles GET /api/users (Admin/Manager only)
func (ctl *UserController) ListUsers(c *gin.Context) {
	query := ctl.db.Model(&models.User{}).
		Select("users.*, electrician_details.skills, electrician_details.certifications, electrician_details.rating, electrician_details.total_tasks_completed").
		Joins("LEFT JOIN electrician_details ON electrician_details.electrician_id = users.id")

	if role := c.Query("role"); role != "" {
		query = query.Where("users.role = ?", role)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("users.status = ?", status)
	}

	var users []userView
	if err := query.Order("users.created_at DESC").Scan(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
	})
}

// GetUser handles GET /api/users/:id
func (ctl *UserController) GetUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var user userView
	err := ctl.db.Model(&models.User{}).
		Select("users.*, electrician_details.skills, electrician_details.certifications, electrician_details.rating, electrician_details.total_tasks_completed").
		Joins("LEFT JOIN electrician_details ON electrician_details.electrician_id = users.id").
		Where("users.id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "User not found",
				},
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetMyProfile handles GET /api/users/me - the caller's own profile
func (ctl *UserController) GetMyProfile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var user userView
	err := ctl.db.Model(&models.User{}).
		Select("users.*, electrician_details.skills, electrician_details.certifications, electrician_details.rating, electrician_details.total_tasks_completed").
		Joins("LEFT JOIN electrician_details ON electrician_details.electrician_id = users.id").
		Where("users.id = ?", actor.ID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "User not found",
				},
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetElectricians handles GET /api/users/electricians - the active
// electrician roster ordered by rating (Manager/Admin only)
func (ctl *UserController) GetElectricians(c *gin.Context) {
	type electricianView struct {
		ID                  uint    `json:"id"`
		FullName            string  `json:"full_name"`
		Phone               string  `json:"phone"`
		EmployeeCode        string  `json:"employee_code"`
		Status              string  `json:"status"`
		Skills              string  `json:"skills"`
		Rating              float64 `json:"rating"`
		TotalTasksCompleted int     `json:"total_tasks_completed"`
		CurrentTasks        int     `json:"current_tasks"`
	}

	var electricians []electricianView
	err := ctl.db.Model(&models.User{}).
		Select(`users.id, users.full_name, users.phone, users.employee_code, users.status,
			electrician_details.skills, electrician_details.rating, electrician_details.total_tasks_completed,
			(SELECT COUNT(*) FROM tasks WHERE tasks.assigned_to = users.id AND tasks.status = 'In Progress') AS current_tasks`).
		Joins("JOIN electrician_details ON electrician_details.electrician_id = users.id").
		Where("users.role = ? AND users.status = ?", models.RoleElectrician, models.StatusActive).
		Order("electrician_details.rating DESC").
		Scan(&electricians).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    electricians,
	})
}

// CreateUser handles POST /api/users (Admin only)
func (ctl *UserController) CreateUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.CreateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	userID, err := ctl.users.Create(actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"user_id": userID,
	})
}

// UpdateUser handles PUT /api/users/:id (Admin only)
func (ctl *UserController) UpdateUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.users.Update(userID, actor, req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
	})
}

// DeleteUser handles DELETE /api/users/:id (Admin only)
func (ctl *UserController) DeleteUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctl.users.Delete(userID, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted successfully",
	})
}

// ToggleUserStatus handles PATCH /api/users/:id/toggle-status (Admin only)
func (ctl *UserController) ToggleUserStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	newStatus, err := ctl.users.ToggleStatus(userID, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	verb := "activated"
	if newStatus == models.StatusInactive {
		verb = "deactivated"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User " + verb + " successfully",
	})
}

// ResetUserPassword handles POST /api/users/:id/reset-password (Admin only)
func (ctl *UserController) ResetUserPassword(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.users.ResetPassword(userID, actor, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset successfully",
	})
}
