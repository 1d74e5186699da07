package services

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/utils"
)

// CreateUserInput carries a new user account, with electrician detail
// fields applied only when the role is Electrician.
type CreateUserInput struct {
	Username       string `json:"username" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	FullName       string `json:"full_name" binding:"required,min=2"`
	Phone          string `json:"phone" binding:"required"`
	Role           string `json:"role" binding:"required,oneof=Admin Manager Electrician"`
	EmployeeCode   string `json:"employee_code"`
	Skills         string `json:"skills"`
	Certifications string `json:"certifications"`
}

// UpdateUserInput carries user profile updates.
type UpdateUserInput struct {
	FullName       string `json:"full_name" binding:"required,min=2"`
	Phone          string `json:"phone" binding:"required"`
	Status         string `json:"status" binding:"required,oneof=Active Inactive"`
	Skills         string `json:"skills"`
	Certifications string `json:"certifications"`
}

// UserService implements user administration: creation, update, the
// deletion cascade and status management.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService backed by the given database.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Create inserts a user (and an electrician_details row when the role is
// Electrician and an employee code was supplied), atomically. Returns
// the new user's id.
func (s *UserService) Create(actor Actor, in CreateUserInput) (uint, error) {
	var userID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.User{}).
			Where("email = ? OR username = ?", in.Email, in.Username).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateUser
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := models.User{
			Username:     in.Username,
			Email:        in.Email,
			Password:     string(hashed),
			FullName:     in.FullName,
			Phone:        utils.NormalizePhone(in.Phone),
			Role:         in.Role,
			EmployeeCode: in.EmployeeCode,
			Status:       models.StatusActive,
		}
		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateError(err) {
				return ErrDuplicateUser
			}
			return err
		}
		userID = user.ID

		if in.Role == models.RoleElectrician && in.EmployeeCode != "" {
			now := time.Now()
			detail := models.ElectricianDetail{
				ElectricianID:  user.ID,
				Skills:         in.Skills,
				Certifications: in.Certifications,
				JoinDate:       &now,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}

		return logActivity(tx, actor.ID, "Create User",
			fmt.Sprintf("Created new %s: %s", in.Role, in.FullName))
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Update rewrites the user's basic profile and, for electricians,
// upserts the detail row (created lazily if it does not exist yet).
func (s *UserService) Update(targetID uint, actor Actor, in UpdateUserInput) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{
			"full_name": in.FullName,
			"phone":     utils.NormalizePhone(in.Phone),
			"status":    in.Status,
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}

		if user.IsElectrician() {
			if err := ensureElectricianDetail(tx, user.ID); err != nil {
				return err
			}
			err := tx.Model(&models.ElectricianDetail{}).
				Where("electrician_id = ?", user.ID).
				Updates(map[string]interface{}{
					"skills":         in.Skills,
					"certifications": in.Certifications,
				}).Error
			if err != nil {
				return err
			}
		}

		return logActivity(tx, actor.ID, "Update User",
			fmt.Sprintf("Updated user: %s", in.FullName))
	})
}

// Delete removes the user and every record that would otherwise orphan:
// electrician details, notifications, activity logs, completions and
// ratings of their assigned tasks. Assigned tasks are preserved with the
// assignee cleared; tasks they created are handed to a remaining admin.
// The last active admin and the caller's own account are protected.
func (s *UserService) Delete(targetID uint, actor Actor) error {
	if targetID == actor.ID {
		return ErrSelfDelete
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if user.Role == models.RoleAdmin {
			var adminCount int64
			err := tx.Model(&models.User{}).
				Where("role = ? AND status = ?", models.RoleAdmin, models.StatusActive).
				Count(&adminCount).Error
			if err != nil {
				return err
			}
			if adminCount <= 1 {
				return ErrLastAdmin
			}
		}

		if user.IsElectrician() {
			err := tx.Where("electrician_id = ?", targetID).
				Delete(&models.ElectricianDetail{}).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", targetID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		// Completion and rating rows of tasks assigned to this user
		if err := tx.Where("task_id IN (?)",
			tx.Model(&models.Task{}).Select("id").Where("assigned_to = ?", targetID)).
			Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN (?)",
			tx.Model(&models.Task{}).Select("id").Where("assigned_to = ?", targetID)).
			Delete(&models.TaskRating{}).Error; err != nil {
			return err
		}

		// Tasks survive the deletion: clear the assignee rather than drop rows
		err := tx.Model(&models.Task{}).
			Where("assigned_to = ?", targetID).
			Update("assigned_to", nil).Error
		if err != nil {
			return err
		}

		// Hand tasks they created to the first remaining admin
		var firstAdmin models.User
		err = tx.Where("role = ? AND id != ?", models.RoleAdmin, targetID).
			Order("id").First(&firstAdmin).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			err = tx.Model(&models.Task{}).
				Where("created_by = ?", targetID).
				Update("created_by", firstAdmin.ID).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", targetID).Delete(&models.ActivityLog{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		return logActivity(tx, actor.ID, "Delete User",
			fmt.Sprintf("Deleted user: %s", user.FullName))
	})
	if err != nil {
		if isForeignKeyError(err) {
			return ErrReferentialConflict
		}
		return err
	}
	return nil
}

// ToggleStatus flips the user between Active and Inactive.
func (s *UserService) ToggleStatus(targetID uint, actor Actor) (string, error) {
	var newStatus string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		newStatus = models.StatusActive
		if user.Status == models.StatusActive {
			newStatus = models.StatusInactive
		}

		if err := tx.Model(&user).Update("status", newStatus).Error; err != nil {
			return err
		}

		verb := "activated"
		if newStatus == models.StatusInactive {
			verb = "deactivated"
		}
		return logActivity(tx, actor.ID, "User Status Update",
			fmt.Sprintf("User %s", verb))
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

// ResetPassword sets a new password for the user without requiring the
// old one. Admin operation.
func (s *UserService) ResetPassword(targetID uint, actor Actor, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrWeakPassword
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		if err := tx.Model(&user).Update("password", string(hashed)).Error; err != nil {
			return err
		}

		return logActivity(tx, actor.ID, "Password Reset",
			fmt.Sprintf("Reset password for user: %s", user.FullName))
	})
}
