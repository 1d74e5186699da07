package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/utils"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role string
	Name string
}

// MaterialInput is one material line supplied with a task payload.
type MaterialInput struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity"`
}

// CreateTaskInput carries everything needed to create a task, including
// the customer contact that will be created or reused by phone lookup.
type CreateTaskInput struct {
	Title              string          `json:"title" binding:"required"`
	Description        string          `json:"description"`
	CustomerName       string          `json:"customer_name" binding:"required"`
	CustomerPhone      string          `json:"customer_phone" binding:"required"`
	CustomerAddress    string          `json:"customer_address"`
	Priority           string          `json:"priority" binding:"required,oneof=High Medium Low"`
	ScheduledDate      string          `json:"scheduled_date" binding:"required"`
	ScheduledTimeStart string          `json:"scheduled_time_start"`
	ScheduledTimeEnd   string          `json:"scheduled_time_end"`
	EstimatedHours     float64         `json:"estimated_hours"`
	Materials          []MaterialInput `json:"materials"`
}

// UpdateTaskInput rewrites the task's core fields. Customer fields patch
// only when supplied; a nil Materials slice leaves materials untouched
// while a non-nil one replaces them wholesale.
type UpdateTaskInput struct {
	Title              string           `json:"title" binding:"required"`
	Description        string           `json:"description"`
	Priority           string           `json:"priority" binding:"required,oneof=High Medium Low"`
	Status             string           `json:"status"`
	ScheduledDate      string           `json:"scheduled_date" binding:"required"`
	ScheduledTimeStart string           `json:"scheduled_time_start"`
	ScheduledTimeEnd   string           `json:"scheduled_time_end"`
	EstimatedHours     float64          `json:"estimated_hours"`
	CustomerName       *string          `json:"customer_name"`
	CustomerPhone      *string          `json:"customer_phone"`
	CustomerAddress    *string          `json:"customer_address"`
	Materials          *[]MaterialInput `json:"materials"`
}

// CompleteTaskInput carries the completion record details.
type CompleteTaskInput struct {
	CompletionNotes   string  `json:"completion_notes"`
	MaterialsUsed     string  `json:"materials_used"`
	AdditionalCharges float64 `json:"additional_charges"`
}

// TaskService implements the transactional task lifecycle: creation,
// assignment, status transitions, completion, update, deletion and
// rating aggregation. Every multi-step write runs inside one database
// transaction and rolls back fully on any failure.
type TaskService struct {
	db *gorm.DB
}

// NewTaskService creates a TaskService backed by the given database.
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// Create resolves or inserts the customer by phone, inserts the task as
// Pending with a generated code, bulk-inserts materials and notifies all
// active managers, atomically. Returns the new task's id and code.
func (s *TaskService) Create(creator Actor, in CreateTaskInput) (uint, string, error) {
	var taskID uint
	taskCode := utils.GenerateTaskCode()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		phone := utils.NormalizePhone(in.CustomerPhone)

		// Reuse the customer when the phone already exists
		var customer models.Customer
		err := tx.Where("phone = ?", phone).First(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			customer = models.Customer{
				Name:    in.CustomerName,
				Phone:   phone,
				Address: in.CustomerAddress,
			}
			if err := tx.Create(&customer).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		task := models.Task{
			TaskCode:           taskCode,
			Title:              in.Title,
			Description:        in.Description,
			CustomerID:         customer.ID,
			CreatedBy:          creator.ID,
			Priority:           in.Priority,
			Status:             models.TaskStatusPending,
			ScheduledDate:      in.ScheduledDate,
			ScheduledTimeStart: in.ScheduledTimeStart,
			ScheduledTimeEnd:   in.ScheduledTimeEnd,
			EstimatedHours:     in.EstimatedHours,
		}
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		taskID = task.ID

		if len(in.Materials) > 0 {
			materials := make([]models.TaskMaterial, 0, len(in.Materials))
			for _, m := range in.Materials {
				qty := m.Quantity
				if qty <= 0 {
					qty = 1
				}
				materials = append(materials, models.TaskMaterial{
					TaskID:       task.ID,
					MaterialName: m.Name,
					Quantity:     qty,
				})
			}
			if err := tx.Create(&materials).Error; err != nil {
				return err
			}
		}

		return notifyActiveManagers(tx, 0, models.NotificationTypeTask,
			"New Task Created",
			fmt.Sprintf("New task %q has been created and needs assignment", in.Title))
	})
	if err != nil {
		return 0, "", err
	}
	return taskID, taskCode, nil
}

// Assign validates the target electrician (exists, Electrician role,
// Active) and sets the task's assignee and Assigned status, notifying
// the electrician. Validation and update share one transaction so the
// electrician cannot be deactivated between the check and the write.
func (s *TaskService) Assign(taskID, electricianID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var electrician models.User
		err := tx.Where("id = ? AND role = ? AND status = ?",
			electricianID, models.RoleElectrician, models.StatusActive).
			First(&electrician).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidAssignee
			}
			return err
		}

		updates := map[string]interface{}{
			"assigned_to": electricianID,
			"status":      models.TaskStatusAssigned,
		}
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return err
		}

		return notify(tx, electricianID, models.NotificationTypeTask,
			"New Task Assigned",
			fmt.Sprintf("You have been assigned a new task %s", task.TaskCode))
	})
}

// UpdateStatus transitions the task to newStatus. Entering In Progress
// stamps actual_start_time and entering Completed stamps actual_end_time.
// Every transition is recorded in the activity log.
func (s *TaskService) UpdateStatus(taskID uint, actor Actor, newStatus string) error {
	if !models.ValidTaskStatus(newStatus) {
		return ErrInvalidStatus
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": newStatus}
		switch newStatus {
		case models.TaskStatusInProgress:
			updates["actual_start_time"] = time.Now()
		case models.TaskStatusCompleted:
			updates["actual_end_time"] = time.Now()
		}

		res := tx.Model(&models.Task{}).Where("id = ?", taskID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return logActivity(tx, actor.ID, "Task Status Update",
			fmt.Sprintf("Updated task %d status to %s", taskID, newStatus))
	})
}

// Complete marks the task Completed, upserts its completion record and,
// when the actor is the assigned electrician, increments their completed
// counter. An electrician may only complete tasks assigned to them.
func (s *TaskService) Complete(taskID uint, actor Actor, in CompleteTaskInput) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if actor.Role == models.RoleElectrician {
			if task.AssignedTo == nil || *task.AssignedTo != actor.ID {
				return ErrForbidden
			}
		}

		updates := map[string]interface{}{
			"status":          models.TaskStatusCompleted,
			"actual_end_time": time.Now(),
		}
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return err
		}

		// Upsert: a repeat completion updates the existing row in place
		completion := models.TaskCompletion{
			TaskID:            taskID,
			CompletionNotes:   in.CompletionNotes,
			MaterialsUsed:     in.MaterialsUsed,
			AdditionalCharges: in.AdditionalCharges,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"completion_notes", "materials_used", "additional_charges", "updated_at",
			}),
		}).Create(&completion).Error
		if err != nil {
			return err
		}

		if actor.Role == models.RoleElectrician {
			if err := incrementCompletedCount(tx, actor.ID); err != nil {
				return err
			}
		}

		return logActivity(tx, actor.ID, "Task Completed",
			fmt.Sprintf("Completed task %s", task.TaskCode))
	})
}

// Update rewrites the task's core fields, optionally patches customer
// contact fields, handles a supplied status change (clearing and
// notifying the assignee when moving back to Pending) and replaces the
// material list wholesale when one is supplied. Completed and Cancelled
// tasks are immutable.
func (s *TaskService) Update(taskID uint, actor Actor, in UpdateTaskInput) error {
	if in.Status != "" && !models.ValidTaskStatus(in.Status) {
		return ErrInvalidStatus
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if task.IsTerminal() {
			return ErrTerminalState
		}

		// Customer fields patch with coalesce semantics: only supplied
		// values overwrite what is stored.
		customerUpdates := map[string]interface{}{}
		if in.CustomerName != nil {
			customerUpdates["name"] = *in.CustomerName
		}
		if in.CustomerPhone != nil {
			customerUpdates["phone"] = utils.NormalizePhone(*in.CustomerPhone)
		}
		if in.CustomerAddress != nil {
			customerUpdates["address"] = *in.CustomerAddress
		}
		if len(customerUpdates) > 0 {
			err := tx.Model(&models.Customer{}).
				Where("id = ?", task.CustomerID).
				Updates(customerUpdates).Error
			if err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"title":                in.Title,
			"description":          in.Description,
			"priority":             in.Priority,
			"scheduled_date":       in.ScheduledDate,
			"scheduled_time_start": in.ScheduledTimeStart,
			"scheduled_time_end":   in.ScheduledTimeEnd,
			"estimated_hours":      in.EstimatedHours,
		}

		if in.Status != "" && in.Status != task.Status {
			updates["status"] = in.Status
			switch in.Status {
			case models.TaskStatusPending:
				if task.AssignedTo != nil {
					updates["assigned_to"] = nil
					err := notify(tx, *task.AssignedTo, models.NotificationTypeTask,
						"Task Unassigned",
						fmt.Sprintf("You have been unassigned from task %s", task.TaskCode))
					if err != nil {
						return err
					}
				}
			case models.TaskStatusInProgress:
				updates["actual_start_time"] = time.Now()
			case models.TaskStatusCompleted:
				updates["actual_end_time"] = time.Now()
			}
		}

		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return err
		}

		if in.Materials != nil {
			if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskMaterial{}).Error; err != nil {
				return err
			}
			if len(*in.Materials) > 0 {
				materials := make([]models.TaskMaterial, 0, len(*in.Materials))
				for _, m := range *in.Materials {
					qty := m.Quantity
					if qty <= 0 {
						qty = 1
					}
					materials = append(materials, models.TaskMaterial{
						TaskID:       taskID,
						MaterialName: m.Name,
						Quantity:     qty,
					})
				}
				if err := tx.Create(&materials).Error; err != nil {
					return err
				}
			}
		}

		return logActivity(tx, actor.ID, "Task Update",
			fmt.Sprintf("Updated task %s", task.TaskCode))
	})
}

// Delete removes the task together with its dependent rating, completion,
// material and issue rows so no orphaned dependents remain. Only managers
// and admins may delete, and closed tasks are immutable history.
func (s *TaskService) Delete(taskID uint, actor Actor) error {
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if task.IsTerminal() {
			return ErrTerminalState
		}

		// Dependents first, then the task row itself
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskRating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Issue{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&task).Error; err != nil {
			return err
		}

		return logActivity(tx, actor.ID, "Task Delete",
			fmt.Sprintf("Deleted task %s", task.TaskCode))
	})
}

// AddRating upserts the task's rating and recomputes the assigned
// electrician's average as the mean over every rating on their tasks.
// Full recomputation keeps the aggregate correct after corrections.
func (s *TaskService) AddRating(taskID uint, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		row := models.TaskRating{
			TaskID:   taskID,
			Rating:   rating,
			Feedback: feedback,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "feedback", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if task.AssignedTo == nil {
			return nil
		}
		return recomputeElectricianRating(tx, *task.AssignedTo)
	})
}

// recomputeElectricianRating sets the electrician's rolling average to
// the mean of all ratings across their assigned tasks, creating the
// detail row lazily when absent.
func recomputeElectricianRating(tx *gorm.DB, electricianID uint) error {
	var avg float64
	err := tx.Model(&models.TaskRating{}).
		Select("COALESCE(AVG(task_ratings.rating), 0)").
		Joins("JOIN tasks ON tasks.id = task_ratings.task_id").
		Where("tasks.assigned_to = ?", electricianID).
		Scan(&avg).Error
	if err != nil {
		return err
	}

	if err := ensureElectricianDetail(tx, electricianID); err != nil {
		return err
	}
	return tx.Model(&models.ElectricianDetail{}).
		Where("electrician_id = ?", electricianID).
		Update("rating", avg).Error
}

// incrementCompletedCount bumps the electrician's completed-task counter,
// creating the detail row lazily when absent.
func incrementCompletedCount(tx *gorm.DB, electricianID uint) error {
	if err := ensureElectricianDetail(tx, electricianID); err != nil {
		return err
	}
	return tx.Model(&models.ElectricianDetail{}).
		Where("electrician_id = ?", electricianID).
		Update("total_tasks_completed", gorm.Expr("total_tasks_completed + 1")).Error
}

// ensureElectricianDetail inserts an empty detail row for the electrician
// if none exists yet.
func ensureElectricianDetail(tx *gorm.DB, electricianID uint) error {
	var count int64
	err := tx.Model(&models.ElectricianDetail{}).
		Where("electrician_id = ?", electricianID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now()
	return tx.Create(&models.ElectricianDetail{
		ElectricianID: electricianID,
		JoinDate:      &now,
	}).Error
}

// notify inserts a notification for one user.
func notify(tx *gorm.DB, userID uint, notifType, title, message string) error {
	return tx.Create(&models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}).Error
}

// notifyActiveManagers inserts a notification for every active manager,
// skipping excludeID so a manager is never notified twice for the same event.
func notifyActiveManagers(tx *gorm.DB, excludeID uint, notifType, title, message string) error {
	var managers []models.User
	err := tx.Where("role = ? AND status = ?", models.RoleManager, models.StatusActive).
		Find(&managers).Error
	if err != nil {
		return err
	}

	for _, m := range managers {
		if m.ID == excludeID {
			continue
		}
		if err := notify(tx, m.ID, notifType, title, message); err != nil {
			return err
		}
	}
	return nil
}

// logActivity appends an audit record for the action.
func logActivity(tx *gorm.DB, userID uint, action, description string) error {
	return tx.Create(&models.ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
	}).Error
}
