package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/services"
)

// AssignTaskRequest represents the request body for assigning a task
type AssignTaskRequest struct {
	ElectricianID uint `json:"electrician_id" binding:"required"`
}

// UpdateTaskStatusRequest represents the request body for a status transition
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RateTaskRequest represents the request body for rating a task
type RateTaskRequest struct {
	Rating   int    `json:"rating" binding:"required"`
	Feedback string `json:"feedback"`
}

// TaskController handles the task lifecycle endpoints.
type TaskController struct {
	db    *gorm.DB
	tasks *services.TaskService
}

// NewTaskController creates a TaskController backed by the given database.
func NewTaskController(db *gorm.DB) *TaskController {
	return &TaskController{db: db, tasks: services.NewTaskService(db)}
}

// ListTasks handles GET /api/tasks - lists tasks, filtered by the
// caller's role. Electricians only ever see their own assignments.
func (ctl *TaskController) ListTasks(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	query := ctl.db.Model(&models.Task{}).
		Preload("Customer").
		Preload("Assignee")

	if actor.Role == models.RoleElectrician {
		query = query.Where("assigned_to = ?", actor.ID)
	} else if electricianID := c.Query("electrician_id"); electricianID != "" {
		query = query.Where("assigned_to = ?", electricianID)
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := c.Query("date"); date != "" {
		query = query.Where("scheduled_date = ?", date)
	}

	var tasks []models.Task
	if err := query.Order("scheduled_date DESC").Order("priority DESC").Find(&tasks).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
	})
}

// GetTask handles GET /api/tasks/:id - returns the task with its
// customer, assignee, materials, completion and rating.
func (ctl *TaskController) GetTask(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var task models.Task
	err := ctl.db.Preload("Customer").Preload("Assignee").First(&task, taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Task not found",
				},
			})
			return
		}
		respondError(c, err)
		return
	}

	// Electricians may only read their own assignments
	if actor.Role == models.RoleElectrician {
		if task.AssignedTo == nil || *task.AssignedTo != actor.ID {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "You do not have permission to view this task",
				},
			})
			return
		}
	}

	var materials []models.TaskMaterial
	if err := ctl.db.Where("task_id = ?", taskID).Find(&materials).Error; err != nil {
		respondError(c, err)
		return
	}

	var completion *models.TaskCompletion
	var compRow models.TaskCompletion
	if err := ctl.db.Where("task_id = ?", taskID).First(&compRow).Error; err == nil {
		completion = &compRow
	}

	var rating *models.TaskRating
	var ratingRow models.TaskRating
	if err := ctl.db.Where("task_id = ?", taskID).First(&ratingRow).Error; err == nil {
		rating = &ratingRow
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"task":       task,
			"materials":  materials,
			"completion": completion,
			"rating":     rating,
		},
	})
}

// CreateTask handles POST /api/tasks - creates a task (Manager/Admin only)
func (ctl *TaskController) CreateTask(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	taskID, taskCode, err := ctl.tasks.Create(actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Task created successfully",
		"task_id":   taskID,
		"task_code": taskCode,
	})
}

// UpdateTask handles PUT /api/tasks/:id - rewrites a task (Manager/Admin only)
func (ctl *TaskController) UpdateTask(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.tasks.Update(taskID, actor, req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task updated successfully",
	})
}

// AssignTask handles PATCH /api/tasks/:id/assign - assigns an
// electrician (Manager/Admin only)
func (ctl *TaskController) AssignTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.tasks.Assign(taskID, req.ElectricianID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task assigned successfully",
	})
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
func (ctl *TaskController) UpdateTaskStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.tasks.UpdateStatus(taskID, actor, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task status updated successfully",
	})
}

// CompleteTask handles POST /api/tasks/:id/complete (Electrician only)
func (ctl *TaskController) CompleteTask(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CompleteTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.tasks.Complete(taskID, actor, req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task completed successfully",
	})
}

// RateTask handles POST /api/tasks/:id/rating
func (ctl *TaskController) RateTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.tasks.AddRating(taskID, req.Rating, req.Feedback); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Rating added successfully",
	})
}

// DeleteTask handles DELETE /api/tasks/:id (Manager/Admin only)
func (ctl *TaskController) DeleteTask(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctl.tasks.Delete(taskID, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
	})
}
