package models

import (
	"time"
)

// Task status values. Completed and Cancelled are terminal: once a task
// reaches either state it may no longer be updated or reassigned.
const (
	TaskStatusPending    = "Pending"
	TaskStatusAssigned   = "Assigned"
	TaskStatusInProgress = "In Progress"
	TaskStatusCompleted  = "Completed"
	TaskStatusCancelled  = "Cancelled"
)

// Task priority values
const (
	TaskPriorityHigh   = "High"
	TaskPriorityMedium = "Medium"
	TaskPriorityLow    = "Low"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Task represents a job carried out for a customer
type Task struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TaskCode           string     `gorm:"uniqueIndex;not null" json:"task_code"` // human-facing code, distinct from id
	Title              string     `gorm:"not null" json:"title"`
	Description        string     `json:"description"`
	CustomerID         uint       `gorm:"not null;index" json:"customer_id"`
	Customer           Customer   `gorm:"foreignKey:CustomerID" json:"customer"`
	AssignedTo         *uint      `gorm:"index" json:"assigned_to"` // nullable, set on assignment
	Assignee           *User      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedBy          uint       `gorm:"not null;index" json:"created_by"`
	Creator            User       `gorm:"foreignKey:CreatedBy" json:"-"`
	Priority           string     `gorm:"not null;default:'Medium'" json:"priority"` // High, Medium or Low
	Status             string     `gorm:"not null;default:'Pending'" json:"status"`
	ScheduledDate      string     `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTimeStart string     `json:"scheduled_time_start"`
	ScheduledTimeEnd   string     `json:"scheduled_time_end"`
	EstimatedHours     float64    `json:"estimated_hours"`
	ActualStartTime    *time.Time `json:"actual_start_time"` // stamped when entering In Progress
	ActualEndTime      *time.Time `json:"actual_end_time"`   // stamped when entering Completed
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}

// IsTerminal reports whether the task is in a terminal state.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled
}

// TaskMaterial is a material line item on a task. The set of materials
// for a task is replaced wholesale on update, never patched row by row.
type TaskMaterial struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	MaterialName string    `gorm:"not null" json:"material_name"`
	Quantity     int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the TaskMaterial model
func (TaskMaterial) TableName() string {
	return "task_materials"
}

// TaskCompletion holds the completion record for a task. At most one row
// exists per task; repeat completions update the existing row in place.
type TaskCompletion struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	TaskID            uint      `gorm:"uniqueIndex;not null" json:"task_id"`
	CompletionNotes   string    `json:"completion_notes"`
	MaterialsUsed     string    `json:"materials_used"`
	AdditionalCharges float64   `gorm:"default:0" json:"additional_charges"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for the TaskCompletion model
func (TaskCompletion) TableName() string {
	return "task_completions"
}

// TaskRating holds the customer rating for a task, at most one per task.
// Writing a rating recomputes the assigned electrician's rolling average
// from all of their rated tasks.
type TaskRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"uniqueIndex;not null" json:"task_id"`
	Rating    int       `gorm:"not null" json:"rating"` // 1..5
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the TaskRating model
func (TaskRating) TableName() string {
	return "task_ratings"
}
