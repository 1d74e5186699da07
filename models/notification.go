package models

import (
	"time"
)

// Notification types
const (
	NotificationTypeTask  = "task"
	NotificationTypeIssue = "issue"
)

// Notification is an append-only per-user notice produced as a side
// effect of task and issue events.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Type      string    `gorm:"not null" json:"type"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// ActivityLog is an append-only audit record of a significant action.
type ActivityLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	Action      string    `gorm:"not null" json:"action"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the ActivityLog model
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// Report records that a dashboard report was generated. Writing this row
// is fire-and-forget: a failure must never fail the report response.
type Report struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ReportType  string    `gorm:"not null" json:"report_type"`
	GeneratedBy uint      `gorm:"not null" json:"generated_by"`
	Parameters  string    `json:"parameters"` // JSON-encoded request parameters
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the Report model
func (Report) TableName() string {
	return "reports"
}
