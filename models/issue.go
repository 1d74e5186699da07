package models

import (
	"time"
)

// Issue status values. resolved is terminal.
const (
	IssueStatusOpen       = "open"
	IssueStatusInProgress = "in_progress"
	IssueStatusResolved   = "resolved"
)

// Issue priority values
const (
	IssuePriorityNormal    = "normal"
	IssuePriorityUrgent    = "urgent"
	IssuePriorityEmergency = "emergency"
)

// ValidIssueStatus reports whether s is one of the known issue statuses.
func ValidIssueStatus(s string) bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved:
		return true
	}
	return false
}

// Issue is a problem reported by an electrician against one of their
// assigned tasks.
type Issue struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TaskID          uint       `gorm:"not null;index" json:"task_id"`
	Task            Task       `gorm:"foreignKey:TaskID" json:"-"`
	ReportedBy      uint       `gorm:"not null;index" json:"reported_by"`
	Reporter        User       `gorm:"foreignKey:ReportedBy" json:"-"`
	IssueType       string     `gorm:"not null" json:"issue_type"`
	Description     string     `json:"description"`
	Priority        string     `gorm:"not null;default:'normal'" json:"priority"` // normal, urgent or emergency
	Status          string     `gorm:"not null;default:'open'" json:"status"`     // open, in_progress or resolved
	RequestedAction string     `json:"requested_action"`
	ResolvedBy      *uint      `json:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Issue model
func (Issue) TableName() string {
	return "issues"
}
