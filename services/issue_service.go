package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
)

// CreateIssueInput carries a new issue report.
type CreateIssueInput struct {
	TaskID          uint   `json:"task_id" binding:"required"`
	IssueType       string `json:"issue_type" binding:"required"`
	Description     string `json:"description"`
	Priority        string `json:"priority" binding:"omitempty,oneof=normal urgent emergency"`
	RequestedAction string `json:"requested_action"`
}

// IssueService implements the issue reporting and resolution workflow.
type IssueService struct {
	db *gorm.DB
}

// NewIssueService creates an IssueService backed by the given database.
func NewIssueService(db *gorm.DB) *IssueService {
	return &IssueService{db: db}
}

// Create inserts an issue reported by an electrician against one of
// their assigned tasks and notifies the task's creator plus every other
// active manager, atomically. Returns the new issue's id.
func (s *IssueService) Create(reporter Actor, in CreateIssueInput) (uint, error) {
	if reporter.Role != models.RoleElectrician {
		return 0, ErrForbidden
	}

	var issueID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		err := tx.Where("id = ? AND assigned_to = ?", in.TaskID, reporter.ID).First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidTask
			}
			return err
		}

		priority := in.Priority
		if priority == "" {
			priority = models.IssuePriorityNormal
		}

		issue := models.Issue{
			TaskID:          in.TaskID,
			ReportedBy:      reporter.ID,
			IssueType:       in.IssueType,
			Description:     in.Description,
			Priority:        priority,
			Status:          models.IssueStatusOpen,
			RequestedAction: in.RequestedAction,
		}
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}
		issueID = issue.ID

		message := fmt.Sprintf("An issue has been reported for task %q - %s", task.Title, in.IssueType)
		if err := notify(tx, task.CreatedBy, models.NotificationTypeIssue, "New Issue Reported", message); err != nil {
			return err
		}

		// Other active managers, without a duplicate to the creator
		return notifyActiveManagers(tx, task.CreatedBy, models.NotificationTypeIssue,
			"New Issue Reported", message)
	})
	if err != nil {
		return 0, err
	}
	return issueID, nil
}

// UpdateStatus moves the issue to newStatus. Resolving stamps resolver
// and timestamp, appends any resolution notes to the description without
// destroying it, and notifies the original reporter, all atomically.
func (s *IssueService) UpdateStatus(issueID uint, actor Actor, newStatus, resolutionNotes string) error {
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if !models.ValidIssueStatus(newStatus) {
		return ErrInvalidStatus
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var issue models.Issue
		if err := tx.First(&issue, issueID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.IssueStatusResolved {
			updates["resolved_at"] = time.Now()
			updates["resolved_by"] = actor.ID
			if resolutionNotes != "" {
				updates["description"] = fmt.Sprintf("%s\n\nRESOLUTION: %s", issue.Description, resolutionNotes)
			}
		}

		if err := tx.Model(&issue).Updates(updates).Error; err != nil {
			return err
		}

		if newStatus == models.IssueStatusResolved {
			return notify(tx, issue.ReportedBy, models.NotificationTypeIssue,
				"Issue Resolved",
				fmt.Sprintf("Your reported issue %q has been resolved.", issue.IssueType))
		}
		return nil
	})
}
