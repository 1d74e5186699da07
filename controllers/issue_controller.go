package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/services"
)

// UpdateIssueStatusRequest represents the request body for an issue
// status transition
type UpdateIssueStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ResolutionNotes string `json:"resolution_notes"`
}

// issueView is the row shape returned by issue list/detail queries.
type issueView struct {
	models.Issue
	TaskCode       string  `json:"task_code"`
	TaskTitle      string  `json:"task_title"`
	ReportedByName string  `json:"reported_by_name"`
	ResolvedByName *string `json:"resolved_by_name"`
}

// IssueController handles the issue reporting and resolution endpoints.
type IssueController struct {
	db     *gorm.DB
	issues *services.IssueService
}

// NewIssueController creates an IssueController backed by the given database.
func NewIssueController(db *gorm.DB) *IssueController {
	return &IssueController{db: db, issues: services.NewIssueService(db)}
}

// ListIssues handles GET /api/issues - lists issues (Manager/Admin only)
func (ctl *IssueController) ListIssues(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only managers and admins can view all issues",
			},
		})
		return
	}

	query := ctl.db.Model(&models.Issue{}).
		Select("issues.*, tasks.task_code, tasks.title AS task_title, reporters.full_name AS reported_by_name, resolvers.full_name AS resolved_by_name").
		Joins("JOIN tasks ON tasks.id = issues.task_id").
		Joins("JOIN users AS reporters ON reporters.id = issues.reported_by").
		Joins("LEFT JOIN users AS resolvers ON resolvers.id = issues.resolved_by")

	if status := c.Query("status"); status != "" {
		query = query.Where("issues.status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("issues.priority = ?", priority)
	}
	if start := c.Query("start_date"); start != "" {
		query = query.Where("DATE(issues.created_at) >= ?", start)
	}
	if end := c.Query("end_date"); end != "" {
		query = query.Where("DATE(issues.created_at) <= ?", end)
	}

	var issues []issueView
	if err := query.Order("issues.created_at DESC").Scan(&issues).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    issues,
	})
}

// GetIssue handles GET /api/issues/:id - Manager/Admin see any issue; an
// electrician may only view issues they reported themselves.
func (ctl *IssueController) GetIssue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	issueID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var issue issueView
	err := ctl.db.Model(&models.Issue{}).
		Select("issues.*, tasks.task_code, tasks.title AS task_title, reporters.full_name AS reported_by_name, resolvers.full_name AS resolved_by_name").
		Joins("JOIN tasks ON tasks.id = issues.task_id").
		Joins("JOIN users AS reporters ON reporters.id = issues.reported_by").
		Joins("LEFT JOIN users AS resolvers ON resolvers.id = issues.resolved_by").
		Where("issues.id = ?", issueID).
		First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Issue not found",
				},
			})
			return
		}
		respondError(c, err)
		return
	}

	if actor.Role == models.RoleElectrician && issue.ReportedBy != actor.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to view this issue",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    issue,
	})
}

// CreateIssue handles POST /api/issues - reports an issue (Electrician only)
func (ctl *IssueController) CreateIssue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.CreateIssueInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	issueID, err := ctl.issues.Create(actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Issue reported successfully",
		"issue_id": issueID,
	})
}

// UpdateIssueStatus handles PATCH /api/issues/:id/status (Manager/Admin only)
func (ctl *IssueController) UpdateIssueStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	issueID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateIssueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := ctl.issues.UpdateStatus(issueID, actor, req.Status, req.ResolutionNotes); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Issue status updated successfully",
	})
}

// GetIssueStats handles GET /api/issues/stats - issue counts for the
// dashboard (Manager/Admin only)
func (ctl *IssueController) GetIssueStats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Access denied",
			},
		})
		return
	}

	var stats struct {
		TotalIssues      int64 `json:"total_issues"`
		OpenIssues       int64 `json:"open_issues"`
		InProgressIssues int64 `json:"in_progress_issues"`
		ResolvedIssues   int64 `json:"resolved_issues"`
		EmergencyIssues  int64 `json:"emergency_issues"`
		UrgentIssues     int64 `json:"urgent_issues"`
	}

	err := ctl.db.Model(&models.Issue{}).
		Select(`COUNT(*) AS total_issues,
			COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0) AS open_issues,
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0) AS in_progress_issues,
			COALESCE(SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END), 0) AS resolved_issues,
			COALESCE(SUM(CASE WHEN priority = 'emergency' AND status != 'resolved' THEN 1 ELSE 0 END), 0) AS emergency_issues,
			COALESCE(SUM(CASE WHEN priority = 'urgent' AND status != 'resolved' THEN 1 ELSE 0 END), 0) AS urgent_issues`).
		Scan(&stats).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
