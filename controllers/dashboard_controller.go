package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
)

// GenerateReportRequest represents the request body for report generation
type GenerateReportRequest struct {
	ReportType string `json:"report_type" binding:"required"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// DashboardController handles the dashboard, notification and reporting
// endpoints. Everything here is read-only aggregation except the
// fire-and-forget report log.
type DashboardController struct {
	db *gorm.DB
}

// NewDashboardController creates a DashboardController backed by the
// given database.
func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{db: db}
}

// GetStats handles GET /api/dashboard/stats - role-specific counters
func (ctl *DashboardController) GetStats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	stats := gin.H{}

	switch actor.Role {
	case models.RoleAdmin:
		var userCounts struct {
			TotalUsers    int64 `json:"totalUsers"`
			ActiveUsers   int64 `json:"activeUsers"`
			InactiveUsers int64 `json:"inactiveUsers"`
		}
		err := ctl.db.Model(&models.User{}).
			Select(`COUNT(*) AS total_users,
				COALESCE(SUM(CASE WHEN status = 'Active' THEN 1 ELSE 0 END), 0) AS active_users,
				COALESCE(SUM(CASE WHEN status = 'Inactive' THEN 1 ELSE 0 END), 0) AS inactive_users`).
			Scan(&userCounts).Error
		if err != nil {
			respondError(c, err)
			return
		}

		var roleCounts struct {
			TotalAdmins       int64 `json:"totalAdmins"`
			TotalManagers     int64 `json:"totalManagers"`
			TotalElectricians int64 `json:"totalElectricians"`
		}
		err = ctl.db.Model(&models.User{}).
			Select(`COALESCE(SUM(CASE WHEN role = 'Admin' THEN 1 ELSE 0 END), 0) AS total_admins,
				COALESCE(SUM(CASE WHEN role = 'Manager' THEN 1 ELSE 0 END), 0) AS total_managers,
				COALESCE(SUM(CASE WHEN role = 'Electrician' THEN 1 ELSE 0 END), 0) AS total_electricians`).
			Scan(&roleCounts).Error
		if err != nil {
			respondError(c, err)
			return
		}

		var taskCounts struct {
			TotalTasks     int64 `json:"totalTasks"`
			CompletedTasks int64 `json:"completedTasks"`
			PendingTasks   int64 `json:"pendingTasks"`
		}
		err = ctl.db.Model(&models.Task{}).
			Select(`COUNT(*) AS total_tasks,
				COALESCE(SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END), 0) AS completed_tasks,
				COALESCE(SUM(CASE WHEN status = 'Pending' THEN 1 ELSE 0 END), 0) AS pending_tasks`).
			Scan(&taskCounts).Error
		if err != nil {
			respondError(c, err)
			return
		}

		stats["totalUsers"] = userCounts.TotalUsers
		stats["activeUsers"] = userCounts.ActiveUsers
		stats["inactiveUsers"] = userCounts.InactiveUsers
		stats["totalAdmins"] = roleCounts.TotalAdmins
		stats["totalManagers"] = roleCounts.TotalManagers
		stats["totalElectricians"] = roleCounts.TotalElectricians
		stats["totalTasks"] = taskCounts.TotalTasks
		stats["completedTasks"] = taskCounts.CompletedTasks
		stats["pendingTasks"] = taskCounts.PendingTasks

	case models.RoleManager:
		var taskStats struct {
			TotalTasks      int64 `json:"totalTasks"`
			PendingTasks    int64 `json:"pendingTasks"`
			AssignedTasks   int64 `json:"assignedTasks"`
			InProgressTasks int64 `json:"inProgressTasks"`
			CompletedTasks  int64 `json:"completedTasks"`
		}
		err := ctl.db.Model(&models.Task{}).
			Select(`COUNT(*) AS total_tasks,
				COALESCE(SUM(CASE WHEN status = 'Pending' THEN 1 ELSE 0 END), 0) AS pending_tasks,
				COALESCE(SUM(CASE WHEN status = 'Assigned' THEN 1 ELSE 0 END), 0) AS assigned_tasks,
				COALESCE(SUM(CASE WHEN status = 'In Progress' THEN 1 ELSE 0 END), 0) AS in_progress_tasks,
				COALESCE(SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END), 0) AS completed_tasks`).
			Where("created_by = ?", actor.ID).
			Scan(&taskStats).Error
		if err != nil {
			respondError(c, err)
			return
		}

		var availableElectricians int64
		err = ctl.db.Model(&models.User{}).
			Where("role = ? AND status = ?", models.RoleElectrician, models.StatusActive).
			Count(&availableElectricians).Error
		if err != nil {
			respondError(c, err)
			return
		}

		var todayTasks int64
		err = ctl.db.Model(&models.Task{}).
			Where("DATE(created_at) = DATE(?) AND created_by = ?", time.Now(), actor.ID).
			Count(&todayTasks).Error
		if err != nil {
			respondError(c, err)
			return
		}

		stats["totalTasks"] = taskStats.TotalTasks
		stats["pendingTasks"] = taskStats.PendingTasks
		stats["assignedTasks"] = taskStats.AssignedTasks
		stats["inProgressTasks"] = taskStats.InProgressTasks
		stats["completedTasks"] = taskStats.CompletedTasks
		stats["availableElectricians"] = availableElectricians
		stats["todayTasks"] = todayTasks

	case models.RoleElectrician:
		var taskStats struct {
			TotalTasks      int64 `json:"totalTasks"`
			AssignedTasks   int64 `json:"assignedTasks"`
			InProgressTasks int64 `json:"inProgressTasks"`
			CompletedTasks  int64 `json:"completedTasks"`
		}
		err := ctl.db.Model(&models.Task{}).
			Select(`COUNT(*) AS total_tasks,
				COALESCE(SUM(CASE WHEN status = 'Assigned' THEN 1 ELSE 0 END), 0) AS assigned_tasks,
				COALESCE(SUM(CASE WHEN status = 'In Progress' THEN 1 ELSE 0 END), 0) AS in_progress_tasks,
				COALESCE(SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END), 0) AS completed_tasks`).
			Where("assigned_to = ?", actor.ID).
			Scan(&taskStats).Error
		if err != nil {
			respondError(c, err)
			return
		}

		var todayStats struct {
			TodayTasks     int64 `json:"todayTasks"`
			TodayCompleted int64 `json:"todayCompleted"`
		}
		err = ctl.db.Model(&models.Task{}).
			Select(`COUNT(*) AS today_tasks,
				COALESCE(SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END), 0) AS today_completed`).
			Where("assigned_to = ? AND scheduled_date = ?", actor.ID, time.Now().Format("2006-01-02")).
			Scan(&todayStats).Error
		if err != nil {
			respondError(c, err)
			return
		}

		stats["totalTasks"] = taskStats.TotalTasks
		stats["assignedTasks"] = taskStats.AssignedTasks
		stats["inProgressTasks"] = taskStats.InProgressTasks
		stats["completedTasks"] = taskStats.CompletedTasks
		stats["todayTasks"] = todayStats.TodayTasks
		stats["todayCompleted"] = todayStats.TodayCompleted
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetRecentActivities handles GET /api/dashboard/activities - admins see
// everyone's trail, everyone else only their own.
func (ctl *DashboardController) GetRecentActivities(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	type activityView struct {
		ID          uint      `json:"id"`
		Action      string    `json:"action"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
		UserName    string    `json:"user_name,omitempty"`
		UserRole    string    `json:"user_role,omitempty"`
	}

	var activities []activityView
	if actor.Role == models.RoleAdmin {
		err := ctl.db.Model(&models.ActivityLog{}).
			Select("activity_logs.id, activity_logs.action, activity_logs.description, activity_logs.created_at, users.full_name AS user_name, users.role AS user_role").
			Joins("JOIN users ON users.id = activity_logs.user_id").
			Order("activity_logs.created_at DESC").
			Limit(20).
			Scan(&activities).Error
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		err := ctl.db.Model(&models.ActivityLog{}).
			Select("id, action, description, created_at").
			Where("user_id = ?", actor.ID).
			Order("created_at DESC").
			Limit(20).
			Scan(&activities).Error
		if err != nil {
			respondError(c, err)
			return
		}
	}

	if activities == nil {
		activities = []activityView{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    activities,
	})
}

// GetNotifications handles GET /api/dashboard/notifications - the
// caller's latest notifications
func (ctl *DashboardController) GetNotifications(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var notifications []models.Notification
	err := ctl.db.Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Limit(10).
		Find(&notifications).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
	})
}

// MarkNotificationRead handles PATCH /api/dashboard/notifications/:id/read
func (ctl *DashboardController) MarkNotificationRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	notifID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Scoped to the caller so nobody can mark another user's notices
	err := ctl.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notifID, actor.ID).
		Update("is_read", true).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marked as read",
	})
}

// GenerateReport handles POST /api/dashboard/reports. Only the
// user_performance report is supported; writing the reports row is
// fire-and-forget and never fails the response.
func (ctl *DashboardController) GenerateReport(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if req.ReportType != "user_performance" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REPORT_TYPE",
				"message": "Invalid report type. Supported type: user_performance",
			},
		})
		return
	}

	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Unauthorized to generate this report",
			},
		})
		return
	}

	type performanceRow struct {
		ID             uint     `json:"id"`
		FullName       string   `json:"full_name"`
		EmployeeCode   string   `json:"employee_code"`
		TotalTasks     int      `json:"total_tasks"`
		CompletedTasks int      `json:"completed_tasks"`
		AvgRating      *float64 `json:"avg_rating"`
	}

	var performance []performanceRow
	err := ctl.db.Model(&models.User{}).
		Select(`users.id, users.full_name, users.employee_code,
			COUNT(tasks.id) AS total_tasks,
			COALESCE(SUM(CASE WHEN tasks.status = 'Completed' THEN 1 ELSE 0 END), 0) AS completed_tasks,
			AVG(task_ratings.rating) AS avg_rating`).
		Joins("LEFT JOIN tasks ON tasks.assigned_to = users.id").
		Joins("LEFT JOIN task_ratings ON task_ratings.task_id = tasks.id").
		Where("users.role = ? AND users.status = ?", models.RoleElectrician, models.StatusActive).
		Group("users.id, users.full_name, users.employee_code").
		Order("users.full_name").
		Scan(&performance).Error
	if err != nil {
		respondError(c, err)
		return
	}
	if performance == nil {
		performance = []performanceRow{}
	}

	var summary struct {
		TotalElectricians  int64    `json:"total_electricians"`
		TotalTasksAssigned int64    `json:"total_tasks_assigned"`
		TotalCompleted     int64    `json:"total_completed"`
		OverallAvgRating   *float64 `json:"overall_avg_rating"`
	}
	err = ctl.db.Model(&models.User{}).
		Select(`COUNT(DISTINCT users.id) AS total_electricians,
			COUNT(tasks.id) AS total_tasks_assigned,
			COALESCE(SUM(CASE WHEN tasks.status = 'Completed' THEN 1 ELSE 0 END), 0) AS total_completed,
			AVG(task_ratings.rating) AS overall_avg_rating`).
		Joins("LEFT JOIN tasks ON tasks.assigned_to = users.id").
		Joins("LEFT JOIN task_ratings ON task_ratings.task_id = tasks.id").
		Where("users.role = ? AND users.status = ?", models.RoleElectrician, models.StatusActive).
		Scan(&summary).Error
	if err != nil {
		respondError(c, err)
		return
	}

	var bestPerformer struct {
		FullName string `json:"full_name"`
	}
	ctl.db.Model(&models.User{}).
		Select(`users.full_name,
			(COUNT(CASE WHEN tasks.status = 'Completed' THEN 1 END) * COALESCE(AVG(task_ratings.rating), 1)) AS performance_score`).
		Joins("LEFT JOIN tasks ON tasks.assigned_to = users.id").
		Joins("LEFT JOIN task_ratings ON task_ratings.task_id = tasks.id").
		Where("users.role = ? AND users.status = ?", models.RoleElectrician, models.StatusActive).
		Group("users.id, users.full_name").
		Having("COUNT(tasks.id) > 0").
		Order("performance_score DESC").
		Limit(1).
		Scan(&bestPerformer)

	best := bestPerformer.FullName
	if best == "" {
		best = "N/A"
	}

	reportData := gin.H{
		"performance": performance,
		"summary": gin.H{
			"total_electricians":   summary.TotalElectricians,
			"total_tasks_assigned": summary.TotalTasksAssigned,
			"total_completed":      summary.TotalCompleted,
			"overall_avg_rating":   summary.OverallAvgRating,
			"best_performer":       best,
		},
		"report_date": time.Now().Format(time.RFC3339),
	}

	// Fire-and-forget: a failed report log must not fail the report
	params, _ := json.Marshal(gin.H{"start_date": req.StartDate, "end_date": req.EndDate})
	if err := ctl.db.Create(&models.Report{
		ReportType:  req.ReportType,
		GeneratedBy: actor.ID,
		Parameters:  string(params),
	}).Error; err != nil {
		log.Printf("Failed to log report generation: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reportData,
	})
}
