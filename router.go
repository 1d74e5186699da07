package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/config"
	"github.com/kandy-electricians/task-management-api/controllers"
	"github.com/kandy-electricians/task-management-api/middleware"
	"github.com/kandy-electricians/task-management-api/models"
)

// setupRouter builds the full route tree with authentication and role
// gates. Fine-grained ownership checks live in the handlers/services.
func setupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	authController := controllers.NewAuthController(db, cfg)
	userController := controllers.NewUserController(db)
	taskController := controllers.NewTaskController(db)
	issueController := controllers.NewIssueController(db)
	dashboardController := controllers.NewDashboardController(db)

	api := router.Group("/api")

	// Health check endpoint
	api.GET("/health", healthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/change-password", middleware.EnsureValidToken(cfg), authController.ChangePassword)
	}

	users := api.Group("/users", middleware.EnsureValidToken(cfg))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userController.ListUsers)
		users.GET("/electricians", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), userController.GetElectricians)
		users.GET("/me", userController.GetMyProfile)
		users.GET("/:id", userController.GetUser)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userController.CreateUser)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userController.UpdateUser)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userController.DeleteUser)
		users.PATCH("/:id/toggle-status", middleware.RequireRoles(models.RoleAdmin), userController.ToggleUserStatus)
		users.POST("/:id/reset-password", middleware.RequireRoles(models.RoleAdmin), userController.ResetUserPassword)
	}

	tasks := api.Group("/tasks", middleware.EnsureValidToken(cfg))
	{
		tasks.GET("", taskController.ListTasks)
		tasks.GET("/:id", taskController.GetTask)
		tasks.POST("", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), taskController.CreateTask)
		tasks.PUT("/:id", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), taskController.UpdateTask)
		tasks.PATCH("/:id/assign", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), taskController.AssignTask)
		tasks.PATCH("/:id/status", taskController.UpdateTaskStatus)
		tasks.POST("/:id/complete", middleware.RequireRoles(models.RoleElectrician), taskController.CompleteTask)
		tasks.POST("/:id/rating", taskController.RateTask)
		tasks.DELETE("/:id", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), taskController.DeleteTask)
	}

	issues := api.Group("/issues", middleware.EnsureValidToken(cfg))
	{
		issues.GET("/stats", issueController.GetIssueStats)
		issues.GET("", issueController.ListIssues)
		issues.GET("/:id", issueController.GetIssue)
		issues.POST("", issueController.CreateIssue)
		issues.PATCH("/:id/status", issueController.UpdateIssueStatus)
	}

	dashboard := api.Group("/dashboard", middleware.EnsureValidToken(cfg))
	{
		dashboard.GET("/stats", dashboardController.GetStats)
		dashboard.GET("/activities", dashboardController.GetRecentActivities)
		dashboard.GET("/notifications", dashboardController.GetNotifications)
		dashboard.PATCH("/notifications/:id/read", dashboardController.MarkNotificationRead)
		dashboard.POST("/reports", dashboardController.GenerateReport)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task Management API is running",
	})
}
