package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/middleware"
	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ElectricianDetail{},
		&models.Customer{},
		&models.Task{},
		&models.TaskMaterial{},
		&models.TaskCompletion{},
		&models.TaskRating{},
		&models.Issue{},
		&models.Notification{},
		&models.ActivityLog{},
		&models.Report{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// mockAuthMiddleware simulates EnsureValidToken for testing. It sets up
// the context exactly as the real middleware does after token validation.
func mockAuthMiddleware(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, user.ID)
		c.Set(middleware.ContextUserRole, user.Role)
		c.Set(middleware.ContextUserName, user.FullName)
		c.Next()
	}
}

// createTestUser inserts a user with a bcrypt-hashed password.
func createTestUser(t *testing.T, db *gorm.DB, username, role, status string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Email:    username + "@kandyelectricians.com",
		Password: string(hashed),
		FullName: username + " Test",
		Phone:    "0771234567",
		Role:     role,
		Status:   status,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	return user
}

// createTestTask inserts a task owned by creator, optionally assigned.
func createTestTask(t *testing.T, db *gorm.DB, creator *models.User, status string, assignedTo *uint) *models.Task {
	t.Helper()

	customer := models.Customer{
		Name:  "Test Customer",
		Phone: "0770000000",
	}
	// Reuse the customer when a previous task in the test already created it
	if err := db.Where("phone = ?", customer.Phone).FirstOrCreate(&customer).Error; err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}

	task := &models.Task{
		TaskCode:      utils.GenerateTaskCode(),
		Title:         "Test task",
		Description:   "Fix the wiring",
		CustomerID:    customer.ID,
		CreatedBy:     creator.ID,
		Priority:      models.TaskPriorityMedium,
		Status:        status,
		ScheduledDate: "2026-09-01",
		AssignedTo:    assignedTo,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}
	return task
}

// doRequest performs a JSON request against the router and decodes the
// response envelope.
func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Response is not valid JSON: %v (%s)", err, w.Body.String())
		}
	}
	return w, response
}

// errorCode extracts error.code from a response envelope.
func errorCode(response map[string]interface{}) string {
	errData, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errData["code"].(string)
	return code
}
