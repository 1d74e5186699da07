package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/models"
)

func userRouter(db *gorm.DB, user *models.User) *gin.Engine {
	router := setupTestRouter()
	ctl := NewUserController(db)

	g := router.Group("/users", mockAuthMiddleware(user))
	g.GET("", ctl.ListUsers)
	g.GET("/me", ctl.GetMyProfile)
	g.GET("/electricians", ctl.GetElectricians)
	g.GET("/:id", ctl.GetUser)
	g.POST("", ctl.CreateUser)
	g.PUT("/:id", ctl.UpdateUser)
	g.DELETE("/:id", ctl.DeleteUser)
	g.PATCH("/:id/toggle-status", ctl.ToggleUserStatus)
	g.POST("/:id/reset-password", ctl.ResetUserPassword)
	return router
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	router := userRouter(db, admin)

	w, response := doRequest(t, router, http.MethodPost, "/users", map[string]interface{}{
		"username":      "newsparky",
		"email":         "newsparky@kandyelectricians.com",
		"password":      "secret123",
		"full_name":     "Ruwan Jayasinghe",
		"phone":         "071 555-6677",
		"role":          models.RoleElectrician,
		"employee_code": "EMP-021",
		"skills":        "Residential wiring",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	userID := uint(response["user_id"].(float64))

	var user models.User
	assert.NoError(t, db.First(&user, userID).Error)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.Equal(t, "0715556677", user.Phone)
	assert.Equal(t, "EMP-021", user.EmployeeCode)

	// Password stored as a bcrypt hash, never plaintext
	assert.NotEqual(t, "secret123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))

	// Electrician role with an employee code gets a detail row
	var detail models.ElectricianDetail
	assert.NoError(t, db.Where("electrician_id = ?", userID).First(&detail).Error)
	assert.Equal(t, "Residential wiring", detail.Skills)
	assert.NotNil(t, detail.JoinDate)

	var log models.ActivityLog
	assert.NoError(t, db.Where("user_id = ? AND action = ?", admin.ID, "Create User").First(&log).Error)
}

func TestCreateUser_ManagerHasNoDetailRow(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	router := userRouter(db, admin)

	w, response := doRequest(t, router, http.MethodPost, "/users", map[string]interface{}{
		"username":  "newmanager",
		"email":     "newmanager@kandyelectricians.com",
		"password":  "secret123",
		"full_name": "Sanduni Perera",
		"phone":     "0715550000",
		"role":      models.RoleManager,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	db.Model(&models.ElectricianDetail{}).
		Where("electrician_id = ?", uint(response["user_id"].(float64))).
		Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateUser_Duplicates(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	existing := createTestUser(t, db, "taken", models.RoleElectrician, models.StatusActive)
	router := userRouter(db, admin)

	base := map[string]interface{}{
		"password":  "secret123",
		"full_name": "Someone Else",
		"phone":     "0715551111",
		"role":      models.RoleElectrician,
	}

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"duplicate email", "freshname", existing.Email},
		{"duplicate username", existing.Username, "fresh@kandyelectricians.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]interface{}{"username": tt.username, "email": tt.email}
			for k, v := range base {
				body[k] = v
			}
			w, response := doRequest(t, router, http.MethodPost, "/users", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "USER_EXISTS", errorCode(response))
		})
	}
}

func TestUpdateUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	electrician := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	router := userRouter(db, admin)

	w, _ := doRequest(t, router, http.MethodPut, fmt.Sprintf("/users/%d", electrician.ID),
		map[string]interface{}{
			"full_name": "Sparky Renamed",
			"phone":     "0770009999",
			"status":    models.StatusInactive,
			"skills":    "Industrial panels",
		})
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	assert.NoError(t, db.First(&updated, electrician.ID).Error)
	assert.Equal(t, "Sparky Renamed", updated.FullName)
	assert.Equal(t, models.StatusInactive, updated.Status)

	// Detail row created lazily on first electrician update
	var detail models.ElectricianDetail
	assert.NoError(t, db.Where("electrician_id = ?", electrician.ID).First(&detail).Error)
	assert.Equal(t, "Industrial panels", detail.Skills)
}

func TestDeleteUser_Protections(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	router := userRouter(db, admin)

	// An admin cannot delete their own account
	w, response := doRequest(t, router, http.MethodDelete, fmt.Sprintf("/users/%d", admin.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SELF_DELETE", errorCode(response))

	// The last active admin is protected even from other admins
	inactiveAdmin := createTestUser(t, db, "admin2", models.RoleAdmin, models.StatusInactive)
	w, response = doRequest(t, userRouter(db, inactiveAdmin), http.MethodDelete,
		fmt.Sprintf("/users/%d", admin.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LAST_ADMIN", errorCode(response))

	// With a second active admin the deletion goes through
	admin3 := createTestUser(t, db, "admin3", models.RoleAdmin, models.StatusActive)
	w, _ = doRequest(t, userRouter(db, admin3), http.MethodDelete,
		fmt.Sprintf("/users/%d", admin.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.User{}).Where("id = ?", admin.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	w, response = doRequest(t, userRouter(db, admin3), http.MethodDelete, "/users/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(response))
}

func TestDeleteUser_Cascade(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	electrician := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	router := userRouter(db, admin)

	// The electrician carries a detail row, notifications, an assigned
	// task with completion and rating, and a task they created
	db.Create(&models.ElectricianDetail{ElectricianID: electrician.ID, Rating: 4.5})
	db.Create(&models.Notification{UserID: electrician.ID, Type: models.NotificationTypeTask, Title: "x", Message: "y"})

	assigned := createTestTask(t, db, admin, models.TaskStatusCompleted, &electrician.ID)
	db.Create(&models.TaskCompletion{TaskID: assigned.ID, CompletionNotes: "done"})
	db.Create(&models.TaskRating{TaskID: assigned.ID, Rating: 5})

	created := createTestTask(t, db, electrician, models.TaskStatusPending, nil)

	w, _ := doRequest(t, router, http.MethodDelete, fmt.Sprintf("/users/%d", electrician.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Dependent rows are gone
	var count int64
	db.Model(&models.ElectricianDetail{}).Where("electrician_id = ?", electrician.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.Notification{}).Where("user_id = ?", electrician.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.TaskCompletion{}).Where("task_id = ?", assigned.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.TaskRating{}).Where("task_id = ?", assigned.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Tasks survive: the assigned one unassigned, the created one handed
	// to a remaining admin
	var survivor models.Task
	assert.NoError(t, db.First(&survivor, assigned.ID).Error)
	assert.Nil(t, survivor.AssignedTo)

	survivor = models.Task{}
	assert.NoError(t, db.First(&survivor, created.ID).Error)
	assert.Equal(t, admin.ID, survivor.CreatedBy)
}

func TestToggleUserStatus(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	electrician := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	router := userRouter(db, admin)

	w, response := doRequest(t, router, http.MethodPatch,
		fmt.Sprintf("/users/%d/toggle-status", electrician.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, response["message"], "deactivated")

	var user models.User
	assert.NoError(t, db.First(&user, electrician.ID).Error)
	assert.Equal(t, models.StatusInactive, user.Status)

	w, response = doRequest(t, router, http.MethodPatch,
		fmt.Sprintf("/users/%d/toggle-status", electrician.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, response["message"], "activated")

	assert.NoError(t, db.First(&user, electrician.ID).Error)
	assert.Equal(t, models.StatusActive, user.Status)
}

func TestResetUserPassword(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	electrician := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	router := userRouter(db, admin)

	// Too-short password fails binding
	w, response := doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/users/%d/reset-password", electrician.ID),
		map[string]interface{}{"new_password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/users/%d/reset-password", electrician.ID),
		map[string]interface{}{"new_password": "brandnew99"})
	assert.Equal(t, http.StatusOK, w.Code)

	var user models.User
	assert.NoError(t, db.First(&user, electrician.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("brandnew99")))
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin1", models.RoleAdmin, models.StatusActive)
	createTestUser(t, db, "manager1", models.RoleManager, models.StatusActive)
	sparky := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	db.Create(&models.ElectricianDetail{ElectricianID: sparky.ID, Skills: "Wiring", Rating: 4.2})
	router := userRouter(db, admin)

	w, response := doRequest(t, router, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"].([]interface{}), 3)

	// Password hashes never leak through the list endpoint
	for _, row := range response["data"].([]interface{}) {
		_, exposed := row.(map[string]interface{})["password"]
		assert.False(t, exposed)
	}

	w, response = doRequest(t, router, http.MethodGet, "/users?role=Electrician", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	rows := response["data"].([]interface{})
	assert.Len(t, rows, 1)
	assert.Equal(t, "Wiring", rows[0].(map[string]interface{})["skills"])
}

func TestGetMyProfile(t *testing.T) {
	db := setupTestDB(t)
	electrician := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	db.Create(&models.ElectricianDetail{ElectricianID: electrician.ID, Skills: "Panels", Rating: 3.8})
	router := userRouter(db, electrician)

	w, response := doRequest(t, router, http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, electrician.Username, data["username"])
	assert.Equal(t, "Panels", data["skills"])
}

func TestGetElectricians(t *testing.T) {
	db := setupTestDB(t)
	manager := createTestUser(t, db, "manager1", models.RoleManager, models.StatusActive)
	high := createTestUser(t, db, "high", models.RoleElectrician, models.StatusActive)
	low := createTestUser(t, db, "low", models.RoleElectrician, models.StatusActive)
	inactive := createTestUser(t, db, "inactive", models.RoleElectrician, models.StatusInactive)
	db.Create(&models.ElectricianDetail{ElectricianID: high.ID, Rating: 4.8})
	db.Create(&models.ElectricianDetail{ElectricianID: low.ID, Rating: 3.1})
	db.Create(&models.ElectricianDetail{ElectricianID: inactive.ID, Rating: 5.0})

	// One task in flight for the lower-rated electrician
	createTestTask(t, db, manager, models.TaskStatusInProgress, &low.ID)

	router := userRouter(db, manager)
	w, response := doRequest(t, router, http.MethodGet, "/users/electricians", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	rows := response["data"].([]interface{})
	assert.Len(t, rows, 2)

	// Ordered by rating, inactive roster members excluded
	first := rows[0].(map[string]interface{})
	second := rows[1].(map[string]interface{})
	assert.Equal(t, high.FullName, first["full_name"])
	assert.Equal(t, float64(0), first["current_tasks"])
	assert.Equal(t, low.FullName, second["full_name"])
	assert.Equal(t, float64(1), second["current_tasks"])
}
