package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/config"
	"github.com/kandy-electricians/task-management-api/middleware"
	"github.com/kandy-electricians/task-management-api/models"
)

func authTestConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		JWTExpire: time.Hour,
	}
}

func authRouter(db *gorm.DB, cfg *config.Config, user *models.User) *gin.Engine {
	router := setupTestRouter()
	ctl := NewAuthController(db, cfg)

	router.POST("/auth/login", ctl.Login)
	router.POST("/auth/change-password", mockAuthMiddleware(user), ctl.ChangePassword)
	return router
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	cfg := authTestConfig()
	user := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	router := authRouter(db, cfg, nil)

	w, response := doRequest(t, router, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    user.Email,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, response["success"].(bool))
	assert.NotEmpty(t, response["token"])

	payload := response["user"].(map[string]interface{})
	assert.Equal(t, user.Email, payload["email"])
	assert.Equal(t, models.RoleElectrician, payload["role"])

	// The token verifies against the configured secret and carries identity
	claims := &middleware.TokenClaims{}
	_, err := jwt.ParseWithClaims(response["token"].(string), claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleElectrician, claims.Role)

	// Login stamps last_login and leaves an audit trail
	var refreshed models.User
	assert.NoError(t, db.First(&refreshed, user.ID).Error)
	assert.NotNil(t, refreshed.LastLogin)

	var log models.ActivityLog
	assert.NoError(t, db.Where("user_id = ? AND action = ?", user.ID, "Login").First(&log).Error)
}

func TestLogin_Rejections(t *testing.T) {
	db := setupTestDB(t)
	cfg := authTestConfig()
	active := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	inactive := createTestUser(t, db, "retired", models.RoleElectrician, models.StatusInactive)
	router := authRouter(db, cfg, nil)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@kandyelectricians.com", "password123"},
		{"wrong password", active.Email, "wrongpass"},
		{"inactive account", inactive.Email, "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := doRequest(t, router, http.MethodPost, "/auth/login", map[string]interface{}{
				"email":    tt.email,
				"password": tt.password,
			})
			// Identical response for every failure mode
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INVALID_CREDENTIALS", errorCode(response))
		})
	}

	// Malformed email fails binding before any lookup
	w, response := doRequest(t, router, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	cfg := authTestConfig()
	user := createTestUser(t, db, "sparky", models.RoleElectrician, models.StatusActive)
	router := authRouter(db, cfg, user)

	// Wrong current password
	w, response := doRequest(t, router, http.MethodPost, "/auth/change-password", map[string]interface{}{
		"current_password": "wrongpass",
		"new_password":     "newsecret1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_PASSWORD", errorCode(response))

	// Too-short replacement fails binding
	w, response = doRequest(t, router, http.MethodPost, "/auth/change-password", map[string]interface{}{
		"current_password": "password123",
		"new_password":     "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	// Happy path
	w, _ = doRequest(t, router, http.MethodPost, "/auth/change-password", map[string]interface{}{
		"current_password": "password123",
		"new_password":     "newsecret1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var refreshed models.User
	assert.NoError(t, db.First(&refreshed, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(refreshed.Password), []byte("newsecret1")))

	// The old password no longer works at login
	w, response = doRequest(t, router, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    user.Email,
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(response))
}
