package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/config"
	"github.com/kandy-electricians/task-management-api/models"
	"github.com/kandy-electricians/task-management-api/services"
)

// SeedUser inserts a user with the password "password123" and returns it.
func SeedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
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
		Status:   models.StatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %q: %v", username, err)
	}
	return user
}

// IssueToken signs a real token for the user through the same code path
// the login endpoint uses.
func IssueToken(t *testing.T, db *gorm.DB, cfg *config.Config, user *models.User) string {
	t.Helper()

	token, err := services.NewAuthService(db, cfg).IssueToken(user)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}
