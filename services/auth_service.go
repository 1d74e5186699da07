package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kandy-electricians/task-management-api/config"
	"github.com/kandy-electricians/task-management-api/middleware"
	"github.com/kandy-electricians/task-management-api/models"
)

// AuthService handles login, token issuance and password changes.
type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthService creates an AuthService backed by the given database.
func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

// Login authenticates an active user by email and password and returns a
// signed token plus the user. Unknown email and wrong password return the
// identical error so callers cannot enumerate accounts.
func (s *AuthService) Login(email, password, ip string) (string, *models.User, error) {
	var user models.User
	err := s.db.Where("email = ? AND status = ?", email, models.StatusActive).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		return "", nil, err
	}

	s.db.Create(&models.ActivityLog{
		UserID:      user.ID,
		Action:      "Login",
		Description: "User logged in",
		IPAddress:   ip,
	})

	token, err := s.IssueToken(&user)
	if err != nil {
		return "", nil, err
	}

	user.LastLogin = &now
	return token, &user, nil
}

// IssueToken signs an HS256 token carrying the user's id, email, role and name.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &middleware.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Name:   user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// ChangePassword verifies the current password and replaces it.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrWeakPassword
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return &Error{Code: "INVALID_PASSWORD", Message: "Current password is incorrect", Status: 401}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.db.Model(&user).Update("password", string(hashed)).Error
}
