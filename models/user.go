package models

import (
	"time"
)

// Role values for User.Role
const (
	RoleAdmin       = "Admin"
	RoleManager     = "Manager"
	RoleElectrician = "Electrician"
)

// Status values for User.Status
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// User represents a system user (admin, manager or electrician)
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	FullName     string     `gorm:"not null" json:"full_name"`
	Phone        string     `json:"phone"`
	Role         string     `gorm:"not null;default:'Electrician'" json:"role"` // Admin, Manager or Electrician
	EmployeeCode string     `json:"employee_code"`
	Status       string     `gorm:"not null;default:'Active'" json:"status"` // Active or Inactive
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsElectrician reports whether the user holds the Electrician role.
func (u *User) IsElectrician() bool {
	return u.Role == RoleElectrician
}

// ElectricianDetail extends a User with role=Electrician. The row is
// created lazily on the first electrician-specific update, so readers
// must tolerate its absence.
type ElectricianDetail struct {
	ElectricianID       uint       `gorm:"primaryKey" json:"electrician_id"`
	Electrician         User       `gorm:"foreignKey:ElectricianID" json:"-"`
	Skills              string     `json:"skills"`
	Certifications      string     `json:"certifications"`
	Rating              float64    `gorm:"default:0" json:"rating"` // rolling average over all rated tasks
	TotalTasksCompleted int        `gorm:"default:0" json:"total_tasks_completed"`
	JoinDate            *time.Time `json:"join_date"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the ElectricianDetail model
func (ElectricianDetail) TableName() string {
	return "electrician_details"
}
