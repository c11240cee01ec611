package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleProvider Role = "provider"
	RolePatient  Role = "patient"
)

// User represents a clinic user: a patient, a healthcare provider or an
// administrator.
type User struct {
	BaseModel
	Email             string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password          string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName         string     `gorm:"size:100" json:"firstName"`
	LastName          string     `gorm:"size:100" json:"lastName"`
	Role              Role       `gorm:"size:20;default:'patient'" json:"role"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNumber       string     `gorm:"size:15" json:"phoneNumber,omitempty"`
	EmailVerified     bool       `gorm:"default:false" json:"emailVerified"`
	VerificationToken string     `gorm:"size:100;index" json:"-"`

	// Relations (not always preloaded)
	Profile              *ProviderProfile `gorm:"foreignKey:UserID" json:"-"`
	PatientAppointments  []Appointment    `gorm:"foreignKey:PatientID" json:"-"`
	ProviderAppointments []Appointment    `gorm:"foreignKey:ProviderID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Role          Role       `json:"role"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNumber   string     `json:"phoneNumber,omitempty"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// FullName returns the display name used in emails and calendar entries,
// falling back to the email address when no name is set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		DateOfBirth:   u.DateOfBirth,
		PhoneNumber:   u.PhoneNumber,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
