package models

import "time"

// Roles
const (
	RoleAdmin = "Admin"
	RoleStaff = "Staff"
	RoleGuest = "Guest"
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// RegisterRequest represents the request body for self registration.
// FirstAdmin claims an empty shop; everyone else sends the referral code.
type RegisterRequest struct {
	Identifier       string `json:"identifier"`
	Secret           string `json:"secret"`
	RegistrationCode string `json:"registrationCode"`
	FirstAdmin       bool   `json:"firstAdmin,omitempty"`
}

// AuthResponse is the session payload returned by login and register.
// It is also the shape the client persists.
type AuthResponse struct {
	Token       string `json:"token"`
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// CreateStaffRequest represents the request body for an admin adding staff
type CreateStaffRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}
