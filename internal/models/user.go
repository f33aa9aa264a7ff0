package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Provider identifies how an account signs in.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
)

// User represents an authentication identity
type User struct {
	ID             string     `bson:"_id" json:"id"`
	Email          string     `bson:"email" json:"email"`
	PasswordHash   string     `bson:"password_hash,omitempty" json:"-"`
	FullName       string     `bson:"full_name" json:"full_name"`
	Role           Role       `bson:"role" json:"role"`
	Provider       Provider   `bson:"provider" json:"provider"`
	IsActive       bool       `bson:"is_active" json:"is_active"`
	LastLogin      *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	ResetTokenHash string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetExpiresAt *time.Time `bson:"reset_expires_at,omitempty" json:"-"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
}

// SignUpRequest represents an email/password registration
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// SignInRequest represents an email/password sign-in
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by every endpoint that starts or refreshes a session
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Session      Session   `json:"session"`
	User         User      `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
	Exp       int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleCustomer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleCustomer:
		return action == "view_cars" || action == "create_booking" ||
			action == "cancel_booking" || action == "create_review" ||
			action == "delete_review" || action == "manage_profile"
	default:
		return false
	}
}
