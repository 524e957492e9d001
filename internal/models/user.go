package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Learner is an account plus the entitlement state the exam engine reads.
type Learner struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullName"`
	Password       string    `json:"-"`
	Role           Role      `json:"role"`
	IsPremium      bool      `json:"isPremium"`
	FreeTestsTaken int       `json:"freeTestsTaken"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (l *Learner) IsAdmin() bool {
	return l.Role == RoleAdmin
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  Learner `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
