package models

import "github.com/golang-jwt/jwt/v5"

// StaffRole is the RBAC role carried in access tokens.
type StaffRole string

const (
	RoleAdmin StaffRole = "ADMIN"
	RoleStaff StaffRole = "STAFF"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	StaffID string    `json:"staff_id"`
	Email   string    `json:"email"`
	Role    StaffRole `json:"role"`
	jwt.RegisteredClaims
}
