package models

import "github.com/golang-jwt/jwt/v5"

// UserRole identifies the caller's role in the hostel system.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleWarden  UserRole = "warden"
	RoleAdmin   UserRole = "admin"
)

// JWTClaims represents the JWT payload for access tokens issued by the
// hostel identity service. This gateway validates, it never issues.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Session bundles the validated claims with the raw bearer token so the
// gateway can forward the caller's credential to hostel-core.
type Session struct {
	Claims *JWTClaims
	Token  string
}

// StudentID returns the owning student id, empty when unauthenticated.
func (s *Session) StudentID() string {
	if s == nil || s.Claims == nil {
		return ""
	}
	return s.Claims.UserID
}

// Authenticated reports whether a usable credential is present.
func (s *Session) Authenticated() bool {
	return s != nil && s.Claims != nil && s.Token != ""
}
