package models

import "time"

// UserRole distinguishes the two sides of the platform.
type UserRole string

const (
	RoleSeeker       UserRole = "seeker"
	RoleProfessional UserRole = "professional"
)

// User is the minimal identity record the core needs. Profile storage and
// authentication live elsewhere; this is what the identity adapter resolves a
// token into.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        UserRole  `json:"role"`
	AvatarRef   string    `json:"avatarRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
