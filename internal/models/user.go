package models

import (
	"fmt"
	"time"
)

type UserRole string

const (
	UserRoleClient     UserRole = "client"
	UserRoleCleaner    UserRole = "cleaner"
	UserRoleTeamLeader UserRole = "team_leader"
	UserRoleAdmin      UserRole = "admin"
)

// AllRoles lists every role in declaration order.
var AllRoles = []UserRole{UserRoleClient, UserRoleCleaner, UserRoleTeamLeader, UserRoleAdmin}

// Valid reports whether r is one of the declared roles. New roles must be
// added here and to AllRoles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleClient, UserRoleCleaner, UserRoleTeamLeader, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// ParseUserRole maps an optional wire value onto a role, defaulting to client.
func ParseUserRole(s string) (UserRole, error) {
	if s == "" {
		return UserRoleClient, nil
	}
	role := UserRole(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

type User struct {
	ID           string
	Name         string
	Phone        string
	PasswordHash []byte
	Role         UserRole
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is what the auth middleware attaches to a request.
type Identity struct {
	ID   string
	Role UserRole
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}

// PublicUser is the subset of a user that may leave the server.
type PublicUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Role         UserRole  `json:"role"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Phone:        u.Phone,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

type DeviceToken struct {
	UserID     string
	Token      string
	Platform   string
	CreatedAt  time.Time
	LastSeenAt time.Time
}
