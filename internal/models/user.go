package models

import (
	"strings"
	"time"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// AllRoles is the set of roles seeded at startup.
var AllRoles = []string{RoleUser, RoleAdmin}

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Image        *string
	CreatedAt    time.Time
	Roles        []string
}

// DisplayName renders "last first", skipping missing parts.
func (u *User) DisplayName() string {
	return strings.TrimSpace(deref(u.LastName) + " " + deref(u.FirstName))
}

func (u *User) GetImage() string {
	return deref(u.Image)
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
