package api

import (
	"time"

	"myapi/internal/models"
)

type ProfileResponse struct {
	Email       string    `json:"email"`
	FirstName   *string   `json:"firstName"`
	LastName    *string   `json:"lastName"`
	FullName    string    `json:"fullName"`
	Image       *string   `json:"image"`
	DateCreated time.Time `json:"dateCreated"`
	Roles       []string  `json:"roles"`
}

type UserListItem struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FirstName   *string   `json:"firstName"`
	LastName    *string   `json:"lastName"`
	Image       *string   `json:"image"`
	DateCreated time.Time `json:"dateCreated"`
	Roles       []string  `json:"roles"`
}

func profileFromUser(u *models.User) ProfileResponse {
	return ProfileResponse{
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.DisplayName(),
		Image:       u.Image,
		DateCreated: u.CreatedAt,
		Roles:       nonNilRoles(u.Roles),
	}
}

func listItemFromUser(u *models.User) UserListItem {
	return UserListItem{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Image:       u.Image,
		DateCreated: u.CreatedAt,
		Roles:       nonNilRoles(u.Roles),
	}
}

func nonNilRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
