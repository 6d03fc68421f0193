// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"campus/internal/domain/user"
)

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Name string           `json:"name" binding:"required,max=50"`
	Info *UserInfoRequest `json:"info"`
}

// UserInfoRequest carries the optional profile info of a user.
type UserInfoRequest struct {
	Address string  `json:"address" binding:"required,max=255"`
	Bio     *string `json:"bio"`
}

// ToInfo converts the request profile into a domain Info.
func (r *UserInfoRequest) ToInfo() *user.Info {
	if r == nil {
		return nil
	}
	return &user.Info{Address: r.Address, Bio: r.Bio}
}

// UpdateUserRequest is the payload for renaming a user.
type UpdateUserRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// UserInfoResponse mirrors the profile info in responses.
type UserInfoResponse struct {
	Address string  `json:"address"`
	Bio     *string `json:"bio,omitempty"`
}

// UserResponse is the API representation of a user.
type UserResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"createdAt"`
	Info      *UserInfoResponse `json:"info,omitempty"`
}

// FromUser maps a domain user to its response shape.
func FromUser(u *user.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
	if u.Info != nil {
		resp.Info = &UserInfoResponse{Address: u.Info.Address, Bio: u.Info.Bio}
	}
	return resp
}

// FromUsers maps a slice of domain users.
func FromUsers(users []*user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = FromUser(u)
	}
	return out
}
