// Package user provides the user domain: accounts plus their optional
// one-to-one profile info.
package user

import (
	"context"
	"time"

	"campus/internal/core/apperror"
	"campus/internal/core/id"
)

// User is a registered account.
type User struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// Info is the optional profile, stored in its own table.
	Info *Info `db:"-" json:"info,omitempty"`
}

// Info is the one-to-one profile record of a user.
type Info struct {
	ID      id.ID   `db:"id" json:"-"`
	UserID  id.ID   `db:"user_id" json:"-"`
	Address string  `db:"address" json:"address"`
	Bio     *string `db:"bio" json:"bio,omitempty"`
}

// New creates a User with a fresh ID. When info is non-nil it is bound
// to the new user.
func New(name string, info *Info) *User {
	u := &User{
		ID:        id.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if info != nil {
		info.ID = id.New()
		info.UserID = u.ID
		u.Info = info
	}
	return u
}

// Validate checks domain invariants.
func (u *User) Validate(ctx context.Context) error {
	if u.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if len(u.Name) > 50 {
		return apperror.NewValidation("name must be at most 50 characters").
			WithDetail("field", "name")
	}
	if u.Info != nil && u.Info.Address == "" {
		return apperror.NewValidation("address is required").
			WithDetail("field", "info.address")
	}
	return nil
}
