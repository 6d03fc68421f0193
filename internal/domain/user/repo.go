package user

import (
	"context"

	"campus/internal/core/id"
)

// Repository defines the interface for User persistence.
type Repository interface {
	// Create inserts the user row. Profile info is inserted separately
	// via CreateInfo so both live in the caller's transaction.
	Create(ctx context.Context, u *User) error

	// CreateInfo inserts the one-to-one profile record.
	CreateInfo(ctx context.Context, info *Info) error

	// Get retrieves a user with profile info attached, or a not-found
	// error.
	Get(ctx context.Context, userID id.ID) (*User, error)

	// List retrieves all users with profile info attached, ordered by
	// creation time.
	List(ctx context.Context) ([]*User, error)

	// Update modifies the user row.
	Update(ctx context.Context, u *User) error

	// Delete removes the user, its profile info and, via cascade, its
	// enrollments.
	Delete(ctx context.Context, userID id.ID) error

	// Exists reports whether the user exists.
	Exists(ctx context.Context, userID id.ID) (bool, error)
}
