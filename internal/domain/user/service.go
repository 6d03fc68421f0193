package user

import (
	"context"

	"campus/internal/core/apperror"
	"campus/internal/core/id"
	"campus/internal/core/tx"
)

// Service provides business logic for users. Every operation runs
// under a managed transaction; reads open read-only ones.
type Service struct {
	repo Repository
	tx   *tx.Manager
}

// NewService creates a new user service.
func NewService(repo Repository, manager *tx.Manager) *Service {
	return &Service{repo: repo, tx: manager}
}

// Create inserts a new user together with its optional profile info in
// one transaction.
func (s *Service) Create(ctx context.Context, name string, info *Info) (*User, error) {
	u := New(name, info)
	if err := u.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		if u.Info != nil {
			return s.repo.CreateInfo(ctx, u.Info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Get retrieves a user by ID in a read-only transaction.
func (s *Service) Get(ctx context.Context, userID id.ID) (*User, error) {
	return tx.Wrap(s.tx, func(ctx context.Context) (*User, error) {
		return s.repo.Get(ctx, userID)
	}, tx.WithReadOnly())(ctx)
}

// List retrieves all users in a read-only transaction.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return tx.Wrap(s.tx, func(ctx context.Context) ([]*User, error) {
		return s.repo.List(ctx)
	}, tx.WithReadOnly())(ctx)
}

// Update renames a user.
func (s *Service) Update(ctx context.Context, userID id.ID, name string) (*User, error) {
	var out *User
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		u, err := s.repo.Get(ctx, userID)
		if err != nil {
			return err
		}
		u.Name = name
		if err := u.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a user. Enrollments go with it via cascade.
func (s *Service) Delete(ctx context.Context, userID id.ID) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.EnsureExists(ctx, userID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, userID)
	})
}

// EnsureExists verifies the user exists inside the caller's
// transaction. Mandatory propagation: calling it with no transaction
// active is a programming error and fails before touching the store.
func (s *Service) EnsureExists(ctx context.Context, userID id.ID) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewNotFound("user", userID)
		}
		return nil
	}, tx.WithPropagation(tx.Mandatory))
}
