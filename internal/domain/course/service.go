package course

import (
	"context"

	"campus/internal/core/id"
	"campus/internal/core/tx"
	"campus/internal/core/types"
)

// UserDirectory is the slice of the user domain this service needs:
// existence checks inside an already-running transaction.
type UserDirectory interface {
	EnsureExists(ctx context.Context, userID id.ID) error
}

// Service provides business logic for courses and enrollments.
type Service struct {
	repo  Repository
	users UserDirectory
	tx    *tx.Manager
}

// NewService creates a new course service.
func NewService(repo Repository, users UserDirectory, manager *tx.Manager) *Service {
	return &Service{repo: repo, users: users, tx: manager}
}

// Create inserts a new course.
func (s *Service) Create(ctx context.Context, name, authorName string, price types.Money) (*Course, error) {
	c := New(name, authorName, price)
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get retrieves a course by ID in a read-only transaction.
func (s *Service) Get(ctx context.Context, courseID id.ID) (*Course, error) {
	return tx.Wrap(s.tx, func(ctx context.Context) (*Course, error) {
		return s.repo.Get(ctx, courseID)
	}, tx.WithReadOnly())(ctx)
}

// List retrieves all courses in a read-only transaction.
func (s *Service) List(ctx context.Context) ([]*Course, error) {
	return tx.Wrap(s.tx, func(ctx context.Context) ([]*Course, error) {
		return s.repo.List(ctx)
	}, tx.WithReadOnly())(ctx)
}

// Update modifies a course's mutable fields.
func (s *Service) Update(ctx context.Context, courseID id.ID, name, authorName string, price types.Money) (*Course, error) {
	var out *Course
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		c, err := s.repo.Get(ctx, courseID)
		if err != nil {
			return err
		}
		c.Name = name
		c.AuthorName = authorName
		c.Price = types.RoundMoney(price)
		if err := c.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a course; its enrollments go with it via cascade.
func (s *Service) Delete(ctx context.Context, courseID id.ID) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, courseID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, courseID)
	})
}

// Enroll enrolls a user in a course. User check, course check and the
// enrollment insert share one transaction; the user check joins it
// through MANDATORY propagation.
func (s *Service) Enroll(ctx context.Context, userID, courseID id.ID) (*Enrollment, error) {
	var out *Enrollment
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.users.EnsureExists(ctx, userID); err != nil {
			return err
		}
		if _, err := s.repo.Get(ctx, courseID); err != nil {
			return err
		}
		e := NewEnrollment(userID, courseID)
		if err := s.repo.CreateEnrollment(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unenroll removes a user's enrollment in a course.
func (s *Service) Unenroll(ctx context.Context, userID, courseID id.ID) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		return s.repo.DeleteEnrollment(ctx, userID, courseID)
	})
}

// ListEnrollments retrieves a course's roster (enrolled users with
// their enrollment dates) in a read-only transaction.
func (s *Service) ListEnrollments(ctx context.Context, courseID id.ID) ([]*EnrolledUser, error) {
	return tx.Wrap(s.tx, func(ctx context.Context) ([]*EnrolledUser, error) {
		if _, err := s.repo.Get(ctx, courseID); err != nil {
			return nil, err
		}
		return s.repo.ListEnrollments(ctx, courseID)
	}, tx.WithReadOnly())(ctx)
}

// ListUserCourses retrieves the courses a user is enrolled in, in a
// read-only transaction. The user check joins it through MANDATORY
// propagation.
func (s *Service) ListUserCourses(ctx context.Context, userID id.ID) ([]*Course, error) {
	return tx.Wrap(s.tx, func(ctx context.Context) ([]*Course, error) {
		if err := s.users.EnsureExists(ctx, userID); err != nil {
			return nil, err
		}
		return s.repo.ListCoursesByUser(ctx, userID)
	}, tx.WithReadOnly())(ctx)
}
