package course

import (
	"context"

	"campus/internal/core/id"
)

// Repository defines the interface for Course and Enrollment
// persistence.
type Repository interface {
	Create(ctx context.Context, c *Course) error
	Get(ctx context.Context, courseID id.ID) (*Course, error)
	List(ctx context.Context) ([]*Course, error)
	Update(ctx context.Context, c *Course) error
	Delete(ctx context.Context, courseID id.ID) error

	// CreateEnrollment inserts an enrollment. A second enrollment of
	// the same user in the same course yields a duplicate-enrollment
	// error.
	CreateEnrollment(ctx context.Context, e *Enrollment) error

	// DeleteEnrollment removes an enrollment, or returns a not-found
	// error.
	DeleteEnrollment(ctx context.Context, userID, courseID id.ID) error

	// ListEnrollments retrieves a course's roster (enrollments joined
	// with user names), newest first.
	ListEnrollments(ctx context.Context, courseID id.ID) ([]*EnrolledUser, error)

	// ListCoursesByUser retrieves the courses a user is enrolled in,
	// most recent enrollment first.
	ListCoursesByUser(ctx context.Context, userID id.ID) ([]*Course, error)
}
