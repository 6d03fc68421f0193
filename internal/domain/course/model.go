// Package course provides the course domain: the catalog of courses
// and user enrollments in them.
package course

import (
	"context"
	"time"

	"campus/internal/core/apperror"
	"campus/internal/core/id"
	"campus/internal/core/types"
)

// Course is a purchasable course in the catalog.
type Course struct {
	ID         id.ID       `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	AuthorName string      `db:"author_name" json:"authorName"`
	Price      types.Money `db:"price" json:"price"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

// Enrollment links a user to a course. One enrollment per (user,
// course) pair.
type Enrollment struct {
	UserID     id.ID     `db:"user_id" json:"userId"`
	CourseID   id.ID     `db:"course_id" json:"courseId"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"`
}

// EnrolledUser is one row of a course's roster: the enrollment joined
// with the user's name.
type EnrolledUser struct {
	UserID     id.ID     `db:"user_id" json:"userId"`
	Name       string    `db:"name" json:"name"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"`
}

// New creates a Course with a fresh ID. The price is normalized to the
// stored scale.
func New(name, authorName string, price types.Money) *Course {
	return &Course{
		ID:         id.New(),
		Name:       name,
		AuthorName: authorName,
		Price:      types.RoundMoney(price),
		CreatedAt:  time.Now().UTC(),
	}
}

// NewEnrollment creates an enrollment dated now.
func NewEnrollment(userID, courseID id.ID) *Enrollment {
	return &Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	}
}

// Validate checks domain invariants.
func (c *Course) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if len(c.Name) > 100 {
		return apperror.NewValidation("name must be at most 100 characters").
			WithDetail("field", "name")
	}
	if c.AuthorName == "" {
		return apperror.NewValidation("author name is required").
			WithDetail("field", "authorName")
	}
	if c.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative").
			WithDetail("field", "price").
			WithDetail("value", c.Price.String())
	}
	return nil
}
