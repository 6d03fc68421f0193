package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"campus/internal/domain/course"
)

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name       string          `json:"name" binding:"required,max=100"`
	AuthorName string          `json:"authorName" binding:"required,max=100"`
	Price      decimal.Decimal `json:"price" binding:"required"`
}

// UpdateCourseRequest is the payload for updating a course.
type UpdateCourseRequest struct {
	Name       string          `json:"name" binding:"required,max=100"`
	AuthorName string          `json:"authorName" binding:"required,max=100"`
	Price      decimal.Decimal `json:"price" binding:"required"`
}

// CourseResponse is the API representation of a course.
type CourseResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	AuthorName string          `json:"authorName"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromCourse maps a domain course to its response shape.
func FromCourse(c *course.Course) CourseResponse {
	return CourseResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		AuthorName: c.AuthorName,
		Price:      c.Price,
		CreatedAt:  c.CreatedAt,
	}
}

// FromCourses maps a slice of domain courses.
func FromCourses(courses []*course.Course) []CourseResponse {
	out := make([]CourseResponse, len(courses))
	for i, c := range courses {
		out[i] = FromCourse(c)
	}
	return out
}

// EnrollRequest is the payload for enrolling a user in a course.
type EnrollRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
}

// EnrollmentResponse is the API representation of an enrollment.
type EnrollmentResponse struct {
	UserID     string    `json:"userId"`
	CourseID   string    `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// FromEnrollment maps a domain enrollment to its response shape.
func FromEnrollment(e *course.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		UserID:     e.UserID.String(),
		CourseID:   e.CourseID.String(),
		EnrolledAt: e.EnrolledAt,
	}
}

// EnrolledUserResponse is one roster entry of a course: the enrolled
// user plus the enrollment date.
type EnrolledUserResponse struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// FromEnrolledUsers maps a course roster.
func FromEnrolledUsers(roster []*course.EnrolledUser) []EnrolledUserResponse {
	out := make([]EnrolledUserResponse, len(roster))
	for i, e := range roster {
		out[i] = EnrolledUserResponse{
			UserID:     e.UserID.String(),
			Name:       e.Name,
			EnrolledAt: e.EnrolledAt,
		}
	}
	return out
}
