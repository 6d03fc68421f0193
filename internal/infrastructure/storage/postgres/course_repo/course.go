// Package course_repo provides the PostgreSQL implementation of the
// course repository, covering courses and enrollments.
package course_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"campus/internal/core/apperror"
	"campus/internal/core/id"
	"campus/internal/domain/course"
	"campus/internal/infrastructure/storage/postgres"
)

// Compile-time check that Repo implements course.Repository.
var _ course.Repository = (*Repo)(nil)

// Repo is the PostgreSQL course repository.
type Repo struct {
	pool           *postgres.Pool
	courseCols     []string
	enrollmentCols []string
}

// New creates a new course repository.
func New(pool *postgres.Pool) *Repo {
	return &Repo{
		pool:           pool,
		courseCols:     postgres.ExtractDBColumns[course.Course](),
		enrollmentCols: postgres.ExtractDBColumns[course.Enrollment](),
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return postgres.QuerierFrom(ctx, r.pool)
}

// Create inserts a course using its "db" tags.
func (r *Repo) Create(ctx context.Context, c *course.Course) error {
	sql, args, err := r.builder().
		Insert("courses").
		SetMap(postgres.StructToMap(c)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// Get retrieves a course by ID.
func (r *Repo) Get(ctx context.Context, courseID id.ID) (*course.Course, error) {
	sql, args, err := r.builder().
		Select(r.courseCols...).
		From("courses").
		Where(squirrel.Eq{"id": courseID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var c course.Course
	if err := pgxscan.Get(ctx, r.querier(ctx), &c, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("course", courseID)
		}
		return nil, fmt.Errorf("select course: %w", err)
	}
	return &c, nil
}

// List retrieves all courses, oldest first.
func (r *Repo) List(ctx context.Context) ([]*course.Course, error) {
	sql, args, err := r.builder().
		Select(r.courseCols...).
		From("courses").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var courses []*course.Course
	if err := pgxscan.Select(ctx, r.querier(ctx), &courses, sql, args...); err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	return courses, nil
}

// Update modifies a course's mutable fields.
func (r *Repo) Update(ctx context.Context, c *course.Course) error {
	sql, args, err := r.builder().
		Update("courses").
		Set("name", c.Name).
		Set("author_name", c.AuthorName).
		Set("price", c.Price).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("course", c.ID)
	}
	return nil
}

// Delete removes a course. Enrollments go via the ON DELETE CASCADE
// constraint.
func (r *Repo) Delete(ctx context.Context, courseID id.ID) error {
	sql, args, err := r.builder().
		Delete("courses").
		Where(squirrel.Eq{"id": courseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("course", courseID)
	}
	return nil
}

// CreateEnrollment inserts an enrollment, mapping the unique-constraint
// violation on (user_id, course_id) to a duplicate-enrollment error.
func (r *Repo) CreateEnrollment(ctx context.Context, e *course.Enrollment) error {
	sql, args, err := r.builder().
		Insert("enrollments").
		SetMap(postgres.StructToMap(e)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicateEnrollment(e.UserID, e.CourseID)
		}
		// Guards the race where the user or course was deleted between
		// the service's existence checks and this insert.
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("user or course", fmt.Sprintf("%s/%s", e.UserID, e.CourseID))
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// DeleteEnrollment removes an enrollment.
func (r *Repo) DeleteEnrollment(ctx context.Context, userID, courseID id.ID) error {
	sql, args, err := r.builder().
		Delete("enrollments").
		Where(squirrel.Eq{"user_id": userID, "course_id": courseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("enrollment", fmt.Sprintf("%s/%s", userID, courseID))
	}
	return nil
}

// ListEnrollments retrieves a course's roster, newest enrollment
// first. User names come from a join so the listing matches what the
// enrollment transaction saw.
func (r *Repo) ListEnrollments(ctx context.Context, courseID id.ID) ([]*course.EnrolledUser, error) {
	sql, args, err := r.builder().
		Select("e.user_id", "u.name", "e.enrolled_at").
		From("enrollments e").
		Join("users u ON u.id = e.user_id").
		Where(squirrel.Eq{"e.course_id": courseID}).
		OrderBy("e.enrolled_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var roster []*course.EnrolledUser
	if err := pgxscan.Select(ctx, r.querier(ctx), &roster, sql, args...); err != nil {
		return nil, fmt.Errorf("select enrollments: %w", err)
	}
	return roster, nil
}

// ListCoursesByUser retrieves the courses a user is enrolled in, most
// recent enrollment first.
func (r *Repo) ListCoursesByUser(ctx context.Context, userID id.ID) ([]*course.Course, error) {
	cols := make([]string, len(r.courseCols))
	for i, c := range r.courseCols {
		cols[i] = "c." + c
	}

	sql, args, err := r.builder().
		Select(cols...).
		From("courses c").
		Join("enrollments e ON e.course_id = c.id").
		Where(squirrel.Eq{"e.user_id": userID}).
		OrderBy("e.enrolled_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var courses []*course.Course
	if err := pgxscan.Select(ctx, r.querier(ctx), &courses, sql, args...); err != nil {
		return nil, fmt.Errorf("select user courses: %w", err)
	}
	return courses, nil
}
