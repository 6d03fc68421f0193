// Package user_repo provides the PostgreSQL implementation of the user
// repository. Queries run against the ambient transaction when one is
// active, otherwise against the pool.
package user_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"campus/internal/core/apperror"
	"campus/internal/core/id"
	"campus/internal/domain/user"
	"campus/internal/infrastructure/storage/postgres"
)

// Compile-time check that Repo implements user.Repository.
var _ user.Repository = (*Repo)(nil)

// Repo is the PostgreSQL user repository.
type Repo struct {
	pool     *postgres.Pool
	userCols []string
	infoCols []string
}

// New creates a new user repository.
func New(pool *postgres.Pool) *Repo {
	return &Repo{
		pool:     pool,
		userCols: postgres.ExtractDBColumns[user.User](),
		infoCols: postgres.ExtractDBColumns[user.Info](),
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return postgres.QuerierFrom(ctx, r.pool)
}

// Create inserts the user row using its "db" tags.
func (r *Repo) Create(ctx context.Context, u *user.User) error {
	sql, args, err := r.builder().
		Insert("users").
		SetMap(postgres.StructToMap(u)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateInfo inserts the profile record.
func (r *Repo) CreateInfo(ctx context.Context, info *user.Info) error {
	sql, args, err := r.builder().
		Insert("user_info").
		SetMap(postgres.StructToMap(info)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("user_info", "user_id", info.UserID.String())
		}
		return fmt.Errorf("insert user_info: %w", err)
	}
	return nil
}

// Get retrieves a user with profile info attached.
func (r *Repo) Get(ctx context.Context, userID id.ID) (*user.User, error) {
	sql, args, err := r.builder().
		Select(r.userCols...).
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var u user.User
	if err := pgxscan.Get(ctx, r.querier(ctx), &u, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("user", userID)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	info, err := r.getInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Info = info
	return &u, nil
}

func (r *Repo) getInfo(ctx context.Context, userID id.ID) (*user.Info, error) {
	sql, args, err := r.builder().
		Select(r.infoCols...).
		From("user_info").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var info user.Info
	if err := pgxscan.Get(ctx, r.querier(ctx), &info, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user_info: %w", err)
	}
	return &info, nil
}

// List retrieves all users, oldest first, with profile info attached.
func (r *Repo) List(ctx context.Context) ([]*user.User, error) {
	sql, args, err := r.builder().
		Select(r.userCols...).
		From("users").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var users []*user.User
	if err := pgxscan.Select(ctx, r.querier(ctx), &users, sql, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	ids := make([]id.ID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	infoSQL, infoArgs, err := r.builder().
		Select(r.infoCols...).
		From("user_info").
		Where(squirrel.Eq{"user_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var infos []*user.Info
	if err := pgxscan.Select(ctx, r.querier(ctx), &infos, infoSQL, infoArgs...); err != nil {
		return nil, fmt.Errorf("select user_info: %w", err)
	}

	byUser := make(map[id.ID]*user.Info, len(infos))
	for _, info := range infos {
		byUser[info.UserID] = info
	}
	for _, u := range users {
		u.Info = byUser[u.ID]
	}
	return users, nil
}

// Update modifies the user row.
func (r *Repo) Update(ctx context.Context, u *user.User) error {
	sql, args, err := r.builder().
		Update("users").
		Set("name", u.Name).
		Where(squirrel.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", u.ID)
	}
	return nil
}

// Delete removes the user and its profile info. Enrollments go via
// the ON DELETE CASCADE constraint.
func (r *Repo) Delete(ctx context.Context, userID id.ID) error {
	infoSQL, infoArgs, err := r.builder().
		Delete("user_info").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, infoSQL, infoArgs...); err != nil {
		return fmt.Errorf("delete user_info: %w", err)
	}

	sql, args, err := r.builder().
		Delete("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID)
	}
	return nil
}

// Exists reports whether the user exists.
func (r *Repo) Exists(ctx context.Context, userID id.ID) (bool, error) {
	sql, args, err := r.builder().
		Select("1").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user existence: %w", err)
	}
	return true, nil
}
