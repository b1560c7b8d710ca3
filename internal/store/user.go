package store

import (
	"context"
	"fmt"
	"time"

	"fieldreport/internal/utils"
	"fieldreport/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "fieldreport.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = utils.NanoID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	return r.getOne(ctx, sq.Eq{"id": userID})
}

// UserByIdentifier resolves an account by email or phone, whichever matches.
func (r *UserRepository) UserByIdentifier(ctx context.Context, identifier string) (*types.User, error) {
	return r.getOne(ctx, sq.Or{sq.Eq{"email": identifier}, sq.Eq{"phone": identifier}})
}

func (r *UserRepository) getOne(ctx context.Context, cond sq.Sqlizer) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

// ExistsByEmailOrPhone reports whether either identifier is already claimed.
func (r *UserRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	query, args, err := psql().
		Select("COUNT(1)").
		From(userTableName).
		Where(sq.Or{sq.Eq{"email": email}, sq.Eq{"phone": phone}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate user exists query: %w", err)
	}

	var count int64
	err = pgxscan.Get(ctx, r.pool, &count, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return count > 0, nil
}

func (r *UserRepository) SetOTP(ctx context.Context, userID, code string, expiry time.Time) error {
	return r.update(ctx, userID, map[string]any{
		"otp":        code,
		"otp_expiry": expiry,
	})
}

// ResetPassword stores the new hash and consumes any pending reset code.
func (r *UserRepository) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	return r.update(ctx, userID, map[string]any{
		"password":   passwordHash,
		"otp":        nil,
		"otp_expiry": nil,
	})
}

func (r *UserRepository) SetRemindersEnabled(ctx context.Context, userID string, enabled bool) error {
	return r.update(ctx, userID, map[string]any{
		"reminders_enabled": enabled,
	})
}

func (r *UserRepository) update(ctx context.Context, userID string, fields map[string]any) error {
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(userTableName).
		SetMap(fields).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update user query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) Users(ctx context.Context) ([]*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, nil
}

// UsersWithReminders lists accounts that have not opted out of the daily
// reminder batch.
func (r *UserRepository) UsersWithReminders(ctx context.Context) ([]*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"reminders_enabled": true}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reminder users query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reminder users: %w", err)
	}

	return users, nil
}
