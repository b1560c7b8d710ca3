package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldreport/internal/utils"
	"fieldreport/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const adminTableName = "fieldreport.admins"

var adminColumns = utils.StructTagValues(types.Admin{})

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) Admin(ctx context.Context, adminID string) (*types.Admin, error) {
	return r.getOne(ctx, sq.Eq{"id": adminID})
}

func (r *AdminRepository) AdminByEmail(ctx context.Context, email string) (*types.Admin, error) {
	return r.getOne(ctx, sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *AdminRepository) getOne(ctx context.Context, cond sq.Sqlizer) (*types.Admin, error) {
	query, args, err := psql().
		Select(adminColumns...).
		From(adminTableName).
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin query: %w", err)
	}

	var admin types.Admin
	err = pgxscan.Get(ctx, r.pool, &admin, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to fetch admin: %w", err)
	}

	return &admin, nil
}

// Create inserts an admin account. Only the seed command calls this; there is
// no API route that creates admins.
func (r *AdminRepository) Create(ctx context.Context, admin *types.Admin) error {
	now := time.Now()
	if admin.ID == "" {
		admin.ID = utils.NanoID()
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	admin.CreatedAt = now
	admin.UpdatedAt = now

	query, args, err := psql().
		Insert(adminTableName).
		SetMap(utils.StructToMap(admin)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create admin query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	return nil
}
