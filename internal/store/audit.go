package store

import (
	"context"
	"fmt"
	"time"

	"fieldreport/internal/utils"
	"fieldreport/pkg/types"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditTableName = "fieldreport.audit_logs"

var auditColumns = utils.StructTagValues(types.AuditLog{})

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append inserts one entry. Entries are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, entry *types.AuditLog) error {
	if entry.ID == "" {
		entry.ID = utils.NanoID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	query, args, err := psql().
		Insert(auditTableName).
		SetMap(utils.StructToMap(entry)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate append audit query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// Logs returns one page of entries, newest first, plus the total entry count.
func (r *AuditRepository) Logs(ctx context.Context, page, limit int) ([]*types.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	query, args, err := psql().
		Select(auditColumns...).
		From(auditTableName).
		OrderBy("logged_at DESC").
		Offset(uint64((page - 1) * limit)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to generate audit page query: %w", err)
	}

	var logs []*types.AuditLog
	err = pgxscan.Select(ctx, r.pool, &logs, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit entries: %w", err)
	}

	countQuery, countArgs, err := psql().
		Select("COUNT(1)").
		From(auditTableName).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to generate audit count query: %w", err)
	}

	var total int64
	err = pgxscan.Get(ctx, r.pool, &total, countQuery, countArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return logs, total, nil
}
