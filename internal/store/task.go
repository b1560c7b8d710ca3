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

const taskTableName = "fieldreport.tasks"

// taskRow is the flat column shape of a task record. The API type nests the
// technician snapshot and location, so rows are converted at the store
// boundary instead of scanned directly.
type taskRow struct {
	ID              string    `db:"id"`
	TechnicianName  string    `db:"technician_name"`
	TechnicianEmail string    `db:"technician_email"`
	TechnicianPhone string    `db:"technician_phone"`
	Photos          []string  `db:"photos"`
	Sketch          *string   `db:"sketch"`
	Length          string    `db:"length"`
	Width           string    `db:"width"`
	Height          string    `db:"height"`
	SketchLength    *string   `db:"sketch_length"`
	SketchWidth     *string   `db:"sketch_width"`
	SketchHeight    *string   `db:"sketch_height"`
	Type            string    `db:"type"`
	Description     *string   `db:"description"`
	Latitude        *float64  `db:"latitude"`
	Longitude       *float64  `db:"longitude"`
	Address         *string   `db:"address"`
	SubmittedAt     time.Time `db:"submitted_at"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

var taskColumns = utils.StructTagValues(taskRow{})

func rowFromTask(task *types.Task) *taskRow {
	row := &taskRow{
		ID:              task.ID,
		TechnicianName:  task.Technician.Name,
		TechnicianEmail: task.Technician.Email,
		TechnicianPhone: task.Technician.Phone,
		Photos:          task.Photos,
		Sketch:          task.Sketch,
		Length:          task.Length,
		Width:           task.Width,
		Height:          task.Height,
		Type:            string(task.Type),
		Description:     task.Description,
		Latitude:        task.Location.Latitude,
		Longitude:       task.Location.Longitude,
		Address:         task.Location.Address,
		SubmittedAt:     task.Timestamp,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}

	if m := task.SketchMeasurements; m != nil {
		row.SketchLength = utils.StringPtr(m.Length)
		row.SketchWidth = utils.StringPtr(m.Width)
		row.SketchHeight = utils.StringPtr(m.Height)
	}

	return row
}

func (row *taskRow) toTask() *types.Task {
	task := &types.Task{
		ID: row.ID,
		Technician: types.Technician{
			Name:  row.TechnicianName,
			Email: row.TechnicianEmail,
			Phone: row.TechnicianPhone,
		},
		Photos:      row.Photos,
		Sketch:      row.Sketch,
		Length:      row.Length,
		Width:       row.Width,
		Height:      row.Height,
		Type:        types.TaskType(row.Type),
		Description: row.Description,
		Location: types.Location{
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
			Address:   row.Address,
		},
		Timestamp: row.SubmittedAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	if task.Photos == nil {
		task.Photos = []string{}
	}

	if row.SketchLength != nil || row.SketchWidth != nil || row.SketchHeight != nil {
		task.SketchMeasurements = &types.SketchMeasurements{
			Length: utils.PtrString(row.SketchLength),
			Width:  utils.PtrString(row.SketchWidth),
			Height: utils.PtrString(row.SketchHeight),
		}
	}

	return task
}

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, task *types.Task) error {
	now := time.Now()
	if task.ID == "" {
		task.ID = utils.NanoID()
	}
	if task.Timestamp.IsZero() {
		task.Timestamp = now
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	query, args, err := psql().
		Insert(taskTableName).
		SetMap(utils.StructToMap(rowFromTask(task))).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create task query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func (r *TaskRepository) Task(ctx context.Context, taskID string) (*types.Task, error) {
	query, args, err := psql().
		Select(taskColumns...).
		From(taskTableName).
		Where(sq.Eq{"id": taskID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task query: %w", err)
	}

	var row taskRow
	err = pgxscan.Get(ctx, r.pool, &row, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	return row.toTask(), nil
}

// Update applies a partial update and returns the resulting record. Fields
// the patch leaves nil keep their stored values.
func (r *TaskRepository) Update(ctx context.Context, taskID string, patch types.TaskPatch) (*types.Task, error) {
	fields := map[string]any{}
	if patch.Length != nil {
		fields["length"] = *patch.Length
	}
	if patch.Width != nil {
		fields["width"] = *patch.Width
	}
	if patch.Height != nil {
		fields["height"] = *patch.Height
	}
	if patch.Sketch != nil {
		fields["sketch"] = *patch.Sketch
	}
	if m := patch.SketchMeasurements; m != nil {
		fields["sketch_length"] = m.Length
		fields["sketch_width"] = m.Width
		fields["sketch_height"] = m.Height
	}

	if len(fields) == 0 {
		return r.Task(ctx, taskID)
	}

	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(taskTableName).
		SetMap(fields).
		Where(sq.Eq{"id": taskID}).
		Suffix("RETURNING " + strings.Join(taskColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update task query: %w", err)
	}

	var row taskRow
	err = pgxscan.Get(ctx, r.pool, &row, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return row.toTask(), nil
}

func (r *TaskRepository) TasksByTechnicianEmail(ctx context.Context, email string) ([]*types.Task, error) {
	query, args, err := psql().
		Select(taskColumns...).
		From(taskTableName).
		Where(sq.Eq{"technician_email": email}).
		OrderBy("submitted_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task history query: %w", err)
	}

	return r.selectTasks(ctx, query, args)
}

func (r *TaskRepository) Tasks(ctx context.Context) ([]*types.Task, error) {
	query, args, err := psql().
		Select(taskColumns...).
		From(taskTableName).
		OrderBy("submitted_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks query: %w", err)
	}

	return r.selectTasks(ctx, query, args)
}

func (r *TaskRepository) selectTasks(ctx context.Context, query string, args []any) ([]*types.Task, error) {
	var rows []*taskRow
	err := pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	tasks := make([]*types.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toTask())
	}

	return tasks, nil
}

func rangeConds(start, end *time.Time) []sq.Sqlizer {
	var conds []sq.Sqlizer
	if start != nil {
		conds = append(conds, sq.GtOrEq{"submitted_at": *start})
	}
	if end != nil {
		conds = append(conds, sq.LtOrEq{"submitted_at": *end})
	}
	return conds
}

func (r *TaskRepository) CountInRange(ctx context.Context, start, end *time.Time) (int64, error) {
	builder := psql().
		Select("COUNT(1)").
		From(taskTableName)
	for _, cond := range rangeConds(start, end) {
		builder = builder.Where(cond)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate task count query: %w", err)
	}

	var count int64
	err = pgxscan.Get(ctx, r.pool, &count, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepository) CountByTypeInRange(ctx context.Context, start, end *time.Time) ([]types.TypeCount, error) {
	builder := psql().
		Select("type", "COUNT(1) AS count").
		From(taskTableName).
		GroupBy("type").
		OrderBy("count DESC")
	for _, cond := range rangeConds(start, end) {
		builder = builder.Where(cond)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate type breakdown query: %w", err)
	}

	var counts []types.TypeCount
	err = pgxscan.Select(ctx, r.pool, &counts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch type breakdown: %w", err)
	}

	return counts, nil
}

func (r *TaskRepository) RecentInRange(ctx context.Context, start, end *time.Time, limit uint64) ([]types.TaskSummary, error) {
	builder := psql().
		Select("id", "type", "technician_name", "address", "submitted_at").
		From(taskTableName).
		OrderBy("submitted_at DESC").
		Limit(limit)
	for _, cond := range rangeConds(start, end) {
		builder = builder.Where(cond)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate recent tasks query: %w", err)
	}

	var summaries []types.TaskSummary
	err = pgxscan.Select(ctx, r.pool, &summaries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent tasks: %w", err)
	}

	return summaries, nil
}
