package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/studyhallbot/studyhall"
)

const selectAllTasks = "SELECT id, user_id, description, completed, created_at, updated_at FROM tasks"

type taskEntity struct {
	ID          string
	UserID      string
	Description string
	Completed   bool
	CreatedAt   int64
	UpdatedAt   int64
}

type taskRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewTaskRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *taskRepo {
	return &taskRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

func (r *taskRepo) InsertTask(ctx context.Context, task studyhall.TaskRecord) (studyhall.ExistingTaskRecord, error) {
	if task.UserID == "" || task.Description == "" {
		return studyhall.ExistingTaskRecord{}, fmt.Errorf("provide required fields 'UserID' and 'Description'")
	}

	db := r.dbGetter(ctx)

	existingRecord := studyhall.ExistingTaskRecord{
		TaskRecord:     task,
		ExistingRecord: studyhall.NewExistingRecord[studyhall.TaskID](uuid.NewString()),
	}
	e := mapToTaskEntity(existingRecord)

	args := []any{
		e.ID,
		e.UserID,
		e.Description,
		e.Completed,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO tasks (id, user_id, description, completed, created_at, updated_at) VALUES " + GenerateParameters(len(args))
	r.l.Debug("creating task", "query", query, "args", args)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return studyhall.ExistingTaskRecord{}, err
	}

	return existingRecord, nil
}

func (r *taskRepo) CompleteTask(ctx context.Context, userID string, id studyhall.TaskID) (studyhall.ExistingTaskRecord, error) {
	if userID == "" || id == "" {
		return studyhall.ExistingTaskRecord{}, fmt.Errorf("provide userID and task id")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=? AND user_id=?", selectAllTasks), id, userID,
	)
	existing, err := extractTask(row)
	if err != nil {
		return studyhall.ExistingTaskRecord{}, err
	}
	if existing.Completed {
		return studyhall.ExistingTaskRecord{}, ErrNotFound
	}

	existing.Completed = true
	existing.UpdatedAt = time.Now()
	query := "UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ?"
	r.l.Debug("completing task", "query", query, "id", id)
	if _, err := db.ExecContext(ctx, query, existing.UpdatedAt.Unix(), id); err != nil {
		return studyhall.ExistingTaskRecord{}, err
	}

	return existing, nil
}

func (r *taskRepo) GetUserTasks(ctx context.Context, userID string) ([]studyhall.ExistingTaskRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("provide userID")
	}

	db := r.dbGetter(ctx)
	query := fmt.Sprintf("%s WHERE user_id=? ORDER BY created_at", selectAllTasks)
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var tasks []studyhall.ExistingTaskRecord
	for rows.Next() {
		task, err := extractTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func extractTask(s Scannable) (studyhall.ExistingTaskRecord, error) {
	var e taskEntity
	if err := s.Scan(&e.ID, &e.UserID, &e.Description, &e.Completed, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return studyhall.ExistingTaskRecord{}, ErrNotFound
		}
		return studyhall.ExistingTaskRecord{}, err
	}

	return mapToExistingTaskRecord(e), nil
}

func mapToTaskEntity(task studyhall.ExistingTaskRecord) taskEntity {
	return taskEntity{
		ID:          string(task.ID),
		UserID:      task.UserID,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt.Unix(),
		UpdatedAt:   task.UpdatedAt.Unix(),
	}
}

func mapToExistingTaskRecord(e taskEntity) studyhall.ExistingTaskRecord {
	return studyhall.ExistingTaskRecord{
		ExistingRecord: studyhall.ExistingRecord[studyhall.TaskID]{
			ID:        studyhall.TaskID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		TaskRecord: studyhall.TaskRecord{
			UserID:      e.UserID,
			Description: e.Description,
			Completed:   e.Completed,
		},
	}
}
