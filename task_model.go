package studyhall

import "context"

type TaskID string

type TaskRecord struct {
	UserID      string
	Description string
	Completed   bool
}

type ExistingTaskRecord struct {
	ExistingRecord[TaskID]
	TaskRecord
}

type TaskRepo interface {
	InsertTask(context.Context, TaskRecord) (ExistingTaskRecord, error)
	CompleteTask(ctx context.Context, userID string, id TaskID) (ExistingTaskRecord, error)
	GetUserTasks(ctx context.Context, userID string) ([]ExistingTaskRecord, error)
}
