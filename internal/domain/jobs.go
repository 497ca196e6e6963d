package domain

import (
	"context"
	"time"
)

// PostJobCause описывает источник задачи на публикацию.
type PostJobCause string

const (
	// PostCauseManual — задача поставлена оператором вручную.
	PostCauseManual PostJobCause = "manual"
	// PostCauseScheduled — задача поставлена планировщиком.
	PostCauseScheduled PostJobCause = "scheduled"
)

// PostJob содержит информацию о задаче генерации и публикации.
type PostJob struct {
	ID          string       `json:"job_id"`
	Action      Action       `json:"action"`
	DryRun      bool         `json:"dry_run,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	Cause       PostJobCause `json:"cause"`
}

// JobQueue описывает очередь задач на публикацию.
type JobQueue interface {
	Enqueue(ctx context.Context, job PostJob) error
	// Pop блокирующе читает следующую задачу.
	Pop(ctx context.Context) (PostJob, error)
}
