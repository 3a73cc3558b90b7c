// Package store persists grid runs and their per-cell task states.
// Two backends are provided: SQLite for single-user CLI use and
// Postgres for the shared server deployment.
package store

import (
	"context"
	"time"

	"github.com/sells-group/rankgrid/internal/model"
)

// RunFilter specifies criteria for listing runs. Keyword matches as a
// substring of the run's keyword.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Keyword string          `json:"keyword,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// RunSummary is the listing view of a run: identity plus progress
// counts, without the per-cell detail.
type RunSummary struct {
	ID        string          `json:"id"`
	Keyword   string          `json:"keyword"`
	Status    model.RunStatus `json:"status"`
	GridSize  int             `json:"grid_size"`
	Done      int             `json:"done"`
	Total     int             `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store defines the persistence interface for grid runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, job *model.Job) error
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (*model.Job, error)
	// GetRunByTask loads the run owning the given provider task, for
	// rank correction triggered from a single task's detail view.
	GetRunByTask(ctx context.Context, taskID string) (*model.Job, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error)
	DeleteRun(ctx context.Context, runID string) error

	// Tasks
	UpdateTask(ctx context.Context, task model.TaskState) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// SaveProgress writes a job's current status and every task state.
// Called after each merged poll cycle; task updates are idempotent so
// replaying a cycle is harmless.
func SaveProgress(ctx context.Context, s Store, job *model.Job) error {
	for _, task := range job.Tasks {
		if err := s.UpdateTask(ctx, task); err != nil {
			return err
		}
	}
	return s.UpdateRunStatus(ctx, job.ID, job.Status)
}
