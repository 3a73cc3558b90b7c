package model

import "time"

// RunStatus is the lifecycle state of a whole grid run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Job is the aggregate for one grid run. It is owned by the lifecycle
// coordinator; the presentation layer only ever sees snapshots of it.
type Job struct {
	ID            string         `json:"id"`
	Keyword       string         `json:"keyword"`
	Target        TargetBusiness `json:"target"`
	Center        Coordinate     `json:"center"`
	GridSize      int            `json:"grid_size"`
	SpacingMeters float64        `json:"spacing_meters"`
	Cells         []GridCell     `json:"cells"`
	Tasks         []TaskState    `json:"tasks"`
	Status        RunStatus      `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DoneCount returns how many tasks have reached a terminal state.
func (j *Job) DoneCount() int {
	n := 0
	for i := range j.Tasks {
		if j.Tasks[i].Status.Terminal() {
			n++
		}
	}
	return n
}

// Done reports whether every task has resolved.
func (j *Job) Done() bool {
	return len(j.Tasks) > 0 && j.DoneCount() == len(j.Tasks)
}

// Task returns the task with the given provider id, or nil.
func (j *Job) Task(taskID string) *TaskState {
	for i := range j.Tasks {
		if j.Tasks[i].TaskID == taskID {
			return &j.Tasks[i]
		}
	}
	return nil
}

// PendingIDs returns the ids of all tasks still awaiting a terminal state,
// in canonical cell order.
func (j *Job) PendingIDs() []string {
	var ids []string
	for i := range j.Tasks {
		if !j.Tasks[i].Status.Terminal() {
			ids = append(ids, j.Tasks[i].TaskID)
		}
	}
	return ids
}
